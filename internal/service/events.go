package service

import (
	"errors"
	"strings"
	"time"

	"github.com/wb-go/wbf/ginext"

	"certify/internal/dto"
	"certify/internal/model"
	"certify/internal/repo"
	"certify/pkg/validator"
)

const defaultCustomerName = "New User"

func (s *service) CreateEvent(ctx *ginext.Context) {
	var req dto.CreateEventRequest
	if !s.bindJSON(ctx, &req) {
		return
	}

	start, _ := time.Parse(validator.DateLayout, req.StartDate)
	end, _ := time.Parse(validator.DateLayout, req.EndDate)
	if end.Before(start) {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "end_date must not be before start_date")
		return
	}

	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		name = defaultCustomerName
	}
	customer, created, err := s.repo.EnsureCustomer(ctx.Request.Context(), strings.TrimSpace(req.Email), name)
	if err != nil {
		s.log.Error().Err(err).Str("email", req.Email).Msg("failed to resolve customer")
		dto.InternalServerError(ctx)
		return
	}
	if created {
		s.log.Info().Str("customer_id", customer.ID).Msg("customer created on first event")
	}

	event := &model.Event{
		CustomerID: customer.ID,
		Name:       strings.TrimSpace(req.EventName),
		OrgName:    strings.TrimSpace(req.OrgName),
		StartDate:  start,
		EndDate:    end,
		Type:       strings.TrimSpace(req.TypeOfEvent),
		Theme:      model.Theme(req.ThemeOption),
	}
	if err := s.repo.CreateEvent(ctx.Request.Context(), event); err != nil {
		s.log.Error().Err(err).Str("customer_id", customer.ID).Msg("failed to create event in DB")
		dto.InternalServerError(ctx)
		return
	}

	s.log.Info().Str("event_id", event.ID).Str("customer_id", customer.ID).Msg("event created successfully")
	dto.SuccessCreatedResponse(ctx, dto.CreateEventResponse{
		Message:    "Event created successfully",
		Event:      toEventResponse(event),
		CustomerID: customer.ID,
	})
}

func (s *service) ListEvents(ctx *ginext.Context) {
	email := strings.TrimSpace(ctx.Query("email"))
	if email == "" {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Email is required")
		return
	}

	customer, err := s.repo.GetCustomerByEmail(ctx.Request.Context(), email)
	if errors.Is(err, repo.ErrCustomerNotFound) {
		dto.CustomerNotFoundError(ctx)
		return
	}
	if err != nil {
		s.log.Error().Err(err).Msg("failed to get customer")
		dto.InternalServerError(ctx)
		return
	}

	events, err := s.repo.ListEventsByCustomer(ctx.Request.Context(), customer.ID)
	if err != nil {
		s.log.Error().Err(err).Str("customer_id", customer.ID).Msg("failed to list events")
		dto.InternalServerError(ctx)
		return
	}

	resp := dto.EventsResponse{
		Events:     make([]dto.EventResponse, 0, len(events)),
		CustomerID: customer.ID,
	}
	for i := range events {
		resp.Events = append(resp.Events, toEventResponse(&events[i]))
	}
	dto.SuccessResponse(ctx, resp)
}

func (s *service) GetEvent(ctx *ginext.Context) {
	event, ok := s.lookupEvent(ctx, ctx.Param("id"))
	if !ok {
		return
	}

	count, err := s.repo.CountRegistrations(ctx.Request.Context(), event.ID)
	if err != nil {
		s.log.Error().Err(err).Str("event_id", event.ID).Msg("failed to count registrations")
		dto.InternalServerError(ctx)
		return
	}

	resp := toEventResponse(event)
	resp.ParticipantCount = &count
	dto.SuccessResponse(ctx, resp)
}

// UpdateEvent takes the event id from the body, PatchEvent from the path.
// Only PatchEvent refuses theme changes.
func (s *service) UpdateEvent(ctx *ginext.Context) {
	var req dto.UpdateEventRequest
	if !s.bindJSON(ctx, &req) {
		return
	}
	if strings.TrimSpace(req.ID) == "" {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Event ID is required")
		return
	}
	s.applyPatch(ctx, req.ID, req)
}

func (s *service) PatchEvent(ctx *ginext.Context) {
	var req dto.UpdateEventRequest
	if !s.bindJSON(ctx, &req) {
		return
	}
	if req.ThemeOption != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "theme_option cannot be changed here")
		return
	}
	s.applyPatch(ctx, ctx.Param("id"), req)
}

func (s *service) applyPatch(ctx *ginext.Context, id string, req dto.UpdateEventRequest) {
	patch, err := toPatch(req)
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, err.Error())
		return
	}
	if patch.Empty() {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "No update data provided")
		return
	}
	if !isUUID(id) {
		dto.EventNotFoundError(ctx)
		return
	}

	event, err := s.repo.UpdateEvent(ctx.Request.Context(), id, patch)
	switch {
	case errors.Is(err, repo.ErrEventNotFound):
		dto.EventNotFoundError(ctx)
		return
	case errors.Is(err, repo.ErrNothingToUpdate):
		dto.BadResponseError(ctx, dto.FieldIncorrect, "No update data provided")
		return
	case err != nil:
		s.log.Error().Err(err).Str("event_id", id).Msg("failed to update event")
		dto.InternalServerError(ctx)
		return
	}
	s.certs.EvictEvent(ctx.Request.Context(), event.ID)
	s.log.Info().Str("event_id", event.ID).Msg("event updated successfully")
	dto.SuccessResponse(ctx, dto.UpdateEventResponse{
		Message: "Event updated successfully",
		Event:   toEventResponse(event),
	})
}

func (s *service) DeleteEvent(ctx *ginext.Context) {
	id := ctx.Param("id")
	if !isUUID(id) {
		dto.EventNotFoundError(ctx)
		return
	}

	err := s.repo.DeleteEvent(ctx.Request.Context(), id)
	if errors.Is(err, repo.ErrEventNotFound) {
		dto.EventNotFoundError(ctx)
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("event_id", id).Msg("failed to delete event")
		dto.InternalServerError(ctx)
		return
	}

	s.certs.EvictEvent(ctx.Request.Context(), id)
	s.log.Info().Str("event_id", id).Msg("event deleted")
	dto.SuccessResponse(ctx, map[string]string{"message": "Event deleted successfully"})
}

// lookupEvent writes 404/500 itself and reports whether the caller can go on.
func (s *service) lookupEvent(ctx *ginext.Context, id string) (*model.Event, bool) {
	if !isUUID(id) {
		dto.EventNotFoundError(ctx)
		return nil, false
	}
	event, err := s.repo.GetEventByID(ctx.Request.Context(), id)
	if errors.Is(err, repo.ErrEventNotFound) {
		dto.EventNotFoundError(ctx)
		return nil, false
	}
	if err != nil {
		s.log.Error().Err(err).Str("event_id", id).Msg("failed to get event")
		dto.InternalServerError(ctx)
		return nil, false
	}
	return event, true
}

func toPatch(req dto.UpdateEventRequest) (model.EventPatch, error) {
	var p model.EventPatch
	p.Name = trimmed(req.EventName)
	p.OrgName = trimmed(req.OrgName)
	p.Type = trimmed(req.TypeOfEvent)

	if req.StartDate != nil {
		t, err := time.Parse(validator.DateLayout, *req.StartDate)
		if err != nil {
			return p, errors.New(validator.ErrInvalidDate + ": start_date")
		}
		p.StartDate = &t
	}
	if req.EndDate != nil {
		t, err := time.Parse(validator.DateLayout, *req.EndDate)
		if err != nil {
			return p, errors.New(validator.ErrInvalidDate + ": end_date")
		}
		p.EndDate = &t
	}
	if p.StartDate != nil && p.EndDate != nil && p.EndDate.Before(*p.StartDate) {
		return p, errors.New("end_date must not be before start_date")
	}
	if req.ThemeOption != nil {
		theme, err := model.ParseTheme(*req.ThemeOption)
		if err != nil {
			return p, err
		}
		p.Theme = &theme
	}
	return p, nil
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
