package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/wb-go/wbf/ginext"

	"certify/internal/archive"
	"certify/internal/dto"
	"certify/internal/metrics"
	"certify/internal/model"
	"certify/internal/qrcode"
	"certify/internal/repo"
	"certify/internal/spreadsheet"
	"certify/pkg/slug"
)

// UploadParticipants imports a spreadsheet for an event and answers with a ZIP
// of QR codes, one per imported participant. Errors are plain text.
func (s *service) UploadParticipants(ctx *ginext.Context) {
	started := s.now()
	status := "error"
	defer func() { metrics.TrackUpload(status, started) }()

	if s.maxUpload > 0 {
		ctx.Request.Body = http.MaxBytesReader(ctx.Writer, ctx.Request.Body, s.maxUpload)
	}
	fh, err := ctx.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			ctx.String(http.StatusBadRequest, "File is too large")
			return
		}
		ctx.String(http.StatusBadRequest, "No file uploaded")
		return
	}
	eventID := strings.TrimSpace(ctx.PostForm("eventId"))
	if eventID == "" {
		ctx.String(http.StatusBadRequest, "Event ID is required")
		return
	}

	if !isUUID(eventID) {
		ctx.String(http.StatusNotFound, "Event not found")
		return
	}
	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if errors.Is(err, repo.ErrEventNotFound) {
		ctx.String(http.StatusNotFound, "Event not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("event_id", eventID).Msg("failed to get event for upload")
		ctx.String(http.StatusInternalServerError, "Failed to load event")
		return
	}

	f, err := fh.Open()
	if err != nil {
		ctx.String(http.StatusBadRequest, "Failed to read uploaded file")
		return
	}
	defer f.Close()

	rows, err := spreadsheet.Parse(fh.Filename, f)
	switch {
	case errors.Is(err, spreadsheet.ErrEmpty):
		ctx.String(http.StatusBadRequest, "No participants found in file")
		return
	case err != nil:
		s.log.Warn().Err(err).Str("file", fh.Filename).Msg("failed to parse spreadsheet")
		ctx.String(http.StatusBadRequest, "Failed to parse spreadsheet: "+err.Error())
		return
	}
	s.log.Info().Str("event_id", event.ID).Int("rows", len(rows)).Msg("spreadsheet parsed")

	regs := make([]model.Registration, len(rows))
	for i, row := range rows {
		regs[i] = model.Registration{
			EventID:    event.ID,
			CustomerID: event.CustomerID,
			Name:       row.Name,
			Email:      row.Email,
			Phone:      row.Phone,
		}
	}
	inserted, err := s.repo.InsertRegistrations(ctx.Request.Context(), regs)
	if err != nil {
		s.log.Error().Err(err).Str("event_id", event.ID).Msg("failed to insert participants")
		ctx.String(http.StatusInternalServerError, "Failed to save participants")
		return
	}
	metrics.TrackImported(len(inserted))

	eventSlug := slug.Make(event.Name)
	urls := make(map[string]string, len(inserted))
	for i := range inserted {
		inserted[i].VerificationURL = s.verificationURL(event.CustomerID, eventSlug, inserted[i].ID)
		urls[inserted[i].ID] = inserted[i].VerificationURL
	}
	if err := s.repo.SetVerificationURLs(ctx.Request.Context(), urls); err != nil {
		s.log.Error().Err(err).Str("event_id", event.ID).Msg("failed to store verification urls")
	}

	data, failed, err := s.buildArchive(ctx, inserted)
	if err != nil {
		s.log.Error().Err(err).Str("event_id", event.ID).Msg("failed to build qr archive")
		ctx.String(http.StatusInternalServerError, "Failed to generate QR codes")
		return
	}

	s.notifyIssued(ctx, event, inserted)

	status = "ok"
	if failed > 0 {
		status = "partial"
	}
	s.sendArchive(ctx, eventSlug, data, failed)
}

// GenerateQRCodes rebuilds the archive for participants already stored for an event.
func (s *service) GenerateQRCodes(ctx *ginext.Context) {
	var req dto.GenerateQRCodesRequest
	if !s.bindJSON(ctx, &req) {
		return
	}
	event, ok := s.lookupEvent(ctx, req.EventID)
	if !ok {
		return
	}

	regs, err := s.repo.ListRegistrationsByEvent(ctx.Request.Context(), event.ID)
	if err != nil {
		s.log.Error().Err(err).Str("event_id", event.ID).Msg("failed to list participants")
		dto.InternalServerError(ctx)
		return
	}
	if len(regs) == 0 {
		dto.NotFoundError(ctx, dto.NoParticipants, "No participants found for this event")
		return
	}

	eventSlug := slug.Make(event.Name)
	missing := map[string]string{}
	for i := range regs {
		if regs[i].VerificationURL == "" {
			regs[i].VerificationURL = s.verificationURL(event.CustomerID, eventSlug, regs[i].ID)
			missing[regs[i].ID] = regs[i].VerificationURL
		}
	}
	if len(missing) > 0 {
		if err := s.repo.SetVerificationURLs(ctx.Request.Context(), missing); err != nil {
			s.log.Error().Err(err).Str("event_id", event.ID).Msg("failed to store verification urls")
		}
	}

	data, failed, err := s.buildArchive(ctx, regs)
	if err != nil {
		s.log.Error().Err(err).Str("event_id", event.ID).Msg("failed to build qr archive")
		dto.InternalServerError(ctx)
		return
	}
	s.sendArchive(ctx, eventSlug, data, failed)
}

func (s *service) ListParticipants(ctx *ginext.Context) {
	event, ok := s.lookupEvent(ctx, ctx.Param("id"))
	if !ok {
		return
	}
	regs, err := s.repo.ListRegistrationsByEvent(ctx.Request.Context(), event.ID)
	if err != nil {
		s.log.Error().Err(err).Str("event_id", event.ID).Msg("failed to list participants")
		dto.InternalServerError(ctx)
		return
	}
	resp := make([]dto.ParticipantResponse, 0, len(regs))
	for i := range regs {
		resp = append(resp, toParticipantResponse(&regs[i]))
	}
	dto.SuccessResponse(ctx, resp)
}

// buildArchive fetches one QR image per registration and zips the ones that
// came back. It returns how many were dropped.
func (s *service) buildArchive(ctx *ginext.Context, regs []model.Registration) ([]byte, int, error) {
	items := make([]qrcode.Item, len(regs))
	for i, r := range regs {
		items[i] = qrcode.Item{ID: r.ID, Name: r.Name, Data: r.VerificationURL}
	}
	ok, failed := s.fetcher.FetchAll(ctx.Request.Context(), items)

	files := make([]archive.File, 0, len(ok))
	for _, r := range ok {
		files = append(files, archive.File{ParticipantID: r.ID, Name: r.Name, Data: r.PNG})
	}
	data, err := archive.Build(files)
	if err != nil {
		return nil, len(failed), err
	}
	return data, len(failed), nil
}

func (s *service) sendArchive(ctx *ginext.Context, eventSlug string, data []byte, failed int) {
	ctx.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, archive.Filename(eventSlug)))
	ctx.Header("X-QR-Failed", strconv.Itoa(failed))
	ctx.Data(http.StatusOK, "application/zip", data)
}

func (s *service) notifyIssued(ctx *ginext.Context, event *model.Event, regs []model.Registration) {
	if s.publisher == nil {
		return
	}
	sent := 0
	for _, r := range regs {
		if r.Email == "" {
			continue
		}
		payload, err := json.Marshal(dto.CertificateIssuedMessage{
			RegistrationID:  r.ID,
			EventID:         event.ID,
			EventName:       event.Name,
			OrgName:         event.OrgName,
			Name:            r.Name,
			Email:           r.Email,
			VerificationURL: r.VerificationURL,
		})
		if err != nil {
			s.log.Error().Err(err).Str("participant_id", r.ID).Msg("failed to marshal certificate message")
			continue
		}
		if err := s.publisher.Publish(ctx.Request.Context(), payload); err != nil {
			s.log.Error().Err(err).Str("participant_id", r.ID).Msg("failed to publish certificate message")
			continue
		}
		sent++
	}
	s.log.Info().Str("event_id", event.ID).Int("published", sent).Msg("certificate notifications queued")
}
