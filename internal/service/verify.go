package service

import (
	"errors"

	"github.com/google/uuid"
	"github.com/wb-go/wbf/ginext"

	"certify/internal/dto"
	"certify/internal/metrics"
	"certify/internal/model"
	"certify/internal/repo"
	"certify/pkg/slug"
)

const certificateDateLayout = "02/01/06"

// VerifyPage serves /verify/:customerId/:eventSlug/:participantId. The slug
// is informational only, so renamed events keep old QR codes valid.
func (s *service) VerifyPage(ctx *ginext.Context) {
	cert, ok := s.resolveCertificate(ctx, ctx.Param("participantId"))
	if !ok {
		return
	}
	if cert.Customer.ID != ctx.Param("customerId") {
		metrics.TrackVerification("mismatch")
		s.log.Warn().
			Str("participant_id", cert.Participant.ID).
			Str("customer_id", ctx.Param("customerId")).
			Msg("verification url does not match certificate owner")
		dto.ParticipantNotFoundError(ctx)
		return
	}
	metrics.TrackVerification("verified")
	dto.SuccessResponse(ctx, toCertificateResponse(cert))
}

func (s *service) VerifyByID(ctx *ginext.Context) {
	cert, ok := s.resolveCertificate(ctx, ctx.Param("participantId"))
	if !ok {
		return
	}
	metrics.TrackVerification("verified")
	dto.SuccessResponse(ctx, toCertificateResponse(cert))
}

func (s *service) resolveCertificate(ctx *ginext.Context, participantID string) (*model.Certificate, bool) {
	if !isUUID(participantID) {
		metrics.TrackVerification("not_found")
		dto.ParticipantNotFoundError(ctx)
		return nil, false
	}

	cert, err := s.certs.GetCertificate(ctx.Request.Context(), participantID)
	switch {
	case err == nil:
		return cert, true
	case errors.Is(err, repo.ErrParticipantNotFound):
		metrics.TrackVerification("not_found")
		dto.ParticipantNotFoundError(ctx)
	case errors.Is(err, repo.ErrEventNotFound):
		metrics.TrackVerification("not_found")
		dto.EventNotFoundError(ctx)
	case errors.Is(err, repo.ErrCustomerNotFound):
		metrics.TrackVerification("not_found")
		dto.NotFoundError(ctx, dto.CustomerNotFound, "Customer not found")
	default:
		metrics.TrackVerification("error")
		s.log.Error().Err(err).Str("participant_id", participantID).Msg("failed to resolve certificate")
		dto.InternalServerError(ctx)
	}
	return nil, false
}

func toCertificateResponse(c *model.Certificate) dto.CertificateResponse {
	theme := c.Event.Theme.OrDefault()
	verificationID := c.Participant.ID
	if len(verificationID) > 8 {
		verificationID = verificationID[:8]
	}
	return dto.CertificateResponse{
		Verified:       true,
		VerificationID: verificationID,
		IssuedOn:       c.Participant.CreatedAt.Format(certificateDateLayout),
		Theme:          theme,
		Palette:        theme.Palette(),
		Participant: dto.CertificateParticipant{
			ID:    c.Participant.ID,
			Name:  c.Participant.Name,
			Email: c.Participant.Email,
			Phone: c.Participant.Phone,
		},
		Event: dto.CertificateEvent{
			ID:          c.Event.ID,
			EventName:   c.Event.Name,
			Slug:        slug.Make(c.Event.Name),
			OrgName:     c.Event.OrgName,
			TypeOfEvent: c.Event.Type,
			StartDate:   c.Event.StartDate.Format(certificateDateLayout),
			EndDate:     c.Event.EndDate.Format(certificateDateLayout),
		},
		Organizer: dto.CertificateOrganizer{
			ID:           c.Customer.ID,
			CustomerName: c.Customer.Name,
		},
	}
}

func isUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
