package service

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"certify/internal/dto"
	"certify/internal/model"
	"certify/internal/qrcode"
	"certify/internal/repo"
	"certify/internal/storage"
	"certify/pkg/slug"
	"certify/pkg/validator"
)

type Service interface {
	CreateEvent(ctx *ginext.Context)
	ListEvents(ctx *ginext.Context)
	UpdateEvent(ctx *ginext.Context)
	GetEvent(ctx *ginext.Context)
	PatchEvent(ctx *ginext.Context)
	DeleteEvent(ctx *ginext.Context)
	ListParticipants(ctx *ginext.Context)

	UploadParticipants(ctx *ginext.Context)
	GenerateQRCodes(ctx *ginext.Context)
	GenerateSingleQRCode(ctx *ginext.Context)

	SyncCustomer(ctx *ginext.Context)

	VerifyPage(ctx *ginext.Context)
	VerifyByID(ctx *ginext.Context)
}

// CertificateReader resolves a participant id to the data shown on its verification page.
type CertificateReader interface {
	GetCertificate(ctx context.Context, participantID string) (*model.Certificate, error)
	EvictEvent(ctx context.Context, eventID string)
}

type QRFetcher interface {
	FetchAll(ctx context.Context, items []qrcode.Item) (succeeded, failed []qrcode.Result)
}

type Publisher interface {
	Publish(ctx context.Context, message []byte) error
}

type Params struct {
	Repo         repo.Repository
	Certificates CertificateReader
	Fetcher      QRFetcher
	Generator    qrcode.Generator
	Store        storage.Store
	// Publisher is optional; nil disables certificate-issued notifications.
	Publisher Publisher
	Log       *zerolog.Logger

	BaseURL        string
	MaxUploadBytes int64
}

type service struct {
	repo      repo.Repository
	certs     CertificateReader
	fetcher   QRFetcher
	generator qrcode.Generator
	store     storage.Store
	publisher Publisher
	log       *zerolog.Logger

	baseURL   string
	maxUpload int64
	now       func() time.Time
}

func NewService(p Params) Service {
	certs := p.Certificates
	if certs == nil {
		certs = repo.NewCertificateCache(p.Repo, nil, 0, p.Log)
	}
	return &service{
		repo:      p.Repo,
		certs:     certs,
		fetcher:   p.Fetcher,
		generator: p.Generator,
		store:     p.Store,
		publisher: p.Publisher,
		log:       p.Log,
		baseURL:   strings.TrimRight(p.BaseURL, "/"),
		maxUpload: p.MaxUploadBytes,
		now:       time.Now,
	}
}

// bindJSON decodes and validates the body, writing a 400 on failure.
func (s *service) bindJSON(ctx *ginext.Context, req any) bool {
	if err := ctx.ShouldBindJSON(req); err != nil {
		s.log.Warn().Err(err).Str("path", ctx.FullPath()).Msg("failed to parse request body")
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return false
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		s.log.Warn().Str("path", ctx.FullPath()).Msgf("validation failed: %v", verr)
		dto.BadResponseError(ctx, dto.FieldIncorrect, verr.Error())
		return false
	}
	return true
}

func (s *service) verificationURL(customerID, eventSlug, participantID string) string {
	return s.baseURL + "/verify/" + customerID + "/" + eventSlug + "/" + participantID
}

func toEventResponse(e *model.Event) dto.EventResponse {
	return dto.EventResponse{
		ID:          e.ID,
		CustomerID:  e.CustomerID,
		EventName:   e.Name,
		Slug:        slug.Make(e.Name),
		OrgName:     e.OrgName,
		StartDate:   e.StartDate.Format(validator.DateLayout),
		EndDate:     e.EndDate.Format(validator.DateLayout),
		TypeOfEvent: e.Type,
		ThemeOption: e.Theme.OrDefault(),
		CreatedAt:   e.CreatedAt,
		UpdatedAt:   e.UpdatedAt,
	}
}

func toParticipantResponse(r *model.Registration) dto.ParticipantResponse {
	return dto.ParticipantResponse{
		ID:              r.ID,
		EventID:         r.EventID,
		Name:            r.Name,
		Email:           r.Email,
		Phone:           r.Phone,
		VerificationURL: r.VerificationURL,
		CreatedAt:       r.CreatedAt,
	}
}
