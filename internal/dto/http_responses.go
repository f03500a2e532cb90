package dto

import (
	"net/http"
	"time"

	"github.com/wb-go/wbf/ginext"

	"certify/internal/model"
)

const (
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	Unauthorized       = "UNAUTHORIZED"
	TooManyRequests    = "TOO_MANY_REQUESTS"
	InternalError      = "Service is currently unavailable. Please try again later."

	EventNotFound       = "EVENT_NOT_FOUND"
	CustomerNotFound    = "CUSTOMER_NOT_FOUND"
	ParticipantNotFound = "PARTICIPANT_NOT_FOUND"
	NoParticipants      = "NO_PARTICIPANTS"
)

type CreateEventRequest struct {
	Email        string `json:"email" validate:"required,email"`
	CustomerName string `json:"customer_name" validate:"max=255"`
	EventName    string `json:"event_name" validate:"required,max=255"`
	OrgName      string `json:"org_name" validate:"required,max=255"`
	StartDate    string `json:"start_date" validate:"required,date"`
	EndDate      string `json:"end_date" validate:"required,date"`
	TypeOfEvent  string `json:"type_of_event" validate:"required,max=100"`
	ThemeOption  string `json:"theme_option" validate:"required,theme"`
}

// UpdateEventRequest is a partial update; nil fields are left untouched.
type UpdateEventRequest struct {
	ID          string  `json:"id,omitempty"`
	EventName   *string `json:"event_name" validate:"omitempty,min=1,max=255"`
	OrgName     *string `json:"org_name" validate:"omitempty,min=1,max=255"`
	StartDate   *string `json:"start_date" validate:"omitempty,date"`
	EndDate     *string `json:"end_date" validate:"omitempty,date"`
	TypeOfEvent *string `json:"type_of_event" validate:"omitempty,min=1,max=100"`
	ThemeOption *string `json:"theme_option" validate:"omitempty,theme"`
}

type SyncCustomerRequest struct {
	CustomerName string `json:"customer_name" validate:"max=255"`
	Email        string `json:"email" validate:"required,email"`
}

type GenerateQRCodesRequest struct {
	EventID string `json:"event_id" validate:"required"`
}

type SingleQRCodeRequest struct {
	Text string `json:"text" validate:"required,max=2048"`
}

type SingleQRCodeResponse struct {
	Success bool   `json:"success"`
	URL     string `json:"url"`
}

type EventResponse struct {
	ID               string      `json:"id"`
	CustomerID       string      `json:"customer_id"`
	EventName        string      `json:"event_name"`
	Slug             string      `json:"slug"`
	OrgName          string      `json:"org_name"`
	StartDate        string      `json:"start_date"`
	EndDate          string      `json:"end_date"`
	TypeOfEvent      string      `json:"type_of_event"`
	ThemeOption      model.Theme `json:"theme_option"`
	ParticipantCount *int        `json:"participant_count,omitempty"`
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
}

type CreateEventResponse struct {
	Message    string        `json:"message"`
	Event      EventResponse `json:"event"`
	CustomerID string        `json:"customer_id"`
}

type UpdateEventResponse struct {
	Message string        `json:"message"`
	Event   EventResponse `json:"event"`
}

type EventsResponse struct {
	Events     []EventResponse `json:"events"`
	CustomerID string          `json:"customer_id"`
}

type ParticipantResponse struct {
	ID              string    `json:"id"`
	EventID         string    `json:"event_id"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	VerificationURL string    `json:"verification_url,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

type CustomerResponse struct {
	ID           string    `json:"id"`
	CustomerName string    `json:"customer_name"`
	Email        string    `json:"email"`
	Created      bool      `json:"created"`
	CreatedAt    time.Time `json:"created_at"`
}

type CertificateParticipant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type CertificateEvent struct {
	ID          string `json:"id"`
	EventName   string `json:"event_name"`
	Slug        string `json:"slug"`
	OrgName     string `json:"org_name"`
	TypeOfEvent string `json:"type_of_event"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
}

type CertificateOrganizer struct {
	ID           string `json:"id"`
	CustomerName string `json:"customer_name"`
}

// CertificateResponse is what the public verification page renders.
type CertificateResponse struct {
	Verified       bool                   `json:"verified"`
	VerificationID string                 `json:"verification_id"`
	IssuedOn       string                 `json:"issued_on"`
	Theme          model.Theme            `json:"theme"`
	Palette        model.Palette          `json:"palette"`
	Participant    CertificateParticipant `json:"participant"`
	Event          CertificateEvent       `json:"event"`
	Organizer      CertificateOrganizer   `json:"organizer"`
}

// CertificateIssuedMessage is published once per participant after an upload.
type CertificateIssuedMessage struct {
	RegistrationID  string `json:"registration_id"`
	EventID         string `json:"event_id"`
	EventName       string `json:"event_name"`
	OrgName         string `json:"org_name"`
	Name            string `json:"name"`
	Email           string `json:"email"`
	VerificationURL string `json:"verification_url"`
}

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

func ErrorResponse(c *ginext.Context, status int, code, desc string) {
	c.AbortWithStatusJSON(status, Response{
		Status: "error",
		Error: &Error{
			Code: code,
			Desc: desc,
		},
	})
}

func BadResponseError(c *ginext.Context, code, desc string) {
	ErrorResponse(c, http.StatusBadRequest, code, desc)
}

func NotFoundError(c *ginext.Context, code, desc string) {
	ErrorResponse(c, http.StatusNotFound, code, desc)
}

func InternalServerError(c *ginext.Context) {
	ErrorResponse(c, http.StatusInternalServerError, ServiceUnavailable, InternalError)
}

func EventNotFoundError(c *ginext.Context) {
	NotFoundError(c, EventNotFound, "Event not found")
}

func CustomerNotFoundError(c *ginext.Context) {
	NotFoundError(c, CustomerNotFound, "No customer found with this email")
}

func ParticipantNotFoundError(c *ginext.Context) {
	NotFoundError(c, ParticipantNotFound, "Participant not found")
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusOK, Response{
		Status: "ok",
		Data:   data,
	})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(http.StatusCreated, Response{
		Status: "ok",
		Data:   data,
	})
}
