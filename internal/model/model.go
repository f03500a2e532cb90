package model

import "time"

type Customer struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"customer_name" json:"customer_name"`
	Email     string    `db:"email" json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Event struct {
	ID         string    `db:"id" json:"id"`
	CustomerID string    `db:"customer_id" json:"customer_id"`
	Name       string    `db:"event_name" json:"event_name"`
	OrgName    string    `db:"org_name" json:"org_name"`
	StartDate  time.Time `db:"start_date" json:"start_date"`
	EndDate    time.Time `db:"end_date" json:"end_date"`
	Type       string    `db:"type_of_event" json:"type_of_event"`
	Theme      Theme     `db:"theme_option" json:"theme_option"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
	UpdatedAt  time.Time `db:"updated_at" json:"updated_at"`
}

type Registration struct {
	ID              string    `db:"id" json:"id"`
	EventID         string    `db:"event_id" json:"event_id"`
	CustomerID      string    `db:"customer_id" json:"customer_id"`
	Name            string    `db:"name" json:"name"`
	Email           string    `db:"email,omitempty" json:"email,omitempty"`
	Phone           string    `db:"phone,omitempty" json:"phone,omitempty"`
	VerificationURL string    `db:"verification_url,omitempty" json:"verification_url,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// EventPatch carries the fields of a partial event update. Nil means "leave as is".
type EventPatch struct {
	Name      *string
	OrgName   *string
	StartDate *time.Time
	EndDate   *time.Time
	Type      *string
	Theme     *Theme
}

func (p EventPatch) Empty() bool {
	return p.Name == nil && p.OrgName == nil && p.StartDate == nil &&
		p.EndDate == nil && p.Type == nil && p.Theme == nil
}

// Certificate is everything the public verification page needs for one participant.
type Certificate struct {
	Participant Registration `json:"participant"`
	Event       Event        `json:"event"`
	Customer    Customer     `json:"customer"`
}
