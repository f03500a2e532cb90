package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"certify/internal/model"
	"certify/internal/qrcode"
	"certify/internal/repo"
)

// memRepo is an in-memory repo.Repository for handler tests.
type memRepo struct {
	mu            sync.Mutex
	customers     map[string]*model.Customer
	events        map[string]*model.Event
	registrations []model.Registration
	insertErr     error
	urlsSet       map[string]string
}

var _ repo.Repository = (*memRepo)(nil)

func newMemRepo() *memRepo {
	return &memRepo{
		customers: map[string]*model.Customer{},
		events:    map[string]*model.Event{},
		urlsSet:   map[string]string{},
	}
}

func (m *memRepo) addCustomer(name, email string) *model.Customer {
	c := &model.Customer{ID: uuid.NewString(), Name: name, Email: email, CreatedAt: time.Now()}
	m.customers[c.ID] = c
	return c
}

func (m *memRepo) addEvent(customerID, name string, theme model.Theme) *model.Event {
	e := &model.Event{
		ID:         uuid.NewString(),
		CustomerID: customerID,
		Name:       name,
		OrgName:    "Org",
		StartDate:  time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC),
		EndDate:    time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC),
		Type:       "Conference",
		Theme:      theme,
	}
	m.events[e.ID] = e
	return e
}

func (m *memRepo) CreateCustomer(_ context.Context, c *model.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
	cp := *c
	m.customers[c.ID] = &cp
	return nil
}

func (m *memRepo) GetCustomerByEmail(_ context.Context, email string) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if c.Email == email {
			cp := *c
			return &cp, nil
		}
	}
	return nil, repo.ErrCustomerNotFound
}

func (m *memRepo) GetCustomerByID(_ context.Context, id string) (*model.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[id]
	if !ok {
		return nil, repo.ErrCustomerNotFound
	}
	cp := *c
	return &cp, nil
}

func (m *memRepo) EnsureCustomer(ctx context.Context, email, name string) (*model.Customer, bool, error) {
	c, err := m.GetCustomerByEmail(ctx, email)
	if err == nil {
		return c, false, nil
	}
	c = &model.Customer{Name: name, Email: email}
	if err := m.CreateCustomer(ctx, c); err != nil {
		return nil, false, err
	}
	return c, true, nil
}

func (m *memRepo) CreateEvent(_ context.Context, e *model.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.NewString()
	e.CreatedAt = time.Now()
	e.UpdatedAt = e.CreatedAt
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *memRepo) GetEventByID(_ context.Context, id string) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.events[id]
	if !ok {
		return nil, repo.ErrEventNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memRepo) ListEventsByCustomer(_ context.Context, customerID string) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Event{}
	for _, e := range m.events {
		if e.CustomerID == customerID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *memRepo) UpdateEvent(_ context.Context, id string, p model.EventPatch) (*model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.Empty() {
		return nil, repo.ErrNothingToUpdate
	}
	e, ok := m.events[id]
	if !ok {
		return nil, repo.ErrEventNotFound
	}
	if p.Name != nil {
		e.Name = *p.Name
	}
	if p.OrgName != nil {
		e.OrgName = *p.OrgName
	}
	if p.StartDate != nil {
		e.StartDate = *p.StartDate
	}
	if p.EndDate != nil {
		e.EndDate = *p.EndDate
	}
	if p.Type != nil {
		e.Type = *p.Type
	}
	if p.Theme != nil {
		e.Theme = *p.Theme
	}
	e.UpdatedAt = time.Now()
	cp := *e
	return &cp, nil
}

func (m *memRepo) DeleteEvent(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.events[id]; !ok {
		return repo.ErrEventNotFound
	}
	delete(m.events, id)
	return nil
}

func (m *memRepo) InsertRegistrations(_ context.Context, regs []model.Registration) ([]model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	out := make([]model.Registration, len(regs))
	for i, r := range regs {
		r.ID = uuid.NewString()
		r.CreatedAt = time.Now()
		out[i] = r
		m.registrations = append(m.registrations, r)
	}
	return out, nil
}

func (m *memRepo) SetVerificationURLs(_ context.Context, urls map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, u := range urls {
		m.urlsSet[id] = u
		for i := range m.registrations {
			if m.registrations[i].ID == id {
				m.registrations[i].VerificationURL = u
			}
		}
	}
	return nil
}

func (m *memRepo) GetRegistrationByID(_ context.Context, id string) (*model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.registrations {
		if r.ID == id {
			cp := r
			return &cp, nil
		}
	}
	return nil, repo.ErrParticipantNotFound
}

func (m *memRepo) ListRegistrationsByEvent(_ context.Context, eventID string) ([]model.Registration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Registration{}
	for _, r := range m.registrations {
		if r.EventID == eventID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memRepo) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	regs, err := m.ListRegistrationsByEvent(ctx, eventID)
	return len(regs), err
}

func (m *memRepo) GetCertificate(ctx context.Context, participantID string) (*model.Certificate, error) {
	reg, err := m.GetRegistrationByID(ctx, participantID)
	if err != nil {
		return nil, err
	}
	event, err := m.GetEventByID(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	customer, err := m.GetCustomerByID(ctx, event.CustomerID)
	if err != nil {
		return nil, err
	}
	return &model.Certificate{Participant: *reg, Event: *event, Customer: *customer}, nil
}

func (m *memRepo) MigrateUp(string) error   { return nil }
func (m *memRepo) MigrateDown(string) error { return nil }

// fakeFetcher returns "png:<data>" for every item except names listed in failFor.
type fakeFetcher struct {
	failFor map[string]bool
}

func (f *fakeFetcher) FetchAll(_ context.Context, items []qrcode.Item) (succeeded, failed []qrcode.Result) {
	for _, it := range items {
		if f.failFor[it.Name] {
			failed = append(failed, qrcode.Result{Item: it, Err: errors.New("failed to fetch QR code: 502 Bad Gateway")})
			continue
		}
		succeeded = append(succeeded, qrcode.Result{Item: it, PNG: []byte("png:" + it.Data)})
	}
	return succeeded, failed
}

type memStore struct {
	objects map[string][]byte
}

func (s *memStore) Put(_ context.Context, key, _ string, data []byte) (string, error) {
	s.objects[key] = data
	return "/generated-qrcodes/" + key, nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages [][]byte
}

func (p *recordingPublisher) Publish(_ context.Context, message []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, message)
	return nil
}
