package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/dbpg"

	"certify/internal/model"
)

var (
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrEventNotFound       = errors.New("event not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrNothingToUpdate     = errors.New("no update data provided")
)

type Repository interface {
	CreateCustomer(ctx context.Context, c *model.Customer) error
	GetCustomerByEmail(ctx context.Context, email string) (*model.Customer, error)
	GetCustomerByID(ctx context.Context, id string) (*model.Customer, error)
	EnsureCustomer(ctx context.Context, email, name string) (*model.Customer, bool, error)

	CreateEvent(ctx context.Context, e *model.Event) error
	GetEventByID(ctx context.Context, id string) (*model.Event, error)
	ListEventsByCustomer(ctx context.Context, customerID string) ([]model.Event, error)
	UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error)
	DeleteEvent(ctx context.Context, id string) error

	InsertRegistrations(ctx context.Context, regs []model.Registration) ([]model.Registration, error)
	SetVerificationURLs(ctx context.Context, urls map[string]string) error
	GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error)
	ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error)
	CountRegistrations(ctx context.Context, eventID string) (int, error)

	GetCertificate(ctx context.Context, participantID string) (*model.Certificate, error)

	MigrateUp(migrationsDir string) error
	MigrateDown(migrationsDir string) error
}

// querier is the part of *dbpg.DB (and *sql.DB) the repository talks to.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type repository struct {
	db  querier
	log *zerolog.Logger
}

func NewRepository(db *dbpg.DB, log *zerolog.Logger) (Repository, error) {
	if db == nil {
		return nil, fmt.Errorf("db cannot be nil")
	}
	if err := db.Master.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping DB: %w", err)
	}
	return &repository{db: db, log: log}, nil
}

func newRepository(db querier, log *zerolog.Logger) *repository {
	return &repository{db: db, log: log}
}

func (r *repository) MigrateUp(migrationsDir string) error {
	return r.runMigrations(migrationsDir, "*.up.sql", false)
}

func (r *repository) MigrateDown(migrationsDir string) error {
	return r.runMigrations(migrationsDir, "*.down.sql", true)
}

func (r *repository) runMigrations(dir, pattern string, reverse bool) error {
	files, err := filepath.Glob(filepath.Join(dir, pattern))
	if err != nil {
		return fmt.Errorf("failed to read migration files: %w", err)
	}
	sort.Strings(files)
	if reverse {
		sort.Sort(sort.Reverse(sort.StringSlice(files)))
	}

	for _, file := range files {
		sqlBytes, err := os.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}
		if _, err := r.db.ExecContext(context.Background(), string(sqlBytes)); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file, err)
		}
	}

	r.log.Info().Int("files", len(files)).Msgf("Migrations %s applied from %s", pattern, dir)
	return nil
}

const customerColumns = `id, customer_name, email, created_at`

func scanCustomer(row interface{ Scan(...interface{}) error }) (*model.Customer, error) {
	var c model.Customer
	if err := row.Scan(&c.ID, &c.Name, &c.Email, &c.CreatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *repository) CreateCustomer(ctx context.Context, c *model.Customer) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	query := `
		INSERT INTO customers (id, customer_name, email)
		VALUES ($1, $2, $3)
		RETURNING created_at
	`
	if err := r.db.QueryRowContext(ctx, query, c.ID, c.Name, c.Email).Scan(&c.CreatedAt); err != nil {
		return fmt.Errorf("failed to insert customer: %w", err)
	}
	return nil
}

func (r *repository) GetCustomerByEmail(ctx context.Context, email string) (*model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE email = $1`
	c, err := scanCustomer(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer by email: %w", err)
	}
	return c, nil
}

func (r *repository) GetCustomerByID(ctx context.Context, id string) (*model.Customer, error) {
	query := `SELECT ` + customerColumns + ` FROM customers WHERE id = $1`
	c, err := scanCustomer(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCustomerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}

// EnsureCustomer returns the customer registered under email, creating it when
// absent. The bool reports whether a new row was inserted.
func (r *repository) EnsureCustomer(ctx context.Context, email, name string) (*model.Customer, bool, error) {
	c, err := r.GetCustomerByEmail(ctx, email)
	if err == nil {
		return c, false, nil
	}
	if !errors.Is(err, ErrCustomerNotFound) {
		return nil, false, err
	}

	c = &model.Customer{ID: uuid.NewString(), Name: name, Email: email}
	query := `
		INSERT INTO customers (id, customer_name, email)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO NOTHING
		RETURNING created_at
	`
	err = r.db.QueryRowContext(ctx, query, c.ID, c.Name, c.Email).Scan(&c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		// a concurrent request created it first
		c, err = r.GetCustomerByEmail(ctx, email)
		if err != nil {
			return nil, false, err
		}
		return c, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert customer: %w", err)
	}
	return c, true, nil
}

const eventColumns = `id, customer_id, event_name, org_name, start_date, end_date,
		       type_of_event, theme_option, created_at, updated_at`

func scanEvent(row interface{ Scan(...interface{}) error }) (*model.Event, error) {
	var e model.Event
	if err := row.Scan(
		&e.ID, &e.CustomerID, &e.Name, &e.OrgName, &e.StartDate, &e.EndDate,
		&e.Type, &e.Theme, &e.CreatedAt, &e.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repository) CreateEvent(ctx context.Context, e *model.Event) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	query := `
		INSERT INTO events (id, customer_id, event_name, org_name, start_date, end_date, type_of_event, theme_option)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at, updated_at
	`
	row := r.db.QueryRowContext(ctx, query,
		e.ID, e.CustomerID, e.Name, e.OrgName, e.StartDate, e.EndDate, e.Type, string(e.Theme),
	)
	if err := row.Scan(&e.CreatedAt, &e.UpdatedAt); err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

func (r *repository) GetEventByID(ctx context.Context, id string) (*model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	e, err := scanEvent(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

func (r *repository) ListEventsByCustomer(ctx context.Context, customerID string) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE customer_id = $1 ORDER BY start_date DESC, created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, customerID)
	if err != nil {
		return nil, fmt.Errorf("failed to get events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate events: %w", err)
	}
	return events, nil
}

func (r *repository) UpdateEvent(ctx context.Context, id string, patch model.EventPatch) (*model.Event, error) {
	if patch.Empty() {
		return nil, ErrNothingToUpdate
	}

	var (
		sets []string
		args []interface{}
	)
	add := func(col string, v interface{}) {
		args = append(args, v)
		sets = append(sets, fmt.Sprintf("%s = $%d", col, len(args)))
	}
	if patch.Name != nil {
		add("event_name", *patch.Name)
	}
	if patch.OrgName != nil {
		add("org_name", *patch.OrgName)
	}
	if patch.StartDate != nil {
		add("start_date", *patch.StartDate)
	}
	if patch.EndDate != nil {
		add("end_date", *patch.EndDate)
	}
	if patch.Type != nil {
		add("type_of_event", *patch.Type)
	}
	if patch.Theme != nil {
		add("theme_option", string(*patch.Theme))
	}
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE events
		SET %s, updated_at = NOW()
		WHERE id = $%d
		RETURNING %s
	`, strings.Join(sets, ", "), len(args), eventColumns)

	e, err := scanEvent(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrEventNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update event: %w", err)
	}
	return e, nil
}

func (r *repository) DeleteEvent(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if n == 0 {
		return ErrEventNotFound
	}
	return nil
}

// InsertRegistrations writes all rows in one statement. Ids are assigned here,
// so the returned slice keeps the input order.
func (r *repository) InsertRegistrations(ctx context.Context, regs []model.Registration) ([]model.Registration, error) {
	if len(regs) == 0 {
		return nil, nil
	}

	eventID, customerID := regs[0].EventID, regs[0].CustomerID
	out := make([]model.Registration, len(regs))
	ids := make([]string, len(regs))
	names := make([]string, len(regs))
	emails := make([]string, len(regs))
	phones := make([]string, len(regs))
	pos := make(map[string]int, len(regs))
	for i, reg := range regs {
		if reg.EventID != eventID || reg.CustomerID != customerID {
			return nil, fmt.Errorf("registrations must share one event and customer")
		}
		if reg.ID == "" {
			reg.ID = uuid.NewString()
		}
		out[i] = reg
		ids[i], names[i], emails[i], phones[i] = reg.ID, reg.Name, reg.Email, reg.Phone
		pos[reg.ID] = i
	}

	query := `
		INSERT INTO registrations (id, event_id, customer_id, name, email, phone)
		SELECT u.id, $1, $2, u.name, NULLIF(u.email, ''), NULLIF(u.phone, '')
		FROM unnest($3::uuid[], $4::text[], $5::text[], $6::text[]) AS u(id, name, email, phone)
		RETURNING id, created_at
	`
	rows, err := r.db.QueryContext(ctx, query,
		eventID, customerID, pq.Array(ids), pq.Array(names), pq.Array(emails), pq.Array(phones),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert registrations: %w", err)
	}
	defer rows.Close()

	inserted := 0
	for rows.Next() {
		var id string
		var reg model.Registration
		if err := rows.Scan(&id, &reg.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan inserted registration: %w", err)
		}
		if i, ok := pos[id]; ok {
			out[i].CreatedAt = reg.CreatedAt
			inserted++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to insert registrations: %w", err)
	}
	if inserted != len(regs) {
		return nil, fmt.Errorf("inserted %d of %d registrations", inserted, len(regs))
	}
	return out, nil
}

// SetVerificationURLs stores url per registration id in one statement.
func (r *repository) SetVerificationURLs(ctx context.Context, urls map[string]string) error {
	if len(urls) == 0 {
		return nil
	}
	ids := make([]string, 0, len(urls))
	for id := range urls {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	values := make([]string, len(ids))
	for i, id := range ids {
		values[i] = urls[id]
	}

	query := `
		UPDATE registrations AS r
		SET verification_url = v.url
		FROM unnest($1::uuid[], $2::text[]) AS v(id, url)
		WHERE r.id = v.id
	`
	if _, err := r.db.ExecContext(ctx, query, pq.Array(ids), pq.Array(values)); err != nil {
		return fmt.Errorf("failed to update verification urls: %w", err)
	}
	return nil
}

const registrationColumns = `id, event_id, customer_id, name, COALESCE(email, ''), COALESCE(phone, ''),
		       COALESCE(verification_url, ''), created_at`

func scanRegistration(row interface{ Scan(...interface{}) error }) (*model.Registration, error) {
	var reg model.Registration
	if err := row.Scan(
		&reg.ID, &reg.EventID, &reg.CustomerID, &reg.Name, &reg.Email, &reg.Phone,
		&reg.VerificationURL, &reg.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (r *repository) GetRegistrationByID(ctx context.Context, id string) (*model.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	reg, err := scanRegistration(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrParticipantNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get registration: %w", err)
	}
	return reg, nil
}

func (r *repository) ListRegistrationsByEvent(ctx context.Context, eventID string) ([]model.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 ORDER BY created_at ASC, name ASC`

	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to get registrations: %w", err)
	}
	defer rows.Close()

	regs := []model.Registration{}
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan registration: %w", err)
		}
		regs = append(regs, *reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate registrations: %w", err)
	}
	return regs, nil
}

func (r *repository) CountRegistrations(ctx context.Context, eventID string) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE event_id = $1`, eventID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count registrations: %w", err)
	}
	return count, nil
}

// GetCertificate resolves participant -> event -> customer. Each missing link
// has its own sentinel so the verification page can say which one is absent.
func (r *repository) GetCertificate(ctx context.Context, participantID string) (*model.Certificate, error) {
	reg, err := r.GetRegistrationByID(ctx, participantID)
	if err != nil {
		return nil, err
	}
	event, err := r.GetEventByID(ctx, reg.EventID)
	if err != nil {
		return nil, err
	}
	customer, err := r.GetCustomerByID(ctx, reg.CustomerID)
	if err != nil {
		return nil, err
	}
	return &model.Certificate{Participant: *reg, Event: *event, Customer: *customer}, nil
}
