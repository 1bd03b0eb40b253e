package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"

	"volunteerhub/internal/event/models"
	"volunteerhub/internal/geo"
	id "volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/sentinel"
	platformtx "volunteerhub/pkg/platform/tx"
)

const uniqueViolation = "23505"

// PostgresStore persists events and registrations in PostgreSQL.
// Every method runs on the transaction bound to ctx when one is present.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const eventColumns = `id, organizer_id, title, description, status, event_date, start_time, end_time,
	total_slots, registration_deadline, venue_lat, venue_lon, check_in_code,
	certificates_issued, signature_url, cover_image_url, created_at, updated_at`

const registrationColumns = `id, event_id, volunteer_id, status, registered_at, checked_in_at,
	check_in_lat, check_in_lon, check_in_method, certificate_eligible, updated_at`

// -----------------------------------------------------------------------------
// Events
// -----------------------------------------------------------------------------

func (s *PostgresStore) CreateEvent(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`
	_, err := platformtx.Exec(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		event.OrganizerID,
		event.Title,
		event.Description,
		string(event.Status),
		event.EventDate,
		event.StartTime,
		event.EndTime,
		event.TotalSlots,
		event.RegistrationDeadline,
		event.Venue.Lat,
		event.Venue.Lon,
		event.CheckInCode,
		event.CertificatesIssued,
		nullString(event.SignatureURL),
		event.CoverImageURL,
		event.CreatedAt,
		event.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create event: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindEvent(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	return s.findEvent(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, eventID)
}

// FindEventForUpdate takes a row lock held until the bound transaction ends.
func (s *PostgresStore) FindEventForUpdate(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	return s.findEvent(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1 FOR UPDATE`, eventID)
}

func (s *PostgresStore) findEvent(ctx context.Context, query string, eventID id.EventID) (*models.Event, error) {
	row := platformtx.Exec(ctx, s.db).QueryRowContext(ctx, query, eventID)
	event, err := scanEvent(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) UpdateEvent(ctx context.Context, event *models.Event, expected models.EventStatus) error {
	query := `
		UPDATE events SET
			status = $2,
			title = $3,
			description = $4,
			signature_url = $5,
			cover_image_url = $6,
			updated_at = $7
		WHERE id = $1 AND status = $8
	`
	res, err := platformtx.Exec(ctx, s.db).ExecContext(ctx, query,
		event.ID,
		string(event.Status),
		event.Title,
		event.Description,
		nullString(event.SignatureURL),
		event.CoverImageURL,
		event.UpdatedAt,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("update event: %w", err)
	}
	return s.guardedResult(ctx, res, `SELECT 1 FROM events WHERE id = $1`, event.ID, "event")
}

// MarkCertificatesIssued is a single conditional UPDATE: of concurrent callers,
// the first to take the row lock flips the flag and the rest match zero rows.
func (s *PostgresStore) MarkCertificatesIssued(ctx context.Context, eventID id.EventID, at time.Time) (bool, error) {
	query := `
		UPDATE events SET
			certificates_issued = TRUE,
			certificates_issued_at = $2,
			updated_at = $2
		WHERE id = $1
			AND status = 'completed'
			AND signature_url IS NOT NULL
			AND certificates_issued = FALSE
	`
	res, err := platformtx.Exec(ctx, s.db).ExecContext(ctx, query, eventID, at)
	if err != nil {
		return false, fmt.Errorf("mark certificates issued: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark certificates issued: %w", err)
	}
	if rows == 1 {
		return true, nil
	}
	if _, err := s.FindEvent(ctx, eventID); err != nil {
		return false, err
	}
	return false, nil
}

func (s *PostgresStore) ListEventsByOrganizer(ctx context.Context, organizerID id.UserID) ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE organizer_id = $1 ORDER BY event_date DESC, created_at DESC`
	return s.queryEvents(ctx, query, organizerID)
}

func (s *PostgresStore) ListEventsByIDs(ctx context.Context, ids []id.EventID) ([]*models.Event, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ANY($1::uuid[]) ORDER BY event_date DESC, created_at DESC`
	return s.queryEvents(ctx, query, pq.Array(eventIDStrings(ids)))
}

func (s *PostgresStore) queryEvents(ctx context.Context, query string, args ...any) ([]*models.Event, error) {
	rows, err := platformtx.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

// -----------------------------------------------------------------------------
// Registrations
// -----------------------------------------------------------------------------

// CreateRegistration relies on the registrations_active_pair partial unique
// index to reject a second slot-holding registration for the same volunteer.
func (s *PostgresStore) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (` + registrationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	lat, lon := nullPoint(reg.CheckInLocation)
	_, err := platformtx.Exec(ctx, s.db).ExecContext(ctx, query,
		reg.ID,
		reg.EventID,
		reg.VolunteerID,
		string(reg.Status),
		reg.RegisteredAt,
		nullTime(reg.CheckedInAt),
		lat,
		lon,
		string(reg.CheckInMethod),
		reg.CertificateEligible,
		reg.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("create registration: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create registration: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindRegistration(ctx context.Context, regID id.RegistrationID) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE id = $1`
	return s.findRegistration(ctx, query, regID)
}

func (s *PostgresStore) FindActiveRegistration(ctx context.Context, eventID id.EventID, volunteerID id.UserID) (*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations
		WHERE event_id = $1 AND volunteer_id = $2 AND status <> 'cancelled'`
	return s.findRegistration(ctx, query, eventID, volunteerID)
}

func (s *PostgresStore) findRegistration(ctx context.Context, query string, args ...any) (*models.Registration, error) {
	row := platformtx.Exec(ctx, s.db).QueryRowContext(ctx, query, args...)
	reg, err := scanRegistration(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("registration not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find registration: %w", err)
	}
	return reg, nil
}

func (s *PostgresStore) UpdateRegistration(ctx context.Context, reg *models.Registration, expected models.RegistrationStatus) error {
	query := `
		UPDATE registrations SET
			status = $2,
			checked_in_at = $3,
			check_in_lat = $4,
			check_in_lon = $5,
			check_in_method = $6,
			certificate_eligible = $7,
			updated_at = $8
		WHERE id = $1 AND status = $9
	`
	lat, lon := nullPoint(reg.CheckInLocation)
	res, err := platformtx.Exec(ctx, s.db).ExecContext(ctx, query,
		reg.ID,
		string(reg.Status),
		nullTime(reg.CheckedInAt),
		lat,
		lon,
		string(reg.CheckInMethod),
		reg.CertificateEligible,
		reg.UpdatedAt,
		string(expected),
	)
	if err != nil {
		return fmt.Errorf("update registration: %w", err)
	}
	return s.guardedResult(ctx, res, `SELECT 1 FROM registrations WHERE id = $1`, reg.ID, "registration")
}

func (s *PostgresStore) ListRegistrationsByEvent(ctx context.Context, eventID id.EventID) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = $1 ORDER BY registered_at, id`
	return s.queryRegistrations(ctx, query, eventID)
}

func (s *PostgresStore) ListRegistrationsByEvents(ctx context.Context, ids []id.EventID) ([]*models.Registration, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE event_id = ANY($1::uuid[]) ORDER BY registered_at, id`
	return s.queryRegistrations(ctx, query, pq.Array(eventIDStrings(ids)))
}

func (s *PostgresStore) ListRegistrationsByVolunteer(ctx context.Context, volunteerID id.UserID) ([]*models.Registration, error) {
	query := `SELECT ` + registrationColumns + ` FROM registrations WHERE volunteer_id = $1 ORDER BY registered_at DESC`
	return s.queryRegistrations(ctx, query, volunteerID)
}

func (s *PostgresStore) queryRegistrations(ctx context.Context, query string, args ...any) ([]*models.Registration, error) {
	rows, err := platformtx.Exec(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var regs []*models.Registration
	for rows.Next() {
		reg, err := scanRegistration(rows)
		if err != nil {
			return nil, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate registrations: %w", err)
	}
	return regs, nil
}

func (s *PostgresStore) CountActiveRegistrations(ctx context.Context, eventID id.EventID) (int, error) {
	var count int
	err := platformtx.Exec(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND status <> 'cancelled'`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count registrations: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) MarkCertificateEligible(ctx context.Context, eventID id.EventID, at time.Time) (int, error) {
	exec := platformtx.Exec(ctx, s.db)
	_, err := exec.ExecContext(ctx, `
		UPDATE registrations SET certificate_eligible = TRUE, updated_at = $2
		WHERE event_id = $1 AND status = 'completed' AND certificate_eligible = FALSE
	`, eventID, at)
	if err != nil {
		return 0, fmt.Errorf("mark certificate eligible: %w", err)
	}
	var count int
	err = exec.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE event_id = $1 AND certificate_eligible`, eventID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count eligible registrations: %w", err)
	}
	return count, nil
}

// -----------------------------------------------------------------------------
// Scanning helpers
// -----------------------------------------------------------------------------

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(row scanner) (*models.Event, error) {
	var (
		event     models.Event
		status    string
		signature sql.NullString
	)
	err := row.Scan(
		&event.ID,
		&event.OrganizerID,
		&event.Title,
		&event.Description,
		&status,
		&event.EventDate,
		&event.StartTime,
		&event.EndTime,
		&event.TotalSlots,
		&event.RegistrationDeadline,
		&event.Venue.Lat,
		&event.Venue.Lon,
		&event.CheckInCode,
		&event.CertificatesIssued,
		&signature,
		&event.CoverImageURL,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	event.Status = models.EventStatus(status)
	event.SignatureURL = signature.String
	y, m, d := event.EventDate.Date()
	event.EventDate = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &event, nil
}

func scanRegistration(row scanner) (*models.Registration, error) {
	var (
		reg         models.Registration
		status      string
		method      string
		checkedInAt sql.NullTime
		lat, lon    sql.NullFloat64
	)
	err := row.Scan(
		&reg.ID,
		&reg.EventID,
		&reg.VolunteerID,
		&status,
		&reg.RegisteredAt,
		&checkedInAt,
		&lat,
		&lon,
		&method,
		&reg.CertificateEligible,
		&reg.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	reg.Status = models.RegistrationStatus(status)
	reg.CheckInMethod = models.CheckInMethod(method)
	if checkedInAt.Valid {
		at := checkedInAt.Time
		reg.CheckedInAt = &at
	}
	if lat.Valid && lon.Valid {
		reg.CheckInLocation = &geo.Point{Lat: lat.Float64, Lon: lon.Float64}
	}
	return &reg, nil
}

// guardedResult maps a zero-row guarded UPDATE to ErrNotFound or ErrConflict.
func (s *PostgresStore) guardedResult(ctx context.Context, res sql.Result, existsQuery string, key any, entity string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update %s: %w", entity, err)
	}
	if rows == 1 {
		return nil
	}
	var one int
	err = platformtx.Exec(ctx, s.db).QueryRowContext(ctx, existsQuery, key).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s not found: %w", entity, sentinel.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", entity, err)
	}
	return fmt.Errorf("%s status changed: %w", entity, sentinel.ErrConflict)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullPoint(p *geo.Point) (sql.NullFloat64, sql.NullFloat64) {
	if p == nil {
		return sql.NullFloat64{}, sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: p.Lat, Valid: true}, sql.NullFloat64{Float64: p.Lon, Valid: true}
}

func eventIDStrings(ids []id.EventID) []string {
	out := make([]string, len(ids))
	for i, eventID := range ids {
		out[i] = eventID.String()
	}
	return out
}
