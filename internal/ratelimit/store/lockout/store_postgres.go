package lockout

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"volunteerhub/internal/ratelimit/models"
)

// PostgresStore persists lockout records in check_in_lockouts.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const lockoutColumns = `key, failure_count, window_start, last_failure_at, locked_until`

func (s *PostgresStore) Get(ctx context.Context, key string) (*models.Lockout, error) {
	record, err := scanLockout(s.db.QueryRowContext(ctx,
		`SELECT `+lockoutColumns+` FROM check_in_lockouts WHERE key = $1`, key))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get lockout: %w", err)
	}
	return record, nil
}

// RecordFailure is a single upsert so concurrent failures cannot slip past
// the threshold between a read and a write.
func (s *PostgresStore) RecordFailure(ctx context.Context, key string, now, cutoff time.Time) (*models.Lockout, error) {
	query := `
		INSERT INTO check_in_lockouts (` + lockoutColumns + `)
		VALUES ($1, 1, $2, $2, NULL)
		ON CONFLICT (key) DO UPDATE SET
			failure_count = CASE WHEN check_in_lockouts.window_start <= $3 THEN 1
				ELSE check_in_lockouts.failure_count + 1 END,
			window_start = CASE WHEN check_in_lockouts.window_start <= $3 THEN $2
				ELSE check_in_lockouts.window_start END,
			last_failure_at = $2
		RETURNING ` + lockoutColumns
	record, err := scanLockout(s.db.QueryRowContext(ctx, query, key, now, cutoff))
	if err != nil {
		return nil, fmt.Errorf("record check-in failure: %w", err)
	}
	return record, nil
}

func (s *PostgresStore) Update(ctx context.Context, record *models.Lockout) error {
	if record == nil {
		return fmt.Errorf("lockout record is required")
	}
	query := `
		INSERT INTO check_in_lockouts (` + lockoutColumns + `)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (key) DO UPDATE SET
			failure_count = EXCLUDED.failure_count,
			window_start = EXCLUDED.window_start,
			last_failure_at = EXCLUDED.last_failure_at,
			locked_until = EXCLUDED.locked_until
	`
	_, err := s.db.ExecContext(ctx, query,
		record.Key,
		record.FailureCount,
		record.WindowStart,
		record.LastFailureAt,
		record.LockedUntil,
	)
	if err != nil {
		return fmt.Errorf("update lockout: %w", err)
	}
	return nil
}

func (s *PostgresStore) Clear(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM check_in_lockouts WHERE key = $1`, key); err != nil {
		return fmt.Errorf("clear lockout: %w", err)
	}
	return nil
}

// DeleteExpired removes records whose window and lock both ended before cutoff.
func (s *PostgresStore) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM check_in_lockouts
		WHERE last_failure_at < $1 AND (locked_until IS NULL OR locked_until < $1)
	`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired lockouts: %w", err)
	}
	return res.RowsAffected()
}

type lockoutRow interface {
	Scan(dest ...any) error
}

func scanLockout(row lockoutRow) (*models.Lockout, error) {
	var record models.Lockout
	var lockedUntil sql.NullTime
	if err := row.Scan(&record.Key, &record.FailureCount, &record.WindowStart, &record.LastFailureAt, &lockedUntil); err != nil {
		return nil, err
	}
	if lockedUntil.Valid {
		record.LockedUntil = &lockedUntil.Time
	}
	return &record, nil
}
