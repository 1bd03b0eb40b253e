package store

import (
	"context"
	"database/sql"
	"fmt"

	"volunteerhub/internal/broadcast/models"
	id "volunteerhub/pkg/domain"
	"volunteerhub/pkg/platform/sentinel"
	platformtx "volunteerhub/pkg/platform/tx"
)

const broadcastColumns = `id, event_id, author_id, message, created_at`

// PostgresStore persists broadcasts in the broadcasts table.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, b *models.Broadcast) error {
	_, err := platformtx.Exec(ctx, s.db).ExecContext(ctx, `
		INSERT INTO broadcasts (`+broadcastColumns+`)
		VALUES ($1, $2, $3, $4, $5)
	`, b.ID, b.EventID, b.AuthorID, b.Message, b.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert broadcast: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, eventID id.EventID, broadcastID id.BroadcastID) error {
	res, err := platformtx.Exec(ctx, s.db).ExecContext(ctx, `
		DELETE FROM broadcasts WHERE id = $1 AND event_id = $2
	`, broadcastID, eventID)
	if err != nil {
		return fmt.Errorf("delete broadcast: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete broadcast rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("broadcast not found: %w", sentinel.ErrNotFound)
	}
	return nil
}

// ListPage uses keyset pagination on (created_at, id) so pages stay stable
// while new broadcasts are appended.
func (s *PostgresStore) ListPage(ctx context.Context, eventID id.EventID, after models.Cursor, limit int) ([]*models.Broadcast, error) {
	var (
		rows *sql.Rows
		err  error
	)
	exec := platformtx.Exec(ctx, s.db)
	if after.IsZero() {
		rows, err = exec.QueryContext(ctx, `
			SELECT `+broadcastColumns+` FROM broadcasts
			WHERE event_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		`, eventID, limit)
	} else {
		rows, err = exec.QueryContext(ctx, `
			SELECT `+broadcastColumns+` FROM broadcasts
			WHERE event_id = $1 AND (created_at, id) < ($2, $3)
			ORDER BY created_at DESC, id DESC
			LIMIT $4
		`, eventID, after.CreatedAt, after.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list broadcasts: %w", err)
	}
	defer rows.Close()

	page := make([]*models.Broadcast, 0, limit)
	for rows.Next() {
		var b models.Broadcast
		if err := rows.Scan(&b.ID, &b.EventID, &b.AuthorID, &b.Message, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan broadcast: %w", err)
		}
		b.CreatedAt = b.CreatedAt.UTC()
		page = append(page, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate broadcasts: %w", err)
	}
	return page, nil
}
