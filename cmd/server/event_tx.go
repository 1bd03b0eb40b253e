package main

import (
	"context"
	"database/sql"
	"time"

	eventservice "volunteerhub/internal/event/service"
	id "volunteerhub/pkg/domain"
	dErrors "volunteerhub/pkg/domain-errors"
	platformtx "volunteerhub/pkg/platform/tx"
)

// eventPostgresTx runs event mutations in one database transaction. The
// service locks the event row with FindEventForUpdate, so writes to the same
// event serialize across processes.
type eventPostgresTx struct {
	db      *sql.DB
	store   eventservice.Store
	timeout time.Duration
}

func newEventPostgresTx(db *sql.DB, store eventservice.Store, timeout time.Duration) *eventPostgresTx {
	return &eventPostgresTx{db: db, store: store, timeout: timeout}
}

func (t *eventPostgresTx) RunInTx(ctx context.Context, _ id.EventID, fn func(ctx context.Context, store eventservice.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = eventservice.DefaultTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(platformtx.WithTx(ctx, tx), t.store); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	return nil
}
