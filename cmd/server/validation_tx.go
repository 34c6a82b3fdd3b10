package main

import (
	"context"
	"database/sql"
	"time"

	"stilltrue/internal/validation"
	validationservice "stilltrue/internal/validation/service"
	id "stilltrue/pkg/domain"
	dErrors "stilltrue/pkg/domain-errors"
)

const defaultValidationTxTimeout = 5 * time.Second

// validationPostgresTx runs workflow transactions against postgres. The
// claim scoping is advisory here; row locks inside the transaction do the
// serialization.
type validationPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newValidationPostgresTx(db *sql.DB) *validationPostgresTx {
	return &validationPostgresTx{db: db}
}

func (t *validationPostgresTx) RunInClaimTx(ctx context.Context, _ id.ClaimID, fn func(store validation.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultValidationTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(validation.NewPostgresTx(tx)); err != nil {
		return err
	}

	return tx.Commit()
}

var _ validationservice.Tx = (*validationPostgresTx)(nil)
