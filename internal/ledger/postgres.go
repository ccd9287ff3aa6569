package ledger

import (
	"context"
	"database/sql"

	dErrors "credentry/pkg/domain-errors"
	txcontext "credentry/pkg/platform/tx"
)

// PostgresGate applies each submission inside one serializable SQL
// transaction. Stores reached through the submission context join the same
// transaction via pkg/platform/tx, which is what closes the gap between a
// cross-registry authorization read and the write it guards.
type PostgresGate struct {
	db *sql.DB
}

func NewPostgresGate(db *sql.DB) *PostgresGate {
	return &PostgresGate{db: db}
}

func (g *PostgresGate) Submit(ctx context.Context, op string, fn func(ctx context.Context) error) (Confirmation, error) {
	if err := ctx.Err(); err != nil {
		return Confirmation{}, dErrors.Wrap(err, dErrors.CodeTimeout, "submission aborted: context cancelled")
	}

	tx, err := g.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return Confirmation{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to begin transaction")
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return Confirmation{}, err
	}
	if err := tx.Commit(); err != nil {
		return Confirmation{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to commit transaction")
	}
	return newConfirmation(op), nil
}
