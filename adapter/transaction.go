package adapter

import (
	"context"
	"database/sql"
	"errors"

	"github.com/forgecms/storage/result"
)

// Tx exposes the statement surface of an open transaction to caller
// callbacks without leaking *sql.Tx lifecycle methods. Commit and
// rollback stay with the adapter.
type Tx struct {
	tx *sql.Tx
}

func (t *Tx) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return t.tx.ExecContext(ctx, query, args...)
}

func (t *Tx) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

func (t *Tx) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

// Transaction runs fn inside a database transaction. Returning nil
// commits. Returning result.ErrRollback (or anything wrapping it) rolls
// back and reports TRANSACTION_ROLLED_BACK; any other error rolls back
// and reports TRANSACTION_FAILED.
func (a *Adapter) Transaction(ctx context.Context, fn func(tx *Tx) error) result.Result[bool] {
	c := a.core
	db, err := c.database()
	if err != nil {
		return result.Fail[bool](result.CodeNotConnected, err.Error())
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		c.log.Error().Err(err).Msg("begin transaction failed")
		return result.Fail[bool](result.CodeTransactionFailed, err.Error())
	}

	if err := fn(&Tx{tx: tx}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			c.log.Error().Err(rbErr).Msg("rollback failed")
		}
		if errors.Is(err, result.ErrRollback) {
			return result.Fail[bool](result.CodeTransactionRolledBack, err.Error())
		}
		return result.Fail[bool](result.CodeTransactionFailed, err.Error())
	}

	if err := tx.Commit(); err != nil {
		c.log.Error().Err(err).Msg("commit failed")
		return result.Fail[bool](result.CodeTransactionFailed, err.Error())
	}
	return result.OK(true)
}
