// Package dbx holds the small database plumbing the filevault repositories
// share. Repositories are written against the DBTX interface rather than
// *sql.DB, so the same repository code runs standalone (one-off reads like
// loading a grant) or inside a transaction (the signup uniqueness checks).
package dbx

import (
	"context"
	"database/sql"
)

// DBTX is the query surface the repositories need. *sql.DB and *sql.Tx both
// satisfy it, which is what lets a RepositoryManager hand out repositories
// bound to either.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// WithTx runs fn inside a transaction: commit when fn returns nil, rollback
// when it returns an error or panics (the panic is rethrown). Signup uses it
// to keep the email/username uniqueness checks and the insert atomic:
//
//	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
//	    repo := m.Users(tx)
//	    if _, err := repo.GetByEmail(ctx, email); err == nil {
//	        return common.ErrorEmailTaken
//	    }
//	    _, err := repo.Create(ctx, user)
//	    return err
//	})
func WithTx(ctx context.Context, db *sql.DB, opts *sql.TxOptions, fn func(ctx context.Context, tx DBTX) error) (err error) {
	tx, err := db.BeginTx(ctx, opts)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()

	err = fn(ctx, tx)
	return err
}
