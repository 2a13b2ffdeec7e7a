// Package grants provides a PostgreSQL-backed repository for single-use
// download grants.
package grants

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/apetrenko/filevault/internal/common"
	"github.com/apetrenko/filevault/internal/dbx"
	"github.com/apetrenko/filevault/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, grant *models.DownloadGrant) error {
	query := `
		INSERT INTO download_grants (grant_id, file_id, consumer_id, expires_at)
		VALUES ($1, $2, $3, $4)
	`
	if _, err := r.db.ExecContext(ctx, query,
		grant.ID, grant.FileID, grant.ConsumerID, grant.ExpiresAt); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, grantID string) (*models.DownloadGrant, error) {
	query := `
		SELECT grant_id, file_id, consumer_id, expires_at, consumed, created_at
		FROM download_grants
		WHERE grant_id = $1
	`

	grant := &models.DownloadGrant{}
	err := r.db.QueryRowContext(ctx, query, grantID).
		Scan(&grant.ID, &grant.FileID, &grant.ConsumerID, &grant.ExpiresAt, &grant.Consumed, &grant.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return grant, nil
}

// Consume flips consumed false→true as a single conditional update. It
// returns true only when this call performed the transition; a false result
// means the grant was missing or already consumed. Concurrent callers are
// serialized by the database row lock, never by in-process state.
func (r *PostgresRepository) Consume(ctx context.Context, grantID string) (bool, error) {
	query := `
		UPDATE download_grants SET consumed = TRUE
		WHERE grant_id = $1 AND consumed = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, grantID)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected error: %w", err)
	}
	return n == 1, nil
}
