// Package users provides a PostgreSQL-backed repository for identity records.
package users

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

func (r *PostgresRepository) Create(ctx context.Context, user *models.User) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, role, verified, verification_token)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING id, created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.Role, user.Verified, user.VerificationToken).
		Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return user, nil
}

func (r *PostgresRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, verified, COALESCE(verification_token, ''), created_at
		FROM users
		WHERE username = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, verified, COALESCE(verification_token, ''), created_at
		FROM users
		WHERE email = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByVerificationToken(ctx context.Context, token string) (*models.User, error) {
	query := `
		SELECT id, username, email, password_hash, role, verified, COALESCE(verification_token, ''), created_at
		FROM users
		WHERE verification_token = $1
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, token))
}

// MarkVerified flips the verified flag and clears the verification token.
func (r *PostgresRepository) MarkVerified(ctx context.Context, userID int64) error {
	query := `
		UPDATE users SET verified = TRUE, verification_token = NULL
		WHERE id = $1
	`
	res, err := r.db.ExecContext(ctx, query, userID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Role, &user.Verified, &user.VerificationToken, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}
