// Package files provides a PostgreSQL-backed repository for uploaded file
// metadata. File content lives in blob storage, never in these rows.
package files

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

func (r *PostgresRepository) Create(ctx context.Context, file *models.File) (*models.File, error) {
	query := `
		INSERT INTO files (storage_key, original_name, size_bytes, content_type, uploaded_by)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, uploaded_at
	`

	err := r.db.QueryRowContext(ctx, query,
		file.StorageKey, file.OriginalName, file.Size, file.ContentType, file.UploadedBy).
		Scan(&file.ID, &file.UploadedAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id int64) (*models.File, error) {
	query := `
		SELECT id, storage_key, original_name, size_bytes, content_type, uploaded_by, uploaded_at
		FROM files
		WHERE id = $1
	`

	file := &models.File{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&file.ID, &file.StorageKey, &file.OriginalName, &file.Size,
			&file.ContentType, &file.UploadedBy, &file.UploadedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}

	return file, nil
}

func (r *PostgresRepository) List(ctx context.Context) ([]*models.File, error) {
	query := `
		SELECT id, storage_key, original_name, size_bytes, content_type, uploaded_by, uploaded_at
		FROM files
		ORDER BY uploaded_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		var item models.File
		if err := rows.Scan(&item.ID, &item.StorageKey, &item.OriginalName, &item.Size,
			&item.ContentType, &item.UploadedBy, &item.UploadedAt); err != nil {
			return nil, err
		}
		result = append(result, &item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}
