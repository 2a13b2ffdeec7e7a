package files

import (
	"context"

	"github.com/apetrenko/filevault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, file *models.File) (*models.File, error)
	Get(ctx context.Context, id int64) (*models.File, error)
	List(ctx context.Context) ([]*models.File, error)
}
