package grants

import (
	"context"

	"github.com/apetrenko/filevault/internal/server/models"
)

// Repository is the persistence boundary for download grants. Consume is the
// only mutation: a conditional update that reports whether this call flipped
// the consumed flag, so racing redeemers get exactly one winner without
// application-level locking. Grants are never deleted.
type Repository interface {
	Create(ctx context.Context, grant *models.DownloadGrant) error
	Get(ctx context.Context, grantID string) (*models.DownloadGrant, error)
	Consume(ctx context.Context, grantID string) (bool, error)
}
