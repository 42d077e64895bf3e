package sharelinks

import (
	"context"

	"github.com/openvault/openvault/internal/server/models"
)

// Repository stores share links. IncrementDownloadCount is the only write
// on the hot anonymous path and must enforce the max_downloads cap
// atomically; everything else is owner-side management.
type Repository interface {
	Create(ctx context.Context, link *models.ShareLink) error
	GetByToken(ctx context.Context, token string) (*models.ShareLink, error)
	GetByID(ctx context.Context, id string) (*models.ShareLink, error)
	Deactivate(ctx context.Context, id, createdBy string) error
	IncrementDownloadCount(ctx context.Context, id string) (bool, error)
}
