package accesslogs

import (
	"context"

	"github.com/openvault/openvault/internal/server/models"
)

// Repository is the append-only audit trail behind share links.
type Repository interface {
	Append(ctx context.Context, entry *models.ShareAccessLog) error
	ListByShareLink(ctx context.Context, shareLinkID string, limit int) ([]*models.ShareAccessLog, error)
}
