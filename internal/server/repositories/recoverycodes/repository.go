package recoverycodes

import (
	"context"

	"github.com/openvault/openvault/internal/server/models"
)

// Repository stores hashed single-use recovery codes. Batch replacement
// (DeleteAll followed by CreateBatch) runs inside one transaction so an
// account never observes a partially issued set.
type Repository interface {
	CreateBatch(ctx context.Context, accountID string, codeHashes []string) error
	DeleteAll(ctx context.Context, accountID string) error
	ListUnused(ctx context.Context, accountID string) ([]*models.RecoveryCode, error)
	MarkUsed(ctx context.Context, id string) error
}
