package files

import (
	"context"

	"github.com/openvault/openvault/internal/server/models"
)

// Repository reads the file registry on behalf of share resolution.
// Trashed files are invisible through every method here.
type Repository interface {
	GetByID(ctx context.Context, id string) (*models.File, error)
	GetFolderFile(ctx context.Context, folderID, fileID string) (*models.File, error)
	ListByFolder(ctx context.Context, folderID string) ([]*models.File, error)
	GetFolder(ctx context.Context, id string) (*models.Folder, error)
}
