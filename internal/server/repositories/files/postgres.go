// Package files provides the read-only PostgreSQL view of the file
// registry used when resolving share-link targets.
package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openvault/openvault/internal/common"
	"github.com/openvault/openvault/internal/dbx"
	"github.com/openvault/openvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const fileColumns = `id, folder_id, name, mime_type, size, storage_key, is_trashed, created_at`

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND NOT is_trashed`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) GetFolderFile(ctx context.Context, folderID, fileID string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id = $1 AND folder_id = $2 AND NOT is_trashed`
	return r.scanOne(r.db.QueryRowContext(ctx, query, fileID, folderID))
}

func (r *PostgresRepository) ListByFolder(ctx context.Context, folderID string) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE folder_id = $1 AND NOT is_trashed ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, folderID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var result []*models.File
	for rows.Next() {
		f := &models.File{}
		if err := rows.Scan(&f.ID, &f.FolderID, &f.Name, &f.MimeType, &f.Size,
			&f.StorageKey, &f.IsTrashed, &f.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) GetFolder(ctx context.Context, id string) (*models.Folder, error) {
	folder := &models.Folder{}
	err := r.db.QueryRowContext(ctx, `SELECT id, name, created_at FROM folders WHERE id = $1`, id).
		Scan(&folder.ID, &folder.Name, &folder.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return folder, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.File, error) {
	f := &models.File{}
	err := row.Scan(&f.ID, &f.FolderID, &f.Name, &f.MimeType, &f.Size,
		&f.StorageKey, &f.IsTrashed, &f.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return f, nil
}
