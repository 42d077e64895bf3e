// Package sharelinks provides a PostgreSQL-backed repository for share
// links, including the atomic download-count increment that enforces the
// download cap under concurrency.
package sharelinks

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

const linkColumns = `id, file_id, folder_id, token, password_hash, permission, otp_enabled, otp_code,
	opens_at, expires_at, max_downloads, download_count, is_active, created_by, created_at`

func (r *PostgresRepository) Create(ctx context.Context, link *models.ShareLink) error {
	query := `
		INSERT INTO share_links (file_id, folder_id, token, password_hash, permission,
			otp_enabled, otp_code, opens_at, expires_at, max_downloads, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, download_count, is_active, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		link.FileID, link.FolderID, link.Token, link.PasswordHash, link.Permission,
		link.OtpEnabled, link.OtpCode, link.OpensAt, link.ExpiresAt, link.MaxDownloads, link.CreatedBy).
		Scan(&link.ID, &link.DownloadCount, &link.IsActive, &link.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) GetByToken(ctx context.Context, token string) (*models.ShareLink, error) {
	query := `SELECT ` + linkColumns + ` FROM share_links WHERE token = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, token))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.ShareLink, error) {
	query := `SELECT ` + linkColumns + ` FROM share_links WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) Deactivate(ctx context.Context, id, createdBy string) error {
	ok, err := dbx.ExecOne(ctx, r.db,
		`UPDATE share_links SET is_active = FALSE WHERE id = $1 AND created_by = $2`, id, createdBy)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

// IncrementDownloadCount bumps the counter only while the cap still has
// headroom. A false return means the cap was already reached; two
// concurrent downloads on the last slot cannot both succeed because the
// WHERE clause re-checks the count inside the UPDATE.
func (r *PostgresRepository) IncrementDownloadCount(ctx context.Context, id string) (bool, error) {
	query := `
		UPDATE share_links
		SET download_count = download_count + 1
		WHERE id = $1 AND (max_downloads IS NULL OR download_count < max_downloads)
	`
	ok, err := dbx.ExecOne(ctx, r.db, query, id)
	if err != nil {
		return false, fmt.Errorf("db error: %w", err)
	}
	return ok, nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.ShareLink, error) {
	link := &models.ShareLink{}
	err := row.Scan(&link.ID, &link.FileID, &link.FolderID, &link.Token, &link.PasswordHash,
		&link.Permission, &link.OtpEnabled, &link.OtpCode, &link.OpensAt, &link.ExpiresAt,
		&link.MaxDownloads, &link.DownloadCount, &link.IsActive, &link.CreatedBy, &link.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return link, nil
}
