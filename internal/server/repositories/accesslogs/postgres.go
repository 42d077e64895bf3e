// Package accesslogs provides the PostgreSQL-backed audit trail for
// anonymous share-link access.
package accesslogs

import (
	"context"
	"fmt"

	"github.com/openvault/openvault/internal/dbx"
	"github.com/openvault/openvault/internal/server/models"
)

type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, entry *models.ShareAccessLog) error {
	query := `
		INSERT INTO share_access_logs (share_link_id, action, ip_address, user_agent)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''))
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		entry.ShareLinkID, entry.Action, entry.IPAddress, entry.UserAgent).
		Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListByShareLink(ctx context.Context, shareLinkID string, limit int) ([]*models.ShareAccessLog, error) {
	query := `
		SELECT id, share_link_id, action, COALESCE(ip_address, ''), COALESCE(user_agent, ''), created_at
		FROM share_access_logs
		WHERE share_link_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, shareLinkID, limit)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var entries []*models.ShareAccessLog
	for rows.Next() {
		e := &models.ShareAccessLog{}
		if err := rows.Scan(&e.ID, &e.ShareLinkID, &e.Action, &e.IPAddress, &e.UserAgent, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return entries, nil
}
