// Package sessions provides a PostgreSQL-backed repository for refresh-token
// sessions, including the single-statement rotation that makes a used
// refresh token permanently invalid.
package sessions

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

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

func (r *PostgresRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (account_id, refresh_token, ip_address, user_agent, expires_at)
		VALUES ($1, $2, NULLIF($3, ''), NULLIF($4, ''), $5)
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		session.AccountID, session.RefreshToken, session.IPAddress, session.UserAgent, session.ExpiresAt).
		Scan(&session.ID, &session.CreatedAt)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) (*models.Session, error) {
	// One conditional UPDATE, not read-then-write: the WHERE clause both
	// authenticates the token and guards against the double-spend race.
	query := `
		UPDATE sessions
		SET refresh_token = $2, expires_at = $3
		WHERE refresh_token = $1 AND expires_at > now()
		RETURNING id, account_id
	`
	session := &models.Session{RefreshToken: newToken, ExpiresAt: expiresAt}
	err := r.db.QueryRowContext(ctx, query, oldToken, newToken, expiresAt).
		Scan(&session.ID, &session.AccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return session, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, refreshToken string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE refresh_token = $1`, refreshToken); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
