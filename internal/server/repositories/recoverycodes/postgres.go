// Package recoverycodes provides a PostgreSQL-backed repository for
// single-use MFA recovery codes.
package recoverycodes

import (
	"context"
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

func (r *PostgresRepository) CreateBatch(ctx context.Context, accountID string, codeHashes []string) error {
	query := `INSERT INTO recovery_codes (account_id, code_hash) VALUES ($1, $2)`
	for _, hash := range codeHashes {
		if _, err := r.db.ExecContext(ctx, query, accountID, hash); err != nil {
			return fmt.Errorf("db error: %w", err)
		}
	}
	return nil
}

func (r *PostgresRepository) DeleteAll(ctx context.Context, accountID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM recovery_codes WHERE account_id = $1`, accountID); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *PostgresRepository) ListUnused(ctx context.Context, accountID string) ([]*models.RecoveryCode, error) {
	query := `
		SELECT id, account_id, code_hash, used, used_at, created_at
		FROM recovery_codes
		WHERE account_id = $1 AND NOT used
		ORDER BY created_at
	`
	rows, err := r.db.QueryContext(ctx, query, accountID)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	defer rows.Close()

	var codes []*models.RecoveryCode
	for rows.Next() {
		c := &models.RecoveryCode{}
		if err := rows.Scan(&c.ID, &c.AccountID, &c.CodeHash, &c.Used, &c.UsedAt, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		codes = append(codes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return codes, nil
}

func (r *PostgresRepository) MarkUsed(ctx context.Context, id string) error {
	// The NOT used guard keeps a recovery code strictly single-use even
	// when two logins race on the same code.
	ok, err := dbx.ExecOne(ctx, r.db,
		`UPDATE recovery_codes SET used = TRUE, used_at = now() WHERE id = $1 AND NOT used`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}
