// Package accounts provides a PostgreSQL-backed repository for account
// records, including the MFA state transitions driven by the MFA service.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/openvault/openvault/internal/common"
	"github.com/openvault/openvault/internal/dbx"
	"github.com/openvault/openvault/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const accountColumns = `id, email, name, role, password_hash, mfa_enabled, COALESCE(totp_secret, ''), storage_used, storage_quota, created_at`

func (r *PostgresRepository) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	query := `
		INSERT INTO accounts (email, name, role, password_hash)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (email) DO NOTHING
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		account.Email, account.Name, account.Role, account.PasswordHash).
		Scan(&account.ID, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// ON CONFLICT DO NOTHING returns no row when the email is taken.
			return nil, common.ErrorConflict
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return account, nil
}

func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE email = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) SetTotpSecret(ctx context.Context, accountID, secret string) error {
	ok, err := dbx.ExecOne(ctx, r.db, `UPDATE accounts SET totp_secret = $2 WHERE id = $1`, accountID, secret)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) EnableMfa(ctx context.Context, accountID string) error {
	ok, err := dbx.ExecOne(ctx, r.db, `UPDATE accounts SET mfa_enabled = TRUE WHERE id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) ClearMfa(ctx context.Context, accountID string) error {
	ok, err := dbx.ExecOne(ctx, r.db, `UPDATE accounts SET mfa_enabled = FALSE, totp_secret = NULL WHERE id = $1`, accountID)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if !ok {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) scanOne(row *sql.Row) (*models.Account, error) {
	account := &models.Account{}
	err := row.Scan(&account.ID, &account.Email, &account.Name, &account.Role,
		&account.PasswordHash, &account.MfaEnabled, &account.TotpSecret,
		&account.StorageUsed, &account.StorageQuota, &account.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return account, nil
}
