package accounts

import (
	"context"

	"github.com/openvault/openvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	GetByID(ctx context.Context, id string) (*models.Account, error)

	// SetTotpSecret stores a pending, not-yet-trusted TOTP secret.
	SetTotpSecret(ctx context.Context, accountID, secret string) error

	// EnableMfa flips the trust flag once enrollment is confirmed.
	EnableMfa(ctx context.Context, accountID string) error

	// ClearMfa removes both the trust flag and the stored secret.
	ClearMfa(ctx context.Context, accountID string) error
}
