package sessions

import (
	"context"
	"time"

	"github.com/openvault/openvault/internal/server/models"
)

type Repository interface {
	Create(ctx context.Context, session *models.Session) error

	// Rotate replaces the token and expiry of the session currently holding
	// oldToken, provided it has not expired, and returns the updated row.
	// The lookup and overwrite are one conditional UPDATE: of two
	// concurrent rotations of the same token, exactly one wins; the loser
	// gets common.ErrorNotFound.
	Rotate(ctx context.Context, oldToken, newToken string, expiresAt time.Time) (*models.Session, error)

	// Delete removes the session holding the token. Deleting an absent
	// token is not an error.
	Delete(ctx context.Context, refreshToken string) error
}
