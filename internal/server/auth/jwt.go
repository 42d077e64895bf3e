// Package auth signs and verifies the short-lived access tokens that
// authenticate API requests. Tokens are HS256 JWTs carrying subject id,
// email, and role; refresh tokens are opaque strings handled elsewhere.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/openvault/openvault/internal/apperr"
)

// Claims are the assertions carried by an access token.
type Claims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Role  string `json:"role"`
}

// GenerateToken mints a signed access token for the given account.
func GenerateToken(accountID, email, role string, secretKey []byte, validity time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
		},
		Email: email,
		Role:  role,
	})

	return token.SignedString(secretKey)
}

// ParseToken verifies signature and expiry and returns the claims. Any
// verification failure — bad signature, expiry, malformed input — surfaces
// as a single typed error so callers cannot distinguish (and leak) the
// reason.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return secretKey, nil
	})
	if err != nil {
		return nil, apperr.Wrap(apperr.CodeTokenExpired, "access token is invalid or expired", err)
	}
	if !token.Valid {
		return nil, apperr.New(apperr.CodeTokenExpired, "access token is invalid or expired")
	}

	return claims, nil
}
