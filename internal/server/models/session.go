package models

import "time"

// Session is one active refresh-token grant. An account may hold many
// concurrent sessions (multi-device). The row is rewritten in place on each
// refresh: RefreshToken and ExpiresAt are replaced, never appended.
type Session struct {
	ID           string    `db:"id"`
	AccountID    string    `db:"account_id"`
	RefreshToken string    `db:"refresh_token"`
	IPAddress    string    `db:"ip_address"`
	UserAgent    string    `db:"user_agent"`
	ExpiresAt    time.Time `db:"expires_at"`
	CreatedAt    time.Time `db:"created_at"`
}
