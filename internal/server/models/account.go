// Package models defines the persistent entities of the trust boundary:
// accounts, sessions, recovery codes, share links, access logs, and the
// minimal file/folder records share resolution needs.
package models

import "time"

// Account is a registered identity. PasswordHash is an Argon2id PHC string.
// TotpSecret is set during MFA enrollment and only trusted once MfaEnabled
// is true.
type Account struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	Name         string    `db:"name"`
	Role         string    `db:"role"`
	PasswordHash string    `db:"password_hash"`
	MfaEnabled   bool      `db:"mfa_enabled"`
	TotpSecret   string    `db:"totp_secret"`
	StorageUsed  int64     `db:"storage_used"`
	StorageQuota int64     `db:"storage_quota"`
	CreatedAt    time.Time `db:"created_at"`
}

// Summary is the client-facing projection of an Account. Credential and MFA
// material never leaves through it.
type Summary struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// Summary returns the account's client-facing projection.
func (a *Account) Summary() Summary {
	return Summary{ID: a.ID, Email: a.Email, Name: a.Name, Role: a.Role}
}
