package models

import "time"

// RecoveryCode is a single-use backup credential. Only the Argon2id hash is
// stored; the plaintext exists exactly once, in the enrollment response.
type RecoveryCode struct {
	ID        string     `db:"id"`
	AccountID string     `db:"account_id"`
	CodeHash  string     `db:"code_hash"`
	Used      bool       `db:"used"`
	UsedAt    *time.Time `db:"used_at"`
	CreatedAt time.Time  `db:"created_at"`
}
