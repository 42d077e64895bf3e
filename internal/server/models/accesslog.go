package models

import "time"

// Share-link audit actions.
const (
	ActionView           = "view"
	ActionPasswordVerify = "password_verify"
	ActionOtpVerify      = "otp_verify"
	ActionDownload       = "download"
)

// ShareAccessLog is one append-only audit entry for an anonymous access
// attempt. Entries are written even when the content is ultimately withheld.
type ShareAccessLog struct {
	ID          string    `db:"id"`
	ShareLinkID string    `db:"share_link_id"`
	Action      string    `db:"action"`
	IPAddress   string    `db:"ip_address"`
	UserAgent   string    `db:"user_agent"`
	CreatedAt   time.Time `db:"created_at"`
}
