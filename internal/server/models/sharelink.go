package models

import "time"

// Share-link permissions.
const (
	PermissionViewer = "viewer"
	PermissionEditor = "editor"
)

// ShareLink grants anonymous access to exactly one file or one folder,
// guarded by the ordered gate checks plus optional password and OTP gates.
// DownloadCount only ever grows; IsActive is the kill switch.
type ShareLink struct {
	ID            string     `db:"id"`
	FileID        *string    `db:"file_id"`
	FolderID      *string    `db:"folder_id"`
	Token         string     `db:"token"`
	PasswordHash  *string    `db:"password_hash"`
	Permission    string     `db:"permission"`
	OtpEnabled    bool       `db:"otp_enabled"`
	OtpCode       *string    `db:"otp_code"`
	OpensAt       *time.Time `db:"opens_at"`
	ExpiresAt     *time.Time `db:"expires_at"`
	MaxDownloads  *int       `db:"max_downloads"`
	DownloadCount int        `db:"download_count"`
	IsActive      bool       `db:"is_active"`
	CreatedBy     string     `db:"created_by"`
	CreatedAt     time.Time  `db:"created_at"`
}

// RequiresPassword reports whether the password gate is armed.
func (l *ShareLink) RequiresPassword() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}
