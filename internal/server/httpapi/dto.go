package httpapi

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/openvault/openvault/internal/apperr"
)

// Request DTOs. Every body is decoded strictly (unknown fields rejected)
// and validated before any service call; handlers never touch raw maps.

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

const minPasswordLength = 8

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.New(apperr.CodeValidationFailed, "malformed request body")
	}
	return nil
}

// decodeJSONOptional is decodeJSON for endpoints whose body may be omitted
// entirely; an absent body leaves dst at its zero value.
func decodeJSONOptional(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.New(apperr.CodeValidationFailed, "malformed request body")
	}
	return nil
}

type registerRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

func (r *registerRequest) Validate() error {
	if !emailPattern.MatchString(r.Email) {
		return apperr.New(apperr.CodeValidationFailed, "a valid email is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return apperr.New(apperr.CodeValidationFailed, "name is required")
	}
	if len(r.Password) < minPasswordLength {
		return apperr.New(apperr.CodeValidationFailed, "password must be at least 8 characters")
	}
	return nil
}

type loginRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	TotpCode     string `json:"totpCode,omitempty"`
	RecoveryCode string `json:"recoveryCode,omitempty"`
}

func (r *loginRequest) Validate() error {
	if r.Email == "" || r.Password == "" {
		return apperr.New(apperr.CodeValidationFailed, "email and password are required")
	}
	return nil
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type mfaEnableRequest struct {
	TotpCode string `json:"totpCode"`
}

func (r *mfaEnableRequest) Validate() error {
	if strings.TrimSpace(r.TotpCode) == "" {
		return apperr.New(apperr.CodeValidationFailed, "totpCode is required")
	}
	return nil
}

type mfaReauthRequest struct {
	PasswordConfirm string `json:"passwordConfirm"`
	TotpCode        string `json:"totpCode"`
}

func (r *mfaReauthRequest) Validate() error {
	if r.PasswordConfirm == "" {
		return apperr.New(apperr.CodeValidationFailed, "passwordConfirm is required")
	}
	return nil
}

type sharePasswordRequest struct {
	Password string `json:"password"`
}

func (r *sharePasswordRequest) Validate() error {
	if r.Password == "" {
		return apperr.New(apperr.CodeValidationFailed, "password is required")
	}
	return nil
}

type shareOtpRequest struct {
	Otp string `json:"otp"`
}

func (r *shareOtpRequest) Validate() error {
	if strings.TrimSpace(r.Otp) == "" {
		return apperr.New(apperr.CodeValidationFailed, "otp is required")
	}
	return nil
}

type createLinkRequest struct {
	FileID       string     `json:"fileId,omitempty"`
	FolderID     string     `json:"folderId,omitempty"`
	Password     string     `json:"password,omitempty"`
	Permission   string     `json:"permission,omitempty"`
	OtpEnabled   bool       `json:"otpEnabled,omitempty"`
	OpensAt      *time.Time `json:"opensAt,omitempty"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	MaxDownloads *int       `json:"maxDownloads,omitempty"`
}

func (r *createLinkRequest) Validate() error {
	if (r.FileID == "") == (r.FolderID == "") {
		return apperr.New(apperr.CodeValidationFailed, "exactly one of fileId and folderId is required")
	}
	if r.Permission != "" && r.Permission != "viewer" && r.Permission != "editor" {
		return apperr.New(apperr.CodeValidationFailed, "permission must be viewer or editor")
	}
	if r.MaxDownloads != nil && *r.MaxDownloads < 1 {
		return apperr.New(apperr.CodeValidationFailed, "maxDownloads must be positive")
	}
	if r.OpensAt != nil && r.ExpiresAt != nil && !r.OpensAt.Before(*r.ExpiresAt) {
		return apperr.New(apperr.CodeValidationFailed, "opensAt must precede expiresAt")
	}
	return nil
}

// shareContentRequest carries the gate proofs for download and preview.
type shareContentRequest struct {
	FileID   string `json:"fileId,omitempty"`
	Password string `json:"password,omitempty"`
	OtpCode  string `json:"otpCode,omitempty"`
}
