package httpapi

import (
	"context"
	"net/http"

	"github.com/openvault/openvault/internal/logging"
	"github.com/openvault/openvault/internal/server/services"
)

// MfaServiceInterface is what the MFA handler needs from the MFA service.
type MfaServiceInterface interface {
	BeginEnrollment(ctx context.Context, accountID string) (*services.EnrollmentInfo, error)
	ConfirmEnrollment(ctx context.Context, accountID, code string) (services.IssuedRecoveryCodes, error)
	RegenerateRecoveryCodes(ctx context.Context, accountID, password, totpCode string) (services.IssuedRecoveryCodes, error)
	Disable(ctx context.Context, accountID, password, totpCode string) error
}

// MfaHandler serves /auth/mfa. All routes require a bearer token.
type MfaHandler struct {
	service MfaServiceInterface
	logger  logging.Logger
}

// NewMfaHandler constructs an MfaHandler.
func NewMfaHandler(service MfaServiceInterface, logger logging.Logger) *MfaHandler {
	return &MfaHandler{service: service, logger: logger}
}

type enrollmentResponse struct {
	Secret          string `json:"secret"`
	ProvisioningURI string `json:"provisioningUri"`
}

type recoveryCodesResponse struct {
	RecoveryCodes []string `json:"recoveryCodes"`
}

// Setup handles GET /auth/mfa/setup.
func (h *MfaHandler) Setup(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	info, err := h.service.BeginEnrollment(r.Context(), accountID)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, enrollmentResponse{Secret: info.Secret, ProvisioningURI: info.OtpauthURL})
}

// Enable handles POST /auth/mfa/enable.
func (h *MfaHandler) Enable(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	var req mfaEnableRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	codes, err := h.service.ConfirmEnrollment(r.Context(), accountID, req.TotpCode)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, recoveryCodesResponse{RecoveryCodes: codes})
}

// Regenerate handles POST /auth/mfa/regenerate.
func (h *MfaHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	var req mfaReauthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	codes, err := h.service.RegenerateRecoveryCodes(r.Context(), accountID, req.PasswordConfirm, req.TotpCode)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, recoveryCodesResponse{RecoveryCodes: codes})
}

// Disable handles POST /auth/mfa/disable.
func (h *MfaHandler) Disable(w http.ResponseWriter, r *http.Request) {
	accountID, err := accountIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	var req mfaReauthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	if err := h.service.Disable(r.Context(), accountID, req.PasswordConfirm, req.TotpCode); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}
