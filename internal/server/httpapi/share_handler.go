package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/openvault/openvault/internal/apperr"
	"github.com/openvault/openvault/internal/logging"
	"github.com/openvault/openvault/internal/server/metrics"
	"github.com/openvault/openvault/internal/server/models"
	"github.com/openvault/openvault/internal/server/services"
)

// ShareServiceInterface is what the share handler needs from the share
// service.
type ShareServiceInterface interface {
	ViewMetadata(ctx context.Context, token string, client services.ClientInfo) (*services.ShareView, error)
	VerifyPassword(ctx context.Context, token, password string, client services.ClientInfo) error
	VerifyOTP(ctx context.Context, token, code string, client services.ClientInfo) error
	Download(ctx context.Context, token, fileID string, proof services.AccessProof, client services.ClientInfo) (*services.ContentHandle, error)
	Preview(ctx context.Context, token, fileID string, proof services.AccessProof, client services.ClientInfo) (*services.ContentHandle, error)
	CreateLink(ctx context.Context, ownerID string, in services.CreateLinkInput) (*services.CreatedLink, error)
	DeactivateLink(ctx context.Context, ownerID, linkID string) error
	ListAccessLog(ctx context.Context, ownerID, linkID string) ([]*models.ShareAccessLog, error)
}

// ShareHandler serves the anonymous share-link flows under
// /sharing/link/{token} and the bearer-gated link management.
type ShareHandler struct {
	service ShareServiceInterface
	metrics *metrics.Collector
	logger  logging.Logger
}

// NewShareHandler constructs a ShareHandler.
func NewShareHandler(service ShareServiceInterface, collector *metrics.Collector, logger logging.Logger) *ShareHandler {
	return &ShareHandler{service: service, metrics: collector, logger: logger}
}

// gateRefusal feeds the refusal counter for the gate error codes.
func (h *ShareHandler) gateRefusal(err error) {
	switch code := apperr.CodeOf(err); code {
	case apperr.CodeLinkDisabled, apperr.CodeNotYetOpen, apperr.CodeLinkExpired,
		apperr.CodeLimitReached, apperr.CodeWrongPassword, apperr.CodeWrongOtp:
		h.metrics.RecordGateRefusal(string(code))
	}
}

// View handles GET /sharing/link/{token}.
func (h *ShareHandler) View(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	view, err := h.service.ViewMetadata(r.Context(), token, clientInfo(r))
	if err != nil {
		h.gateRefusal(err)
		writeError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, view)
}

// VerifyPassword handles POST /sharing/link/{token}/verify.
func (h *ShareHandler) VerifyPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req sharePasswordRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	if err := h.service.VerifyPassword(r.Context(), token, req.Password, clientInfo(r)); err != nil {
		h.gateRefusal(err)
		writeError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

// VerifyOtp handles POST /sharing/link/{token}/verify-otp.
func (h *ShareHandler) VerifyOtp(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req shareOtpRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	if err := h.service.VerifyOTP(r.Context(), token, req.Otp, clientInfo(r)); err != nil {
		h.gateRefusal(err)
		writeError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}

// Download handles POST /sharing/link/{token}/download.
func (h *ShareHandler) Download(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	// body is optional: direct-file links need neither fileId nor proofs
	var req shareContentRequest
	if err := decodeJSONOptional(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	handle, err := h.service.Download(r.Context(), token, req.FileID,
		services.AccessProof{Password: req.Password, OtpCode: req.OtpCode}, clientInfo(r))
	if err != nil {
		h.gateRefusal(err)
		writeError(r.Context(), w, h.logger, err)
		return
	}

	h.metrics.RecordShareDownload()
	writeJSON(w, http.StatusOK, handle)
}

// Preview handles POST /sharing/link/{token}/preview.
func (h *ShareHandler) Preview(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	var req shareContentRequest
	if err := decodeJSONOptional(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	handle, err := h.service.Preview(r.Context(), token, req.FileID,
		services.AccessProof{Password: req.Password, OtpCode: req.OtpCode}, clientInfo(r))
	if err != nil {
		h.gateRefusal(err)
		writeError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, handle)
}

type linkResponse struct {
	ID            string     `json:"id"`
	Token         string     `json:"token"`
	ShareURL      string     `json:"shareUrl"`
	Permission    string     `json:"permission"`
	OtpEnabled    bool       `json:"otpEnabled"`
	OtpCode       string     `json:"otpCode,omitempty"`
	OpensAt       *time.Time `json:"opensAt,omitempty"`
	ExpiresAt     *time.Time `json:"expiresAt,omitempty"`
	MaxDownloads  *int       `json:"maxDownloads,omitempty"`
	DownloadCount int        `json:"downloadCount"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Create handles POST /sharing/link (bearer-gated).
func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	ownerID, err := accountIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	var req createLinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	created, err := h.service.CreateLink(r.Context(), ownerID, services.CreateLinkInput{
		FileID: req.FileID, FolderID: req.FolderID, Password: req.Password,
		Permission: req.Permission, OtpEnabled: req.OtpEnabled,
		OpensAt: req.OpensAt, ExpiresAt: req.ExpiresAt, MaxDownloads: req.MaxDownloads,
	})
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, linkResponse{
		ID:            created.Link.ID,
		Token:         created.Link.Token,
		ShareURL:      created.ShareURL,
		Permission:    created.Link.Permission,
		OtpEnabled:    created.Link.OtpEnabled,
		OtpCode:       created.OtpCode,
		OpensAt:       created.Link.OpensAt,
		ExpiresAt:     created.Link.ExpiresAt,
		MaxDownloads:  created.Link.MaxDownloads,
		DownloadCount: created.Link.DownloadCount,
		CreatedAt:     created.Link.CreatedAt,
	})
}

// Deactivate handles DELETE /sharing/link/{id} (bearer-gated).
func (h *ShareHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	ownerID, err := accountIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	if err := h.service.DeactivateLink(r.Context(), ownerID, chi.URLParam(r, "id")); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type accessLogEntry struct {
	Action    string    `json:"action"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UserAgent string    `json:"userAgent,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Activity handles GET /sharing/link/{id}/activity (bearer-gated).
func (h *ShareHandler) Activity(w http.ResponseWriter, r *http.Request) {
	ownerID, err := accountIDFromContext(r.Context())
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	entries, err := h.service.ListAccessLog(r.Context(), ownerID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	out := make([]accessLogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, accessLogEntry{
			Action: e.Action, IPAddress: e.IPAddress, UserAgent: e.UserAgent, CreatedAt: e.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, out)
}
