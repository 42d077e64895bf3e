package httpapi

import (
	"context"
	"net/http"

	"github.com/openvault/openvault/internal/apperr"
	"github.com/openvault/openvault/internal/logging"
	"github.com/openvault/openvault/internal/server/metrics"
	"github.com/openvault/openvault/internal/server/models"
	"github.com/openvault/openvault/internal/server/services"
)

// AuthServiceInterface is what the auth handler needs from the auth service.
type AuthServiceInterface interface {
	Register(ctx context.Context, in services.RegisterInput) (*services.LoginResult, error)
	Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	Refresh(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, refreshToken string) error
}

// AuthHandler serves /auth: registration, login, refresh, and logout.
type AuthHandler struct {
	service AuthServiceInterface
	metrics *metrics.Collector
	logger  logging.Logger
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(service AuthServiceInterface, collector *metrics.Collector, logger logging.Logger) *AuthHandler {
	return &AuthHandler{service: service, metrics: collector, logger: logger}
}

type sessionResponse struct {
	Account      models.Summary `json:"account"`
	AccessToken  string         `json:"accessToken"`
	RefreshToken string         `json:"refreshToken"`
}

type tokenResponse struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Register handles POST /auth/register.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	client := clientInfo(r)
	result, err := h.service.Register(r.Context(), services.RegisterInput{
		Email: req.Email, Name: req.Name, Password: req.Password,
		IPAddress: client.IPAddress, UserAgent: client.UserAgent,
	})
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, sessionResponse{
		Account:      result.Account,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	})
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}
	if err := req.Validate(); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	client := clientInfo(r)
	result, err := h.service.Login(r.Context(), services.LoginInput{
		Email: req.Email, Password: req.Password,
		TotpCode: req.TotpCode, RecoveryCode: req.RecoveryCode,
		IPAddress: client.IPAddress, UserAgent: client.UserAgent,
	})
	if err != nil {
		h.metrics.RecordLoginFailure(string(apperr.CodeOf(err)))
		writeError(r.Context(), w, h.logger, err)
		return
	}

	h.metrics.RecordLoginSuccess()
	writeJSON(w, http.StatusOK, sessionResponse{
		Account:      result.Account,
		AccessToken:  result.Tokens.AccessToken,
		RefreshToken: result.Tokens.RefreshToken,
	})
}

// Refresh handles POST /auth/refresh.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
	})
}

// Logout handles POST /auth/logout.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	if err := h.service.Logout(r.Context(), req.RefreshToken); err != nil {
		writeError(r.Context(), w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, struct{}{})
}
