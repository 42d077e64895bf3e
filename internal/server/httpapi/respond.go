package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/openvault/openvault/internal/apperr"
	"github.com/openvault/openvault/internal/logging"
)

// errorResponse is the unified error body.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

// writeError maps a service error onto the wire. This is the only place
// where error codes become HTTP statuses; services never see net/http.
func writeError(ctx context.Context, w http.ResponseWriter, logger logging.Logger, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		if appErr.Code == apperr.CodeInternal {
			logger.Error(ctx, "internal error", "error", err)
			writeJSON(w, http.StatusInternalServerError, errorResponse{
				Error: string(apperr.CodeInternal), Message: "an internal error occurred",
			})
			return
		}
		writeJSON(w, statusFor(appErr.Code), errorResponse{
			Error: string(appErr.Code), Message: appErr.Message,
		})
		return
	}

	logger.Error(ctx, "unclassified error", "error", err)
	writeJSON(w, http.StatusInternalServerError, errorResponse{
		Error: string(apperr.CodeInternal), Message: "an internal error occurred",
	})
}

// statusFor maps error codes to HTTP statuses. Gate refusals use 403 for
// timing ("come back later / not yet") and 410 for permanence ("gone for
// good"), matching what share pages show visitors.
func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeEmailExists:
		return http.StatusConflict
	case apperr.CodeInvalidCredentials, apperr.CodeInvalidMfa, apperr.CodeTokenExpired,
		apperr.CodeInvalidRefresh, apperr.CodeUnauthorized,
		apperr.CodeWrongPassword, apperr.CodeWrongOtp:
		return http.StatusUnauthorized
	case apperr.CodeMfaRequired, apperr.CodeNotYetOpen:
		return http.StatusForbidden
	case apperr.CodeLinkDisabled, apperr.CodeLinkExpired, apperr.CodeLimitReached:
		return http.StatusGone
	case apperr.CodeNotFound, apperr.CodeFileNotInShare:
		return http.StatusNotFound
	case apperr.CodeValidationFailed, apperr.CodeNoPassword, apperr.CodeNoOtp,
		apperr.CodeMfaSetupIncomplete, apperr.CodeUserSetupIncomplete:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
