package httpapi

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openvault/openvault/internal/apperr"
	"github.com/openvault/openvault/internal/logging"
	"github.com/openvault/openvault/internal/server/auth"
	"github.com/openvault/openvault/internal/server/services"
)

type contextKey string

const accountIDKey contextKey = "accountID"

// accountIDFromContext returns the authenticated account id set by
// requireAuth.
func accountIDFromContext(ctx context.Context) (string, error) {
	id, ok := ctx.Value(accountIDKey).(string)
	if !ok || id == "" {
		return "", apperr.New(apperr.CodeUnauthorized, "authentication required")
	}
	return id, nil
}

// requireAuth verifies the bearer token and stashes the account id in the
// request context. Anything short of a valid, unexpired token is a 401.
func requireAuth(secret []byte, logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(r.Context(), w, logger, apperr.New(apperr.CodeUnauthorized, "authentication required"))
				return
			}

			claims, err := auth.ParseToken(token, secret)
			if err != nil {
				writeError(r.Context(), w, logger, err)
				return
			}

			ctx := context.WithValue(r.Context(), accountIDKey, claims.Subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// statusRecorder captures the response status for logging and metrics.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// requestLogger assigns each request an id, echoes it in the X-Request-Id
// header, and logs one line with method, path, status, and duration.
func requestLogger(logger logging.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			requestID := uuid.NewString()
			w.Header().Set("X-Request-Id", requestID)
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			logger.Info(r.Context(), "request",
				"request_id", requestID,
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

// clientInfo extracts the caller identity for the audit trail. The first
// X-Forwarded-For hop wins when present, since the server normally sits
// behind a reverse proxy.
func clientInfo(r *http.Request) services.ClientInfo {
	ip := r.Header.Get("X-Forwarded-For")
	if ip != "" {
		if i := strings.IndexByte(ip, ','); i >= 0 {
			ip = ip[:i]
		}
		ip = strings.TrimSpace(ip)
	} else {
		host, _, err := net.SplitHostPort(r.RemoteAddr)
		if err == nil {
			ip = host
		} else {
			ip = r.RemoteAddr
		}
	}
	return services.ClientInfo{IPAddress: ip, UserAgent: r.UserAgent()}
}
