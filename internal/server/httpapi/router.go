// Package httpapi is the HTTP boundary: routing, request DTOs, bearer
// auth, and the single place where typed service errors become statuses.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openvault/openvault/internal/logging"
	"github.com/openvault/openvault/internal/server/metrics"
)

// RouterDeps bundles everything NewRouter needs.
type RouterDeps struct {
	AuthService  AuthServiceInterface
	MfaService   MfaServiceInterface
	ShareService ShareServiceInterface

	JWTSecret []byte
	Logger    logging.Logger
	Metrics   *metrics.Collector
	Gatherer  prometheus.Gatherer
}

// NewRouter wires all endpoints and the middleware chain.
//
// Public routes: registration/login/refresh/logout and the anonymous share
// flows. Bearer-gated routes: MFA management and share-link management.
func NewRouter(deps *RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.Recoverer)
	r.Use(requestLogger(deps.Logger))
	r.Use(observeRequests(deps.Metrics))

	authHandler := NewAuthHandler(deps.AuthService, deps.Metrics, deps.Logger)
	mfaHandler := NewMfaHandler(deps.MfaService, deps.Logger)
	shareHandler := NewShareHandler(deps.ShareService, deps.Metrics, deps.Logger)

	requireBearer := requireAuth(deps.JWTSecret, deps.Logger)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
			r.Post("/refresh", authHandler.Refresh)
			r.Post("/logout", authHandler.Logout)

			r.Route("/mfa", func(r chi.Router) {
				r.Use(requireBearer)
				r.Get("/setup", mfaHandler.Setup)
				r.Post("/enable", mfaHandler.Enable)
				r.Post("/regenerate", mfaHandler.Regenerate)
				r.Post("/disable", mfaHandler.Disable)
			})
		})

		// Anonymous share access: the opaque token in the path is the only
		// credential.
		r.Route("/sharing/link/{token}", func(r chi.Router) {
			r.Get("/", shareHandler.View)
			r.Post("/verify", shareHandler.VerifyPassword)
			r.Post("/verify-otp", shareHandler.VerifyOtp)
			r.Post("/download", shareHandler.Download)
			r.Post("/preview", shareHandler.Preview)
		})

		// Owner-side link management.
		r.Route("/sharing/links", func(r chi.Router) {
			r.Use(requireBearer)
			r.Post("/", shareHandler.Create)
			r.Delete("/{id}", shareHandler.Deactivate)
			r.Get("/{id}/activity", shareHandler.Activity)
		})
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler(deps.Gatherer))

	return r
}

// observeRequests records status counts and latency per request.
func observeRequests(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)
			collector.RecordHTTPStatus(rec.status)
			collector.RecordLatency(time.Since(start))
		})
	}
}
