// Package server initializes and runs the OpenVault server: it opens the
// database, runs migrations, wires services and the HTTP router, and
// handles graceful shutdown.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/openvault/openvault/internal/cryptox"
	"github.com/openvault/openvault/internal/logging"
	"github.com/openvault/openvault/internal/server/config"
	"github.com/openvault/openvault/internal/server/httpapi"
	"github.com/openvault/openvault/internal/server/metrics"
	"github.com/openvault/openvault/internal/server/repositories/repomanager"
	"github.com/openvault/openvault/internal/server/services"
)

const shutdownTimeout = 10 * time.Second

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	handler http.Handler
}

// NewApp builds the full dependency graph from configuration.
func NewApp(cfg *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	db, err := sql.Open("pgx", cfg.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db open error: %w", err)
	}

	repos := repomanager.NewPostgresRepositoryManager()
	if err := repos.RunMigrations(context.Background(), db); err != nil {
		return nil, fmt.Errorf("migration error: %w", err)
	}

	hasher := cryptox.Argon2Hasher{}
	mfaService := services.NewMfaService(db, repos, cfg, hasher, logger)
	authService := services.NewAuthService(db, repos, cfg, hasher, mfaService, logger)
	storageService := services.NewStorageService(db, cfg)
	shareService := services.NewShareService(db, repos, cfg, hasher, storageService, logger)

	registry := prometheus.NewRegistry()
	collector := metrics.NewCollector(registry)

	handler := httpapi.NewRouter(&httpapi.RouterDeps{
		AuthService:  authService,
		MfaService:   mfaService,
		ShareService: shareService,
		JWTSecret:    []byte(cfg.JWTSecret),
		Logger:       logger,
		Metrics:      collector,
		Gatherer:     registry,
	})

	return &App{config: cfg, logger: logger, db: db, handler: handler}, nil
}

// Run serves HTTP until the context is cancelled or a termination signal
// arrives, then drains in-flight requests.
func (app *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	go func() {
		<-sigs
		cancel()
	}()

	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "server listening", "addr", app.config.HTTPAddr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		app.logger.Info(ctx, "shutting down")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}

	return app.db.Close()
}
