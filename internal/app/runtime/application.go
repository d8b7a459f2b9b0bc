// Package runtime assembles the engine from configuration: stores, cache,
// services, middleware, and the HTTP listener.
package runtime

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	_ "github.com/lib/pq"

	"github.com/umatik/lottery-engine/internal/app"
	"github.com/umatik/lottery-engine/internal/app/cache"
	"github.com/umatik/lottery-engine/internal/app/httpapi"
	"github.com/umatik/lottery-engine/internal/app/metrics"
	"github.com/umatik/lottery-engine/internal/app/storage"
	"github.com/umatik/lottery-engine/internal/app/storage/postgres"
	"github.com/umatik/lottery-engine/internal/config"
	"github.com/umatik/lottery-engine/internal/middleware"
	"github.com/umatik/lottery-engine/internal/platform/migrations"
	"github.com/umatik/lottery-engine/pkg/logger"
)

// Application owns the configured engine and its HTTP server.
type Application struct {
	cfg        config.Config
	log        *logger.Logger
	engine     *app.Application
	httpServer *http.Server
	db         *sql.DB
}

// NewApplication builds the application from environment configuration.
func NewApplication() (*Application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return NewApplicationWithConfig(cfg)
}

// NewApplicationWithConfig wires the engine from an explicit configuration.
func NewApplicationWithConfig(cfg config.Config) (*Application, error) {
	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})

	stores, db, err := buildStores(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("configure stores: %w", err)
	}

	c, err := cache.New(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, cfg.Redis.TTL, log)
	if err != nil {
		log.WithError(err).Warn("cache unavailable, continuing without it")
		c = nil
	}

	engine, err := app.New(stores, app.Options{
		Location:        cfg.Scheduler.Location(),
		Cache:           c,
		EnableScheduler: cfg.Scheduler.Enabled(),
	}, log)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, fmt.Errorf("wire services: %w", err)
	}

	a := &Application{
		cfg:    cfg,
		log:    log,
		engine: engine,
		db:     db,
	}
	a.httpServer = &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      a.buildHandler(),
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}
	return a, nil
}

// buildHandler layers middleware around the REST API. Auth is skipped for
// operational endpoints and for the websocket upgrade, which authenticates
// via its query string.
func (a *Application) buildHandler() http.Handler {
	api := httpapi.NewHandler(a.engine)

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	mux.Handle("/", api)

	var handler http.Handler = mux
	handler = metrics.InstrumentHandler(handler)

	rl := middleware.NewRateLimiter(a.cfg.HTTP.RateLimitRPS, a.cfg.HTTP.RateLimitBurst, a.log)
	rl.StartCleanup(time.Minute)
	handler = rl.Handler(handler)

	if a.cfg.HTTP.JWTSecret != "" {
		auth := middleware.NewAuthMiddleware([]byte(a.cfg.HTTP.JWTSecret), a.log,
			[]string{"/healthz", "/metrics", "/ws"})
		handler = auth.Handler(handler)
	}

	cors := middleware.NewCORSMiddleware(nil)
	return cors.Handler(handler)
}

// Run starts the background services and the HTTP server, blocking until
// the context is cancelled or the server fails.
func (a *Application) Run(ctx context.Context) error {
	if err := a.engine.Start(ctx); err != nil {
		return fmt.Errorf("start services: %w", err)
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.WithField("addr", a.cfg.HTTP.Addr).Info("HTTP server listening")
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown stops the HTTP server, the background services, and the database.
func (a *Application) Shutdown(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.HTTP.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := a.engine.Stop(shutdownCtx); err != nil {
		a.log.WithError(err).Warn("error stopping services")
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	return nil
}

// buildStores selects postgres when a URL is configured and the in-memory
// store otherwise. Migrations run on every start.
func buildStores(cfg config.DatabaseConfig) (app.Stores, *sql.DB, error) {
	if cfg.URL == "" {
		return app.Stores{}, nil, nil
	}

	db, err := openDatabase(cfg)
	if err != nil {
		return app.Stores{}, nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := migrations.Apply(ctx, db); err != nil {
		db.Close()
		return app.Stores{}, nil, fmt.Errorf("apply migrations: %w", err)
	}

	var store storage.Store = postgres.New(db)
	return app.Stores{
		Draws:         store,
		Tickets:       store,
		Claims:        store,
		Notifications: store,
		PrizeRules:    store,
		Users:         store,
	}, db, nil
}

func openDatabase(cfg config.DatabaseConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", cfg.URL)
	if err != nil {
		return nil, err
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}
