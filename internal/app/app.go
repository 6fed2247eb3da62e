package app

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/abts/buildmonitor/internal/config"
	"github.com/abts/buildmonitor/internal/database"
	"github.com/abts/buildmonitor/internal/rest"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

const shutdownTimeout = 10 * time.Second

// Application wires configuration, database, router, and server lifecycle.
type Application struct {
	cfg    config.Application
	deps   *Dependencies
	db     *pgxpool.Pool
	router *mux.Router
	srv    *http.Server
}

// NewApplication constructs the full HTTP application, ready to Run().
func NewApplication(ctx context.Context, cfg config.Application, version string) (*Application, error) {
	var db *pgxpool.Pool
	if cfg.Database.Enabled {
		if err := database.Migrate(cfg.Database); err != nil {
			return nil, err
		}
		var err error
		db, err = database.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
	}

	deps, err := BuildDependencies(ctx, cfg, db, version)
	if err != nil {
		if db != nil {
			db.Close()
		}
		return nil, err
	}

	r := NewRouter(deps, cfg)

	srv := &http.Server{
		Handler:      r,
		Addr:         cfg.Server.Addr,
		WriteTimeout: 15 * time.Second,
		ReadTimeout:  15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Application{cfg: cfg, deps: deps, db: db, router: r, srv: srv}, nil
}

// NewRouter builds the router with middleware, API routes and, when enabled,
// the dashboard.
func NewRouter(deps *Dependencies, cfg config.Application) *mux.Router {
	r := mux.NewRouter()

	SetupMiddleware(r, deps, cfg)
	RegisterRoutes(r, deps, cfg)

	if cfg.Dashboard.Enabled {
		dashboard := rest.NewFrontendHandler(cfg.Dashboard.Dir, "index.html")
		r.PathPrefix("/").Handler(dashboard)
	}
	return r
}

// Run discovers the tracked plans, starts the refresh schedule and serves
// HTTP until ctx is cancelled.
func (a *Application) Run(ctx context.Context) error {
	if _, err := a.deps.Refresher.Discover(ctx); err != nil {
		log.Warnf("Initial plan discovery failed, retrying on next refresh: %v", err)
	}
	if err := a.deps.Scheduler.Start(ctx); err != nil {
		return err
	}

	serveErr := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s", a.srv.Addr)
		serveErr <- a.srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		a.close()
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := a.srv.Shutdown(shutdownCtx)
	a.close()
	return err
}

func (a *Application) close() {
	a.deps.Scheduler.Stop()
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.deps.Telemetry.Close(ctx); err != nil {
		log.Errorf("Failed to flush telemetry: %v", err)
	}
	if a.db != nil {
		a.db.Close()
	}
}
