package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"authserver/internal/oauth/authorization"
	"authserver/internal/oauth/handler"
	"authserver/internal/oauth/registry"
	authstore "authserver/internal/oauth/store/authorization"
	"authserver/internal/oauth/store/client"
	"authserver/internal/platform/config"
	"authserver/internal/platform/database"
	"authserver/internal/platform/httpserver"
	"authserver/internal/platform/logger"
	"authserver/internal/platform/metrics"
	"authserver/internal/platform/tracing"
	"authserver/pkg/platform/httputil"
	"authserver/pkg/platform/middleware/admin"
	"authserver/pkg/platform/middleware/metadata"
	"authserver/pkg/platform/middleware/requesttime"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "authserver: %v\n", err)
		os.Exit(1)
	}
}

// run wires the persistence core behind the admin surface and blocks until
// SIGINT or SIGTERM.
func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	clientDB, sessionDB, err := openDatabases(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDatabases(log, clientDB, sessionDB)

	m := metrics.New(prometheus.DefaultRegisterer)
	tracer := tracing.Tracer()

	clients := registry.New(
		client.NewSQL(clientDB, client.WithMetrics(m), client.WithTracer(tracer)),
		registry.WithLogger(log),
		registry.WithMetrics(m),
	)
	sessions := authorization.New(
		authstore.NewSQL(sessionDB, authstore.WithMetrics(m), authstore.WithTracer(tracer)),
		authorization.WithLogger(log),
		authorization.WithMetrics(m),
	)

	if err := seedClient(ctx, clients, cfg.Seed, log); err != nil {
		return err
	}
	if cfg.Server.AdminToken == "" {
		log.Warn("admin token not configured; admin endpoints will reject every request")
	}

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(requesttime.Middleware)
	r.Use(metadata.ClientMetadata)
	r.Get("/healthz", healthHandler(clientDB, sessionDB))
	r.Handle("/metrics", promhttp.Handler())
	r.Group(func(r chi.Router) {
		r.Use(admin.RequireAdminToken(cfg.Server.AdminToken, log))
		handler.New(clients, sessions, log).Register(r)
	})

	srv := httpserver.New(cfg.Server.Addr, r)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting authserver",
			"addr", cfg.Server.Addr,
			"client_db", cfg.ClientDB.Driver,
			"session_db", cfg.SessionDB.Driver,
			"separate_session_db", cfg.SeparateSessionDB(),
		)
		return httpserver.Serve(gctx, srv, cfg.Server.ShutdownTimeout)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("authserver stopped")
	return nil
}

// openDatabases opens and migrates the client database and, when
// configured separately, the session database. Both results are the same
// handle otherwise.
func openDatabases(ctx context.Context, cfg config.Config) (*database.DB, *database.DB, error) {
	clientDB, err := database.Open(ctx, cfg.Database(cfg.ClientDB))
	if err != nil {
		return nil, nil, fmt.Errorf("client database: %w", err)
	}
	if !cfg.SeparateSessionDB() {
		if err := database.Migrate(ctx, clientDB, database.SchemaClients, database.SchemaAuthorizations); err != nil {
			_ = clientDB.Close()
			return nil, nil, err
		}
		return clientDB, clientDB, nil
	}

	sessionDB, err := database.Open(ctx, cfg.Database(cfg.SessionDB))
	if err != nil {
		_ = clientDB.Close()
		return nil, nil, fmt.Errorf("session database: %w", err)
	}
	err = errors.Join(
		database.Migrate(ctx, clientDB, database.SchemaClients),
		database.Migrate(ctx, sessionDB, database.SchemaAuthorizations),
	)
	if err != nil {
		_ = errors.Join(clientDB.Close(), sessionDB.Close())
		return nil, nil, err
	}
	return clientDB, sessionDB, nil
}

func closeDatabases(log *slog.Logger, clientDB, sessionDB *database.DB) {
	if err := clientDB.Close(); err != nil {
		log.Error("close client database", "error", err)
	}
	if sessionDB != clientDB {
		if err := sessionDB.Close(); err != nil {
			log.Error("close session database", "error", err)
		}
	}
}

func healthHandler(dbs ...*database.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for _, db := range dbs {
			if err := db.Health(ctx); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
