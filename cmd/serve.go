package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/abefas/GoTodo/config"
	"github.com/abefas/GoTodo/database"
	"github.com/abefas/GoTodo/handlers"
	"github.com/abefas/GoTodo/middleware"
	"github.com/abefas/GoTodo/todo"
	"github.com/charmbracelet/log"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(ctx, cfg, logger)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
}

// openStore returns the gateway for the configured driver. db is nil for the
// memory driver.
func openStore(ctx context.Context, cfg config.Database, logger *log.Logger) (todo.Gateway, *sql.DB, error) {
	if cfg.Driver == config.DriverMemory {
		logger.Warn("using in-memory store; data is lost on exit")
		return database.NewMemoryStore(), nil, nil
	}

	db, err := database.InitDB(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db, cfg.Driver, logger); err != nil {
			db.Close()
			return nil, nil, err
		}
	}
	return database.NewTodoStore(db, cfg.Driver), db, nil
}

// newRouter builds the full HTTP handler tree. mux skips router middleware
// for its not-found and method-not-allowed handlers, so those are wrapped
// here to keep them in the access log and request metrics.
func newRouter(h *handlers.Handlers, metrics *middleware.Metrics, logger *log.Logger) *mux.Router {
	logged, measured := middleware.RequestLogger(logger), metrics.Middleware()

	router := mux.NewRouter()
	router.Use(logged, measured)
	h.Routes(router)
	router.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	router.NotFoundHandler = logged(measured(router.NotFoundHandler))
	router.MethodNotAllowedHandler = logged(measured(router.MethodNotAllowedHandler))
	return router
}

func serve(ctx context.Context, cfg *config.Config, logger *log.Logger) error {
	store, db, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}

	var pinger handlers.Pinger
	if db != nil {
		defer db.Close()
		pinger = db
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if db != nil {
		reg.MustRegister(collectors.NewDBStatsCollector(db, cfg.Database.Driver))
	}

	svc := todo.NewService(store, logger)
	h := handlers.NewHandlers(svc, pinger, logger)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      newRouter(h, middleware.NewMetrics(reg), logger),
		ReadTimeout:  cfg.Server.ReadTimeout.Duration,
		WriteTimeout: cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  cfg.Server.IdleTimeout.Duration,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout.Duration)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout.Duration)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}
