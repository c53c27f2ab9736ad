package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"tasklist/internal/config"
	"tasklist/internal/logging"
	"tasklist/internal/server"
	"tasklist/internal/storage"
	"tasklist/internal/storage/mysql"
	"tasklist/internal/storage/postgres"
	"tasklist/internal/storage/sqlite"
	"tasklist/internal/util"
	"tasklist/internal/validation"
)

func main() {
	configFlag := flag.String("config", util.EnvOrDefault("TASKLIST_CONFIG", ""), "Path to YAML config file")
	addrFlag := flag.String("addr", "", "HTTP listen address (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}

	logger, err := logging.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "unable to build logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := openStore(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("unable to open database", zap.String("driver", cfg.Database.Driver), zap.Error(err))
		os.Exit(1)
	}
	defer store.Close()

	metrics := server.NewMetrics("tasklist", prometheus.NewRegistry())
	srv := server.New(store, validation.New(), logger, metrics)

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Engine(),
	}

	go func() {
		logger.Info("starting server", zap.String("addr", httpServer.Addr), zap.String("driver", cfg.Database.Driver))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped unexpectedly", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("failed to shutdown server", zap.Error(err))
	}

	logger.Info("server stopped")
}

func openStore(ctx context.Context, db config.Database, logger *zap.Logger) (storage.TaskStore, error) {
	switch db.Driver {
	case config.DriverPostgres:
		return postgres.Open(ctx, db.DSN, logger)
	case config.DriverMySQL:
		return mysql.Open(ctx, db.DSN, logger)
	default:
		return sqlite.Open(db.DSN, logger)
	}
}
