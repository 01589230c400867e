package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"incidentdeck/api"
	"incidentdeck/config"
	"incidentdeck/core/store"
	"incidentdeck/core/sweep"
	"incidentdeck/core/utils"
)

func main() {
	var (
		configPath = pflag.String("config", "", "path to yaml config; environment-only when empty")
		listenAddr = pflag.String("listen", "", "override the configured listen address")
	)
	pflag.Parse()

	logger := utils.NewLogger()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Errorf("load config: %v", err)
		os.Exit(1)
	}
	if *listenAddr != "" {
		cfg.ListenAddr = *listenAddr
	}

	db, err := store.NewDB(cfg, logger)
	if err != nil {
		logger.Errorf("open database: %v", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := store.ApplyMigrations(ctx, db, logger); err != nil {
		logger.Errorf("apply migrations: %v", err)
		os.Exit(1)
	}

	incidents := store.NewIncidentsStore(db)
	runs := store.NewRunsStore(db)

	sweeper := sweep.NewSweeper(cfg.Sweep, runs, logger)
	if err := sweeper.Start(); err != nil {
		logger.Errorf("start sweeper: %v", err)
		os.Exit(1)
	}
	defer sweeper.Stop()

	server, err := api.NewServer(cfg, incidents, runs, logger)
	if err != nil {
		logger.Errorf("build server: %v", err)
		os.Exit(1)
	}
	httpServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           server.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Printf("listening on %s", cfg.ListenAddr)
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		logger.Printf("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Errorf("shutdown: %v", err)
		}
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("serve: %v", err)
			os.Exit(1)
		}
	}
}
