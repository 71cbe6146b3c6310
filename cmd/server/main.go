package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/tldrapp/scan-summary-service/api"
	"github.com/tldrapp/scan-summary-service/internal/app"
	"github.com/tldrapp/scan-summary-service/internal/auth"
	"github.com/tldrapp/scan-summary-service/internal/config"
	"github.com/tldrapp/scan-summary-service/internal/models"
	"github.com/tldrapp/scan-summary-service/internal/scan"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:          "server",
	Short:        "Run the scan summary HTTP API",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().StringVar(&configPath, "config", "config.yaml", "path to config file")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func serve(ctx context.Context) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	logger := config.NewLogger(cfg.Log, os.Stderr)

	if err := auth.Init(cfg.Auth); err != nil {
		return fmt.Errorf("failed to initialize auth: %w", err)
	}
	if cfg.Auth.Disabled {
		logger.Warn("JWT authentication disabled")
	}

	board := api.NewScanBoard()
	pipe, err := app.Build(cfg, board, app.Options{Logger: logger})
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer pipe.Close()

	// Optional hot folder alongside the HTTP API
	if cfg.Scan.WatchDir != "" {
		watcher, err := scan.NewWatcher(cfg.Scan.WatchDir, cfg.Scan.Settle, pipe.Loader, func(ctx context.Context, doc *models.ScanDocument) error {
			_, err := pipe.Coordinator.Submit(ctx, doc)
			return err
		}, logger)
		if err != nil {
			return fmt.Errorf("failed to start watcher: %w", err)
		}
		go watcher.Run(ctx)
	}

	handler := api.NewHandler(cfg, pipe.Coordinator, pipe.Loader, board, logger.With("component", "api"))
	router := handler.SetupRoutes()

	// Wrap router with JWT middleware (skips /health)
	protectedRouter := auth.JWTMiddleware(router)

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	server := &http.Server{
		Addr:              addr,
		Handler:           protectedRouter,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("starting scan summary service",
		"version", api.Version,
		"addr", addr,
		"ocr", cfg.OCR.Engine,
		"provider", cfg.AI.DefaultProvider,
		"watch", cfg.Scan.WatchDir,
	)
	logger.Info("endpoints",
		"submit", "POST http://"+addr+"/api/scans",
		"current", "GET http://"+addr+"/api/scans/current",
		"health", "GET http://"+addr+"/health",
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
	}
	return nil
}
