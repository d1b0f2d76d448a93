package cmd

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

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	githubadapter "github.com/gopalvishwakrma/dojialert/internal/adapter/driven/github"
	httphandler "github.com/gopalvishwakrma/dojialert/internal/adapter/driving/http"
	"github.com/gopalvishwakrma/dojialert/internal/application"
	"github.com/gopalvishwakrma/dojialert/internal/domain/port/driven"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run scans on the schedule and serve the HTTP API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return serve(ctx)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func serve(ctx context.Context) error {
	// 1. Load configuration (fail fast on invalid env vars).
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// 2. Open run history and run migrations.
	db, runRepo, err := openHistory(ctx, cfg.DBPath)
	if err != nil {
		return err
	}
	defer closeHistory(db)

	// 3. Wire the scan use case and its scheduler.
	svc, err := newScanService(cfg, newMailer(cfg), runRepo)
	if err != nil {
		return err
	}

	scheduler, err := application.NewScheduler(svc, cfg.Schedule)
	if err != nil {
		return err
	}

	// 4. Remote dispatch is optional.
	var dispatcher driven.WorkflowDispatcher
	if cfg.HasDispatchCredentials() {
		d, err := githubadapter.NewDispatcher(cfg.GitHubToken, cfg.GitHubRepo, cfg.WorkflowFile)
		if err != nil {
			return err
		}
		dispatcher = d
		slog.Info("remote dispatch enabled", "repo", cfg.GitHubRepo, "workflow", cfg.WorkflowFile)
	}

	// 5. HTTP API.
	handler := httphandler.NewHandler(runRepo, scheduler, dispatcher, cfg.GitHubRef, slog.Default())
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           httphandler.NewServeMux(handler, slog.Default()),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// Manual scans block the response until the whole universe is fetched.
		WriteTimeout: 15 * time.Minute,
		IdleTimeout:  120 * time.Second,
	}

	slog.Info("dojialert started",
		"listen_addr", cfg.ListenAddr,
		"schedule", cfg.Schedule,
		"symbols", len(svc.Symbols()),
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		scheduler.Start(gctx)
		return nil
	})

	g.Go(func() error {
		slog.Info("http server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("http server shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}

	slog.Info("dojialert stopped")
	return nil
}
