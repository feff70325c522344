package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/ppiankov/wiresync/internal/config"
	"github.com/ppiankov/wiresync/internal/jobs"
	"github.com/ppiankov/wiresync/internal/store"
	"github.com/ppiankov/wiresync/internal/types"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Sync on a schedule and serve metrics",
	RunE:  runAction,
}

func init() {
	rootCmd.AddCommand(runCmd)
}

func runAction(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(configDir)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg)
	redactor := newRedactor(cfg)

	db, err := store.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() { _ = db.Close() }()

	syncer, err := newSyncer(cfg, db, logger)
	if err != nil {
		return err
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	jm := jobs.NewJobManager(logger)
	err = jm.Every(cfg.Schedule.Every.Duration, "sync "+cfg.Provider.Name, func() error {
		res, err := runCycle(ctx, cfg, db, syncer, true)
		if errors.Is(err, types.ErrCycleInProgress) {
			logger.Info("sync skipped, another cycle is in progress")
			return nil
		}
		if err != nil {
			return redactor.Error(err)
		}
		if res.Pruned > 0 {
			logger.Info("pruned old items", "count", res.Pruned)
		}
		return nil
	})
	if err != nil {
		return err
	}

	var srv *http.Server
	if cfg.Metrics.Addr != "" {
		srv = newMetricsServer(cfg.Metrics.Addr)
		go func() {
			logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	logger.Info("scheduler started", "provider", cfg.Provider.Name, "every", cfg.Schedule.Every.Duration)
	jm.StartAsync()

	<-ctx.Done()
	logger.Info("shutting down")
	jm.Stop()

	if srv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown", "error", err)
		}
	}
	return nil
}

func newMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok\n"))
	})
	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
