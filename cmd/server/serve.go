package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"

	"montage-orchestrator/internal/analysis"
	"montage-orchestrator/internal/api"
	"montage-orchestrator/internal/janitor"
	"montage-orchestrator/internal/jobs"
	"montage-orchestrator/internal/ledger"
	"montage-orchestrator/internal/pipeline"
	"montage-orchestrator/internal/platform/config"
	"montage-orchestrator/internal/platform/ffmpeg"
	"montage-orchestrator/internal/platform/logger"
	"montage-orchestrator/internal/platform/metrics"
	"montage-orchestrator/internal/provider"
	"montage-orchestrator/internal/ratelimit"
	"montage-orchestrator/internal/render"
	"montage-orchestrator/internal/storage"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and job workers",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_ = config.Load()
			settings, err := config.LoadSettings(*configPath)
			if err != nil {
				return err
			}
			return serve(cmd.Context(), settings)
		},
	}
}

func serve(ctx context.Context, s config.Settings) error {
	if ctx == nil {
		ctx = context.Background()
	}
	log := logger.New(s.LogLevel, s.LogFormat)
	met := metrics.New()

	repo := jobs.NewInMemoryRepository()
	accounts := ledger.NewAccounts()
	layout := storage.NewLayout(s.StorageDir)
	runner := ffmpeg.Exec{Binary: s.FFmpegBin}

	orch := pipeline.New(pipeline.Deps{
		Jobs:   repo,
		Audio:  analysis.NewProbeAnalyzer(analysis.FFProbe{Binary: s.FFprobeBin}),
		Lyrics: analysis.KeywordSummarizer{},
		Providers: func(clipDir string) provider.VideoProvider {
			return provider.NewMock(clipDir, provider.FFmpegClipRenderer{Runner: runner}, s.ProviderConcurrency)
		},
		Renderer:      render.NewFFmpeg(runner),
		Accounts:      accounts,
		Layout:        layout,
		Metrics:       met,
		Log:           log,
		Retention:     s.Retention(),
		MaxIterations: s.MaxIterations,
	})

	limiter := ratelimit.NewSlidingWindow(s.RateLimitPerMinute, time.Minute)
	h := api.NewHandler(api.Config{
		Jobs:           repo,
		Submitter:      orch,
		Accounts:       accounts,
		Layout:         layout,
		Limiter:        limiter,
		Tokens:         api.NewTokens(s.SigningSecret, s.TokenTTL),
		Log:            log,
		Metrics:        met,
		MaxUploadBytes: int64(s.MaxUploadMB) << 20,
		Retention:      s.Retention(),
	})

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(log))
	r.Use(metrics.RequestMiddleware(met))
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		met.Handler(func() { met.SetActiveJobs(repo.ActiveJobCount()) }).ServeHTTP(w, r)
	})
	h.Routes(r)

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	sweeper := janitor.New(repo, layout, s.JanitorInterval, log, met.AddExpiredJobsRemoved).WithPruners(limiter)
	go sweeper.Run(ctx)

	srv := &http.Server{Addr: ":" + s.Port, Handler: r}
	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.Info("server starting",
		slog.String("port", s.Port),
		slog.String("storage_dir", s.StorageDir),
		slog.String("retention", s.Retention().String()),
		slog.String("rate_limit_per_minute", strconv.Itoa(s.RateLimitPerMinute)),
		slog.String("log_level", s.LogLevel),
	)

	select {
	case err := <-errCh:
		return fmt.Errorf("listen: %w", err)
	case <-ctx.Done():
	}
	log.Info("shutdown signal received, draining connections")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := orch.Wait(shutdownCtx); err != nil {
		log.Warn("jobs still running at shutdown", slog.String("error", err.Error()))
	}

	log.Info("server stopped")
	return nil
}
