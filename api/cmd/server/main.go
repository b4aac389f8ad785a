package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"barchart-coach/api/internal/coach"
	"barchart-coach/api/internal/config"
	"barchart-coach/api/internal/httpapi"
	"barchart-coach/api/internal/logging"
	"barchart-coach/api/internal/session"
	"barchart-coach/api/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		_, _ = os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}
	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		_, _ = os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := session.NewRegistry(
		session.WithLogger(logger),
		session.WithCoachOptions(coach.WithExtraBannedPhrases(cfg.GuardrailExtraPhrases...)),
	)
	go sessions.RunSweeper(ctx, 10*time.Minute, cfg.SessionIdleTTL)

	opts := httpapi.Options{
		Sessions:      sessions,
		TeacherAPIKey: cfg.TeacherAPIKey,
		DefaultLocale: cfg.DefaultLocale,
		Logger:        logger,
	}
	if dsn := cfg.DSN(); dsn != "" {
		archive, err := store.OpenArchive(ctx, dsn)
		if err != nil {
			logger.Fatal("open archive", zap.Error(err))
		}
		defer func() { _ = archive.Close() }()
		logger.Info("db connected", zap.String("dsn", config.SafeDSNSummary(dsn)))
		opts.Archive = archive
		opts.Ping = archive.Ping
		go archive.RunPurger(ctx, 24*time.Hour, cfg.ReportRetention, logger)
	}

	srv := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      httpapi.NewRouter(opts),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Graceful shutdown
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", zap.String("addr", srv.Addr),
			zap.Bool("archive", opts.Archive != nil), zap.String("locale", cfg.DefaultLocale))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", zap.Error(err))
		}
	}()

	<-done
	logger.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}

	logger.Info("server stopped")
}
