package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"imageClassifier/api/artifact"
	"imageClassifier/api/audit"
	"imageClassifier/api/config"
	"imageClassifier/api/database"
	"imageClassifier/api/handlers"
	"imageClassifier/api/inference"
	"imageClassifier/api/kafka"
	"imageClassifier/api/repository"
	"imageClassifier/api/service"
)

func main() {
	cfg := config.Load()

	logger := newLogger(cfg)
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("Server failed", zap.Error(err))
	}
}

func newLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)
	if cfg.IsDevelopment() {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	artifacts, err := artifact.NewManager(cfg.ArtifactDir, logger)
	if err != nil {
		return err
	}

	var opts []inference.Option
	if cfg.WorkerScript != "" {
		opts = append(opts, inference.WithArgs(cfg.WorkerScript))
	}
	if cfg.WorkerTimeout > 0 {
		opts = append(opts, inference.WithTimeout(cfg.WorkerTimeout))
	}
	classifier := inference.NewProcessClassifier(cfg.WorkerExecutable, logger, opts...)

	recorder, closeRecorders, err := newRecorder(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRecorders()

	svc := service.NewClassificationService(artifacts, classifier, recorder, cfg.ModelDir, logger)
	handler := handlers.NewClassifyHandler(svc, logger, cfg.MaxFileSize)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(handler, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Image classifier starting",
		zap.String("address", srv.Addr),
		zap.String("worker", cfg.WorkerExecutable),
		zap.String("script", cfg.WorkerScript),
		zap.String("model_dir", cfg.ModelDir),
		zap.String("artifact_dir", artifacts.Dir()),
		zap.Int64("max_file_size", cfg.MaxFileSize),
		zap.Duration("worker_timeout", cfg.WorkerTimeout),
	)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	err = srv.Shutdown(shutdownCtx)

	stats := artifacts.Stats()
	logger.Info("Server stopped",
		zap.Int64("artifacts_created", stats.Created),
		zap.Int64("artifacts_removed", stats.Removed),
	)
	return err
}

// newRecorder builds the audit sinks that are configured. Without Kafka or
// Postgres settings, outcomes are only logged.
func newRecorder(ctx context.Context, cfg *config.Config, logger *zap.Logger) (audit.Recorder, func(), error) {
	var (
		recorders audit.Multi
		closers   []func()
	)
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if len(cfg.KafkaBrokers) > 0 {
		publisher, err := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
		if err != nil {
			return nil, func() {}, err
		}
		closers = append(closers, func() {
			if err := publisher.Close(); err != nil {
				logger.Warn("Failed to close kafka publisher", zap.Error(err))
			}
		})
		recorders = append(recorders, publisher)
		logger.Info("Publishing classification events", zap.String("topic", cfg.KafkaTopic))
	}

	if cfg.DatabaseURL != "" {
		db, err := database.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			closeAll()
			return nil, func() {}, err
		}
		closers = append(closers, db.Close)

		repo := repository.NewPostgresRepo(db.Pool)
		if err := repo.EnsureSchema(ctx); err != nil {
			closeAll()
			return nil, func() {}, err
		}
		recorders = append(recorders, repo)
		logger.Info("Recording classifications in postgres")
	}

	if len(recorders) == 0 {
		return audit.Nop{}, closeAll, nil
	}
	return recorders, closeAll, nil
}
