package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"imageClassifier/api/artifact"
	"imageClassifier/api/audit"
	"imageClassifier/api/dto"
	"imageClassifier/api/inference"
	"imageClassifier/api/validation"
)

// ArtifactStore hands out a temporary on-disk copy of an upload for the
// duration of fn and removes it afterwards.
type ArtifactStore interface {
	Scoped(data []byte, contentType string, fn func(path string) error) error
}

type ClassificationService struct {
	artifacts  ArtifactStore
	classifier inference.Classifier
	recorder   audit.Recorder
	modelDir   string
	logger     *zap.Logger
}

func NewClassificationService(
	artifacts ArtifactStore,
	classifier inference.Classifier,
	recorder audit.Recorder,
	modelDir string,
	logger *zap.Logger,
) *ClassificationService {
	if recorder == nil {
		recorder = audit.Nop{}
	}
	return &ClassificationService{
		artifacts:  artifacts,
		classifier: classifier,
		recorder:   recorder,
		modelDir:   modelDir,
		logger:     logger,
	}
}

// Classify runs exactly one classification for img. The artifact is removed
// after the classifier returns, whatever the outcome.
func (s *ClassificationService) Classify(ctx context.Context, traceID string, img *validation.UploadedImage) (*dto.ClassificationResponse, error) {
	start := time.Now()

	var result *inference.ClassificationResult
	err := s.artifacts.Scoped(img.Data, img.ContentType, func(path string) error {
		var err error
		result, err = s.classifier.Classify(ctx, path, s.modelDir)
		return err
	})

	s.record(ctx, newEvent(traceID, img, result, err, time.Since(start)))

	if err != nil {
		return nil, err
	}

	return &dto.ClassificationResponse{
		Label:       result.Label,
		Probability: result.Probability,
		ClassID:     result.ClassID,
	}, nil
}

func (s *ClassificationService) record(ctx context.Context, event *audit.ClassificationEvent) {
	if err := s.recorder.Record(context.WithoutCancel(ctx), event); err != nil {
		s.logger.Warn("Failed to record classification event",
			zap.String("trace_id", event.TraceID),
			zap.String("status", string(event.Status)),
			zap.Error(err),
		)
	}
}

func newEvent(traceID string, img *validation.UploadedImage, result *inference.ClassificationResult, err error, elapsed time.Duration) *audit.ClassificationEvent {
	event := &audit.ClassificationEvent{
		ID:          uuid.NewString(),
		TraceID:     traceID,
		Filename:    img.Filename,
		ContentType: img.ContentType,
		Size:        img.Size,
		DurationMs:  elapsed.Milliseconds(),
		CreatedAt:   time.Now().UTC(),
	}

	var (
		storageErr *artifact.StorageError
		launchErr  *inference.LaunchError
		execErr    *inference.ExecutionError
		parseErr   *inference.ParseError
	)
	switch {
	case err == nil:
		event.Status = audit.StatusSucceeded
		event.Label = result.Label
		event.Probability = result.Probability
		event.ClassID = &result.ClassID
		exitCode := 0
		event.ExitCode = &exitCode
	case errors.As(err, &storageErr):
		event.Status = audit.StatusStorageError
		event.Details = storageErr.Err.Error()
	case errors.As(err, &launchErr):
		event.Status = audit.StatusLaunchError
		event.Details = launchErr.Err.Error()
	case errors.As(err, &execErr):
		event.Status = audit.StatusFailed
		event.ExitCode = &execErr.ExitCode
		event.Details = execErr.Stderr
	case errors.As(err, &parseErr):
		event.Status = audit.StatusParseError
		exitCode := 0
		event.ExitCode = &exitCode
		event.Details = parseErr.Output
	default:
		event.Status = audit.StatusFailed
		event.Details = err.Error()
	}

	return event
}
