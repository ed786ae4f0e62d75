package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"imageClassifier/api/artifact"
	"imageClassifier/api/dto"
	"imageClassifier/api/inference"
	"imageClassifier/api/middleware"
	"imageClassifier/api/validation"
)

const imageField = "image"

type ClassificationService interface {
	Classify(ctx context.Context, traceID string, img *validation.UploadedImage) (*dto.ClassificationResponse, error)
}

type ClassifyHandler struct {
	service     ClassificationService
	logger      *zap.Logger
	maxFileSize int64
}

func NewClassifyHandler(service ClassificationService, logger *zap.Logger, maxFileSize int64) *ClassifyHandler {
	return &ClassifyHandler{
		service:     service,
		logger:      logger,
		maxFileSize: maxFileSize,
	}
}

func (h *ClassifyHandler) Classify(w http.ResponseWriter, r *http.Request) {
	traceID := middleware.GetTraceID(r.Context())

	img, err := validation.AcceptUpload(w, r, imageField, h.maxFileSize)
	if err != nil {
		h.handleUploadError(w, err, traceID)
		return
	}

	h.logger.Info("Image received",
		zap.String("trace_id", traceID),
		zap.String("filename", img.Filename),
		zap.String("content_type", img.ContentType),
		zap.Int64("size", img.Size),
	)

	resp, err := h.service.Classify(r.Context(), traceID, img)
	if err != nil {
		h.handleClassifyError(w, err, traceID)
		return
	}

	h.logger.Info("Image classified",
		zap.String("trace_id", traceID),
		zap.String("label", resp.Label),
		zap.Float64("probability", resp.Probability),
		zap.Int("class_id", resp.ClassID),
	)

	h.respondJSON(w, http.StatusOK, resp)
}

func (h *ClassifyHandler) Health(w http.ResponseWriter, r *http.Request) {
	h.respondJSON(w, http.StatusOK, dto.HealthResponse{Status: "ok"})
}

func (h *ClassifyHandler) handleUploadError(w http.ResponseWriter, err error, traceID string) {
	switch {
	case errors.Is(err, validation.ErrMissingInput):
		h.handleError(w, "No image file provided", nil, err, traceID, http.StatusBadRequest)
	case errors.Is(err, validation.ErrUnsupportedMediaType):
		h.handleError(w, "Only image files are allowed", nil, err, traceID, http.StatusUnsupportedMediaType)
	case errors.Is(err, validation.ErrPayloadTooLarge):
		details := fmt.Sprintf("maximum upload size is %d bytes", h.maxFileSize)
		h.handleError(w, "File too large", &details, err, traceID, http.StatusRequestEntityTooLarge)
	default:
		h.handleError(w, "Invalid multipart form", nil, err, traceID, http.StatusBadRequest)
	}
}

func (h *ClassifyHandler) handleClassifyError(w http.ResponseWriter, err error, traceID string) {
	var (
		storageErr *artifact.StorageError
		launchErr  *inference.LaunchError
		execErr    *inference.ExecutionError
		parseErr   *inference.ParseError
	)

	switch {
	case errors.As(err, &storageErr):
		h.handleError(w, "Failed to store upload", nil, err, traceID, http.StatusInternalServerError)
	case errors.As(err, &launchErr):
		details := launchErr.Err.Error()
		h.handleError(w, "Failed to start classifier", &details, err, traceID, http.StatusInternalServerError)
	case errors.As(err, &execErr):
		details := execErr.Stderr
		if execErr.TimedOut && details == "" {
			details = execErr.Error()
		}
		h.handleError(w, "Classification failed", &details, err, traceID, http.StatusInternalServerError)
	case errors.As(err, &parseErr):
		details := parseErr.Output
		h.handleError(w, "Failed to parse classification result", &details, err, traceID, http.StatusInternalServerError)
	default:
		h.handleError(w, "Internal server error", nil, err, traceID, http.StatusInternalServerError)
	}
}

func (h *ClassifyHandler) handleError(w http.ResponseWriter, message string, details *string, err error, traceID string, status int) {
	fields := []zap.Field{
		zap.String("trace_id", traceID),
		zap.Int("status", status),
		zap.Error(err),
	}
	if details != nil {
		fields = append(fields, zap.String("details", *details))
	}

	if status >= http.StatusInternalServerError {
		h.logger.Error(message, fields...)
	} else {
		h.logger.Warn(message, fields...)
	}

	h.respondJSON(w, status, dto.ErrorResponse{
		Error:   message,
		Details: details,
	})
}

func (h *ClassifyHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
