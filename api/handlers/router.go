package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"imageClassifier/api/middleware"
)

// NewRouter registers the classify and health routes behind the trace,
// recovery and logging middleware.
func NewRouter(h *ClassifyHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.TraceID)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))

	r.Get("/health", h.Health)
	r.Post("/classify", h.Classify)

	return r
}
