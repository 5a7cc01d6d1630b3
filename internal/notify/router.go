package notify

import (
	"net/http"

	"sleepywoodpecker/swing-platform/internal/metrics"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// NewRouter mounts the companion link and the metrics endpoint.
func NewRouter(h *Handler, met *metrics.Metrics, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(RequestLogger(logger))

	r.Get("/events", h.Events)
	r.Get("/tempo", h.GetTempo)
	r.Post("/tempo", h.SetTempo)
	r.Get("/status", h.GetStatus)
	r.Method(http.MethodGet, "/metrics", met.Handler())

	return r
}
