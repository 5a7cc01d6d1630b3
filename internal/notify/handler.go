package notify

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"sleepywoodpecker/swing-platform/internal/metrics"
	"sleepywoodpecker/swing-platform/internal/swing"

	"go.uber.org/zap"
)

// maxCommandBytes bounds a tempo command body.
const maxCommandBytes = 64

// StatusSource provides a view of the state machine that is safe to read
// from request goroutines.
type StatusSource interface {
	Status() swing.Status
}

// Handler serves the companion link: the push stream, the tempo command
// and a status view.
type Handler struct {
	hub     *Hub
	tempo   *swing.TempoStore
	status  StatusSource
	metrics *metrics.Metrics
	logger  *zap.Logger
}

func NewHandler(hub *Hub, tempo *swing.TempoStore, status StatusSource, met *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		hub:     hub,
		tempo:   tempo,
		status:  status,
		metrics: met,
		logger:  logger,
	}
}

// Events handles GET /events as a server-sent event stream. Each message
// is a single data line.
func (h *Handler) Events(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	sub, err := h.hub.Subscribe(r.Context())
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, ErrAlreadyConnected) {
			status = http.StatusConflict
		}
		http.Error(w, err.Error(), status)
		return
	}
	defer h.hub.Unsubscribe(sub)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, ": connected\n\n")
	flusher.Flush()

	for {
		select {
		case msg := <-sub:
			if _, err := fmt.Fprintf(w, "data: %s\n\n", msg); err != nil {
				h.logger.Warn("[notify] error writing to companion", zap.Error(err))
				return
			}
			flusher.Flush()
		case <-r.Context().Done():
			return
		case <-h.hub.Done():
			return
		}
	}
}

// SetTempo handles POST /tempo with a "<back>/<down>" body.
func (h *Handler) SetTempo(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxCommandBytes+1))
	if err != nil {
		http.Error(w, "failed to read body", http.StatusBadRequest)
		return
	}
	if len(body) > maxCommandBytes {
		h.metrics.IncTempoCommand("rejected")
		http.Error(w, "command too long", http.StatusRequestEntityTooLarge)
		return
	}

	raw := strings.TrimSpace(string(body))
	tempo, err := h.tempo.SetFromCommand(raw)
	if err != nil {
		h.metrics.IncTempoCommand("rejected")
		h.logger.Warn("[notify] tempo command rejected", zap.Error(err), zap.Stringer("tempo", tempo))
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.metrics.IncTempoCommand("accepted")
	h.logger.Info("[notify] tempo set",
		zap.Int("backFrames", tempo.BackFrames),
		zap.Int("downFrames", tempo.DownFrames),
	)
	writeJSON(w, http.StatusOK, tempo)
}

// GetTempo handles GET /tempo.
func (h *Handler) GetTempo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.tempo.Get())
}

// GetStatus handles GET /status.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.status.Status())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
