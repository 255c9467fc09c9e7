package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// Pinger is satisfied by repository.Store.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	store Pinger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(store Pinger) *HealthHandler {
	return &HealthHandler{store: store}
}

// HealthResponse is the body of both probes.
type HealthResponse struct {
	Status  string            `json:"status"`
	Details map[string]string `json:"details,omitempty"`
}

// Test is a smoke-test route for the front end.
func (h *HealthHandler) Test(w http.ResponseWriter, r *http.Request) {
	writeMessage(w, http.StatusOK, "Backend is working!")
}

// Live reports that the process is up, without touching the store.
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Ready reports whether the store answers a ping.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Readiness check: store ping failed")
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status:  "degraded",
			Details: map[string]string{"store": "unavailable"},
		})
		return
	}
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "ready",
		Details: map[string]string{"store": "ok"},
	})
}
