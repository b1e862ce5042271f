package handlers

import (
	"context"
	"net/http"
	"time"
)

// HealthHandler responds with service health information.
type HealthHandler struct {
	Store   HealthChecker
	Started time.Time
	NowFunc func() time.Time
}

type healthStatus struct {
	Uptime    float64   `json:"uptime"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Handle implements GET /healthcheck.
func (h HealthHandler) Handle(w http.ResponseWriter, r *http.Request) error {
	ctx := r.Context()
	if h.Store != nil {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := h.Store.Ping(pingCtx); err != nil {
			return err
		}
	}

	now := time.Now().UTC()
	if h.NowFunc != nil {
		now = h.NowFunc().UTC()
	}
	status := healthStatus{
		Uptime:    now.Sub(h.Started).Seconds(),
		Message:   "ok",
		Timestamp: now,
	}
	return respondJSON(ctx, w, http.StatusOK, status, "Health check passed")
}
