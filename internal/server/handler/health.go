package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// ListingCounter reports how many listings the marketplace holds.
type ListingCounter interface {
	Count(ctx context.Context) (int64, error)
}

// HealthHandler serves the health-check endpoint. Besides liveness it reports
// the listing count, which doubles as a cheap store-connectivity probe.
type HealthHandler struct {
	listings ListingCounter
	started  time.Time
	logger   *slog.Logger
}

// NewHealthHandler creates a HealthHandler.
func NewHealthHandler(listings ListingCounter, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{
		listings: listings,
		started:  time.Now(),
		logger:   logHandler(logger, "health"),
	}
}

// HealthCheck reports liveness plus store reachability. A failing store probe
// degrades the status but still answers 200: the process itself is up and a
// load balancer should not recycle it over a database blip.
// GET /api/health
func (h *HealthHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{
		"status":    "ok",
		"uptime":    time.Since(h.started).Round(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	count, err := h.listings.Count(r.Context())
	if err != nil {
		h.logger.Warn("store probe failed", slog.String("error", err.Error()))
		body["status"] = "degraded"
	} else {
		body["listings"] = count
	}

	writeJSON(w, http.StatusOK, body)
}
