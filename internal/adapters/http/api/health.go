package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/okian/remindr/pkg/metrics"
)

type healthResponse struct {
	Status string `json:"status"`
}

// HandleHealth reports 200 while both loops run and 503 otherwise.
func (s *Server) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if !s.deps.Stats().Started {
		writeError(w, http.StatusServiceUnavailable, "not_ready", ErrNotReady)
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

// metricsHandler serves the custom Prometheus registry.
func metricsHandler() http.Handler {
	return promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{})
}
