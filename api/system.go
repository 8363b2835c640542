package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// SystemHandler serves the endpoints that bypass failure simulation.
type SystemHandler struct {
	DB Pinger
}

type healthBody struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

func (h *SystemHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	if h.DB != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := h.DB.PingContext(ctx); err != nil {
			logger.Warn("health check failed", slog.Any("err", err))
			writeJSON(w, healthBody{Status: "unavailable", Service: "talentflow"}, http.StatusServiceUnavailable)
			return
		}
	}
	writeJSON(w, healthBody{Status: "ok", Service: "talentflow"}, http.StatusOK)
}

func (h *SystemHandler) VersionHandler(version, buildTime string) http.HandlerFunc {
	body := struct {
		Version   string `json:"version"`
		BuildTime string `json:"buildTime"`
	}{version, buildTime}
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, body, http.StatusOK)
	}
}
