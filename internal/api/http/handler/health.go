package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/docpilot/portal/internal/api/http/apierror"
	apictx "github.com/docpilot/portal/internal/api/http/context"
	"github.com/docpilot/portal/internal/logger"
	"github.com/docpilot/portal/internal/model"
)

// Health reports liveness and the state of the named dependencies.
type Health struct {
	checks map[string]model.Pinger
	logger *logger.Logger
}

// NewHealth creates a new Health handler.
func NewHealth(checks map[string]model.Pinger, logger *logger.Logger) *Health {
	return &Health{checks: checks, logger: logger}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Check pings every dependency and answers 503 when any is down.
func (h *Health) Check(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok"}
	status := http.StatusOK
	if len(h.checks) > 0 {
		resp.Checks = make(map[string]string, len(h.checks))
	}

	for name, p := range h.checks {
		if err := p.Ping(ctx); err != nil {
			apictx.Logger(r.Context(), h.logger).Warn("Health handler: dependency down",
				"dependency", name,
				"error", err.Error())
			resp.Checks[name] = "down"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}

	apierror.WriteJSON(w, status, resp)
}
