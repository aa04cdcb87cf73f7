package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/storefront-go/storefront/pkg/ctx"
	"github.com/storefront-go/storefront/pkg/logger"
)

// Probe reports whether a dependency is reachable.
type Probe func(ctx context.Context) error

type HealthController struct {
	probes map[string]Probe
}

// NewHealthController checks every named probe on each request.
func NewHealthController(probes map[string]Probe) *HealthController {
	return &HealthController{probes: probes}
}

// Check GET /healthz answers 200 when every probe passes and 503 otherwise.
func (h *HealthController) Check(c *ctx.Context) {
	pctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
	defer cancel()

	checks := make(map[string]string, len(h.probes))
	healthy := true
	for name, probe := range h.probes {
		if err := probe(pctx); err != nil {
			logger.WithCtx(c.Context()).Warn("health: probe failed", "probe", name, "error", err)
			checks[name] = "down"
			healthy = false
			continue
		}
		checks[name] = "up"
	}

	status := http.StatusOK
	if !healthy {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, map[string]any{"status": status, "checks": checks})
}
