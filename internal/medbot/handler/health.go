package handler

import (
	"context"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kart-io/version"

	"github.com/kart-io/medbot/pkg/component/storage"
	"github.com/kart-io/medbot/pkg/utils/response"
)

const readinessTimeout = 3 * time.Second

// HealthChecker reports backend health. storage.Manager implements it.
type HealthChecker interface {
	HealthCheckAll(ctx context.Context) map[string]storage.HealthStatus
}

// HealthHandler serves liveness, readiness and version endpoints.
type HealthHandler struct {
	checker HealthChecker
	ready   atomic.Bool
}

// NewHealthHandler creates a new HealthHandler. It reports not ready until
// SetReady(true) is called.
func NewHealthHandler(checker HealthChecker) *HealthHandler {
	return &HealthHandler{checker: checker}
}

// SetReady marks the service ready or not.
func (h *HealthHandler) SetReady(ready bool) {
	h.ready.Store(ready)
}

type backendStatus struct {
	Healthy   bool   `json:"healthy"`
	LatencyMS int64  `json:"latency_ms"`
	Error     string `json:"error,omitempty"`
}

type healthResponse struct {
	Status   string                   `json:"status"`
	Backends map[string]backendStatus `json:"backends,omitempty"`
}

// Healthz reports liveness.
func (h *HealthHandler) Healthz(c *gin.Context) {
	response.JSON(c, http.StatusOK, healthResponse{Status: "ok"})
}

// Readyz reports ready once bootstrap is done and every backend answers a
// ping.
func (h *HealthHandler) Readyz(c *gin.Context) {
	if !h.ready.Load() {
		response.JSON(c, http.StatusServiceUnavailable, healthResponse{Status: "starting"})
		return
	}
	if h.checker == nil {
		response.JSON(c, http.StatusOK, healthResponse{Status: "ready"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), readinessTimeout)
	defer cancel()

	resp := healthResponse{Status: "ready", Backends: map[string]backendStatus{}}
	status := http.StatusOK
	for name, s := range h.checker.HealthCheckAll(ctx) {
		resp.Backends[name] = backendStatus{
			Healthy:   s.Healthy,
			LatencyMS: s.Latency.Milliseconds(),
			Error:     s.Message(),
		}
		if !s.Healthy {
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
		}
	}
	response.JSON(c, status, resp)
}

// Version returns build information.
func (h *HealthHandler) Version(c *gin.Context) {
	response.JSON(c, http.StatusOK, version.Get())
}
