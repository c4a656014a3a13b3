package handler

import (
	"context"
	"net/http"
	"runtime"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tallypro/storefront/internal/interfaces/http/dto"
)

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// SystemHandler serves liveness, readiness and build information
type SystemHandler struct {
	BaseHandler
	name      string
	version   string
	backend   string
	checks    map[string]HealthCheck
	timeout   time.Duration
	startTime time.Time
	pool      func() (any, error)
}

// WithPoolStats adds the result of stats to the info response.
func (h *SystemHandler) WithPoolStats(stats func() (any, error)) *SystemHandler {
	h.pool = stats
	return h
}

// NewSystemHandler creates a new SystemHandler
func NewSystemHandler(name, version, backend string, checks map[string]HealthCheck) *SystemHandler {
	return &SystemHandler{
		name:      name,
		version:   version,
		backend:   backend,
		checks:    checks,
		timeout:   3 * time.Second,
		startTime: time.Now(),
	}
}

// SystemInfoResponse describes the running process
type SystemInfoResponse struct {
	Name      string `json:"name"`
	Version   string `json:"version"`
	Backend   string `json:"backend"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
	Pool      any    `json:"pool,omitempty"`
}

// ReadinessResponse reports each dependency probe
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Health handles GET /health
// @ID           health
// @Summary      Liveness check
// @Tags         system
// @Produce      json
// @Success      200 {object} map[string]string
// @Router       /health [get]
func (h *SystemHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": h.backend})
}

// Ready handles GET /ready. Any failed probe answers 503.
// @ID           ready
// @Summary      Readiness check
// @Tags         system
// @Produce      json
// @Success      200 {object} ReadinessResponse
// @Failure      503 {object} ReadinessResponse
// @Router       /ready [get]
func (h *SystemHandler) Ready(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := ReadinessResponse{Status: "ok", Checks: make(map[string]string, len(names))}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			resp.Status = "unavailable"
			resp.Checks[name] = err.Error()
			continue
		}
		resp.Checks[name] = "ok"
	}

	status := http.StatusOK
	if resp.Status != "ok" {
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, resp)
}

// Info handles GET /api/v1/system/info
// @ID           getSystemInfo
// @Summary      Get system information
// @Tags         system
// @Produce      json
// @Success      200 {object} dto.Response{data=SystemInfoResponse}
// @Failure      500 {object} dto.Response
// @Router       /api/v1/system/info [get]
func (h *SystemHandler) Info(c *gin.Context) {
	info := SystemInfoResponse{
		Name:      h.name,
		Version:   h.version,
		Backend:   h.backend,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.pool != nil {
		if stats, err := h.pool(); err == nil {
			info.Pool = stats
		}
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(info))
}
