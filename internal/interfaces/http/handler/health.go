package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/erp/ledger/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// Pinger checks a dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler reports process and dependency health
type HealthHandler struct {
	BaseHandler
	db          Pinger
	lockBackend string
	version     string
	startTime   time.Time
	timeout     time.Duration
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger, lockBackend, version string) *HealthHandler {
	return &HealthHandler{
		db:          db,
		lockBackend: lockBackend,
		version:     version,
		startTime:   time.Now(),
		timeout:     2 * time.Second,
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status      string `json:"status" example:"ok"`
	Database    string `json:"database" example:"ok"`
	LockBackend string `json:"lock_backend" example:"redis"`
	Version     string `json:"version" example:"1.0.0"`
	GoVersion   string `json:"go_version" example:"go1.25.5"`
	Uptime      string `json:"uptime" example:"1h30m45s"`
}

// Health godoc
// @ID           getHealth
// @Summary      Health check
// @Description  Pings the database and reports the lock backend. Answers 503 when the database is unreachable.
// @Tags         system
// @Produce      json
// @Success      200 {object} APIResponse[HealthResponse]
// @Failure      503 {object} APIResponse[HealthResponse]
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:      "ok",
		Database:    "ok",
		LockBackend: h.lockBackend,
		Version:     h.version,
		GoVersion:   runtime.Version(),
		Uptime:      time.Since(h.startTime).Round(time.Second).String(),
	}

	status := http.StatusOK
	if h.db != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()
		if err := h.db.Ping(ctx); err != nil {
			resp.Status = "degraded"
			resp.Database = "unreachable"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, dto.Response{Success: status == http.StatusOK, Data: resp})
}
