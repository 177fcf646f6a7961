// Package health serves the liveness endpoint.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/talentdesk/backend/pkg/response"
)

// Pinger is a dependency that can report whether it is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

// Ping implements Pinger.
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// Handler handles GET /health.
type Handler struct {
	deps map[string]Pinger
}

// NewHandler creates a health handler over named dependencies.
func NewHandler(deps map[string]Pinger) *Handler {
	return &Handler{deps: deps}
}

// Check pings every dependency; any failure turns the response into a 503.
func (h *Handler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := gin.H{}
	healthy := true
	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			status[name] = err.Error()
			healthy = false
			continue
		}
		status[name] = "ok"
	}
	if !healthy {
		c.JSON(http.StatusServiceUnavailable, response.Body{Success: false, Data: status, Error: "degraded"})
		return
	}
	status["status"] = "ok"
	response.OK(c, status)
}
