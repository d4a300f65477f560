package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"clinicstock/internal/infrastructure/storage/postgres"
)

// HealthHandler provides liveness and readiness endpoints.
type HealthHandler struct {
	pool    *postgres.Pool
	version string
}

// NewHealthHandler creates a health handler.
func NewHealthHandler(pool *postgres.Pool, version string) *HealthHandler {
	return &HealthHandler{pool: pool, version: version}
}

// Live handles GET /health/live. Process is up.
func (h *HealthHandler) Live(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready handles GET /health/ready. Database is reachable.
func (h *HealthHandler) Ready(c *gin.Context) {
	if err := h.pool.Ping(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "database not reachable",
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Info handles GET /health/info. Build and pool details.
func (h *HealthHandler) Info(c *gin.Context) {
	stat := h.pool.Stat()
	c.JSON(http.StatusOK, gin.H{
		"app":     "clinicstock",
		"version": h.version,
		"db": gin.H{
			"totalConns":    stat.TotalConns(),
			"idleConns":     stat.IdleConns(),
			"acquiredConns": stat.AcquiredConns(),
			"maxConns":      stat.MaxConns(),
		},
	})
}
