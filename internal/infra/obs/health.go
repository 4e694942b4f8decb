package obs

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandlers backs /livez and /readyz. Liveness only proves the process
// answers requests; readiness delegates to the wired check, a Mongo ping in
// mongo storage mode and always-ready in memory mode.
type HealthHandlers struct {
	Ready func() error
}

func (h HealthHandlers) Livez(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h HealthHandlers) Readyz(c *gin.Context) {
	if h.Ready != nil {
		if err := h.Ready(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "not ready", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
