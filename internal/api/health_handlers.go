package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Health handles GET /health, an unauthenticated liveness probe.
func Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "gpucp"})
}
