package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/payperplay/hosting/internal/apperr"
	"github.com/payperplay/hosting/internal/middleware"
	"github.com/payperplay/hosting/internal/models"
)

type seedCompleteRequest struct {
	FilesystemName string `json:"filesystemName" binding:"required"`
	Region         string `json:"region" binding:"required"`
}

// SeedComplete handles POST /api/seed-complete: the loader-VM callback that marks a
// shared filesystem's SeedStatus `ready` (§6.3). Idempotent — a repeat call for an
// already-ready filesystem returns 200 without error (round-trip law, §8).
func (h *Handler) SeedComplete(c *gin.Context) {
	settings, err := h.Settings.Get(c.Request.Context())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	authHeader := c.GetHeader("Authorization")
	token := strings.TrimPrefix(authHeader, "Bearer ")
	token = strings.TrimSpace(token)
	if settings.SeedCompleteSecret == "" || token != settings.SeedCompleteSecret {
		middleware.RespondError(c, apperr.Unauthenticated("invalid seed-complete bearer secret"))
		return
	}

	var req seedCompleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	status, found, err := h.SeedStatuses.Get(ctx, req.FilesystemName, req.Region)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if !found {
		status = &models.SeedStatus{FilesystemName: req.FilesystemName, Region: req.Region}
	}

	if status.Status == models.SeedStatusReady {
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
		return
	}

	now := time.Now().UTC()
	status.Status = models.SeedStatusReady
	status.CompletedAt = &now
	if err := h.SeedStatuses.Put(ctx, status); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}
