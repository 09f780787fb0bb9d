package api

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/payperplay/hosting/internal/apperr"
	"github.com/payperplay/hosting/internal/fsresolver"
	"github.com/payperplay/hosting/internal/middleware"
)

// ListFilesystems handles GET /api/filesystems: a candidate sees only filesystems whose
// name carries their personal `fs-<sanitized>-` prefix; an admin sees every filesystem.
func (h *Handler) ListFilesystems(c *gin.Context) {
	candidate := middleware.CandidateFromContext(c)
	if candidate == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	all, err := h.Provider.ListFilesystems(c.Request.Context())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	if candidate.IsAdmin() {
		c.JSON(http.StatusOK, gin.H{"filesystems": all})
		return
	}

	prefix := "fs-" + fsresolver.Sanitize(candidate.Email) + "-"
	owned := make([]interface{}, 0)
	for _, fs := range all {
		if strings.HasPrefix(fs.Name, prefix) {
			owned = append(owned, fs)
		}
	}
	c.JSON(http.StatusOK, gin.H{"filesystems": owned})
}

// DeleteFilesystem handles DELETE /api/admin/filesystems?id=.
func (h *Handler) DeleteFilesystem(c *gin.Context) {
	id := c.Query("id")
	if id == "" {
		middleware.RespondError(c, apperr.Validation("id query parameter is required"))
		return
	}
	if err := h.Provider.DeleteFilesystem(c.Request.Context(), id); err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id})
}
