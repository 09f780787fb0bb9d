package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payperplay/hosting/internal/middleware"
)

// Me handles GET /api/auth/me: the caller's own profile with a freshly computed
// spentCents rather than the Candidate record's cached value (§3 I2).
func (h *Handler) Me(c *gin.Context) {
	candidate := middleware.CandidateFromContext(c)
	if candidate == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	vms, err := h.VMs.ListByCandidate(c.Request.Context(), candidate.Email)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	spent := h.computeSpent(vms, candidate)
	c.JSON(http.StatusOK, gin.H{
		"email":        candidate.Email,
		"name":         candidate.Name,
		"role":         candidate.Role,
		"quotaDollars": candidate.QuotaDollars,
		"spentCents":   spent,
		"deactivated":  !candidate.IsActive(),
	})
}
