package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/payperplay/hosting/internal/apperr"
	"github.com/payperplay/hosting/internal/audit"
	"github.com/payperplay/hosting/internal/middleware"
	"github.com/payperplay/hosting/internal/models"
)

// ListCandidates handles GET /api/admin/candidates.
func (h *Handler) ListCandidates(c *gin.Context) {
	candidates, err := h.Candidates.List(c.Request.Context())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"candidates": candidates})
}

type addCandidateRequest struct {
	Email        string `json:"email" binding:"required"`
	Name         string `json:"name"`
	Role         string `json:"role"`
	QuotaDollars int    `json:"quotaDollars"`
}

// AddCandidate handles POST /api/admin/candidates: adds a new candidate, or reactivates
// and re-quotas an existing one, zeroing its spend as of now (§3, §8 scenario 6).
func (h *Handler) AddCandidate(c *gin.Context) {
	admin := middleware.CandidateFromContext(c)
	var req addCandidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	role := models.RoleCandidate
	if req.Role == string(models.RoleAdmin) {
		role = models.RoleAdmin
	}

	ctx := c.Request.Context()
	now := time.Now().UTC()
	candidate := &models.Candidate{
		Email:        strings.ToLower(req.Email),
		Name:         req.Name,
		Role:         role,
		QuotaDollars: req.QuotaDollars,
		AddedAt:      now,
		AddedBy:      admin.Email,
		SpentResetAt: &now,
	}
	if err := h.Candidates.Put(ctx, candidate); err != nil {
		middleware.RespondError(c, err)
		return
	}
	h.Audit.Record(audit.Entry{
		Action:         audit.ActionCandidateAdd,
		CandidateEmail: candidate.Email,
		DecisionBy:     admin.Email,
		Result:         "success",
	})
	c.JSON(http.StatusCreated, gin.H{"candidate": candidate})
}

// DeactivateCandidate handles DELETE /api/admin/candidates?email=: a soft delete (§3:
// "deactivated (not deleted) when removed").
func (h *Handler) DeactivateCandidate(c *gin.Context) {
	email := strings.ToLower(c.Query("email"))
	if email == "" {
		middleware.RespondError(c, apperr.Validation("email query parameter is required"))
		return
	}

	ctx := c.Request.Context()
	candidate, found, err := h.Candidates.Get(ctx, email)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if !found {
		middleware.RespondError(c, apperr.NotFound("candidate"))
		return
	}

	now := time.Now().UTC()
	candidate.DeactivatedAt = &now
	if err := h.Candidates.Put(ctx, candidate); err != nil {
		middleware.RespondError(c, err)
		return
	}

	admin := middleware.CandidateFromContext(c)
	h.Audit.Record(audit.Entry{
		Action:         audit.ActionCandidateDeactivate,
		CandidateEmail: candidate.Email,
		DecisionBy:     admin.Email,
		Result:         "success",
	})
	c.JSON(http.StatusOK, gin.H{"candidate": candidate})
}

// CandidateVMHistory handles GET /api/admin/candidates/:email/vms.
func (h *Handler) CandidateVMHistory(c *gin.Context) {
	email := strings.ToLower(c.Param("email"))
	vms, err := h.VMs.ListByCandidate(c.Request.Context(), email)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"vms": vms})
}

type setQuotaRequest struct {
	Email        string `json:"email" binding:"required"`
	QuotaDollars int    `json:"quotaDollars"`
}

// SetQuota handles POST /api/admin/quota.
func (h *Handler) SetQuota(c *gin.Context) {
	var req setQuotaRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	candidate, found, err := h.Candidates.Get(ctx, strings.ToLower(req.Email))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if !found {
		middleware.RespondError(c, apperr.NotFound("candidate"))
		return
	}

	candidate.QuotaDollars = req.QuotaDollars
	if err := h.Candidates.Put(ctx, candidate); err != nil {
		middleware.RespondError(c, err)
		return
	}

	admin := middleware.CandidateFromContext(c)
	h.Audit.Record(audit.Entry{
		Action:         audit.ActionQuotaChange,
		CandidateEmail: candidate.Email,
		DecisionBy:     admin.Email,
		Result:         "success",
	})
	c.JSON(http.StatusOK, gin.H{"candidate": candidate})
}

// ListAudit handles GET /api/admin/audit.
func (h *Handler) ListAudit(c *gin.Context) {
	n := 200
	entries := h.Audit.GetRecent(n)
	c.JSON(http.StatusOK, gin.H{"entries": entries, "stats": h.Audit.Stats()})
}

// GetSettings handles GET /api/admin/settings; the API key and filesystem credentials
// come back masked (§6.1).
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.Settings.Get(c.Request.Context())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, settings.Masked())
}

// UpdateSettings handles PUT /api/admin/settings, guarded by optimistic concurrency on
// `updatedAt` so two admins editing at once get a 409 instead of silently clobbering
// each other (SPEC_FULL settings-versioning guard).
func (h *Handler) UpdateSettings(c *gin.Context) {
	var incoming models.Settings
	if err := c.ShouldBindJSON(&incoming); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.Settings.CompareAndSwap(c.Request.Context(), incoming.UpdatedAt, func(current *models.Settings) {
		if incoming.LambdaAPIKey != "" {
			current.LambdaAPIKey = incoming.LambdaAPIKey
		}
		current.SetupScript = incoming.SetupScript
		current.DefaultFilesystems = incoming.DefaultFilesystems
		current.MaxVMHours = incoming.MaxVMHours
		if current.SeedCompleteSecret == "" {
			current.SeedCompleteSecret = generateSeedCompleteSecret()
		}
	})
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	admin := middleware.CandidateFromContext(c)
	h.Audit.Record(audit.Entry{
		Action:     audit.ActionSettingsChange,
		DecisionBy: admin.Email,
		Result:     "success",
	})
	c.JSON(http.StatusOK, updated.Masked())
}
