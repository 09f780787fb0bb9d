package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/payperplay/hosting/internal/middleware"
	"github.com/payperplay/hosting/internal/scheduler"
)

type submitLaunchRequestBody struct {
	InstanceTypes    []string `json:"instanceTypes" binding:"required"`
	Regions          []string `json:"regions" binding:"required"`
	SSHPublicKey     string   `json:"sshPublicKey" binding:"required"`
	AttachFilesystem bool     `json:"attachFilesystem"`
}

// ListLaunchRequests handles GET /api/launch-requests.
func (h *Handler) ListLaunchRequests(c *gin.Context) {
	candidate := middleware.CandidateFromContext(c)
	if candidate == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	reqs, err := h.Scheduler.List(c.Request.Context(), candidate)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"launchRequests": reqs})
}

// SubmitLaunchRequest handles POST /api/launch-requests: admission plus a greedy
// immediate-dispatch attempt, falling back to a queued request (§4.2). Responds 201 when
// dispatched immediately, 202 when queued.
func (h *Handler) SubmitLaunchRequest(c *gin.Context) {
	candidate := middleware.CandidateFromContext(c)
	if candidate == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var body submitLaunchRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lr, err := h.Scheduler.Submit(c.Request.Context(), candidate, scheduler.SubmitParams{
		InstanceTypes:    body.InstanceTypes,
		Regions:          body.Regions,
		SSHPublicKey:     body.SSHPublicKey,
		AttachFilesystem: body.AttachFilesystem,
	})
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	if lr.Status.IsTerminal() {
		c.JSON(http.StatusCreated, gin.H{"launchRequest": lr})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"launchRequest": lr})
}

type cancelLaunchRequestBody struct {
	ID string `json:"id" binding:"required"`
}

// CancelLaunchRequest handles POST /api/launch-requests/cancel.
func (h *Handler) CancelLaunchRequest(c *gin.Context) {
	candidate := middleware.CandidateFromContext(c)
	if candidate == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var body cancelLaunchRequestBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lr, err := h.Scheduler.Cancel(c.Request.Context(), candidate, body.ID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"launchRequest": lr})
}
