package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/payperplay/hosting/internal/apperr"
	"github.com/payperplay/hosting/internal/middleware"
	"github.com/payperplay/hosting/internal/models"
	"github.com/payperplay/hosting/internal/scheduler"
)

// ListVMs handles GET /api/vms: the caller's own VMs, or every VM for an admin, with an
// opportunistic best-effort refresh of each active VM's upstream status first (§6.1).
func (h *Handler) ListVMs(c *gin.Context) {
	candidate := middleware.CandidateFromContext(c)
	if candidate == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	ctx := c.Request.Context()
	var vms []*models.VM
	var err error
	if candidate.IsAdmin() {
		vms, err = h.VMs.List(ctx)
	} else {
		vms, err = h.VMs.ListByCandidate(ctx, candidate.Email)
	}
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	now := time.Now().UTC()
	for _, vm := range vms {
		if !vm.IsActive() {
			continue
		}
		inst, err := h.Provider.GetInstance(ctx, vm.InstanceID)
		if err != nil {
			continue
		}
		vm.IPAddress = inst.IPAddress
		vm.Status = models.VMStatus(inst.Status)
		vm.AccruedCents = vm.ComputeAccruedCents(now)
		vm.LastCheckedAt = now
		_ = h.VMs.Put(ctx, vm)
	}

	c.JSON(http.StatusOK, gin.H{"vms": vms})
}

type launchVMRequest struct {
	InstanceType     string `json:"instanceType" binding:"required"`
	Region           string `json:"region" binding:"required"`
	SSHPublicKey     string `json:"sshPublicKey" binding:"required"`
	AttachFilesystem bool   `json:"attachFilesystem"`
}

// LaunchVM handles POST /api/vms/launch: an immediate single-shot launch with no queue
// fallback, distinct from POST /api/launch-requests.
func (h *Handler) LaunchVM(c *gin.Context) {
	candidate := middleware.CandidateFromContext(c)
	if candidate == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req launchVMRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	vm, err := h.Scheduler.LaunchImmediate(c.Request.Context(), candidate, scheduler.ImmediateParams{
		InstanceType:     req.InstanceType,
		Region:           req.Region,
		SSHPublicKey:     req.SSHPublicKey,
		AttachFilesystem: req.AttachFilesystem,
	})
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"vm": vm})
}

type instanceIDRequest struct {
	InstanceID string `json:"instanceId" binding:"required"`
}

// TerminateVM handles POST /api/vms/terminate (§8 P7: terminating an already-terminated
// VM is a well-formed error, not a mutation).
func (h *Handler) TerminateVM(c *gin.Context) {
	candidate := middleware.CandidateFromContext(c)
	if candidate == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req instanceIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	vm, found, err := h.VMs.Get(ctx, req.InstanceID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if !found || (vm.CandidateEmail != candidate.Email && !candidate.IsAdmin()) {
		middleware.RespondError(c, apperr.NotFound("vm"))
		return
	}
	if !vm.IsActive() {
		middleware.RespondError(c, apperr.Conflict("vm is already terminated"))
		return
	}

	if err := h.Provider.TerminateInstance(ctx, vm.InstanceID); err != nil {
		middleware.RespondError(c, err)
		return
	}

	now := time.Now().UTC()
	vm.Status = models.VMStatusTerminated
	vm.TerminationReason = string(models.ReasonUserRequested)
	vm.TerminatedAt = &now
	vm.AccruedCents = vm.ComputeAccruedCents(now)
	vm.LastCheckedAt = now
	if err := h.VMs.Put(ctx, vm); err != nil {
		middleware.RespondError(c, err)
		return
	}

	h.Audit.RecordVMTermination(vm.InstanceID, vm.CandidateEmail, string(models.ReasonUserRequested), candidate.Email, nil)
	h.deleteSSHKeyIfLastVM(ctx, vm.CandidateEmail)

	c.JSON(http.StatusOK, gin.H{"vm": vm})
}

// RestartVM handles POST /api/vms/restart.
func (h *Handler) RestartVM(c *gin.Context) {
	candidate := middleware.CandidateFromContext(c)
	if candidate == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}

	var req instanceIDRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx := c.Request.Context()
	vm, found, err := h.VMs.Get(ctx, req.InstanceID)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	if !found || (vm.CandidateEmail != candidate.Email && !candidate.IsAdmin()) {
		middleware.RespondError(c, apperr.NotFound("vm"))
		return
	}
	if !vm.IsActive() {
		middleware.RespondError(c, apperr.Conflict("vm is terminated"))
		return
	}

	if err := h.Provider.RestartInstance(ctx, vm.InstanceID); err != nil {
		middleware.RespondError(c, err)
		return
	}

	vm.Status = models.VMStatusRestarting
	vm.LastCheckedAt = time.Now().UTC()
	if err := h.VMs.Put(ctx, vm); err != nil {
		middleware.RespondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"vm": vm})
}

// deleteSSHKeyIfLastVM drops the candidate's upstream SSH key once no active VM remains
// (§6.1: "deletes SSH key if last VM"), mirroring the Reconciler's own cleanup so the key
// disappears immediately rather than waiting for the next tick.
func (h *Handler) deleteSSHKeyIfLastVM(ctx context.Context, email string) {
	vms, err := h.VMs.ListByCandidate(ctx, email)
	if err != nil {
		return
	}
	for _, vm := range vms {
		if vm.IsActive() {
			return
		}
	}

	keys, err := h.SSHKeys.ListByCandidate(ctx, email)
	if err != nil {
		return
	}
	for _, key := range keys {
		if key.UpstreamID != "" {
			_ = h.Provider.DeleteSSHKey(ctx, key.UpstreamID)
		}
		_ = h.SSHKeys.Delete(ctx, key.Email, key.KeyName)
	}
}
