package reconciler

import (
	"context"
	"time"

	"github.com/payperplay/hosting/internal/costhistory"
	"github.com/payperplay/hosting/internal/models"
	"github.com/payperplay/hosting/pkg/logger"
)

// passA is VM sync & cost accrual (§4.4 Pass A).
func (r *Reconciler) passA(ctx context.Context) {
	upstream, err := r.Provider.ListInstances(ctx)
	if err != nil {
		logger.Error("pass A: failed to list upstream instances", err, nil)
		return
	}
	byID := make(map[string]struct{ status, ip string }, len(upstream))
	for _, inst := range upstream {
		byID[inst.ID] = struct{ status, ip string }{status: inst.Status, ip: inst.IPAddress}
	}

	active, err := r.VMs.ListActive(ctx)
	if err != nil {
		logger.Error("pass A: failed to list active VMs", err, nil)
		return
	}

	settings, err := r.Settings.Get(ctx)
	if err != nil {
		logger.Error("pass A: failed to load settings", err, nil)
		settings = &models.Settings{}
	}

	now := time.Now().UTC()
	deltaByCandidate := make(map[string]int64)
	touchedCandidates := make(map[string]bool)
	toTerminate := make(map[string]bool)
	points := make([]costhistory.Point, 0, len(active))

	for _, vm := range active {
		previous := vm.AccruedCents
		up, stillUp := byID[vm.InstanceID]

		switch {
		case !stillUp || up.status == "terminated":
			vm.Status = models.VMStatusTerminated
			vm.TerminationReason = string(models.ReasonTerminatedExternal)
			terminatedAt := now
			vm.TerminatedAt = &terminatedAt
			vm.AccruedCents = vm.ComputeAccruedCents(now)
		case settings.MaxVMHours > 0 && now.Sub(vm.LaunchedAt) >= time.Duration(settings.MaxVMHours)*time.Hour:
			vm.Status = models.VMStatusTerminated
			vm.TerminationReason = string(models.ReasonMaxHoursExceeded)
			terminatedAt := now
			vm.TerminatedAt = &terminatedAt
			vm.AccruedCents = vm.ComputeAccruedCents(now)
			toTerminate[vm.InstanceID] = true
		default:
			vm.IPAddress = up.ip
			vm.Status = models.VMStatus(up.status)
			vm.AccruedCents = vm.ComputeAccruedCents(now)
		}
		vm.LastCheckedAt = now

		if err := r.VMs.Put(ctx, vm); err != nil {
			logger.ForInstance(vm.InstanceID).Error("pass A: failed to persist VM", err)
			continue
		}
		if vm.TerminationReason == string(models.ReasonMaxHoursExceeded) {
			r.Audit.RecordVMTermination(vm.InstanceID, vm.CandidateEmail, vm.TerminationReason, "reconciler", nil)
		}

		deltaByCandidate[vm.CandidateEmail] += vm.AccruedCents - previous
		touchedCandidates[vm.CandidateEmail] = true
		points = append(points, costhistory.Point{
			InstanceID:     vm.InstanceID,
			CandidateEmail: vm.CandidateEmail,
			Region:         vm.Region,
			InstanceType:   vm.InstanceType,
			Status:         string(vm.Status),
			AccruedCents:   vm.AccruedCents,
			Timestamp:      now,
		})
	}
	r.CostHistory.Record(points)

	for email := range touchedCandidates {
		candidate, found, err := r.Candidates.Get(ctx, email)
		if err != nil {
			logger.ForCandidate(email).Error("pass A: failed to load candidate", err)
			continue
		}

		if found {
			candidate.SpentCents += deltaByCandidate[email]
			if err := r.Candidates.Put(ctx, candidate); err != nil {
				logger.ForCandidate(email).Error("pass A: failed to persist candidate", err)
			}
		}

		reason := ""
		switch {
		case !found || !candidate.IsActive():
			reason = string(models.ReasonAccountRemoved)
		case !candidate.IsAdmin() && candidate.SpentCents >= candidate.QuotaCents():
			reason = string(models.ReasonQuotaExceeded)
		}
		if reason == "" {
			continue
		}

		vms, err := r.VMs.ListByCandidate(ctx, email)
		if err != nil {
			logger.ForCandidate(email).Error("pass A: failed to list candidate VMs for termination", err)
			continue
		}
		for _, vm := range vms {
			if vm.IsActive() {
				toTerminate[vm.InstanceID] = true
				r.markTerminating(ctx, vm, reason, now)
			}
		}
	}

	if len(toTerminate) > 0 {
		ids := make([]string, 0, len(toTerminate))
		for id := range toTerminate {
			ids = append(ids, id)
		}
		if err := r.Provider.TerminateInstances(ctx, ids); err != nil {
			logger.Warn("pass A: batched upstream terminate failed, will retry next tick", map[string]interface{}{
				"count": len(ids),
				"error": err.Error(),
			})
		}
	}

	r.cleanupSSHKeys(ctx, touchedCandidates)
}

// markTerminating persists the local termination record immediately so the state is
// reflected even if the upstream terminate call itself fails; the next tick's upstream
// sync will reconcile any mismatch.
func (r *Reconciler) markTerminating(ctx context.Context, vm *models.VM, reason string, now time.Time) {
	vm.Status = models.VMStatusTerminated
	vm.TerminationReason = reason
	terminatedAt := now
	vm.TerminatedAt = &terminatedAt
	vm.AccruedCents = vm.ComputeAccruedCents(now)
	vm.LastCheckedAt = now
	err := r.VMs.Put(ctx, vm)
	if err != nil {
		logger.ForInstance(vm.InstanceID).Error("pass A: failed to persist terminated VM", err)
	}
	r.Audit.RecordVMTermination(vm.InstanceID, vm.CandidateEmail, reason, "reconciler", err)
}

// cleanupSSHKeys deletes a candidate's upstream SSH key and local record once they have
// no active VMs left (§4.4 Pass A, §5d).
func (r *Reconciler) cleanupSSHKeys(ctx context.Context, candidates map[string]bool) {
	for email := range candidates {
		vms, err := r.VMs.ListByCandidate(ctx, email)
		if err != nil {
			continue
		}
		hasActive := false
		for _, vm := range vms {
			if vm.IsActive() {
				hasActive = true
				break
			}
		}
		if hasActive {
			continue
		}

		keys, err := r.SSHKeys.ListByCandidate(ctx, email)
		if err != nil {
			continue
		}
		for _, key := range keys {
			if err := r.deleteSSHKeyEverywhere(ctx, key); err != nil {
				logger.Warn("pass A: failed to delete ssh key", map[string]interface{}{
					"email": email, "keyName": key.KeyName, "error": err.Error(),
				})
			}
		}
	}
}

func (r *Reconciler) deleteSSHKeyEverywhere(ctx context.Context, key *models.SSHKey) error {
	if key.UpstreamID != "" {
		if err := r.Provider.DeleteSSHKey(ctx, key.UpstreamID); err != nil {
			return err
		}
	}
	return r.SSHKeys.Delete(ctx, key.Email, key.KeyName)
}
