package scheduler

import (
	"context"
	"time"

	"github.com/payperplay/hosting/internal/apperr"
	"github.com/payperplay/hosting/internal/fsresolver"
	"github.com/payperplay/hosting/internal/models"
	"github.com/payperplay/hosting/internal/provider"
	"github.com/payperplay/hosting/pkg/logger"
)

// ProcessQueue is Pass B of the Reconciler tick (§4.4, §4.2 Dispatch): every `queued`
// request is considered oldest-first, plus any `provisioning` request stale enough to
// retry. Each item's failure is caught and logged; the pass never aborts (§4.4 failure
// semantics).
func (s *Scheduler) ProcessQueue(ctx context.Context) {
	pending, err := s.LaunchRequests.ListPending(ctx)
	if err != nil {
		logger.Error("failed to list pending launch requests", err, nil)
		return
	}
	sortByCreatedAt(pending)

	now := time.Now().UTC()
	var queued []*models.LaunchRequest
	for _, lr := range pending {
		switch lr.Status {
		case models.LaunchStatusQueued:
			queued = append(queued, lr)
		case models.LaunchStatusProvisioning:
			if lr.LastAttemptAt != nil && now.Sub(*lr.LastAttemptAt) > ProvisioningStaleAfter {
				queued = append(queued, lr)
			}
		}
	}

	types, err := s.Provider.ListInstanceTypes(ctx)
	if err != nil {
		logger.Error("failed to list instance types during queue processing", err, nil)
		return
	}

	for _, lr := range queued {
		if err := s.dispatchTick(ctx, lr, types); err != nil {
			logger.Warn("launch request dispatch failed this tick", map[string]interface{}{
				"id":    lr.ID,
				"email": lr.CandidateEmail,
				"error": err.Error(),
			})
		}
	}
}

// dispatchTick implements the per-request steps of §4.2 Dispatch.
func (s *Scheduler) dispatchTick(ctx context.Context, lr *models.LaunchRequest, types []provider.InstanceType) error {
	candidate, found, err := s.Candidates.Get(ctx, lr.CandidateEmail)
	if err != nil {
		return err
	}
	if !found || !candidate.IsActive() {
		return s.failRequest(ctx, lr, models.LaunchStatusCancelled, models.FailureCandidateDeactivated)
	}

	if !candidate.IsAdmin() {
		vms, err := s.VMs.ListByCandidate(ctx, candidate.Email)
		if err != nil {
			return err
		}
		for _, vm := range vms {
			if vm.IsActive() {
				return nil // skip this tick, retry next cycle
			}
		}
	}

	match, found := matchCapacity(lr.InstanceTypes, lr.Regions, types)
	if !found {
		now := time.Now().UTC()
		lr.Attempts++
		lr.LastAttemptAt = &now
		return s.LaunchRequests.Put(ctx, lr)
	}

	if !candidate.IsAdmin() {
		spent, err := s.computeSpent(ctx, candidate)
		if err != nil {
			return err
		}
		if candidate.QuotaCents()-spent < match.PriceCentsPerHour {
			return s.failRequest(ctx, lr, models.LaunchStatusFailed, models.FailureInsufficientQuota)
		}
	}

	now := time.Now().UTC()
	lr.Status = models.LaunchStatusProvisioning
	lr.Attempts++
	lr.LastAttemptAt = &now
	if err := s.LaunchRequests.Put(ctx, lr); err != nil {
		return err
	}

	keyName := fsresolver.SSHKeyName(candidate.Email)
	if err := s.ensureSSHKey(ctx, candidate.Email, keyName, lr.SSHPublicKey); err != nil {
		return s.revertToQueued(ctx, lr)
	}

	if err := s.dispatchOne(ctx, lr, candidate, match, keyName); err != nil {
		if ae, ok := apperr.As(err); ok && ae.Kind == apperr.KindQuotaExhausted {
			return s.failRequest(ctx, lr, models.LaunchStatusFailed, models.FailureInsufficientQuota)
		}
		if ae, ok := apperr.As(err); ok && ae.Kind == apperr.KindUpstreamPermanent {
			return s.failRequest(ctx, lr, models.LaunchStatusFailed, ae.Message)
		}
		return s.revertToQueued(ctx, lr)
	}

	return s.LaunchRequests.Put(ctx, lr)
}

func (s *Scheduler) revertToQueued(ctx context.Context, lr *models.LaunchRequest) error {
	lr.Status = models.LaunchStatusQueued
	return s.LaunchRequests.Put(ctx, lr)
}

func (s *Scheduler) failRequest(ctx context.Context, lr *models.LaunchRequest, status models.LaunchRequestStatus, reason string) error {
	lr.Status = status
	lr.FailureReason = reason
	if status == models.LaunchStatusCancelled {
		now := time.Now().UTC()
		lr.CancelledAt = &now
	}
	return s.LaunchRequests.Put(ctx, lr)
}
