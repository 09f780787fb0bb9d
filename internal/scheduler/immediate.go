package scheduler

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/payperplay/hosting/internal/apperr"
	"github.com/payperplay/hosting/internal/fsresolver"
	"github.com/payperplay/hosting/internal/models"
)

// ImmediateParams is the validated body of POST /api/vms/launch: a single (type,
// region) pair with no queue fallback, distinct from the multi-candidate submission
// handled by Submit.
type ImmediateParams struct {
	InstanceType     string
	Region           string
	SSHPublicKey     string
	AttachFilesystem bool
}

// LaunchImmediate runs the same admission checks as Submit but refuses to queue: a
// caller asking for one specific (type, region) pair wants a direct answer, not a
// pending LaunchRequest (§6.1 "immediate single-shot launch").
func (s *Scheduler) LaunchImmediate(ctx context.Context, candidate *models.Candidate, params ImmediateParams) (*models.VM, error) {
	if params.InstanceType == "" || params.Region == "" {
		return nil, apperr.Validation("instanceType and region are required")
	}
	if err := validateSSHPublicKey(params.SSHPublicKey); err != nil {
		return nil, err
	}

	types, err := s.Provider.ListInstanceTypes(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateKnownTypes([]string{params.InstanceType}, types); err != nil {
		return nil, err
	}

	if !candidate.IsAdmin() {
		if err := s.enforceSingleInFlight(ctx, candidate.Email); err != nil {
			return nil, err
		}
		spent, err := s.computeSpent(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if candidate.QuotaCents()-spent < cheapestPrice([]string{params.InstanceType}, types) {
			return nil, apperr.QuotaExhausted("insufficient remaining quota for this instance type")
		}
	}

	match, found := matchCapacity([]string{params.InstanceType}, []string{params.Region}, types)
	if !found {
		return nil, apperr.CapacityUnavailable("no capacity for the requested instance type in the requested region")
	}

	keyName := fsresolver.SSHKeyName(candidate.Email)
	if err := s.ensureSSHKey(ctx, candidate.Email, keyName, params.SSHPublicKey); err != nil {
		return nil, err
	}

	lr := &models.LaunchRequest{
		ID:               uuid.NewString(),
		CandidateEmail:   candidate.Email,
		InstanceTypes:    []string{params.InstanceType},
		Regions:          []string{params.Region},
		SSHPublicKey:     params.SSHPublicKey,
		AttachFilesystem: params.AttachFilesystem,
		Status:           models.LaunchStatusQueued,
		CreatedAt:        time.Now().UTC(),
	}
	if err := s.dispatchOne(ctx, lr, candidate, match, keyName); err != nil {
		return nil, err
	}

	vm, found, err := s.VMs.Get(ctx, lr.FulfilledInstanceID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, apperr.Internal(nil)
	}
	return vm, nil
}
