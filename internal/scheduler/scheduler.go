// Package scheduler implements the launch-request scheduler (§4.2): admission,
// greedy immediate dispatch, cancellation, and the FIFO tick-based dispatch the
// Reconciler drives every minute.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/payperplay/hosting/internal/accrual"
	"github.com/payperplay/hosting/internal/apperr"
	"github.com/payperplay/hosting/internal/fsresolver"
	"github.com/payperplay/hosting/internal/models"
	"github.com/payperplay/hosting/internal/provider"
	"github.com/payperplay/hosting/internal/store"
	"github.com/payperplay/hosting/pkg/logger"
)

// ProvisioningStaleAfter is how long a request may sit in `provisioning` before the
// Reconciler treats it as a retry candidate (§4.2 step 7: "twice the tick period").
const ProvisioningStaleAfter = 2 * time.Minute

type Scheduler struct {
	Candidates     *store.CandidateRepo
	VMs            *store.VMRepo
	LaunchRequests *store.LaunchRequestRepo
	SSHKeys        *store.SSHKeyRepo
	Settings       *store.SettingsRepo
	Provider       provider.Client
	Resolver       *fsresolver.Resolver
	AppBaseURL     string
}

func New(candidates *store.CandidateRepo, vms *store.VMRepo, launchRequests *store.LaunchRequestRepo, sshKeys *store.SSHKeyRepo, settings *store.SettingsRepo, providerClient provider.Client, resolver *fsresolver.Resolver, appBaseURL string) *Scheduler {
	return &Scheduler{
		Candidates:     candidates,
		VMs:            vms,
		LaunchRequests: launchRequests,
		SSHKeys:        sshKeys,
		Settings:       settings,
		Provider:       providerClient,
		Resolver:       resolver,
		AppBaseURL:     appBaseURL,
	}
}

// SubmitParams is the validated body of POST /api/launch-requests.
type SubmitParams struct {
	InstanceTypes    []string
	Regions          []string
	SSHPublicKey     string
	AttachFilesystem bool
}

// Submit runs admission (§4.2) and attempts greedy immediate dispatch before falling
// back to queuing the request.
func (s *Scheduler) Submit(ctx context.Context, candidate *models.Candidate, params SubmitParams) (*models.LaunchRequest, error) {
	if err := validateParams(params); err != nil {
		return nil, err
	}

	types, err := s.Provider.ListInstanceTypes(ctx)
	if err != nil {
		return nil, err
	}
	if err := validateKnownTypes(params.InstanceTypes, types); err != nil {
		return nil, err
	}

	if !candidate.IsAdmin() {
		if err := s.enforceSingleInFlight(ctx, candidate.Email); err != nil {
			return nil, err
		}
	}

	if !candidate.IsAdmin() {
		cheapest := cheapestPrice(params.InstanceTypes, types)
		spent, err := s.computeSpent(ctx, candidate)
		if err != nil {
			return nil, err
		}
		if candidate.QuotaCents()-spent < cheapest {
			return nil, apperr.QuotaExhausted("insufficient remaining quota for the cheapest requested instance type")
		}
	}

	keyName := fsresolver.SSHKeyName(candidate.Email)
	if err := s.ensureSSHKey(ctx, candidate.Email, keyName, params.SSHPublicKey); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	lr := &models.LaunchRequest{
		ID:               uuid.NewString(),
		CandidateEmail:   candidate.Email,
		InstanceTypes:    params.InstanceTypes,
		Regions:          params.Regions,
		SSHPublicKey:     params.SSHPublicKey,
		AttachFilesystem: params.AttachFilesystem,
		Status:           models.LaunchStatusQueued,
		CreatedAt:        now,
	}

	match, found := matchCapacity(params.InstanceTypes, params.Regions, types)
	if found {
		if err := s.dispatchOne(ctx, lr, candidate, match, keyName); err != nil {
			logger.Warn("immediate dispatch failed, falling back to queue", map[string]interface{}{
				"email": candidate.Email,
				"error": err.Error(),
			})
		}
	}

	if err := s.LaunchRequests.Put(ctx, lr); err != nil {
		return nil, err
	}
	return lr, nil
}

// Cancel transitions a `queued` request to `cancelled` (§4.2).
func (s *Scheduler) Cancel(ctx context.Context, candidate *models.Candidate, id string) (*models.LaunchRequest, error) {
	lr, found, err := s.LaunchRequests.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !found || (lr.CandidateEmail != candidate.Email && !candidate.IsAdmin()) {
		return nil, apperr.NotFound("launch request")
	}
	if lr.Status != models.LaunchStatusQueued {
		return nil, apperr.Validation("only a queued request can be cancelled")
	}

	now := time.Now().UTC()
	lr.Status = models.LaunchStatusCancelled
	lr.CancelledAt = &now
	if err := s.LaunchRequests.Put(ctx, lr); err != nil {
		return nil, err
	}
	return lr, nil
}

// List returns a caller's own requests, or every request for an admin.
func (s *Scheduler) List(ctx context.Context, candidate *models.Candidate) ([]*models.LaunchRequest, error) {
	if candidate.IsAdmin() {
		all, err := s.LaunchRequests.List(ctx)
		if err != nil {
			return nil, err
		}
		sortByCreatedAt(all)
		return all, nil
	}
	own, err := s.LaunchRequests.ListByCandidate(ctx, candidate.Email)
	if err != nil {
		return nil, err
	}
	sortByCreatedAt(own)
	return own, nil
}

func (s *Scheduler) computeSpent(ctx context.Context, candidate *models.Candidate) (int64, error) {
	vms, err := s.VMs.ListByCandidate(ctx, candidate.Email)
	if err != nil {
		return 0, err
	}
	return accrual.ComputeSpent(vms, candidate.SpentResetAt, time.Now().UTC()), nil
}

func (s *Scheduler) enforceSingleInFlight(ctx context.Context, email string) error {
	vms, err := s.VMs.ListByCandidate(ctx, email)
	if err != nil {
		return err
	}
	for _, vm := range vms {
		if vm.IsActive() {
			return apperr.Conflict("candidate already has an active VM")
		}
	}

	pending, err := s.LaunchRequests.ListByCandidate(ctx, email)
	if err != nil {
		return err
	}
	for _, lr := range pending {
		if lr.Status.IsPending() {
			return apperr.Conflict("candidate already has a pending launch request")
		}
	}
	return nil
}

func (s *Scheduler) ensureSSHKey(ctx context.Context, email, keyName, publicKey string) error {
	keys, err := s.SSHKeys.ListByCandidate(ctx, email)
	if err != nil {
		return err
	}
	for _, k := range keys {
		if k.KeyName == keyName {
			return nil
		}
	}

	// "already in use" from the provider is treated as success (§9): the key name is
	// deterministic, so a concurrent launch may have just registered it.
	upstreamID, err := s.Provider.AddSSHKey(ctx, keyName, publicKey)
	if err != nil {
		ae, ok := apperr.As(err)
		if !ok || ae.Kind != apperr.KindUpstreamPermanent {
			return err
		}
		logger.Info("ssh key already registered upstream, looking up its id", map[string]interface{}{"keyName": keyName})
		upstreamID, err = s.lookupSSHKeyID(ctx, keyName)
		if err != nil {
			return err
		}
	}

	return s.SSHKeys.Put(ctx, &models.SSHKey{
		Email:        email,
		KeyName:      keyName,
		UpstreamID:   upstreamID,
		PublicKey:    publicKey,
		RegisteredAt: time.Now().UTC(),
	})
}

func (s *Scheduler) lookupSSHKeyID(ctx context.Context, keyName string) (string, error) {
	keys, err := s.Provider.ListSSHKeys(ctx)
	if err != nil {
		return "", err
	}
	for _, k := range keys {
		if k.Name == keyName {
			return k.ID, nil
		}
	}
	return "", apperr.UpstreamPermanent("ssh key not found upstream after already-in-use response", nil)
}

func validateParams(p SubmitParams) error {
	if len(p.InstanceTypes) == 0 {
		return apperr.Validation("instanceTypes must be non-empty")
	}
	if len(p.Regions) == 0 {
		return apperr.Validation("regions must be non-empty")
	}
	if err := validateSSHPublicKey(p.SSHPublicKey); err != nil {
		return err
	}
	return nil
}

func validateKnownTypes(requested []string, known []provider.InstanceType) error {
	byName := make(map[string]bool, len(known))
	for _, t := range known {
		byName[t.Name] = true
	}
	for _, name := range requested {
		if !byName[name] {
			return apperr.Validation(fmt.Sprintf("unknown instance type %q", name))
		}
	}
	return nil
}

func sortByCreatedAt(lrs []*models.LaunchRequest) {
	sort.Slice(lrs, func(i, j int) bool {
		return lrs[i].CreatedAt.Before(lrs[j].CreatedAt)
	})
}
