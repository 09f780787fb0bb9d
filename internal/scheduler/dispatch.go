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

// capacityMatch is the (instanceType, region, price) triple picked by the deterministic
// caller-order search in §4.2.
type capacityMatch struct {
	InstanceType      string
	Region            string
	PriceCentsPerHour int64
}

// matchCapacity picks the first (type, region) pair in instanceTypes × regions order
// whose type has capacity in that region (§4.2 step 6b, step 3 of dispatch).
func matchCapacity(instanceTypes, regions []string, known []provider.InstanceType) (capacityMatch, bool) {
	byName := make(map[string]provider.InstanceType, len(known))
	for _, t := range known {
		byName[t.Name] = t
	}

	for _, typeName := range instanceTypes {
		t, ok := byName[typeName]
		if !ok {
			continue
		}
		for _, region := range regions {
			if regionHasCapacity(t, region) {
				return capacityMatch{InstanceType: typeName, Region: region, PriceCentsPerHour: t.PriceCentsPerHour}, true
			}
		}
	}
	return capacityMatch{}, false
}

func regionHasCapacity(t provider.InstanceType, region string) bool {
	for _, r := range t.AvailableRegions {
		if r == region {
			return true
		}
	}
	return false
}

func cheapestPrice(instanceTypes []string, known []provider.InstanceType) int64 {
	byName := make(map[string]provider.InstanceType, len(known))
	for _, t := range known {
		byName[t.Name] = t
	}
	var cheapest int64 = -1
	for _, name := range instanceTypes {
		t, ok := byName[name]
		if !ok {
			continue
		}
		if cheapest == -1 || t.PriceCentsPerHour < cheapest {
			cheapest = t.PriceCentsPerHour
		}
	}
	if cheapest == -1 {
		return 0
	}
	return cheapest
}

// dispatchOne attempts to turn a matched capacity slot into a launched VM, mutating lr
// in place to `fulfilled` on success. It does not persist lr; callers persist after
// deciding how to handle a returned error.
func (s *Scheduler) dispatchOne(ctx context.Context, lr *models.LaunchRequest, candidate *models.Candidate, match capacityMatch, keyName string) error {
	if !candidate.IsAdmin() {
		spent, err := s.computeSpent(ctx, candidate)
		if err != nil {
			return err
		}
		if candidate.QuotaCents()-spent < match.PriceCentsPerHour {
			return apperr.QuotaExhausted("insufficient remaining quota at dispatch time")
		}
	}

	settings, err := s.Settings.Get(ctx)
	if err != nil {
		return err
	}

	result, err := s.Resolver.Resolve(ctx, match.Region, candidate.Email, lr.AttachFilesystem, settings, s.AppBaseURL)
	if err != nil {
		return err
	}

	userData := fsresolver.ComposeUserData(settings.SetupScript, result.ReadonlyRemountScript)

	spec := provider.LaunchSpec{
		InstanceType:    match.InstanceType,
		Region:          match.Region,
		SSHKeyNames:     []string{keyName},
		FilesystemNames: result.FilesystemNames,
		UserData:        userData,
		Name:            "gpucp-" + lr.ID[:8],
	}

	inst, err := s.Provider.LaunchInstance(ctx, spec)
	if err != nil {
		return err
	}

	for _, loaderSpec := range result.LoaderSpecs {
		if _, err := s.Provider.LaunchInstance(ctx, loaderSpec); err != nil {
			logger.Warn("loader VM launch failed, seed will stall until retried", map[string]interface{}{
				"filesystem": loaderSpec.Name,
				"error":      err.Error(),
			})
		}
	}

	now := time.Now().UTC()
	vm := &models.VM{
		InstanceID:        inst.ID,
		CandidateEmail:    candidate.Email,
		InstanceType:      match.InstanceType,
		Region:            match.Region,
		PriceCentsPerHour: match.PriceCentsPerHour,
		LaunchedAt:        now,
		Status:            models.VMStatusLaunching,
		SSHKeyName:        keyName,
		LastCheckedAt:     now,
	}
	if err := s.VMs.Put(ctx, vm); err != nil {
		return err
	}

	lr.Status = models.LaunchStatusFulfilled
	lr.FulfilledAt = &now
	lr.FulfilledInstanceID = inst.ID
	return nil
}
