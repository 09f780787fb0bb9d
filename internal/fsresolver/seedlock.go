package fsresolver

import (
	"context"
	"time"

	"github.com/payperplay/hosting/internal/models"
)

// claimSeed implements the single-writer seed lock protocol (§4.3). It returns
// (claimed, alreadyReady, err): claimed is true only when this call is now responsible
// for launching a loader VM; alreadyReady is true when no further work is needed at all.
func (r *Resolver) claimSeed(ctx context.Context, filesystemName, region string) (claimed bool, alreadyReady bool, err error) {
	current, found, err := r.seedRepo.Get(ctx, filesystemName, region)
	if err != nil {
		return false, false, err
	}

	if found {
		if current.Status == models.SeedStatusReady {
			return false, true, nil
		}
		if current.Status == models.SeedStatusSeeding && !current.IsStale(time.Now().UTC(), r.staleMinutes) {
			return false, false, nil
		}
	}

	claim := &models.SeedStatus{
		FilesystemName: filesystemName,
		Region:         region,
		Status:         models.SeedStatusSeeding,
		ClaimedAt:      time.Now().UTC(),
	}
	if err := r.seedRepo.Put(ctx, claim); err != nil {
		return false, false, err
	}
	return true, false, nil
}
