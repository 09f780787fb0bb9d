package reconciler

import (
	"context"
	"time"

	"github.com/payperplay/hosting/internal/fsresolver"
	"github.com/payperplay/hosting/pkg/logger"
)

// passC deletes stale `seeding` SeedStatus claims older than the stale threshold, freeing
// the (filesystem, region) pair for a fresh claim attempt (§4.4 Pass C).
func (r *Reconciler) passC(ctx context.Context) {
	statuses, err := r.SeedStatuses.List(ctx)
	if err != nil {
		logger.Error("pass C: failed to list seed statuses", err, nil)
		return
	}

	now := time.Now().UTC()
	for _, st := range statuses {
		if st.IsStale(now, fsresolver.DefaultStaleMinutes) {
			if err := r.SeedStatuses.Delete(ctx, st.FilesystemName, st.Region); err != nil {
				logger.Warn("pass C: failed to delete stale seed claim", map[string]interface{}{
					"filesystem": st.FilesystemName,
					"region":     st.Region,
					"error":      err.Error(),
				})
			}
		}
	}
}
