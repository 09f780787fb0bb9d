// Package accrual holds the per-candidate spend formula (§4.5), shared by the scheduler's
// admission and dispatch checks, the HTTP handlers and the metrics exporter. The
// Reconciler's quota enforcement does not call it: it adds per-VM deltas from
// VM.ComputeAccruedCents to the cached spentCents.
package accrual

import (
	"time"

	"github.com/payperplay/hosting/internal/models"
)

// ComputeSpent is the authoritative per-candidate spend: the sum of every VM's accrued
// cost, excluding VMs launched before spentResetAt (set on reactivation, §8 scenario 6).
// candidate.spentCents is only a cache of this value.
func ComputeSpent(vms []*models.VM, spentResetAt *time.Time, now time.Time) int64 {
	var total int64
	for _, vm := range vms {
		if spentResetAt != nil && vm.LaunchedAt.Before(*spentResetAt) {
			continue
		}
		total += vm.ComputeAccruedCents(now)
	}
	return total
}
