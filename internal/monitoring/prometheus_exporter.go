package monitoring

import (
	"context"
	"time"

	"github.com/payperplay/hosting/internal/accrual"
	"github.com/payperplay/hosting/internal/models"
	"github.com/payperplay/hosting/internal/store"
	"github.com/payperplay/hosting/pkg/logger"
)

// MetricsExporter periodically recomputes the fleet-wide gauges from store state: VMs,
// candidates, launch requests, and seed claims.
type MetricsExporter struct {
	candidates *store.CandidateRepo
	vms        *store.VMRepo
	launches   *store.LaunchRequestRepo
	seeds      *store.SeedStatusRepo
}

func NewMetricsExporter(candidates *store.CandidateRepo, vms *store.VMRepo, launches *store.LaunchRequestRepo, seeds *store.SeedStatusRepo) *MetricsExporter {
	return &MetricsExporter{candidates: candidates, vms: vms, launches: launches, seeds: seeds}
}

// CollectMetrics recomputes every gauge from a fresh read of the stores. Counters
// (VMTerminationsTotal, APIRequestsTotal) are updated at their call sites instead, since
// they track events rather than current state.
func (e *MetricsExporter) CollectMetrics(ctx context.Context) error {
	vms, err := e.vms.List(ctx)
	if err != nil {
		return err
	}

	var activeCount int
	for _, vm := range vms {
		VMAccruedCents.WithLabelValues(vm.InstanceID, vm.CandidateEmail).Set(float64(vm.AccruedCents))
		if vm.IsActive() {
			activeCount++
		}
	}
	FleetActiveVMs.Set(float64(activeCount))

	candidates, err := e.candidates.List(ctx)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	var fleetSpent int64
	for _, candidate := range candidates {
		vmsByCandidate, err := e.vms.ListByCandidate(ctx, candidate.Email)
		if err != nil {
			logger.Warn("metrics: failed to list candidate VMs", map[string]interface{}{"email": candidate.Email, "error": err.Error()})
			continue
		}
		spent := accrual.ComputeSpent(vmsByCandidate, candidate.SpentResetAt, now)
		CandidateSpentCents.WithLabelValues(candidate.Email).Set(float64(spent))
		fleetSpent += spent
	}
	FleetSpentCents.Set(float64(fleetSpent))

	launches, err := e.launches.List(ctx)
	if err != nil {
		return err
	}
	byStatus := make(map[models.LaunchRequestStatus]int)
	for _, lr := range launches {
		byStatus[lr.Status]++
	}
	for _, status := range []models.LaunchRequestStatus{
		models.LaunchStatusQueued,
		models.LaunchStatusProvisioning,
		models.LaunchStatusFulfilled,
		models.LaunchStatusFailed,
		models.LaunchStatusCancelled,
	} {
		LaunchRequestsByStatus.WithLabelValues(string(status)).Set(float64(byStatus[status]))
	}

	seeds, err := e.seeds.List(ctx)
	if err != nil {
		return err
	}
	byPhase := make(map[models.SeedStatusPhase]int)
	for _, s := range seeds {
		byPhase[s.Status]++
	}
	SeedStatusByPhase.WithLabelValues(string(models.SeedStatusSeeding)).Set(float64(byPhase[models.SeedStatusSeeding]))
	SeedStatusByPhase.WithLabelValues(string(models.SeedStatusReady)).Set(float64(byPhase[models.SeedStatusReady]))

	return nil
}

// StartMetricsCollector runs CollectMetrics immediately and then on every interval until
// ctx is cancelled.
func (e *MetricsExporter) StartMetricsCollector(ctx context.Context, interval time.Duration) {
	if err := e.CollectMetrics(ctx); err != nil {
		logger.Error("failed to collect metrics", err, nil)
	}

	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if err := e.CollectMetrics(ctx); err != nil {
					logger.Error("failed to collect metrics", err, nil)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	logger.Info("metrics collector started", map[string]interface{}{"interval": interval.String()})
}
