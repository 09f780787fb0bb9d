// Package reconciler implements the scheduled tick: VM sync and cost accrual, launch
// queue processing, and stale seed-claim cleanup, on a fixed cadence.
package reconciler

import (
	"context"
	"time"

	"github.com/payperplay/hosting/internal/audit"
	"github.com/payperplay/hosting/internal/costhistory"
	"github.com/payperplay/hosting/internal/monitoring"
	"github.com/payperplay/hosting/internal/provider"
	"github.com/payperplay/hosting/internal/scheduler"
	"github.com/payperplay/hosting/internal/store"
	"github.com/payperplay/hosting/pkg/logger"
)

type Reconciler struct {
	Candidates   *store.CandidateRepo
	VMs          *store.VMRepo
	SSHKeys      *store.SSHKeyRepo
	SeedStatuses *store.SeedStatusRepo
	Settings     *store.SettingsRepo
	Provider     provider.Client
	Scheduler    *scheduler.Scheduler
	Audit        *audit.Logger
	CostHistory  *costhistory.Recorder

	interval time.Duration
	stopChan chan struct{}
}

func New(candidates *store.CandidateRepo, vms *store.VMRepo, sshKeys *store.SSHKeyRepo, seedStatuses *store.SeedStatusRepo, settings *store.SettingsRepo, providerClient provider.Client, sched *scheduler.Scheduler, auditLogger *audit.Logger, costRecorder *costhistory.Recorder, interval time.Duration) *Reconciler {
	return &Reconciler{
		Candidates:   candidates,
		VMs:          vms,
		SSHKeys:      sshKeys,
		SeedStatuses: seedStatuses,
		Settings:     settings,
		Provider:     providerClient,
		Scheduler:    sched,
		Audit:        auditLogger,
		CostHistory:  costRecorder,
		interval:     interval,
		stopChan:     make(chan struct{}),
	}
}

// Start runs Tick on a fixed cadence until Stop is called. It is safe for one tick to
// overlap the next (§5): every pass tolerates concurrent execution because state
// transitions are idempotent and last-writer-wins.
func (r *Reconciler) Start() {
	ticker := time.NewTicker(r.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				r.Tick(context.Background())
			case <-r.stopChan:
				logger.Info("reconciler stopped", nil)
				return
			}
		}
	}()
	logger.Info("reconciler started", map[string]interface{}{"interval": r.interval.String()})
}

func (r *Reconciler) Stop() {
	close(r.stopChan)
	r.CostHistory.Close()
}

// Tick runs the three passes in order. Each pass catches its own per-item errors and
// never aborts the tick (§4.4 failure semantics).
func (r *Reconciler) Tick(ctx context.Context) {
	start := time.Now()
	r.passA(ctx)
	r.Scheduler.ProcessQueue(ctx)
	r.passC(ctx)
	elapsed := time.Since(start)
	monitoring.ReconcilerTickDuration.Observe(elapsed.Seconds())
	logger.Debug("reconciler tick complete", map[string]interface{}{
		"durationMs": elapsed.Milliseconds(),
	})
}
