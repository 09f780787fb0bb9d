// Package monitoring exposes the control plane's Prometheus metrics: per-candidate VM
// and launch-request counters, and fleet-wide gauges.
package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// VMAccruedCents is the accrued cost in cents for a VM since launch.
	VMAccruedCents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gpucp_vm_accrued_cents",
			Help: "Accrued cost in cents for a VM since launch",
		},
		[]string{"instance_id", "candidate_email"},
	)

	FleetActiveVMs = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gpucp_fleet_active_vms",
			Help: "Number of VMs not yet terminated",
		},
	)

	FleetSpentCents = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gpucp_fleet_spent_cents",
			Help: "Sum of computeSpent across all candidates",
		},
	)

	CandidateSpentCents = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gpucp_candidate_spent_cents",
			Help: "Per-candidate spend in cents",
		},
		[]string{"candidate_email"},
	)

	LaunchRequestsByStatus = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gpucp_launch_requests_by_status",
			Help: "Number of LaunchRequest records currently in each status",
		},
		[]string{"status"},
	)

	VMTerminationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpucp_vm_terminations_total",
			Help: "Total number of VM terminations by reason",
		},
		[]string{"reason"},
	)

	SeedStatusByPhase = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gpucp_seed_status_by_phase",
			Help: "Number of SeedStatus records currently in each phase",
		},
		[]string{"phase"},
	)

	ReconcilerTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gpucp_reconciler_tick_duration_seconds",
			Help:    "Duration of a full Reconciler tick (passes A through C)",
			Buckets: prometheus.DefBuckets,
		},
	)

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gpucp_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "path", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gpucp_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)
)
