// Package api implements the HTTP surface as gin handlers, one receiver per logical
// resource, wired together in router.go.
package api

import (
	"time"

	"github.com/payperplay/hosting/internal/accrual"
	"github.com/payperplay/hosting/internal/audit"
	"github.com/payperplay/hosting/internal/models"
	"github.com/payperplay/hosting/internal/provider"
	"github.com/payperplay/hosting/internal/scheduler"
	"github.com/payperplay/hosting/internal/store"
)

// Handler holds every dependency the HTTP surface needs. A single instance is built at
// startup in cmd/api/main.go and its methods registered onto the gin router.
type Handler struct {
	Candidates   *store.CandidateRepo
	VMs          *store.VMRepo
	SSHKeys      *store.SSHKeyRepo
	SeedStatuses *store.SeedStatusRepo
	Settings     *store.SettingsRepo
	Provider     provider.Client
	Scheduler    *scheduler.Scheduler
	Audit        *audit.Logger
	AppBaseURL   string
}

// computeSpent is the same authoritative formula the scheduler and reconciler use,
// exposed here so GET /api/auth/me never reports a stale cache value.
func (h *Handler) computeSpent(vms []*models.VM, candidate *models.Candidate) int64 {
	return accrual.ComputeSpent(vms, candidate.SpentResetAt, time.Now().UTC())
}
