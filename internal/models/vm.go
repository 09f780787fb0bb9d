package models

import (
	"math"
	"time"
)

// VMStatus mirrors the upstream provider's instance status strings. Kept as a plain
// string on the wire for forward compatibility with new upstream statuses (§9: "runtime
// string-typed status fields become tagged variants" — the tag lives in VMStatus, the
// wire JSON stays a string).
type VMStatus string

const (
	VMStatusLaunching  VMStatus = "launching"
	VMStatusBooting    VMStatus = "booting"
	VMStatusActive     VMStatus = "active"
	VMStatusRestarting VMStatus = "restarting"
	VMStatusTerminated VMStatus = "terminated"
	VMStatusUnhealthy  VMStatus = "unhealthy"
)

// TerminationReason records why a VM's lifecycle ended, for audit and UI history.
type TerminationReason string

const (
	ReasonUserRequested      TerminationReason = "user_requested"
	ReasonQuotaExceeded      TerminationReason = "quota_exceeded"
	ReasonAccountRemoved     TerminationReason = "account_removed"
	ReasonTerminatedExternal TerminationReason = "terminated_externally"
	ReasonMaxHoursExceeded   TerminationReason = "max_hours_exceeded"
)

// VM is a provisioned upstream GPU instance, tracked locally by the upstream instance
// id. Keyed by instanceId in the `vms` collection. Never deleted — terminal records are
// retained for cost history (§3).
type VM struct {
	InstanceID        string     `json:"instanceId"`
	CandidateEmail    string     `json:"candidateEmail"`
	InstanceType      string     `json:"instanceType"`
	Region            string     `json:"region"`
	PriceCentsPerHour int64      `json:"priceCentsPerHour"`
	LaunchedAt        time.Time  `json:"launchedAt"`
	Status            VMStatus   `json:"status"`
	IPAddress         string     `json:"ipAddress,omitempty"`
	SSHKeyName        string     `json:"sshKeyName"`
	TerminatedAt      *time.Time `json:"terminatedAt,omitempty"`
	TerminationReason string     `json:"terminationReason,omitempty"`
	LastCheckedAt      time.Time `json:"lastCheckedAt"`
	AccruedCents       int64     `json:"accruedCents"`
}

// IsActive reports whether the VM has not yet been terminated (I1/P1).
func (v *VM) IsActive() bool {
	return v.TerminatedAt == nil
}

// End returns the VM's accrual end time: terminatedAt if set, else now.
func (v *VM) End(now time.Time) time.Time {
	if v.TerminatedAt != nil {
		return *v.TerminatedAt
	}
	return now
}

// AccrualMinutes computes ceil((end - launchedAt) / 60s), the minute-bucket used by the
// cost formula in §4.5.
func (v *VM) AccrualMinutes(now time.Time) int64 {
	elapsed := v.End(now).Sub(v.LaunchedAt)
	if elapsed <= 0 {
		return 0
	}
	return int64(math.Ceil(elapsed.Seconds() / 60.0))
}

// ComputeAccruedCents is the sole accrual formula (§4.5, §8 P3):
// ceil(minutes * priceCentsPerHour / 60).
func (v *VM) ComputeAccruedCents(now time.Time) int64 {
	minutes := v.AccrualMinutes(now)
	return int64(math.Ceil(float64(minutes*v.PriceCentsPerHour) / 60.0))
}
