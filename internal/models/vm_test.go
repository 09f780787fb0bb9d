package models

import (
	"testing"
	"time"
)

// TestComputeAccruedCents_Scenario4 is scenario 4 from §8: a 200¢/hr VM running for 31
// simulated minutes accrues ceil(31*200/60) = 104 cents.
func TestComputeAccruedCents_Scenario4(t *testing.T) {
	launchedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	vm := &VM{LaunchedAt: launchedAt, PriceCentsPerHour: 200}
	now := launchedAt.Add(31 * time.Minute)

	got := vm.ComputeAccruedCents(now)
	if got != 104 {
		t.Errorf("ComputeAccruedCents() = %d, want 104", got)
	}
}

func TestComputeAccruedCents_ExactHour(t *testing.T) {
	launchedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	vm := &VM{LaunchedAt: launchedAt, PriceCentsPerHour: 110}
	now := launchedAt.Add(time.Hour)

	if got := vm.ComputeAccruedCents(now); got != 110 {
		t.Errorf("ComputeAccruedCents() = %d, want 110", got)
	}
}

func TestComputeAccruedCents_UsesTerminatedAtAsEnd(t *testing.T) {
	launchedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	terminatedAt := launchedAt.Add(10 * time.Minute)
	vm := &VM{LaunchedAt: launchedAt, PriceCentsPerHour: 600, TerminatedAt: &terminatedAt}

	// Accrual must freeze at terminatedAt even if `now` is much later.
	muchLater := launchedAt.Add(24 * time.Hour)
	got := vm.ComputeAccruedCents(muchLater)
	want := int64(100) // ceil(10*600/60) = 100
	if got != want {
		t.Errorf("ComputeAccruedCents() after termination = %d, want %d", got, want)
	}
}

func TestComputeAccruedCents_ZeroElapsed(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	vm := &VM{LaunchedAt: now, PriceCentsPerHour: 500}
	if got := vm.ComputeAccruedCents(now); got != 0 {
		t.Errorf("ComputeAccruedCents() at launch instant = %d, want 0", got)
	}
}

func TestVM_IsActive(t *testing.T) {
	active := &VM{}
	if !active.IsActive() {
		t.Error("VM with nil TerminatedAt should be active")
	}
	now := time.Now()
	terminated := &VM{TerminatedAt: &now}
	if terminated.IsActive() {
		t.Error("VM with set TerminatedAt should not be active")
	}
}
