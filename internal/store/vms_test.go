package store

import (
	"context"
	"testing"
	"time"

	"github.com/payperplay/hosting/internal/models"
)

func TestVMRepo_ListActiveExcludesTerminated(t *testing.T) {
	ctx := context.Background()
	repo := NewVMRepo(NewMemoryStore())

	now := time.Now().UTC()
	terminatedAt := now
	_ = repo.Put(ctx, &models.VM{InstanceID: "i-1", CandidateEmail: "a@x.com", LaunchedAt: now})
	_ = repo.Put(ctx, &models.VM{InstanceID: "i-2", CandidateEmail: "a@x.com", LaunchedAt: now, TerminatedAt: &terminatedAt})

	active, err := repo.ListActive(ctx)
	if err != nil {
		t.Fatalf("ListActive() error: %v", err)
	}
	if len(active) != 1 || active[0].InstanceID != "i-1" {
		t.Fatalf("ListActive() = %+v, want only i-1", active)
	}
}

func TestVMRepo_ListByCandidateIncludesTerminated(t *testing.T) {
	ctx := context.Background()
	repo := NewVMRepo(NewMemoryStore())

	now := time.Now().UTC()
	terminatedAt := now
	_ = repo.Put(ctx, &models.VM{InstanceID: "i-1", CandidateEmail: "a@x.com", LaunchedAt: now})
	_ = repo.Put(ctx, &models.VM{InstanceID: "i-2", CandidateEmail: "a@x.com", LaunchedAt: now, TerminatedAt: &terminatedAt})
	_ = repo.Put(ctx, &models.VM{InstanceID: "i-3", CandidateEmail: "b@x.com", LaunchedAt: now})

	vms, err := repo.ListByCandidate(ctx, "a@x.com")
	if err != nil {
		t.Fatalf("ListByCandidate() error: %v", err)
	}
	if len(vms) != 2 {
		t.Fatalf("ListByCandidate() returned %d VMs, want 2 (both active and terminated)", len(vms))
	}
}
