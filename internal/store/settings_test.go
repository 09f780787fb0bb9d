package store

import (
	"context"
	"testing"
	"time"

	"github.com/payperplay/hosting/internal/apperr"
	"github.com/payperplay/hosting/internal/models"
)

func TestSettingsRepo_GetDefaultsToZeroValue(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepo(NewMemoryStore())

	s, err := repo.Get(ctx)
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !s.UpdatedAt.IsZero() {
		t.Errorf("expected zero-value Settings before any write, got UpdatedAt=%v", s.UpdatedAt)
	}
}

func TestSettingsRepo_CompareAndSwap_FirstWriteAlwaysSucceeds(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepo(NewMemoryStore())

	updated, err := repo.CompareAndSwap(ctx, time.Time{}, func(s *models.Settings) {
		s.SetupScript = "#!/bin/bash\necho hi\n"
	})
	if err != nil {
		t.Fatalf("CompareAndSwap() error: %v", err)
	}
	if updated.SetupScript != "#!/bin/bash\necho hi\n" {
		t.Errorf("SetupScript = %q, want the written script", updated.SetupScript)
	}
	if updated.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be stamped on write")
	}
}

func TestSettingsRepo_CompareAndSwap_StaleWriteConflicts(t *testing.T) {
	ctx := context.Background()
	repo := NewSettingsRepo(NewMemoryStore())

	first, err := repo.CompareAndSwap(ctx, time.Time{}, func(s *models.Settings) {
		s.MaxVMHours = 24
	})
	if err != nil {
		t.Fatalf("first CompareAndSwap() error: %v", err)
	}

	// A second admin racing with a stale UpdatedAt (the zero value, as if they never
	// reloaded) must be rejected rather than silently clobbering the first write.
	_, err = repo.CompareAndSwap(ctx, time.Time{}, func(s *models.Settings) {
		s.MaxVMHours = 48
	})
	if err == nil {
		t.Fatal("expected a conflict error for a stale UpdatedAt")
	}
	ae, ok := apperr.As(err)
	if !ok || ae.Kind != apperr.KindSettingsConflict {
		t.Errorf("error = %v, want apperr.KindSettingsConflict", err)
	}

	// The correct UpdatedAt succeeds.
	second, err := repo.CompareAndSwap(ctx, first.UpdatedAt, func(s *models.Settings) {
		s.MaxVMHours = 48
	})
	if err != nil {
		t.Fatalf("second CompareAndSwap() with correct UpdatedAt error: %v", err)
	}
	if second.MaxVMHours != 48 {
		t.Errorf("MaxVMHours = %d, want 48", second.MaxVMHours)
	}
}
