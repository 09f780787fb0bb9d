package models

import (
	"testing"
	"time"
)

func TestSeedStatus_IsStale(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		status  SeedStatusPhase
		claimed time.Time
		want    bool
	}{
		{"seeding just claimed", SeedStatusSeeding, now.Add(-1 * time.Minute), false},
		{"seeding claimed 59 minutes ago", SeedStatusSeeding, now.Add(-59 * time.Minute), false},
		{"seeding claimed 61 minutes ago", SeedStatusSeeding, now.Add(-61 * time.Minute), true},
		{"ready status is never stale", SeedStatusReady, now.Add(-24 * time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &SeedStatus{Status: tt.status, ClaimedAt: tt.claimed}
			if got := s.IsStale(now, 60); got != tt.want {
				t.Errorf("IsStale() = %v, want %v", got, tt.want)
			}
		})
	}
}
