package models

import "time"

// SeedStatusPhase is the single-writer claim state for a (filesystem, region) pair.
type SeedStatusPhase string

const (
	SeedStatusSeeding SeedStatusPhase = "seeding"
	SeedStatusReady   SeedStatusPhase = "ready"
)

// SeedStatus is the single-writer lock for seeding a shared filesystem in a region,
// keyed by `filesystemName|region` in the `seed-status` collection (§4.3).
type SeedStatus struct {
	FilesystemName   string          `json:"filesystemName"`
	Region           string          `json:"region"`
	Status           SeedStatusPhase `json:"status"`
	SeedingInstanceID string         `json:"seedingInstanceId,omitempty"`
	ClaimedAt        time.Time       `json:"claimedAt"`
	CompletedAt      *time.Time      `json:"completedAt,omitempty"`
}

// IsStale reports whether a `seeding` claim older than staleMinutes should be treated as
// abandoned and eligible for a fresh claim attempt (§4.3 step 3, §3 lifecycle note).
func (s *SeedStatus) IsStale(now time.Time, staleMinutes int) bool {
	if s.Status != SeedStatusSeeding {
		return false
	}
	return now.Sub(s.ClaimedAt) > time.Duration(staleMinutes)*time.Minute
}
