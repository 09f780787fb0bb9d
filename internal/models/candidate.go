package models

import "time"

// Role distinguishes an admin (unlimited, unquota'd) from a regular candidate.
type Role string

const (
	RoleCandidate Role = "candidate"
	RoleAdmin     Role = "admin"
)

// AdminBootstrapQuotaDollars is the quota assigned when ADMIN_EMAILS auto-bootstraps
// an admin Candidate on first sign-in (O4). Not an ambient privilege — a one-time seed.
const AdminBootstrapQuotaDollars = 9999

// Candidate is a user on the allow-list with a dollar quota. Keyed by lowercased email
// in the `candidates` collection.
type Candidate struct {
	Email         string     `json:"email"`
	Name          string     `json:"name"`
	Role          Role       `json:"role"`
	QuotaDollars  int        `json:"quotaDollars"`
	SpentCents    int64      `json:"spentCents"`
	AddedAt       time.Time  `json:"addedAt"`
	AddedBy       string     `json:"addedBy"`
	SpentResetAt  *time.Time `json:"spentResetAt,omitempty"`
	DeactivatedAt *time.Time `json:"deactivatedAt,omitempty"`
}

// IsActive reports whether the candidate may submit launch requests / hold VMs.
func (c *Candidate) IsActive() bool {
	return c.DeactivatedAt == nil
}

// IsAdmin reports whether quota enforcement is skipped for this candidate.
func (c *Candidate) IsAdmin() bool {
	return c.Role == RoleAdmin
}

// QuotaCents is the candidate's dollar quota expressed in integer cents.
func (c *Candidate) QuotaCents() int64 {
	return int64(c.QuotaDollars) * 100
}

// RemainingCents is QuotaCents - SpentCents, not floored at zero: a negative remainder
// means the cached spend is over quota. It reads the SpentCents cache; admission and
// dispatch checks compute their remainder from the authoritative spend instead.
func (c *Candidate) RemainingCents() int64 {
	return c.QuotaCents() - c.SpentCents
}
