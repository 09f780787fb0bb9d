package auth

import (
	"context"
	"time"

	"github.com/payperplay/hosting/internal/models"
	"github.com/payperplay/hosting/internal/store"
)

// ResolveCandidate loads the Candidate for a verified email, auto-bootstrapping an admin
// record on first sign-in if the email is in adminEmails and no record exists yet (O4).
// This is an intentional, one-time bootstrap path, not an ambient privilege: once the
// Candidate row exists, subsequent admin status changes go through the admin API.
func ResolveCandidate(ctx context.Context, candidates *store.CandidateRepo, email, name string, adminEmails []string) (*models.Candidate, error) {
	candidate, found, err := candidates.Get(ctx, email)
	if err != nil {
		return nil, err
	}
	if found {
		return candidate, nil
	}

	if !isAdminEmail(email, adminEmails) {
		return nil, nil
	}

	candidate = &models.Candidate{
		Email:        email,
		Name:         name,
		Role:         models.RoleAdmin,
		QuotaDollars: models.AdminBootstrapQuotaDollars,
		AddedAt:      time.Now().UTC(),
		AddedBy:      "bootstrap",
	}
	if err := candidates.Put(ctx, candidate); err != nil {
		return nil, err
	}
	return candidate, nil
}

func isAdminEmail(email string, adminEmails []string) bool {
	for _, e := range adminEmails {
		if e == email {
			return true
		}
	}
	return false
}
