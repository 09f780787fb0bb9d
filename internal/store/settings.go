package store

import (
	"context"
	"time"

	"github.com/payperplay/hosting/internal/apperr"
	"github.com/payperplay/hosting/internal/models"
)

type SettingsRepo struct {
	s Store
}

func NewSettingsRepo(s Store) *SettingsRepo {
	return &SettingsRepo{s: s}
}

func (r *SettingsRepo) Get(ctx context.Context) (*models.Settings, error) {
	var st models.Settings
	found, err := r.s.Get(ctx, CollectionSettings, SettingsKey, &st)
	if err != nil {
		return nil, err
	}
	if !found {
		return &models.Settings{}, nil
	}
	return &st, nil
}

// CompareAndSwap applies updateFn to the current settings and persists the result only
// if expectedUpdatedAt still matches the stored UpdatedAt, implementing the optimistic
// concurrency guard on PUT /api/admin/settings: concurrent admins overwriting a stale
// copy get a conflict instead of silently clobbering each other.
func (r *SettingsRepo) CompareAndSwap(ctx context.Context, expectedUpdatedAt time.Time, updateFn func(*models.Settings)) (*models.Settings, error) {
	current, err := r.Get(ctx)
	if err != nil {
		return nil, err
	}
	if !current.UpdatedAt.IsZero() && !current.UpdatedAt.Equal(expectedUpdatedAt) {
		return nil, apperr.SettingsConflict("settings were modified by another admin; reload and retry")
	}
	updateFn(current)
	current.UpdatedAt = time.Now().UTC()
	if err := r.s.Put(ctx, CollectionSettings, SettingsKey, current); err != nil {
		return nil, err
	}
	return current, nil
}
