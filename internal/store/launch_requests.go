package store

import (
	"context"

	"github.com/payperplay/hosting/internal/models"
)

type LaunchRequestRepo struct {
	s Store
}

func NewLaunchRequestRepo(s Store) *LaunchRequestRepo {
	return &LaunchRequestRepo{s: s}
}

func (r *LaunchRequestRepo) Put(ctx context.Context, lr *models.LaunchRequest) error {
	return r.s.Put(ctx, CollectionLaunchRequests, lr.ID, lr)
}

func (r *LaunchRequestRepo) Get(ctx context.Context, id string) (*models.LaunchRequest, bool, error) {
	var lr models.LaunchRequest
	found, err := r.s.Get(ctx, CollectionLaunchRequests, id, &lr)
	if err != nil || !found {
		return nil, found, err
	}
	return &lr, true, nil
}

func (r *LaunchRequestRepo) List(ctx context.Context) ([]*models.LaunchRequest, error) {
	items, err := r.s.List(ctx, CollectionLaunchRequests)
	if err != nil {
		return nil, err
	}
	out := make([]*models.LaunchRequest, 0, len(items))
	for _, it := range items {
		var lr models.LaunchRequest
		if err := unmarshalItem(it, &lr); err != nil {
			return nil, err
		}
		out = append(out, &lr)
	}
	return out, nil
}

func (r *LaunchRequestRepo) ListByCandidate(ctx context.Context, email string) ([]*models.LaunchRequest, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.LaunchRequest, 0)
	for _, lr := range all {
		if lr.CandidateEmail == email {
			out = append(out, lr)
		}
	}
	return out, nil
}

// ListPending returns queued/provisioning requests in no particular order; callers sort
// by CreatedAt for FIFO dispatch (§4.2).
func (r *LaunchRequestRepo) ListPending(ctx context.Context) ([]*models.LaunchRequest, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.LaunchRequest, 0)
	for _, lr := range all {
		if lr.Status.IsPending() {
			out = append(out, lr)
		}
	}
	return out, nil
}
