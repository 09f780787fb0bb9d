package store

import (
	"context"

	"github.com/payperplay/hosting/internal/models"
)

// CandidateRepo adapts Store to typed Candidate access over the generic KV backend.
type CandidateRepo struct {
	s Store
}

func NewCandidateRepo(s Store) *CandidateRepo {
	return &CandidateRepo{s: s}
}

func (r *CandidateRepo) Put(ctx context.Context, c *models.Candidate) error {
	return r.s.Put(ctx, CollectionCandidates, c.Email, c)
}

func (r *CandidateRepo) Get(ctx context.Context, email string) (*models.Candidate, bool, error) {
	var c models.Candidate
	found, err := r.s.Get(ctx, CollectionCandidates, email, &c)
	if err != nil || !found {
		return nil, found, err
	}
	return &c, true, nil
}

func (r *CandidateRepo) Delete(ctx context.Context, email string) error {
	return r.s.Delete(ctx, CollectionCandidates, email)
}

func (r *CandidateRepo) List(ctx context.Context) ([]*models.Candidate, error) {
	items, err := r.s.List(ctx, CollectionCandidates)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Candidate, 0, len(items))
	for _, it := range items {
		var c models.Candidate
		if err := unmarshalItem(it, &c); err != nil {
			return nil, err
		}
		out = append(out, &c)
	}
	return out, nil
}
