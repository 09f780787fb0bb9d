package store

import (
	"context"

	"github.com/payperplay/hosting/internal/models"
)

type VMRepo struct {
	s Store
}

func NewVMRepo(s Store) *VMRepo {
	return &VMRepo{s: s}
}

func (r *VMRepo) Put(ctx context.Context, vm *models.VM) error {
	return r.s.Put(ctx, CollectionVMs, vm.InstanceID, vm)
}

func (r *VMRepo) Get(ctx context.Context, instanceID string) (*models.VM, bool, error) {
	var vm models.VM
	found, err := r.s.Get(ctx, CollectionVMs, instanceID, &vm)
	if err != nil || !found {
		return nil, found, err
	}
	return &vm, true, nil
}

func (r *VMRepo) List(ctx context.Context) ([]*models.VM, error) {
	items, err := r.s.List(ctx, CollectionVMs)
	if err != nil {
		return nil, err
	}
	out := make([]*models.VM, 0, len(items))
	for _, it := range items {
		var vm models.VM
		if err := unmarshalItem(it, &vm); err != nil {
			return nil, err
		}
		out = append(out, &vm)
	}
	return out, nil
}

// ListByCandidate returns every VM (active and terminated) ever launched by email, for
// the admin candidate-history endpoint.
func (r *VMRepo) ListByCandidate(ctx context.Context, email string) ([]*models.VM, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.VM, 0)
	for _, vm := range all {
		if vm.CandidateEmail == email {
			out = append(out, vm)
		}
	}
	return out, nil
}

// ListActive returns every VM not yet terminated, the working set the Reconciler polls.
func (r *VMRepo) ListActive(ctx context.Context) ([]*models.VM, error) {
	all, err := r.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*models.VM, 0)
	for _, vm := range all {
		if vm.IsActive() {
			out = append(out, vm)
		}
	}
	return out, nil
}
