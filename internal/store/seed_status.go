package store

import (
	"context"

	"github.com/payperplay/hosting/internal/models"
)

type SeedStatusRepo struct {
	s Store
}

func NewSeedStatusRepo(s Store) *SeedStatusRepo {
	return &SeedStatusRepo{s: s}
}

func seedStatusKey(filesystemName, region string) string {
	return filesystemName + "|" + region
}

func (r *SeedStatusRepo) Put(ctx context.Context, st *models.SeedStatus) error {
	return r.s.Put(ctx, CollectionSeedStatus, seedStatusKey(st.FilesystemName, st.Region), st)
}

func (r *SeedStatusRepo) Get(ctx context.Context, filesystemName, region string) (*models.SeedStatus, bool, error) {
	var st models.SeedStatus
	found, err := r.s.Get(ctx, CollectionSeedStatus, seedStatusKey(filesystemName, region), &st)
	if err != nil || !found {
		return nil, found, err
	}
	return &st, true, nil
}

func (r *SeedStatusRepo) Delete(ctx context.Context, filesystemName, region string) error {
	return r.s.Delete(ctx, CollectionSeedStatus, seedStatusKey(filesystemName, region))
}

func (r *SeedStatusRepo) List(ctx context.Context) ([]*models.SeedStatus, error) {
	items, err := r.s.List(ctx, CollectionSeedStatus)
	if err != nil {
		return nil, err
	}
	out := make([]*models.SeedStatus, 0, len(items))
	for _, it := range items {
		var st models.SeedStatus
		if err := unmarshalItem(it, &st); err != nil {
			return nil, err
		}
		out = append(out, &st)
	}
	return out, nil
}
