package store

import (
	"context"

	"github.com/payperplay/hosting/internal/models"
)

type SSHKeyRepo struct {
	s Store
}

func NewSSHKeyRepo(s Store) *SSHKeyRepo {
	return &SSHKeyRepo{s: s}
}

func sshKeyKey(email, keyName string) string {
	return email + "|" + keyName
}

func (r *SSHKeyRepo) Put(ctx context.Context, k *models.SSHKey) error {
	return r.s.Put(ctx, CollectionSSHKeys, sshKeyKey(k.Email, k.KeyName), k)
}

func (r *SSHKeyRepo) Delete(ctx context.Context, email, keyName string) error {
	return r.s.Delete(ctx, CollectionSSHKeys, sshKeyKey(email, keyName))
}

func (r *SSHKeyRepo) ListByCandidate(ctx context.Context, email string) ([]*models.SSHKey, error) {
	items, err := r.s.ListPrefix(ctx, CollectionSSHKeys, email+"|")
	if err != nil {
		return nil, err
	}
	out := make([]*models.SSHKey, 0, len(items))
	for _, it := range items {
		var k models.SSHKey
		if err := unmarshalItem(it, &k); err != nil {
			return nil, err
		}
		out = append(out, &k)
	}
	return out, nil
}
