// Package store implements a strongly-consistent key-value interface: per-key
// get/put/delete and per-collection prefix listing, no multi-key transactions, backed by
// a single jsonb table on top of GORM/Postgres.
package store

import (
	"context"
	"encoding/json"
	"errors"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ErrNotFound is the sentinel for a missing key. Neither Store.Get nor the typed Get
// helpers return it: they report absence via their bool return, distinguishing "not
// found" from "query failed".
var ErrNotFound = errors.New("store: key not found")

// Item is one (key, raw value) pair returned by a collection listing.
type Item struct {
	Key   string
	Value json.RawMessage
}

// Store is the strongly-consistent KV interface every domain package depends on.
type Store interface {
	Put(ctx context.Context, collection, key string, value interface{}) error
	Get(ctx context.Context, collection, key string, dest interface{}) (bool, error)
	Delete(ctx context.Context, collection, key string) error
	List(ctx context.Context, collection string) ([]Item, error)
	ListPrefix(ctx context.Context, collection, prefix string) ([]Item, error)
}

// GormStore is the Postgres-backed Store implementation.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates the backing table. Called once at startup.
func (s *GormStore) Migrate() error {
	return s.db.AutoMigrate(&kvRecord{})
}

func (s *GormStore) Put(ctx context.Context, collection, key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	rec := kvRecord{Collection: collection, Key: key, Value: datatypes.JSON(raw)}
	return s.db.WithContext(ctx).
		Where("collection = ? AND key = ?", collection, key).
		Assign(kvRecord{Value: datatypes.JSON(raw)}).
		FirstOrCreate(&rec).Error
}

func (s *GormStore) Get(ctx context.Context, collection, key string, dest interface{}) (bool, error) {
	var rec kvRecord
	err := s.db.WithContext(ctx).
		Where("collection = ? AND key = ?", collection, key).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(rec.Value, dest); err != nil {
		return false, err
	}
	return true, nil
}

func (s *GormStore) Delete(ctx context.Context, collection, key string) error {
	return s.db.WithContext(ctx).
		Where("collection = ? AND key = ?", collection, key).
		Delete(&kvRecord{}).Error
}

func (s *GormStore) List(ctx context.Context, collection string) ([]Item, error) {
	var recs []kvRecord
	if err := s.db.WithContext(ctx).Where("collection = ?", collection).Find(&recs).Error; err != nil {
		return nil, err
	}
	return toItems(recs), nil
}

func (s *GormStore) ListPrefix(ctx context.Context, collection, prefix string) ([]Item, error) {
	var recs []kvRecord
	if err := s.db.WithContext(ctx).
		Where("collection = ? AND key LIKE ?", collection, prefix+"%").
		Find(&recs).Error; err != nil {
		return nil, err
	}
	return toItems(recs), nil
}

func toItems(recs []kvRecord) []Item {
	items := make([]Item, 0, len(recs))
	for _, r := range recs {
		items = append(items, Item{Key: r.Key, Value: json.RawMessage(r.Value)})
	}
	return items
}

// unmarshalItem is a convenience helper for the typed per-entity repos, which all need
// to decode an Item's raw JSON into a concrete model.
func unmarshalItem(it Item, dest interface{}) error {
	return json.Unmarshal(it.Value, dest)
}
