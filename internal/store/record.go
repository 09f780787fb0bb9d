package store

import (
	"time"

	"gorm.io/datatypes"
)

// kvRecord is the single table backing every collection in the state store (§3, §4.1):
// all entities are serialized as self-describing JSON documents rather than given their
// own GORM model and table.
type kvRecord struct {
	Collection string         `gorm:"primaryKey;size:64"`
	Key        string         `gorm:"primaryKey;size:512"`
	Value      datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt  time.Time
}

func (kvRecord) TableName() string {
	return "kv_records"
}
