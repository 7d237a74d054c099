package models

import (
	"encoding/json"
	"time"
)

// LocalState is a versioned key/value blob used for register-local durable
// state that is not queue work, e.g. the in-progress cart snapshot restored
// after a process restart.
type LocalState struct {
	Key           string          `gorm:"column:key;primaryKey"`
	SchemaVersion int             `gorm:"column:schema_version;not null"`
	Data          json.RawMessage `gorm:"column:data;type:jsonb;not null"`
	UpdatedAt     time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name for both drivers.
func (LocalState) TableName() string {
	return "local_state"
}
