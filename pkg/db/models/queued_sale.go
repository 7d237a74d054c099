package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/calderapos/register-edge/pkg/enums"
)

// QueuedSale is one durable unit of offline-captured sale work awaiting
// confirmation from the central sales API. The payload is frozen at enqueue
// time; only status, error bookkeeping and timestamps change afterwards.
type QueuedSale struct {
	ID                 uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	Type               enums.QueuedSaleType      `gorm:"column:type;not null"`
	Status             enums.SaleSyncStatus      `gorm:"column:status;not null;default:'pending'"`
	PayloadVersion     int                       `gorm:"column:payload_version;not null"`
	Payload            json.RawMessage           `gorm:"column:payload;type:jsonb;not null"`
	CustomerSnapshot   json.RawMessage           `gorm:"column:customer_snapshot;type:jsonb"`
	HeldSaleID         *uuid.UUID                `gorm:"column:held_sale_id;type:uuid"`
	ErrorMessage       *string                   `gorm:"column:error_message"`
	ConflictResolution *enums.ConflictResolution `gorm:"column:conflict_resolution"`
	AttemptCount       int                       `gorm:"column:attempt_count;not null;default:0"`
	NextAttemptAt      *time.Time                `gorm:"column:next_attempt_at"`
	FlaggedForReview   bool                      `gorm:"column:flagged_for_review;not null;default:false"`
	CreatedAt          time.Time                 `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time                 `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName pins the table name for both drivers.
func (QueuedSale) TableName() string {
	return "queued_sales"
}
