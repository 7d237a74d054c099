package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/calderapos/register-edge/pkg/db"
	"github.com/calderapos/register-edge/pkg/db/models"
)

const (
	snapshotKey           = "cart"
	snapshotSchemaVersion = 1
)

// SnapshotStore persists the working cart so an in-progress transaction
// survives a process restart.
type SnapshotStore struct {
	client *db.Client
}

// NewSnapshotStore builds a snapshot store backed by the local database.
func NewSnapshotStore(client *db.Client) (*SnapshotStore, error) {
	if client == nil {
		return nil, fmt.Errorf("db client required")
	}
	return &SnapshotStore{client: client}, nil
}

// Save upserts the current cart under the snapshot key.
func (s *SnapshotStore) Save(ctx context.Context, c *Cart) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding cart snapshot: %w", err)
	}

	record := models.LocalState{
		Key:           snapshotKey,
		SchemaVersion: snapshotSchemaVersion,
		Data:          data,
	}
	if err := s.client.DB().WithContext(ctx).Save(&record).Error; err != nil {
		return fmt.Errorf("persisting cart snapshot: %w", err)
	}
	return nil
}

// Load restores the persisted cart. A missing snapshot yields an empty cart;
// an unparseable or unsupported snapshot is an error so a corrupted local
// database is surfaced at startup instead of silently discarding a sale.
func (s *SnapshotStore) Load(ctx context.Context) (*Cart, error) {
	var record models.LocalState
	err := s.client.DB().WithContext(ctx).
		Where("key = ?", snapshotKey).
		First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return NewCart(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading cart snapshot: %w", err)
	}

	switch record.SchemaVersion {
	case snapshotSchemaVersion:
		c := NewCart()
		if err := json.Unmarshal(record.Data, c); err != nil {
			return nil, fmt.Errorf("decoding cart snapshot (schema v%d): %w", record.SchemaVersion, err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unsupported cart snapshot schema version %d", record.SchemaVersion)
	}
}
