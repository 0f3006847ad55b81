package db

import (
	"context"
	"errors"

	"github.com/ukydev/campus-rath/internal/models"
)

var (
	ErrNoDocument       = errors.New("no vehicle state published")
	ErrUnexpectedStatus = errors.New("unexpected status from store")
)

// VehicleStateStore reads and overwrites the document of one vehicle.
type VehicleStateStore interface {
	GetVehicleState(ctx context.Context) (*models.VehicleState, error)
	PutVehicleState(ctx context.Context, state models.VehicleState) error
}

// StateCollection holds vehicle state documents keyed by vehicle path.
type StateCollection interface {
	FindState(ctx context.Context, key string) (*models.VehicleState, error)
	ReplaceState(ctx context.Context, key string, state models.VehicleState) error
}

// boundStore pins a StateCollection to a single key.
type boundStore struct {
	collection StateCollection
	key        string
}

// Bind adapts a keyed collection into a single-vehicle store.
func Bind(collection StateCollection, key string) VehicleStateStore {
	return &boundStore{collection: collection, key: key}
}

func (b *boundStore) GetVehicleState(ctx context.Context) (*models.VehicleState, error) {
	return b.collection.FindState(ctx, b.key)
}

func (b *boundStore) PutVehicleState(ctx context.Context, state models.VehicleState) error {
	return b.collection.ReplaceState(ctx, b.key, state)
}
