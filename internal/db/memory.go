package db

import (
	"context"
	"sync"

	"github.com/ukydev/campus-rath/internal/models"
)

// MemoryStateCollection keeps documents in process memory. Used for local
// development and tests.
type MemoryStateCollection struct {
	mu   sync.RWMutex
	docs map[string]models.VehicleState
}

// NewMemoryStateCollection creates an empty in-memory collection.
func NewMemoryStateCollection() *MemoryStateCollection {
	return &MemoryStateCollection{docs: make(map[string]models.VehicleState)}
}

func (c *MemoryStateCollection) FindState(_ context.Context, key string) (*models.VehicleState, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	state, ok := c.docs[key]
	if !ok {
		return nil, ErrNoDocument
	}
	return copyState(state), nil
}

func (c *MemoryStateCollection) ReplaceState(_ context.Context, key string, state models.VehicleState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[key] = *copyState(state)
	return nil
}

func copyState(state models.VehicleState) *models.VehicleState {
	out := state
	if state.Timestamp != nil {
		ts := *state.Timestamp
		out.Timestamp = &ts
	}
	return &out
}
