package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/campus-rath/internal/models"
)

func TestMemoryStateCollection_Overwrite(t *testing.T) {
	ctx := context.Background()
	store := Bind(NewMemoryStateCollection(), "rath/rath01")

	_, err := store.GetVehicleState(ctx)
	assert.ErrorIs(t, err, ErrNoDocument)

	active := models.ActiveState(models.LocationSample{Latitude: 25.1, Longitude: 81.2}, 100)
	require.NoError(t, store.PutVehicleState(ctx, active))
	require.NoError(t, store.PutVehicleState(ctx, models.OfflineState("Lunch Break")))

	got, err := store.GetVehicleState(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.OfflineState("Lunch Break"), *got)
}

func TestMemoryStateCollection_KeysAreIndependent(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryStateCollection()

	require.NoError(t, coll.ReplaceState(ctx, "a", models.OfflineState("Charging")))
	_, err := coll.FindState(ctx, "b")
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestMemoryStateCollection_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	coll := NewMemoryStateCollection()
	require.NoError(t, coll.ReplaceState(ctx, "a", models.ActiveState(models.LocationSample{Latitude: 1, Longitude: 2}, 5)))

	got, _ := coll.FindState(ctx, "a")
	*got.Timestamp = 99

	again, _ := coll.FindState(ctx, "a")
	assert.Equal(t, 5.0, *again.Timestamp)
}
