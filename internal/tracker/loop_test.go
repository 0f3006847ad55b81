package tracker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/campus-rath/internal/db"
	"github.com/ukydev/campus-rath/internal/models"
)

func TestLoop_Poll(t *testing.T) {
	store := db.Bind(db.NewMemoryStateCollection(), "rath/rath01")
	path := filepath.Join(t.TempDir(), "campus_data.geojson")
	require.NoError(t, os.WriteFile(path, []byte(`{"type":"FeatureCollection","features":[]}`), 0o600))
	loop := NewLoop(store, path, 0, fallback)

	snapshot := loop.Poll(context.Background())
	assert.Equal(t, models.UnknownState(fallback), snapshot.State)
	require.NotNil(t, snapshot.Overlay)

	require.NoError(t, store.PutVehicleState(context.Background(), models.OfflineState("Out of Area")))
	snapshot = loop.Poll(context.Background())
	assert.Equal(t, "Out of Area", snapshot.State.Status)
	assert.Equal(t, fallback, loop.Fallback())
}

func TestLoop_RunPublishesUntilCancelled(t *testing.T) {
	store := db.Bind(db.NewMemoryStateCollection(), "rath/rath01")
	loop := NewLoop(store, "", 10*time.Millisecond, fallback)
	hub := NewHub(fallback, loop.Poll)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		loop.Run(ctx, hub)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, ok := hub.Latest()
		return ok
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, store.PutVehicleState(ctx, models.ActiveState(fix, 1760875200)))
	assert.Eventually(t, func() bool {
		s, _ := hub.Latest()
		return s.State.IsActive()
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("loop did not stop")
	}
}
