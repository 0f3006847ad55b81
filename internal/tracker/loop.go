package tracker

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/campus-rath/internal/db"
	"github.com/ukydev/campus-rath/internal/models"
	"github.com/ukydev/campus-rath/internal/overlay"
)

// DefaultInterval is the pause between tracker refreshes.
const DefaultInterval = 3 * time.Second

// Snapshot is one read of everything the tracker page shows.
type Snapshot struct {
	State   models.VehicleState
	Overlay *models.Overlay
	ReadAt  time.Time
}

// Loop periodically re-reads the vehicle document and campus overlay.
type Loop struct {
	store       db.VehicleStateStore
	overlayPath string
	interval    time.Duration
	fallback    models.Location
	readTimeout time.Duration
}

// NewLoop creates a tracker loop. A non-positive interval uses DefaultInterval.
func NewLoop(store db.VehicleStateStore, overlayPath string, interval time.Duration, fallback models.Location) *Loop {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Loop{
		store:       store,
		overlayPath: overlayPath,
		interval:    interval,
		fallback:    fallback,
		readTimeout: 10 * time.Second,
	}
}

// Fallback is the coordinate used when neither vehicle nor viewer has a fix.
func (l *Loop) Fallback() models.Location {
	return l.fallback
}

// Poll performs one refresh cycle.
func (l *Loop) Poll(ctx context.Context) Snapshot {
	cctx, cancel := context.WithTimeout(ctx, l.readTimeout)
	defer cancel()
	return Snapshot{
		State:   db.ReadOrDefault(cctx, l.store, l.fallback),
		Overlay: overlay.Load(l.overlayPath),
		ReadAt:  time.Now(),
	}
}

// Run polls until ctx is cancelled, handing every snapshot to hub.
func (l *Loop) Run(ctx context.Context, hub *Hub) {
	t := time.NewTimer(0)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Tracker loop stopped")
			return
		case <-t.C:
			snapshot := l.Poll(ctx)
			log.WithFields(log.Fields{
				"status": snapshot.State.Status,
				"lat":    snapshot.State.Latitude,
				"lon":    snapshot.State.Longitude,
			}).Debug("Tracker refreshed")
			hub.Publish(snapshot)
			t.Reset(l.interval)
		}
	}
}
