package session

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/campus-rath/internal/broadcast"
	"github.com/ukydev/campus-rath/internal/db"
	"github.com/ukydev/campus-rath/internal/location"
	"github.com/ukydev/campus-rath/internal/models"
)

// Notices shown to the driver. Write failures are reported generically.
const (
	NoticeBroadcasting = "Broadcasting live"
	NoticeNoFix        = "Waiting for a location fix to start broadcasting"
	NoticeWriteFailed  = "Failed to update status"
	NoticeStatusSaved  = "Status updated"
)

// Frame is the outcome of one dispatched event: the new session plus what the
// driver should see.
type Frame struct {
	Session models.Session       `json:"session"`
	Pushed  *models.VehicleState `json:"pushed,omitempty"`
	Remote  *models.VehicleState `json:"remote,omitempty"`
	Notice  string               `json:"notice,omitempty"`
}

// Runner performs the effects requested by the Machine.
type Runner struct {
	Machine   *Machine
	Store     db.VehicleStateStore
	Publisher broadcast.Publisher
	Fallback  models.Location
	Now       func() time.Time
}

// NewRunner wires a runner. publisher may be nil.
func NewRunner(machine *Machine, store db.VehicleStateStore, publisher broadcast.Publisher, fallback models.Location) *Runner {
	return &Runner{
		Machine:   machine,
		Store:     store,
		Publisher: publisher,
		Fallback:  fallback,
		Now:       time.Now,
	}
}

// Dispatch steps the machine with event, executes the resulting effects and
// feeds results back until no effects remain. Only state machine errors are
// returned; I/O failures become notices.
func (r *Runner) Dispatch(ctx context.Context, s models.Session, event Event, provider location.Provider) (Frame, error) {
	if provider == nil {
		provider = location.None
	}

	next, effects, err := r.Machine.Step(s, event)
	if err != nil {
		return Frame{Session: next}, err
	}

	frame := Frame{Session: next}
	for len(effects) > 0 {
		effect := effects[0]
		effects = effects[1:]

		switch e := effect.(type) {
		case ReadLocation:
			sample := provider.Sample(ctx)
			if !sample.Usable() {
				frame.Notice = NoticeNoFix
			}
			var more []Effect
			frame.Session, more, err = r.Machine.Step(frame.Session, LocationRead{Sample: sample, Now: r.Now()})
			if err != nil {
				return frame, err
			}
			effects = append(effects, more...)
		case ReadRemoteState:
			remote := db.ReadOrDefault(ctx, r.Store, r.Fallback)
			frame.Remote = &remote
		case WriteRemoteState:
			r.write(ctx, &frame, e.Doc)
		}
	}
	return frame, nil
}

func (r *Runner) write(ctx context.Context, frame *Frame, doc models.VehicleState) {
	entry := log.WithFields(log.Fields{
		"session": frame.Session.ID,
		"status":  doc.Status,
	})
	if err := r.Store.PutVehicleState(ctx, doc); err != nil {
		entry.WithError(err).Warn("Failed to write vehicle state")
		frame.Notice = NoticeWriteFailed
		return
	}
	entry.Debug("Wrote vehicle state")

	pushed := doc
	frame.Pushed = &pushed
	frame.Remote = &pushed
	if doc.IsActive() {
		frame.Notice = NoticeBroadcasting
	} else {
		frame.Notice = NoticeStatusSaved
	}

	if r.Publisher != nil {
		if err := r.Publisher.Publish(ctx, doc); err != nil {
			entry.WithError(err).Warn("Failed to publish vehicle state")
		}
	}
}
