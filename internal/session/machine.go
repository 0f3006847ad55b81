// Package session implements the driver shift state machine.
//
// The machine is a pure function of (prior session, event). It never performs
// I/O; instead it returns effects that the Runner executes, feeding any result
// back in as the next event.
package session

import (
	"errors"
	"math"
	"time"

	"github.com/ukydev/campus-rath/internal/models"
)

var (
	ErrAccessDenied      = errors.New("access denied")
	ErrInvalidTransition = errors.New("invalid transition")
	ErrInvalidReason     = errors.New("invalid offline reason")
)

// Event is an input to the state machine.
type Event interface {
	isEvent()
}

// SubmitPIN is sent whenever the PIN field holds a value.
type SubmitPIN struct{ Input string }

// Logout ends the authenticated session.
type Logout struct{}

// GoOnline moves from the question screen to the online screen.
type GoOnline struct{}

// GoOffline moves from the question screen to the offline screen.
type GoOffline struct{}

// EndShift leaves the online screen.
type EndShift struct{}

// Back leaves the offline screen.
type Back struct{}

// ConfirmStatus publishes an offline reason.
type ConfirmStatus struct{ Reason string }

// Tick is one render cycle.
type Tick struct{ Now time.Time }

// LocationRead carries the result of a ReadLocation effect. Sample is nil
// when the provider had no fix.
type LocationRead struct {
	Sample *models.LocationSample
	Now    time.Time
}

func (SubmitPIN) isEvent()     {}
func (Logout) isEvent()        {}
func (GoOnline) isEvent()      {}
func (GoOffline) isEvent()     {}
func (EndShift) isEvent()      {}
func (Back) isEvent()          {}
func (ConfirmStatus) isEvent() {}
func (Tick) isEvent()          {}
func (LocationRead) isEvent()  {}

// Effect is a side effect requested by the state machine.
type Effect interface {
	isEffect()
}

// ReadLocation asks for one sample from the location provider.
type ReadLocation struct{}

// ReadRemoteState asks for the currently published vehicle document.
type ReadRemoteState struct{}

// WriteRemoteState replaces the published vehicle document.
type WriteRemoteState struct{ Doc models.VehicleState }

func (ReadLocation) isEffect()     {}
func (ReadRemoteState) isEffect()  {}
func (WriteRemoteState) isEffect() {}

// Gate decides whether a PIN unlocks the terminal.
type Gate interface {
	Check(input string) bool
}

// Machine is the shift state machine.
type Machine struct {
	Gate Gate
}

// NewMachine creates a state machine guarded by gate.
func NewMachine(gate Gate) *Machine {
	return &Machine{Gate: gate}
}

// Step applies event to prior. On error the returned session equals prior and
// no effects are returned.
func (m *Machine) Step(prior models.Session, event Event) (models.Session, []Effect, error) {
	prior = prior.Normalize()

	if !prior.Authenticated {
		return m.stepLocked(prior, event)
	}

	switch event.(type) {
	case SubmitPIN:
		return prior, nil, nil
	case Logout:
		next := prior
		next.Authenticated = false
		return next.Normalize(), nil, nil
	case Tick:
		if prior.Screen == models.ScreenOnline {
			return prior, []Effect{ReadLocation{}}, nil
		}
		return prior, []Effect{ReadRemoteState{}}, nil
	}

	switch prior.Screen {
	case models.ScreenQuestion:
		switch event.(type) {
		case GoOnline:
			return withScreen(prior, models.ScreenOnline), nil, nil
		case GoOffline:
			return withScreen(prior, models.ScreenOffline), nil, nil
		}
	case models.ScreenOnline:
		switch e := event.(type) {
		case EndShift:
			return withScreen(prior, models.ScreenQuestion), nil, nil
		case LocationRead:
			return push(prior, e)
		}
	case models.ScreenOffline:
		switch e := event.(type) {
		case Back:
			return withScreen(prior, models.ScreenQuestion), nil, nil
		case ConfirmStatus:
			if e.Reason == "" || e.Reason == models.StatusActive {
				return prior, nil, ErrInvalidReason
			}
			return prior, []Effect{WriteRemoteState{Doc: models.OfflineState(e.Reason)}}, nil
		}
	}

	if _, late := event.(LocationRead); late {
		// The shift ended between the read and its result.
		return prior, nil, nil
	}
	return prior, nil, ErrInvalidTransition
}

func (m *Machine) stepLocked(prior models.Session, event Event) (models.Session, []Effect, error) {
	switch e := event.(type) {
	case SubmitPIN:
		if e.Input == "" {
			return prior, nil, nil
		}
		if m.Gate == nil || !m.Gate.Check(e.Input) {
			return prior, nil, ErrAccessDenied
		}
		next := prior
		next.Authenticated = true
		next.Screen = models.ScreenQuestion
		return next, nil, nil
	case Tick, Logout, LocationRead:
		return prior, nil, nil
	}
	return prior, nil, ErrInvalidTransition
}

func withScreen(s models.Session, screen models.Screen) models.Session {
	s.Screen = screen
	return s
}

func push(prior models.Session, read LocationRead) (models.Session, []Effect, error) {
	if !read.Sample.Usable() {
		return prior, nil, nil
	}
	ts := math.Max(unixSeconds(read.Now), prior.LastPushAt)
	next := prior
	next.LastPushAt = ts
	return next, []Effect{WriteRemoteState{Doc: models.ActiveState(*read.Sample, ts)}}, nil
}

func unixSeconds(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}
