package terminal

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ukydev/campus-rath/internal/auth"
	"github.com/ukydev/campus-rath/internal/db"
	"github.com/ukydev/campus-rath/internal/location"
	"github.com/ukydev/campus-rath/internal/models"
	"github.com/ukydev/campus-rath/internal/session"
)

var fallback = models.Location{Lat: 25.4358, Lon: 81.8463}

func newTestModel(t *testing.T, provider location.Provider) (Model, db.VehicleStateStore) {
	t.Helper()
	store := db.Bind(db.NewMemoryStateCollection(), "rath/rath01")
	runner := session.NewRunner(session.NewMachine(auth.NewPINGate("2468", "")), store, nil, fallback)
	return NewModel(runner, provider, models.NewSession("sid"), time.Millisecond), store
}

// drive executes cmd and feeds dispatch results back into the model until
// no dispatch is pending. Poll ticks are not fed back.
func drive(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	for steps := 0; cmd != nil; steps++ {
		require.Less(t, steps, 20, "dispatch chain did not settle")
		msg := cmd()
		cmd = nil
		switch msg := msg.(type) {
		case frameMsg:
			model, next := m.Update(msg)
			m, cmd = model.(Model), next
		case tea.BatchMsg:
			for _, c := range msg {
				if c == nil {
					continue
				}
				if frame, ok := c().(frameMsg); ok {
					model, next := m.Update(frame)
					m, cmd = model.(Model), next
				}
			}
		}
	}
	return m
}

func press(t *testing.T, m Model, keys ...string) Model {
	t.Helper()
	for _, k := range keys {
		var msg tea.KeyMsg
		switch k {
		case "enter":
			msg = tea.KeyMsg{Type: tea.KeyEnter}
		case "down":
			msg = tea.KeyMsg{Type: tea.KeyDown}
		default:
			msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
		}
		model, cmd := m.Update(msg)
		m = model.(Model)
		if !m.Session().Authenticated && k != "enter" {
			continue
		}
		m = drive(t, m, cmd)
	}
	return m
}

func unlock(t *testing.T, m Model) Model {
	t.Helper()
	m = press(t, m, "2", "4", "6", "8", "enter")
	require.True(t, m.Session().Authenticated)
	return m
}

func TestModel_WrongPIN(t *testing.T) {
	m, _ := newTestModel(t, nil)

	m = press(t, m, "1", "1", "1", "1", "enter")
	assert.False(t, m.Session().Authenticated)
	assert.Contains(t, m.View(), "Access denied")
	assert.Empty(t, m.pin.Value())
}

func TestModel_UnlockShowsQuestion(t *testing.T) {
	m, _ := newTestModel(t, nil)

	m = unlock(t, m)
	assert.Equal(t, models.ScreenQuestion, m.Session().Screen)
	view := m.View()
	assert.Contains(t, view, "Are you going online?")
	assert.Contains(t, view, "Published status: Unknown")
}

func TestModel_OnlinePushesLocation(t *testing.T) {
	m, store := newTestModel(t, location.Static{Latitude: 25.4361, Longitude: 81.8470})
	m = unlock(t, m)

	m = press(t, m, "o")
	assert.Equal(t, models.ScreenOnline, m.Session().Screen)

	stored, err := store.GetVehicleState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.StatusActive, stored.Status)
	assert.Contains(t, m.View(), session.NoticeBroadcasting)
	assert.Contains(t, m.View(), "25.43610, 81.84700")

	m = press(t, m, "e")
	assert.Equal(t, models.ScreenQuestion, m.Session().Screen)
}

func TestModel_OnlineWithoutFix(t *testing.T) {
	m, store := newTestModel(t, location.None)
	m = unlock(t, m)

	m = press(t, m, "o")
	assert.Contains(t, m.View(), session.NoticeNoFix)
	_, err := store.GetVehicleState(context.Background())
	assert.ErrorIs(t, err, db.ErrNoDocument)
}

func TestModel_OfflineReason(t *testing.T) {
	m, store := newTestModel(t, nil)
	m = unlock(t, m)

	m = press(t, m, "f")
	assert.Equal(t, models.ScreenOffline, m.Session().Screen)

	m = press(t, m, "down", "enter")
	stored, err := store.GetVehicleState(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.OfflineState(models.OfflineReasons[1]), *stored)
	assert.Contains(t, m.View(), session.NoticeStatusSaved)

	m = press(t, m, "b")
	assert.Equal(t, models.ScreenQuestion, m.Session().Screen)
}

func TestModel_Logout(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m = unlock(t, m)
	m = press(t, m, "o")

	m = press(t, m, "x")
	assert.False(t, m.Session().Authenticated)
	assert.Contains(t, m.View(), "Enter PIN")

	m = unlock(t, m)
	assert.Equal(t, models.ScreenQuestion, m.Session().Screen)
}

func TestModel_ActionsQueueWhileBusy(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m = unlock(t, m)

	model, first := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("f")})
	m = model.(Model)
	require.True(t, m.busy)

	model, queued := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("b")})
	m = model.(Model)
	assert.Nil(t, queued)
	assert.Len(t, m.queue, 1)

	m = drive(t, m, first)
	assert.Equal(t, models.ScreenQuestion, m.Session().Screen)
	assert.False(t, m.busy)
}

func TestModel_TickWhileBusyOnlyReschedules(t *testing.T) {
	m, _ := newTestModel(t, nil)
	m.busy = true

	model, cmd := m.Update(tickMsg(time.Now()))
	require.NotNil(t, cmd)
	_, ok := cmd().(tickMsg)
	assert.True(t, ok)
	assert.True(t, model.(Model).busy)
}

func TestModel_Help(t *testing.T) {
	m, _ := newTestModel(t, nil)
	assert.Contains(t, m.View(), "enter confirm")

	m = unlock(t, m)
	assert.Contains(t, m.View(), "o go online")
}
