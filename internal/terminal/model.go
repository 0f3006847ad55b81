// Package terminal is the driver console: a bubbletea front end that feeds
// key presses and a periodic tick into the shift state machine.
package terminal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ukydev/campus-rath/internal/location"
	"github.com/ukydev/campus-rath/internal/models"
	"github.com/ukydev/campus-rath/internal/session"
)

const dispatchTimeout = 15 * time.Second

type tickMsg time.Time

type frameMsg struct {
	frame session.Frame
	err   error
	tick  bool
	rerun bool
}

type pending struct {
	event session.Event
	rerun bool
}

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00C9FF"))
	promptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
	liveStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#00FFA3"))
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F5F"))
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#909090"))
	cursorStyle = lipgloss.NewStyle().Reverse(true)
)

// Model is the bubbletea model of the driver terminal.
type Model struct {
	runner   *session.Runner
	provider location.Provider
	interval time.Duration
	keys     KeyMap
	reasons  []string

	pin     textinput.Model
	session models.Session
	remote  *models.VehicleState
	pushed  *models.VehicleState
	notice  string
	err     string
	cursor  int

	busy  bool
	queue []pending
}

// NewModel creates a locked terminal polling every interval.
func NewModel(runner *session.Runner, provider location.Provider, s models.Session, interval time.Duration) Model {
	pin := textinput.New()
	pin.Placeholder = "PIN"
	pin.EchoMode = textinput.EchoPassword
	pin.EchoCharacter = '•'
	pin.CharLimit = 32
	pin.Focus()

	if provider == nil {
		provider = location.None
	}
	return Model{
		runner:   runner,
		provider: provider,
		interval: interval,
		keys:     DefaultKeyMap,
		reasons:  models.OfflineReasons,
		pin:      pin,
		session:  s.Normalize(),
	}
}

// Session returns the current driver session.
func (m Model) Session() models.Session {
	return m.session
}

// Init starts the poll loop.
func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.scheduleTick())
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles key presses, poll ticks and dispatch results.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		if m.busy {
			return m, m.scheduleTick()
		}
		return m.start(pending{event: session.Tick{Now: time.Time(msg)}}, true)

	case frameMsg:
		return m.handleFrame(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		return m, tea.Quit
	}

	if !m.session.Authenticated {
		if key.Matches(msg, m.keys.Submit) {
			input := m.pin.Value()
			m.pin.Reset()
			return m.enqueue(session.SubmitPIN{Input: input})
		}
		var cmd tea.Cmd
		m.pin, cmd = m.pin.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Logout):
		return m.enqueue(session.Logout{})
	}

	switch m.session.Screen {
	case models.ScreenQuestion:
		switch {
		case key.Matches(msg, m.keys.GoOnline):
			return m.enqueue(session.GoOnline{})
		case key.Matches(msg, m.keys.GoOffline):
			return m.enqueue(session.GoOffline{})
		}
	case models.ScreenOnline:
		if key.Matches(msg, m.keys.EndShift) {
			return m.enqueue(session.EndShift{})
		}
	case models.ScreenOffline:
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.reasons)-1 {
				m.cursor++
			}
		case key.Matches(msg, m.keys.Submit):
			return m.enqueue(session.ConfirmStatus{Reason: m.reasons[m.cursor]})
		case key.Matches(msg, m.keys.Back):
			return m.enqueue(session.Back{})
		}
	}
	return m, nil
}

// enqueue runs a driver action now, or after the in-flight dispatch.
func (m Model) enqueue(event session.Event) (tea.Model, tea.Cmd) {
	p := pending{event: event, rerun: true}
	if m.busy {
		m.queue = append(m.queue, p)
		return m, nil
	}
	return m.start(p, false)
}

func (m Model) start(p pending, tick bool) (tea.Model, tea.Cmd) {
	m.busy = true
	runner, provider, current := m.runner, m.provider, m.session
	return m, func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		frame, err := runner.Dispatch(ctx, current, p.event, provider)
		return frameMsg{frame: frame, err: err, tick: tick, rerun: p.rerun}
	}
}

func (m Model) handleFrame(msg frameMsg) (tea.Model, tea.Cmd) {
	m.busy = false
	m.err = ""

	switch {
	case errors.Is(msg.err, session.ErrAccessDenied):
		m.err = "Access denied"
	case msg.err != nil:
		m.err = msg.err.Error()
	default:
		if msg.frame.Session.Screen != m.session.Screen {
			m.cursor = 0
			m.notice = ""
		}
		m.session = msg.frame.Session
		if msg.frame.Remote != nil {
			m.remote = msg.frame.Remote
		}
		if msg.frame.Pushed != nil {
			m.pushed = msg.frame.Pushed
		}
		if msg.frame.Notice != "" {
			m.notice = msg.frame.Notice
		}
		if !m.session.Authenticated {
			m.remote, m.pushed, m.notice = nil, nil, ""
		}
	}

	var cmds []tea.Cmd
	if msg.tick {
		cmds = append(cmds, m.scheduleTick())
	}

	next, ok := m.nextPending(msg)
	if ok {
		var model tea.Model
		var cmd tea.Cmd
		model, cmd = m.start(next, false)
		m = model.(Model)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// nextPending pops the next queued action, or schedules the immediate re-run
// that follows a successful action.
func (m *Model) nextPending(msg frameMsg) (pending, bool) {
	if len(m.queue) > 0 {
		next := m.queue[0]
		m.queue = m.queue[1:]
		return next, true
	}
	if msg.rerun && msg.err == nil && m.session.Authenticated {
		return pending{event: session.Tick{Now: time.Now()}}, true
	}
	return pending{}, false
}

// View renders the current screen.
func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("CAMPUS RATH · DRIVER TERMINAL"))
	b.WriteString("\n\n")

	if !m.session.Authenticated {
		b.WriteString(promptStyle.Render("Enter PIN to unlock"))
		b.WriteString("\n")
		b.WriteString(m.pin.View())
		b.WriteString("\n")
	} else {
		switch m.session.Screen {
		case models.ScreenQuestion:
			b.WriteString(promptStyle.Render("Are you going online?"))
			b.WriteString("\n")
			b.WriteString(m.remoteLine())
		case models.ScreenOnline:
			b.WriteString(liveStyle.Render("ONLINE"))
			b.WriteString("\n")
			if m.pushed != nil && m.pushed.IsActive() {
				fmt.Fprintf(&b, "Last position: %.5f, %.5f\n", m.pushed.Latitude, m.pushed.Longitude)
			}
		case models.ScreenOffline:
			b.WriteString(promptStyle.Render("Why are you going offline?"))
			b.WriteString("\n")
			for i, reason := range m.reasons {
				line := "  " + reason
				if i == m.cursor {
					line = cursorStyle.Render("> " + reason)
				}
				b.WriteString(line + "\n")
			}
			b.WriteString(m.remoteLine())
		}
	}

	if m.notice != "" {
		b.WriteString("\n" + mutedStyle.Render(m.notice) + "\n")
	}
	if m.err != "" {
		b.WriteString("\n" + errorStyle.Render(m.err) + "\n")
	}
	b.WriteString("\n" + mutedStyle.Render(m.help()))
	return b.String()
}

func (m Model) remoteLine() string {
	if m.remote == nil {
		return ""
	}
	return mutedStyle.Render("Published status: "+m.remote.Status) + "\n"
}

func (m Model) help() string {
	var bindings []key.Binding
	switch {
	case !m.session.Authenticated:
		bindings = []key.Binding{m.keys.Submit}
	case m.session.Screen == models.ScreenQuestion:
		bindings = []key.Binding{m.keys.GoOnline, m.keys.GoOffline, m.keys.Logout, m.keys.Quit}
	case m.session.Screen == models.ScreenOnline:
		bindings = []key.Binding{m.keys.EndShift, m.keys.Logout, m.keys.Quit}
	case m.session.Screen == models.ScreenOffline:
		bindings = []key.Binding{m.keys.Up, m.keys.Down, m.keys.Submit, m.keys.Back, m.keys.Logout, m.keys.Quit}
	}
	parts := make([]string, 0, len(bindings))
	for _, binding := range bindings {
		h := binding.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
