package models

// Screen is the driver terminal screen shown to an authenticated session.
type Screen string

const (
	ScreenQuestion Screen = "question"
	ScreenOnline   Screen = "online"
	ScreenOffline  Screen = "offline"
)

// IsValidScreen checks if a screen is valid
func IsValidScreen(screen Screen) bool {
	switch screen {
	case ScreenQuestion, ScreenOnline, ScreenOffline:
		return true
	default:
		return false
	}
}

// Session is the per-tab driver session. It is owned by one render context and
// passed explicitly into every state machine step.
type Session struct {
	ID            string  `json:"id,omitempty"`
	Authenticated bool    `json:"authenticated"`
	Screen        Screen  `json:"screen"`
	LastPushAt    float64 `json:"last_push_at,omitempty"`
}

// NewSession returns an unauthenticated session on the question screen.
func NewSession(id string) Session {
	return Session{ID: id, Screen: ScreenQuestion}
}

// Normalize enforces the session invariants: an unauthenticated session is
// always parked on the question screen with no push history.
func (s Session) Normalize() Session {
	if !s.Authenticated || !IsValidScreen(s.Screen) {
		s.Screen = ScreenQuestion
	}
	if !s.Authenticated {
		s.LastPushAt = 0
	}
	return s
}
