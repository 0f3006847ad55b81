package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/campus-rath/internal/location"
	"github.com/ukydev/campus-rath/internal/middleware"
	"github.com/ukydev/campus-rath/internal/models"
	"github.com/ukydev/campus-rath/internal/session"
)

// Event types accepted by the admin API
const (
	EventPIN           = "pin"
	EventLogout        = "logout"
	EventGoOnline      = "go_online"
	EventGoOffline     = "go_offline"
	EventEndShift      = "end_shift"
	EventBack          = "back"
	EventConfirmStatus = "confirm_status"
	EventTick          = "tick"
)

var ErrUnknownEvent = errors.New("unknown event type")

// EventRequest is the body of POST /api/admin/events.
type EventRequest struct {
	Type     string                 `json:"type"`
	PIN      string                 `json:"pin,omitempty"`
	Reason   string                 `json:"reason,omitempty"`
	Location *models.LocationSample `json:"location,omitempty"`
}

// Event converts the request into a state machine event.
func (r EventRequest) Event(now time.Time) (session.Event, error) {
	switch r.Type {
	case EventPIN:
		return session.SubmitPIN{Input: r.PIN}, nil
	case EventLogout:
		return session.Logout{}, nil
	case EventGoOnline:
		return session.GoOnline{}, nil
	case EventGoOffline:
		return session.GoOffline{}, nil
	case EventEndShift:
		return session.EndShift{}, nil
	case EventBack:
		return session.Back{}, nil
	case EventConfirmStatus:
		return session.ConfirmStatus{Reason: r.Reason}, nil
	case EventTick:
		return session.Tick{Now: now}, nil
	default:
		return nil, ErrUnknownEvent
	}
}

// AdminHandler serves the driver console API
type AdminHandler struct {
	runner   *session.Runner
	sessions *middleware.SessionMiddleware
	now      func() time.Time

	pinLimiter   *middleware.RateLimitMiddleware
	pinPerMinute int
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(runner *session.Runner, sessions *middleware.SessionMiddleware) *AdminHandler {
	return &AdminHandler{
		runner:   runner,
		sessions: sessions,
		now:      time.Now,
	}
}

// LimitPINAttempts throttles pin events per client IP. Other events are
// never counted. A non-positive perMinute disables the limit.
func (h *AdminHandler) LimitPINAttempts(limiter *middleware.RateLimitMiddleware, perMinute int) *AdminHandler {
	h.pinLimiter = limiter
	h.pinPerMinute = perMinute
	return h
}

// Session handles GET /api/admin/session by running one tick.
func (h *AdminHandler) Session(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	h.dispatch(w, r, session.Tick{Now: h.now()}, nil)
}

// Events handles POST /api/admin/events
func (h *AdminHandler) Events(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}

	var req EventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "Invalid JSON", http.StatusBadRequest)
		return
	}

	event, err := req.Event(h.now())
	if err != nil {
		http.Error(w, "Unknown event type", http.StatusBadRequest)
		return
	}
	if req.Type == EventPIN && h.pinLimiter != nil && !h.pinLimiter.Allow(r, h.pinPerMinute, 60) {
		http.Error(w, "Too many PIN attempts", http.StatusTooManyRequests)
		return
	}
	h.dispatch(w, r, event, req.Location)
}

// Reasons handles GET /api/admin/reasons
func (h *AdminHandler) Reasons(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, models.OfflineReasons)
}

func (h *AdminHandler) dispatch(w http.ResponseWriter, r *http.Request, event session.Event, sample *models.LocationSample) {
	current, ok := middleware.GetSessionFromContext(r.Context())
	if !ok {
		http.Error(w, "Session not loaded", http.StatusInternalServerError)
		return
	}

	frame, err := h.runner.Dispatch(r.Context(), current, event, location.Fixed(sample))
	switch {
	case errors.Is(err, session.ErrAccessDenied):
		http.Error(w, "Access denied", http.StatusUnauthorized)
		return
	case errors.Is(err, session.ErrInvalidTransition):
		http.Error(w, "Action not available on this screen", http.StatusConflict)
		return
	case errors.Is(err, session.ErrInvalidReason):
		http.Error(w, "Invalid offline reason", http.StatusBadRequest)
		return
	case err != nil:
		log.WithError(err).Error("Failed to dispatch admin event")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	if err := h.sessions.Save(w, r, frame.Session); err != nil {
		log.WithError(err).Error("Failed to sign session")
		http.Error(w, "Failed to save session", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, frame)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("Failed to write response")
	}
}
