package handlers

import (
	"net/http"
	"strconv"

	"github.com/ukydev/campus-rath/internal/models"
	"github.com/ukydev/campus-rath/internal/tracker"
)

// TrackerHandler serves the public tracker
type TrackerHandler struct {
	loop *tracker.Loop
	hub  *tracker.Hub
}

// NewTrackerHandler creates a new tracker handler
func NewTrackerHandler(loop *tracker.Loop, hub *tracker.Hub) *TrackerHandler {
	return &TrackerHandler{loop: loop, hub: hub}
}

// View handles GET /api/tracker: one immediate read rendered with the
// camera settings and viewer position from the query string.
func (h *TrackerHandler) View(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()

	controls := tracker.DefaultControls()
	if style := q.Get("style"); style != "" {
		controls.MapStyle = tracker.MapStyle(style)
	}
	if pitch, err := strconv.Atoi(q.Get("pitch")); err == nil {
		controls.Pitch = pitch
	}
	if bearing, err := strconv.Atoi(q.Get("bearing")); err == nil {
		controls.Bearing = bearing
	}

	var viewer *models.LocationSample
	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(q.Get("lon"), 64)
	if latErr == nil && lonErr == nil {
		viewer = &models.LocationSample{Latitude: lat, Longitude: lon}
	}

	snapshot := h.loop.Poll(r.Context())
	writeJSON(w, http.StatusOK, tracker.BuildView(snapshot.State, viewer, snapshot.Overlay, controls, h.loop.Fallback()))
}

// Stream handles GET /ws/tracker
func (h *TrackerHandler) Stream(w http.ResponseWriter, r *http.Request) {
	h.hub.ServeWS(w, r)
}
