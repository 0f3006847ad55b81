package tracker

import (
	"fmt"

	"github.com/ukydev/campus-rath/internal/models"
	"github.com/ukydev/campus-rath/internal/overlay"
)

const (
	DefaultZoom     = 16
	CampusElevation = 25
	MarkerName      = "Active Rath #01"
	CampusCoverage  = "1.5 km"
	WaitTime        = "2.5 min"
	GreenEnergy     = "100%"

	// BatteryPercent is the sidebar gauge. There is no battery telemetry yet.
	BatteryPercent = 85
)

// CampusLayer is the extruded building layer.
type CampusLayer struct {
	Overlay   *models.Overlay `json:"overlay"`
	Elevation float64         `json:"elevation"`
}

// Marker is the vehicle dot on the map.
type Marker struct {
	Name     string          `json:"name"`
	Position models.Location `json:"position"`
}

// Metric is one dashboard card.
type Metric struct {
	Label string `json:"label"`
	Value string `json:"value"`
	Delta string `json:"delta,omitempty"`
}

// View is everything a viewer needs to draw the tracker page.
type View struct {
	Center   models.Location     `json:"center"`
	Zoom     int                 `json:"zoom"`
	Controls Controls            `json:"controls"`
	Campus   *CampusLayer        `json:"campus,omitempty"`
	Labels   []models.Label      `json:"labels,omitempty"`
	Marker   *Marker             `json:"marker,omitempty"`
	Vehicle  models.VehicleState `json:"vehicle"`
	Status   string              `json:"status"`
	Metrics  []Metric            `json:"metrics"`
	Battery  int                 `json:"battery"`
}

// BuildView composes the tracker view. The map follows the vehicle while it
// is broadcasting, otherwise the viewer's own position, otherwise fallback.
func BuildView(state models.VehicleState, viewer *models.LocationSample, campus *models.Overlay, controls Controls, fallback models.Location) View {
	view := View{
		Center:   fallback,
		Zoom:     DefaultZoom,
		Controls: controls.Normalize(),
		Vehicle:  state,
		Metrics:  metrics(state),
		Battery:  BatteryPercent,
	}

	broadcasting := state.IsActive() && state.HasFix()
	switch {
	case broadcasting:
		view.Center = state.Position()
	case viewer.Usable():
		view.Center = viewer.Location()
	}

	if viewer.Usable() {
		view.Status = fmt.Sprintf("Satellite link established: %.4f, %.4f", viewer.Latitude, viewer.Longitude)
	} else {
		view.Status = "Connecting to GPS... share your location to centre the map"
	}

	if campus != nil {
		view.Campus = &CampusLayer{Overlay: campus, Elevation: CampusElevation}
		view.Labels = overlay.Labels(campus)
	}
	if broadcasting {
		view.Marker = &Marker{Name: MarkerName, Position: state.Position()}
	}
	return view
}

func metrics(state models.VehicleState) []Metric {
	active := Metric{Label: "Active Rath", Value: "00", Delta: "Offline"}
	if state.IsActive() {
		active = Metric{Label: "Active Rath", Value: "01", Delta: "Online"}
	}
	return []Metric{
		active,
		{Label: "Status", Value: state.Status},
		{Label: "Wait Time", Value: WaitTime, Delta: "Efficient"},
		{Label: "Campus Coverage", Value: CampusCoverage, Delta: "Prayagraj"},
		{Label: "Green Energy", Value: GreenEnergy, Delta: "EV Only"},
	}
}
