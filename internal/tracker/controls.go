package tracker

// MapStyle selects the basemap.
type MapStyle string

const (
	StyleDark      MapStyle = "dark"
	StyleLight     MapStyle = "light"
	StyleRoad      MapStyle = "road"
	StyleSatellite MapStyle = "satellite"
)

// MapStyles lists the accepted basemaps, default first.
var MapStyles = []MapStyle{StyleDark, StyleLight, StyleRoad, StyleSatellite}

// Camera limits
const (
	PitchMax       = 85
	BearingMax     = 360
	ControlStep    = 5
	DefaultPitch   = 60
	DefaultBearing = 180
)

// Controls are the per-viewer camera settings.
type Controls struct {
	MapStyle MapStyle `json:"map_style"`
	Pitch    int      `json:"pitch"`
	Bearing  int      `json:"bearing"`
	Live     bool     `json:"live"`
}

// DefaultControls returns the camera a new viewer starts with.
func DefaultControls() Controls {
	return Controls{
		MapStyle: StyleDark,
		Pitch:    DefaultPitch,
		Bearing:  DefaultBearing,
		Live:     true,
	}
}

// IsValidMapStyle checks if a basemap name is accepted
func IsValidMapStyle(style MapStyle) bool {
	for _, s := range MapStyles {
		if s == style {
			return true
		}
	}
	return false
}

// Normalize clamps pitch and bearing into range, snaps them to the slider
// step and replaces an unknown style with the default.
func (c Controls) Normalize() Controls {
	if !IsValidMapStyle(c.MapStyle) {
		c.MapStyle = StyleDark
	}
	c.Pitch = snap(c.Pitch, PitchMax)
	c.Bearing = snap(c.Bearing, BearingMax)
	return c
}

func snap(v, max int) int {
	if v < 0 {
		v = 0
	}
	if v > max {
		v = max
	}
	return (v + ControlStep/2) / ControlStep * ControlStep
}
