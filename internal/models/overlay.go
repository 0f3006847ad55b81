package models

import "encoding/json"

// Overlay is the subset of a GeoJSON FeatureCollection used for the campus layer.
type Overlay struct {
	Type     string           `json:"type"`
	Features []OverlayFeature `json:"features"`
}

// OverlayFeature is a single campus building, path or point of interest.
type OverlayFeature struct {
	Type       string                 `json:"type"`
	Geometry   OverlayGeometry        `json:"geometry"`
	Properties map[string]interface{} `json:"properties"`
}

// OverlayGeometry keeps coordinates raw because their nesting depends on Type.
type OverlayGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Name returns the feature's name property, if any.
func (f OverlayFeature) Name() (string, bool) {
	if f.Properties == nil {
		return "", false
	}
	name, ok := f.Properties["name"].(string)
	if !ok || name == "" {
		return "", false
	}
	return name, true
}

// Label is a text label anchored to an overlay feature.
type Label struct {
	Name     string     `json:"name"`
	Position [2]float64 `json:"pos"` // [lon, lat]
}
