package models

import "math"

// Location represents a geographical location with latitude and longitude coordinates.
type Location struct {
	Lat float64 `bson:"lat" json:"lat"`
	Lon float64 `bson:"lon" json:"lon"`
}

// LocationSample is a single fix reported by a location provider during one render cycle.
type LocationSample struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Usable reports whether the sample can be broadcast. An exact (0,0) pair is
// the offline sentinel and never counts as a fix.
func (s *LocationSample) Usable() bool {
	if s == nil {
		return false
	}
	if math.IsNaN(s.Latitude) || math.IsNaN(s.Longitude) || math.IsInf(s.Latitude, 0) || math.IsInf(s.Longitude, 0) {
		return false
	}
	if s.Latitude < -90 || s.Latitude > 90 || s.Longitude < -180 || s.Longitude > 180 {
		return false
	}
	return !(s.Latitude == 0 && s.Longitude == 0)
}

// Location converts the sample to a Location.
func (s LocationSample) Location() Location {
	return Location{Lat: s.Latitude, Lon: s.Longitude}
}
