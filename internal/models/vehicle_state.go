package models

import (
	"errors"
	"math"
)

// StatusActive is the only status under which coordinates are meaningful.
const StatusActive = "Active"

// StatusUnknown is reported by readers when no valid document could be read.
const StatusUnknown = "Unknown"

// OfflineReasons lists the reasons offered to a driver on the offline screen.
// The set is open: any other non-empty reason except StatusActive is accepted.
var OfflineReasons = []string{"Charging", "Lunch Break", "Shift Ended", "Out of Area"}

var (
	ErrMissingStatus      = errors.New("status is required")
	ErrLatitudeRange      = errors.New("latitude must be between -90 and 90")
	ErrLongitudeRange     = errors.New("longitude must be between -180 and 180")
	ErrInvalidTimestamp   = errors.New("timestamp must be a non-negative number")
	ErrMissingCoordinates = errors.New("latitude and longitude are required")
)

// VehicleState is the shared per-vehicle document held by the remote store.
// Writers always replace the whole document; the last writer wins.
type VehicleState struct {
	Latitude  float64  `bson:"latitude" json:"latitude"`
	Longitude float64  `bson:"longitude" json:"longitude"`
	Status    string   `bson:"status" json:"status"`
	Timestamp *float64 `bson:"timestamp,omitempty" json:"timestamp,omitempty"` // seconds since epoch, Active pushes only
}

// IsActive reports whether the vehicle is broadcasting.
func (v VehicleState) IsActive() bool {
	return v.Status == StatusActive
}

// HasFix reports whether the coordinates describe a real position.
// Non-Active documents carry (0,0) as a sentinel and never have a fix.
func (v VehicleState) HasFix() bool {
	if !v.IsActive() {
		return false
	}
	return !(v.Latitude == 0 && v.Longitude == 0)
}

// Position returns the document coordinates as a Location.
func (v VehicleState) Position() Location {
	return Location{Lat: v.Latitude, Lon: v.Longitude}
}

// Validate checks the document against the vehicle state schema.
func (v VehicleState) Validate() error {
	if v.Status == "" {
		return ErrMissingStatus
	}
	if math.IsNaN(v.Latitude) || math.IsInf(v.Latitude, 0) || v.Latitude < -90 || v.Latitude > 90 {
		return ErrLatitudeRange
	}
	if math.IsNaN(v.Longitude) || math.IsInf(v.Longitude, 0) || v.Longitude < -180 || v.Longitude > 180 {
		return ErrLongitudeRange
	}
	if v.Timestamp != nil {
		ts := *v.Timestamp
		if math.IsNaN(ts) || math.IsInf(ts, 0) || ts < 0 {
			return ErrInvalidTimestamp
		}
	}
	return nil
}

// ActiveState builds the document pushed while a driver is online.
func ActiveState(sample LocationSample, timestamp float64) VehicleState {
	return VehicleState{
		Latitude:  sample.Latitude,
		Longitude: sample.Longitude,
		Status:    StatusActive,
		Timestamp: &timestamp,
	}
}

// OfflineState builds the document pushed when a driver confirms an offline reason.
func OfflineState(reason string) VehicleState {
	return VehicleState{Status: reason}
}

// UnknownState is the fallback document used when the store cannot be read.
func UnknownState(fallback Location) VehicleState {
	return VehicleState{
		Latitude:  fallback.Lat,
		Longitude: fallback.Lon,
		Status:    StatusUnknown,
	}
}
