package location

import (
	"context"
	"encoding/json"
	"os"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/campus-rath/internal/models"
)

// Provider yields at most one location sample per render cycle. A nil sample
// means no fix is available right now; it is never an error.
type Provider interface {
	Sample(ctx context.Context) *models.LocationSample
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context) *models.LocationSample

// Sample calls f.
func (f ProviderFunc) Sample(ctx context.Context) *models.LocationSample {
	return f(ctx)
}

// None never has a fix.
var None Provider = ProviderFunc(func(context.Context) *models.LocationSample { return nil })

// Fixed returns a provider that always reports sample, dropping unusable ones.
func Fixed(sample *models.LocationSample) Provider {
	return ProviderFunc(func(context.Context) *models.LocationSample {
		return Usable(sample)
	})
}

// Static is a provider pinned to one coordinate, for kiosks mounted at a stop.
type Static struct {
	Latitude  float64
	Longitude float64
}

// Sample returns the configured coordinate.
func (s Static) Sample(context.Context) *models.LocationSample {
	return Usable(&models.LocationSample{Latitude: s.Latitude, Longitude: s.Longitude})
}

// File re-reads a {"latitude":..,"longitude":..} document on every call, so an
// external GPS daemon can keep the file current.
type File struct {
	Path string
}

// Sample reads the file. Missing or malformed files yield no fix.
func (f File) Sample(context.Context) *models.LocationSample {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		log.WithError(err).WithField("path", f.Path).Debug("No location file")
		return nil
	}
	var sample models.LocationSample
	if err := json.Unmarshal(data, &sample); err != nil {
		log.WithError(err).WithField("path", f.Path).Debug("Malformed location file")
		return nil
	}
	return Usable(&sample)
}

// Usable returns sample when it is a real fix and nil otherwise.
func Usable(sample *models.LocationSample) *models.LocationSample {
	if !sample.Usable() {
		return nil
	}
	out := *sample
	return &out
}

// Select picks the provider for a driver terminal: a location file wins over
// a static coordinate; with neither the terminal never has a fix.
func Select(file string, static *models.LocationSample) Provider {
	switch {
	case file != "":
		return File{Path: file}
	case static != nil:
		return Static{Latitude: static.Latitude, Longitude: static.Longitude}
	default:
		return None
	}
}
