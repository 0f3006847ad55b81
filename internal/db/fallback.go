package db

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/campus-rath/internal/models"
)

// ReadOrDefault reads the vehicle document and collapses every failure
// (transport, absent, malformed, invalid) into the Unknown fallback.
func ReadOrDefault(ctx context.Context, store VehicleStateStore, fallback models.Location) models.VehicleState {
	state, err := store.GetVehicleState(ctx)
	if err == nil && state == nil {
		err = ErrNoDocument
	}
	if err == nil {
		err = state.Validate()
	}
	if err == nil {
		return *state
	}
	entry := log.WithField("fallback", fallback)
	if !errors.Is(err, ErrNoDocument) {
		entry = entry.WithError(err)
	}
	entry.Debug("Using fallback vehicle state")
	return models.UnknownState(fallback)
}
