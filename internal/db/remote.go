package db

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ukydev/campus-rath/internal/models"
)

// RemoteStore talks to a hosted realtime database over its REST surface:
// GET and PUT of {base}/{path}.json. PUT replaces the whole document.
type RemoteStore struct {
	url    string
	client *http.Client
}

// NewRemoteStore creates a client for the document at path under baseURL.
func NewRemoteStore(baseURL, path string, timeout time.Duration) *RemoteStore {
	return &RemoteStore{
		url:    DocumentURL(baseURL, path),
		client: &http.Client{Timeout: timeout},
	}
}

// DocumentURL builds the REST URL of a document.
func DocumentURL(baseURL, path string) string {
	return strings.TrimRight(baseURL, "/") + "/" + strings.Trim(path, "/") + ".json"
}

// URL returns the document URL.
func (s *RemoteStore) URL() string {
	return s.url
}

// wireState is the boundary shape; pointers tell absent fields from zeros.
type wireState struct {
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Status    *string  `json:"status"`
	Timestamp *float64 `json:"timestamp"`
}

// DecodeVehicleState parses and validates a document body. A JSON null body
// yields ErrNoDocument.
func DecodeVehicleState(body []byte) (*models.VehicleState, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, ErrNoDocument
	}
	var wire wireState
	if err := json.Unmarshal(trimmed, &wire); err != nil {
		return nil, fmt.Errorf("decode vehicle state: %w", err)
	}
	if wire.Latitude == nil || wire.Longitude == nil {
		return nil, models.ErrMissingCoordinates
	}
	if wire.Status == nil {
		return nil, models.ErrMissingStatus
	}
	state := &models.VehicleState{
		Latitude:  *wire.Latitude,
		Longitude: *wire.Longitude,
		Status:    *wire.Status,
		Timestamp: wire.Timestamp,
	}
	if err := state.Validate(); err != nil {
		return nil, err
	}
	return state, nil
}

// GetVehicleState fetches the current document.
func (s *RemoteStore) GetVehicleState(ctx context.Context) (*models.VehicleState, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get vehicle state: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read vehicle state: %w", err)
	}
	return DecodeVehicleState(body)
}

// PutVehicleState overwrites the document.
func (s *RemoteStore) PutVehicleState(ctx context.Context, state models.VehicleState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal vehicle state: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, s.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("put vehicle state: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}
