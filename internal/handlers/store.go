package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/campus-rath/internal/db"
)

// StorePrefix is where the self-hosted document store is mounted.
const StorePrefix = "/store/"

// StoreHandler exposes a StateCollection with the same REST shape as the
// hosted realtime database, so remote clients work against either.
type StoreHandler struct {
	collection db.StateCollection
}

// NewStoreHandler creates a new store handler
func NewStoreHandler(collection db.StateCollection) *StoreHandler {
	return &StoreHandler{collection: collection}
}

// ServeHTTP handles GET and PUT of /store/{key}.json
func (h *StoreHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key, ok := documentKey(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		state, err := h.collection.FindState(r.Context(), key)
		if errors.Is(err, db.ErrNoDocument) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		if err != nil {
			log.WithError(err).WithField("key", key).Error("Failed to read vehicle state")
			http.Error(w, "Failed to read document", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, state)
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		state, err := db.DecodeVehicleState(body)
		if err != nil {
			http.Error(w, "Invalid vehicle state: "+err.Error(), http.StatusBadRequest)
			return
		}
		if err := h.collection.ReplaceState(r.Context(), key, *state); err != nil {
			log.WithError(err).WithField("key", key).Error("Failed to write vehicle state")
			http.Error(w, "Failed to write document", http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, state)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func documentKey(path string) (string, bool) {
	if !strings.HasPrefix(path, StorePrefix) || !strings.HasSuffix(path, ".json") {
		return "", false
	}
	key := strings.Trim(strings.TrimSuffix(strings.TrimPrefix(path, StorePrefix), ".json"), "/")
	if key == "" {
		return "", false
	}
	return key, true
}
