package db

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/ukydev/campus-rath/internal/config"
)

// Backend is an opened vehicle state store. Collection is nil for the remote
// backend, whose documents live in another process.
type Backend struct {
	Store      VehicleStateStore
	Collection StateCollection
	close      func()
}

// Close releases the backend's connections.
func (b *Backend) Close() {
	if b.close != nil {
		b.close()
	}
}

// Open builds the store backend named by cfg.StoreBackend.
func Open(cfg *config.Config) (*Backend, error) {
	entry := log.WithFields(log.Fields{"backend": cfg.StoreBackend, "path": cfg.StorePath})

	switch cfg.StoreBackend {
	case config.BackendRemote:
		if cfg.StoreURL == "" {
			return nil, fmt.Errorf("STORE_URL is required for the %s backend", config.BackendRemote)
		}
		remote := NewRemoteStore(cfg.StoreURL, cfg.StorePath, cfg.StoreHTTPTimeout)
		entry.WithField("url", remote.URL()).Info("Using remote vehicle state store")
		return &Backend{Store: remote}, nil

	case config.BackendMongo:
		client, err := ConnectMongo(cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		collection := &MongoStateCollection{Collection: client.Database(cfg.MongoDB).Collection("vehicle_state")}
		entry.WithField("database", cfg.MongoDB).Info("Using MongoDB vehicle state store")
		return &Backend{
			Store:      Bind(collection, cfg.StorePath),
			Collection: collection,
			close: func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := client.Disconnect(ctx); err != nil {
					log.WithError(err).Warn("Failed to disconnect from MongoDB")
				}
			},
		}, nil

	case config.BackendMemory:
		collection := NewMemoryStateCollection()
		entry.Info("Using in-memory vehicle state store")
		return &Backend{Store: Bind(collection, cfg.StorePath), Collection: collection}, nil

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
	}
}
