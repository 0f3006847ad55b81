package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/campus-rath/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo connects to MongoDB and verifies the connection.
func ConnectMongo(uri string) (*mongo.Client, error) {
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// stateDocument is the stored shape: the vehicle state plus its key.
type stateDocument struct {
	Key                 string `bson:"_id"`
	models.VehicleState `bson:",inline"`
	UpdatedAt           time.Time `bson:"updated_at"`
}

// MongoStateCollection stores vehicle state documents in MongoDB.
type MongoStateCollection struct {
	Collection *mongo.Collection
}

// FindState returns the document stored under key.
func (c *MongoStateCollection) FindState(ctx context.Context, key string) (*models.VehicleState, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var doc stateDocument
	err := c.Collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNoDocument
		}
		return nil, err
	}
	state := doc.VehicleState
	return &state, nil
}

// ReplaceState overwrites the document stored under key. Fields absent from
// state are removed, never merged with the previous document.
func (c *MongoStateCollection) ReplaceState(ctx context.Context, key string, state models.VehicleState) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	doc := stateDocument{Key: key, VehicleState: state, UpdatedAt: time.Now()}
	_, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

// DeleteAll removes every stored document.
func (c *MongoStateCollection) DeleteAll(ctx context.Context) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.DeleteMany(ctx, bson.M{})
	return err
}
