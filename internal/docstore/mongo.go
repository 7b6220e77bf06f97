package docstore

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// MongoConfig locates the listings collection.
type MongoConfig struct {
	URI        string
	Database   string
	Collection string
}

// MongoStore implements Store on top of a MongoDB collection.
type MongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
}

// NewMongoStore connects to MongoDB and pings it to ensure the connection is
// alive before the run starts issuing concurrent deletions.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	if cfg.URI == "" || cfg.Database == "" || cfg.Collection == "" {
		return nil, fmt.Errorf("docstore uri, database, and collection are required")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &MongoStore{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
	}, nil
}

// DeleteListings removes every listing matching the compound natural key.
func (s *MongoStore) DeleteListings(ctx context.Context, key ListingKey) error {
	if _, err := s.collection.DeleteMany(ctx, key.filter()); err != nil {
		return fmt.Errorf("delete listings for %s %s %d: %w", key.Make, key.Model, key.Year, err)
	}
	return nil
}

// Close disconnects the underlying client.
func (s *MongoStore) Close(ctx context.Context) error {
	if err := s.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongo: %w", err)
	}
	return nil
}

func (k ListingKey) filter() bson.M {
	return bson.M{
		"make":  k.Make,
		"model": k.Model,
		"year":  k.Year,
	}
}
