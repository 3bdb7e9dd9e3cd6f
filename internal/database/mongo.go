package database

import (
	"context"
	"fmt"

	"github.com/crewline/crewline-backend/internal/config"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NewMongo connects to the document engine and returns a database handle.
func NewMongo(ctx context.Context, cfg *config.Config) (*mongo.Database, error) {
	opts := options.Client().ApplyURI(cfg.MongoURI)
	opts.SetMaxPoolSize(25)
	opts.SetMinPoolSize(10)

	client, err := mongo.Connect(opts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	return client.Database(cfg.MongoDatabase), nil
}
