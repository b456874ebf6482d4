// internal/database/database.go
package database

import (
	"context"
	"fmt"
	"time"

	"part-request-portal-api-server/config"
	"part-request-portal-api-server/internal/store/mongostore"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// Connect opens a client and verifies the primary is reachable.
func Connect(ctx context.Context, cfg config.MongoConfig, logger *zap.Logger) (*mongo.Client, *mongo.Database, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	logger.Info("Connected to MongoDB", zap.String("database", cfg.DBName))
	return client, client.Database(cfg.DBName), nil
}

// RequestIndexes backs the two scope queries: the submitter filter with its
// status/date ordering and the administrator's date ordering.
func RequestIndexes() []mongo.IndexModel {
	return []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "registrationNumber", Value: 1},
				{Key: "status", Value: 1},
				{Key: "requestDate", Value: -1},
			},
			Options: options.Index().SetName("registration_status_date"),
		},
		{
			Keys:    bson.D{{Key: "requestDate", Value: -1}},
			Options: options.Index().SetName("request_date"),
		},
	}
}

func EnsureIndexes(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	names, err := db.Collection(mongostore.CollectionName).Indexes().CreateMany(ctx, RequestIndexes())
	if err != nil {
		return fmt.Errorf("create indexes: %w", err)
	}
	logger.Info("Request indexes ensured", zap.Strings("indexes", names))
	return nil
}
