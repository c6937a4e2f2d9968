package mongo

import (
	"context"
	"fmt"
	"log"
	"time"

	"classroom-quiz-service/internal/config"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	minPoolSize   = 10
	maxConnecting = 2
	maxIdleTime   = 60 * time.Second
)

func clientOptions(cfg config.MongoDBConfig) *options.ClientOptions {
	return options.Client().
		ApplyURI(cfg.URI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetMaxPoolSize(cfg.PoolSize).
		SetMinPoolSize(minPoolSize).
		SetMaxConnIdleTime(maxIdleTime).
		SetMaxConnecting(maxConnecting).
		SetConnectTimeout(cfg.Timeout).
		SetCompressors([]string{"zstd", "snappy", "zlib"}).
		SetRetryWrites(true).
		SetRetryReads(true)
}

// Connect opens the client pool and returns the quiz database. A failed ping is
// logged and does not fail start-up.
func Connect(cfg config.MongoDBConfig) (*mongo.Client, *mongo.Database, error) {
	client, err := mongo.Connect(clientOptions(cfg))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err := client.Ping(pingCtx, nil); err != nil {
		log.Printf("Warning: Could not verify MongoDB connection: %s", err)
	} else {
		log.Println("Successfully connected to MongoDB")
	}

	log.Printf("MongoDB initialized - Database: %s, Max Pool Size: %d", cfg.Database, cfg.PoolSize)
	return client, client.Database(cfg.Database), nil
}

func Disconnect(client *mongo.Client) {
	if client == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Disconnect(ctx); err != nil {
		log.Printf("Error disconnecting from MongoDB: %s", err)
	} else {
		log.Println("Successfully disconnected from MongoDB")
	}
}

func IsConnected(client *mongo.Client) bool {
	if client == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	return client.Ping(ctx, nil) == nil
}
