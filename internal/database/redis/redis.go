package redis

import (
	"context"
	"log"
	"time"

	"classroom-quiz-service/internal/config"

	"github.com/redis/go-redis/v9"
)

// NewClient returns nil when no address is configured, which leaves the quiz cache disabled.
func NewClient(cfg config.RedisConfig) *redis.Client {
	if cfg.Address == "" {
		log.Println("Warning: Redis address is empty, quiz cache is disabled")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("Error connect to Redis: %s", err)
	}
	return client
}

func Close(client *redis.Client) {
	if client == nil {
		return
	}
	if err := client.Close(); err != nil {
		log.Printf("Error closing Redis client: %s", err)
	}
}
