package repository

import (
	"context"
	"encoding/json"
	"time"

	"classroom-quiz-service/internal/models"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

const quizCachePrefix = "quiz:public:"

// QuizCache keeps the public view of quizzes in Redis. A nil client disables it.
type QuizCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewQuizCache(client *redis.Client, ttl time.Duration) *QuizCache {
	if ttl <= 0 {
		ttl = 10 * time.Minute
	}
	return &QuizCache{client: client, ttl: ttl}
}

func quizCacheKey(id string) string {
	return quizCachePrefix + id
}

// Get returns the cached quiz, or nil with no error on a miss.
func (c *QuizCache) Get(ctx context.Context, id string) (*models.PopulatedQuiz, error) {
	if c.client == nil {
		return nil, nil
	}

	raw, err := c.client.Get(ctx, quizCacheKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "get cached quiz")
	}

	var quiz models.PopulatedQuiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return nil, errors.Wrap(err, "decode cached quiz")
	}
	return &quiz, nil
}

func (c *QuizCache) Set(ctx context.Context, quiz *models.PopulatedQuiz) error {
	if c.client == nil {
		return nil
	}

	val, err := json.Marshal(quiz)
	if err != nil {
		return errors.Wrap(err, "encode quiz for cache")
	}
	return errors.Wrap(c.client.Set(ctx, quizCacheKey(quiz.ID.Hex()), val, c.ttl).Err(), "cache quiz")
}

func (c *QuizCache) Invalidate(ctx context.Context, id string) error {
	if c.client == nil {
		return nil
	}
	return errors.Wrap(c.client.Del(ctx, quizCacheKey(id)).Err(), "invalidate cached quiz")
}
