package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"news_sentiment/internal/domain"
)

const keyPrefix = "sentiment:classification:"

// Connect parses a redis:// URL, falling back to a bare host:port address.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}

	client := redis.NewClient(opt)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

type ScoreCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewScoreCache(client *redis.Client, ttl time.Duration) *ScoreCache {
	return &ScoreCache{client: client, ttl: ttl}
}

type entry struct {
	Score     float64 `json:"score"`
	LabelHint string  `json:"label_hint,omitempty"`
}

func (c *ScoreCache) Get(ctx context.Context, key string) (domain.Classification, bool, error) {
	raw, err := c.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Classification{}, false, nil
	}
	if err != nil {
		return domain.Classification{}, false, fmt.Errorf("get %s: %w", key, err)
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return domain.Classification{}, false, fmt.Errorf("decode %s: %w", key, err)
	}
	return domain.Classification{Score: domain.ClampScore(e.Score), LabelHint: e.LabelHint}, true, nil
}

// Set stores the score only. Rationale text is not cached.
func (c *ScoreCache) Set(ctx context.Context, key string, cls domain.Classification) error {
	raw, err := json.Marshal(entry{Score: cls.Score, LabelHint: cls.LabelHint})
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := c.client.Set(ctx, keyPrefix+key, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
