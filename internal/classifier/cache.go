package classifier

import (
	"context"
	"log/slog"

	"news_sentiment/internal/domain"
)

// Cache stores classifications keyed by canonical article URL.
type Cache interface {
	Get(ctx context.Context, key string) (domain.Classification, bool, error)
	Set(ctx context.Context, key string, cls domain.Classification) error
}

// Scorer is what the pipeline needs from a classifier.
type Scorer interface {
	Classify(ctx context.Context, candidate domain.Candidate) (domain.Classification, error)
}

// Cached serves repeated headlines from a cache so each URL reaches the model once.
// Cache errors are logged and never fail a classification.
type Cached struct {
	next   Scorer
	cache  Cache
	logger *slog.Logger
}

func NewCached(next Scorer, cache Cache, logger *slog.Logger) *Cached {
	return &Cached{
		next:   next,
		cache:  cache,
		logger: logger.With("component", "classifier_cache"),
	}
}

func (c *Cached) Classify(ctx context.Context, candidate domain.Candidate) (domain.Classification, error) {
	key := domain.CanonicalURL(candidate.URL)

	cls, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("cache lookup failed", "url", candidate.URL, "error", err)
	}
	if ok {
		return cls, nil
	}

	cls, err = c.next.Classify(ctx, candidate)
	if err != nil {
		return domain.Classification{}, err
	}

	if err := c.cache.Set(ctx, key, cls); err != nil {
		c.logger.Warn("cache store failed", "url", candidate.URL, "error", err)
	}

	return cls, nil
}
