package service

//go:generate mockgen -source=interfaces.go -destination=mocks/mocks.go -package=mocks

import (
	"context"

	"news_sentiment/internal/domain"
)

type NewsSource interface {
	Fetch(ctx context.Context, q domain.Query) ([]domain.Candidate, error)
}

type Classifier interface {
	Classify(ctx context.Context, candidate domain.Candidate) (domain.Classification, error)
}

type RecordStore interface {
	Ping(ctx context.Context) error
	Upsert(ctx context.Context, rec *domain.ScoredRecord) (domain.UpsertOutcome, error)
}

type RunLog interface {
	Record(ctx context.Context, report *domain.RunReport) error
}

type Publisher interface {
	PublishRun(ctx context.Context, report *domain.RunReport) error
}
