package scheduler

import (
	"context"
	"log/slog"
	"time"

	"news_sentiment/internal/domain"
)

// Runner runs one pipeline pass for a query.
type Runner interface {
	Run(ctx context.Context, in domain.QueryInput) (*domain.RunReport, error)
}

// Scheduler re-runs a fixed set of watched queries on an interval.
type Scheduler struct {
	runner     Runner
	queries    []string
	interval   time.Duration
	runTimeout time.Duration
	logger     *slog.Logger
}

func NewScheduler(runner Runner, queries []string, interval, runTimeout time.Duration, logger *slog.Logger) *Scheduler {
	return &Scheduler{
		runner:     runner,
		queries:    queries,
		interval:   interval,
		runTimeout: runTimeout,
		logger:     logger.With("component", "scheduler"),
	}
}

func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("scheduler started", "interval", s.interval, "queries", len(s.queries))

	s.runAll(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return ctx.Err()
		case <-ticker.C:
			s.runAll(ctx)
		}
	}
}

func (s *Scheduler) runAll(ctx context.Context) {
	for _, q := range s.queries {
		if ctx.Err() != nil {
			return
		}
		s.runOne(ctx, q)
	}
}

func (s *Scheduler) runOne(ctx context.Context, query string) {
	runCtx, cancel := context.WithTimeout(ctx, s.runTimeout)
	defer cancel()

	report, err := s.runner.Run(runCtx, domain.QueryInput{Raw: query})
	if err != nil {
		s.logger.Error("watched query failed", "query", query, "error", err)
		return
	}

	s.logger.Info("watched query completed",
		"query", query,
		"run_id", report.RunID,
		"outcome", report.Outcome,
		"analyzed", report.Aggregate.NewsAnalyzed,
		"average", report.Aggregate.AverageSentiment,
	)
}
