package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"news_sentiment/internal/domain"
)

// PipelineConfig is fixed at construction.
type PipelineConfig struct {
	Limits domain.QueryLimits
	// Workers bounds concurrent classification calls. Zero sizes the pool to the
	// query's result cap.
	Workers int
}

// Pipeline runs one query through fetch, dedup, classify, aggregate and persist.
// Runs share no state besides the stores, so one Pipeline serves concurrent callers.
type Pipeline struct {
	source     NewsSource
	classifier Classifier
	records    RecordStore
	runs       RunLog
	publisher  Publisher
	config     PipelineConfig
	logger     *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewPipeline wires the stages. runs and publisher may be nil.
func NewPipeline(
	source NewsSource,
	classifier Classifier,
	records RecordStore,
	runs RunLog,
	publisher Publisher,
	cfg PipelineConfig,
	logger *slog.Logger,
) *Pipeline {
	return &Pipeline{
		source:     source,
		classifier: classifier,
		records:    records,
		runs:       runs,
		publisher:  publisher,
		config:     cfg,
		logger:     logger.With("component", "pipeline"),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// Run executes a single query. Normalization and fetch failures return (nil, err).
// Item failures are reported on the returned report. A storage connection failure
// returns the report together with an error wrapping domain.ErrStorageUnavailable.
func (p *Pipeline) Run(ctx context.Context, in domain.QueryInput) (*domain.RunReport, error) {
	startedAt := p.now()

	q, err := domain.NormalizeQuery(in, p.config.Limits)
	if err != nil {
		return nil, err
	}

	report := &domain.RunReport{
		RunID:     p.newID(),
		Query:     q,
		Outcome:   domain.StateFetching,
		StartedAt: startedAt,
	}
	logger := p.logger.With("run_id", report.RunID, "keyword", q.Keyword)
	logger.Info("starting run",
		"lookback_days", q.LookbackDays,
		"max_results", q.MaxResults,
	)

	candidates, err := p.source.Fetch(ctx, q)
	if err != nil {
		logger.Error("fetch failed", "error", err)
		return nil, fmt.Errorf("fetch news: %w", err)
	}
	report.Fetched = len(candidates)

	report.Outcome = domain.StateDeduplicating
	unique := domain.Deduplicate(candidates)
	report.Duplicates = len(candidates) - len(unique)
	logger.Debug("deduplicated", "fetched", report.Fetched, "unique", len(unique))

	report.Outcome = domain.StateClassifying
	records, failures := p.classify(ctx, logger, q, unique)
	report.Records = records
	report.Failures = failures
	report.Aggregate = domain.Aggregate(q, records, len(failures), p.now())

	report.Outcome = domain.StatePersisting
	storageErr := p.persist(ctx, logger, report)

	report.Outcome = domain.StateDone
	if len(report.Failures) > 0 || report.StorageFailed {
		report.Outcome = domain.StatePartiallyCompleted
	}
	report.Duration = p.now().Sub(startedAt)

	p.finish(ctx, logger, report)

	logger.Info("run completed",
		"outcome", report.Outcome,
		"fetched", report.Fetched,
		"duplicates", report.Duplicates,
		"analyzed", report.Aggregate.NewsAnalyzed,
		"skipped", report.Aggregate.Skipped,
		"inserted", report.Inserted,
		"already_existing", report.AlreadyExisting,
		"average", report.Aggregate.AverageSentiment,
		"duration", report.Duration,
	)

	if storageErr != nil {
		return report, storageErr
	}
	return report, nil
}

type classifyResult struct {
	record domain.ScoredRecord
	err    error
}

// classify scores candidates on a bounded pool. Calls already dispatched run to
// completion after ctx is cancelled; the rest are reported as failures.
func (p *Pipeline) classify(ctx context.Context, logger *slog.Logger, q domain.Query, candidates []domain.Candidate) ([]domain.ScoredRecord, []domain.ItemFailure) {
	if len(candidates) == 0 {
		return nil, nil
	}

	results := make([]classifyResult, len(candidates))
	callCtx := context.WithoutCancel(ctx)
	fetchedAt := p.now()

	var g errgroup.Group
	g.SetLimit(p.workers(q, len(candidates)))

	for i, c := range candidates {
		if err := ctx.Err(); err != nil {
			results[i].err = fmt.Errorf("not dispatched: %w", err)
			continue
		}
		g.Go(func() error {
			cls, err := p.classifier.Classify(callCtx, c)
			if err != nil {
				results[i].err = err
				return nil
			}
			results[i].record = domain.NewScoredRecord(q, c, cls.Score, fetchedAt)
			return nil
		})
	}
	_ = g.Wait()

	records := make([]domain.ScoredRecord, 0, len(candidates))
	var failures []domain.ItemFailure
	for i, r := range results {
		if r.err != nil {
			logger.Warn("classification failed",
				"url", candidates[i].URL,
				"stage", domain.StageClassify,
				"error", r.err,
			)
			failures = append(failures, domain.ItemFailure{
				URL:    candidates[i].URL,
				Title:  candidates[i].Title,
				Stage:  domain.StageClassify,
				Reason: r.err.Error(),
			})
			continue
		}
		records = append(records, r.record)
	}
	return records, failures
}

func (p *Pipeline) workers(q domain.Query, n int) int {
	w := p.config.Workers
	if w <= 0 {
		w = q.MaxResults
	}
	if w > n {
		w = n
	}
	if w < 1 {
		w = 1
	}
	return w
}

// persist writes records first-write-wins. Records that fail to store keep their place
// in the aggregate and are reported as persist failures.
func (p *Pipeline) persist(ctx context.Context, logger *slog.Logger, report *domain.RunReport) error {
	if len(report.Records) == 0 {
		return nil
	}

	storeCtx := context.WithoutCancel(ctx)

	if err := p.records.Ping(storeCtx); err != nil {
		report.StorageFailed = true
		logger.Error("storage unavailable", "error", err)
		if !errors.Is(err, domain.ErrStorageUnavailable) {
			err = fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
		}
		return fmt.Errorf("persist run %s: %w", report.RunID, err)
	}

	for i := range report.Records {
		rec := &report.Records[i]
		outcome, err := p.records.Upsert(storeCtx, rec)
		if err != nil {
			logger.Warn("persist failed",
				"url", rec.URL,
				"stage", domain.StagePersist,
				"error", err,
			)
			report.Failures = append(report.Failures, domain.ItemFailure{
				URL:    rec.URL,
				Title:  rec.Title,
				Stage:  domain.StagePersist,
				Reason: err.Error(),
			})
			continue
		}

		switch outcome {
		case domain.Inserted:
			report.Inserted++
			report.InsertedURLs = append(report.InsertedURLs, rec.URL)
		case domain.AlreadyExists:
			report.AlreadyExisting++
		}
	}
	return nil
}

// finish records the run and announces it. Neither step can fail the run.
func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, report *domain.RunReport) {
	ctx = context.WithoutCancel(ctx)

	if p.runs != nil {
		if err := p.runs.Record(ctx, report); err != nil {
			logger.Warn("failed to record run", "error", err)
		}
	}

	if p.publisher != nil {
		if err := p.publisher.PublishRun(ctx, report); err != nil {
			logger.Warn("failed to publish run", "error", err)
		}
	}
}
