package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"news_sentiment/internal/domain"
)

// RunSummary is one row of query_runs.
type RunSummary struct {
	RunID           string          `db:"run_id" json:"run_id"`
	Keyword         string          `db:"keyword" json:"keyword"`
	Outcome         domain.RunState `db:"outcome" json:"outcome"`
	Fetched         int             `db:"fetched" json:"fetched"`
	Duplicates      int             `db:"duplicates" json:"duplicates"`
	Analyzed        int             `db:"analyzed" json:"analyzed"`
	Skipped         int             `db:"skipped" json:"skipped"`
	Inserted        int             `db:"inserted" json:"inserted"`
	AlreadyExisting int             `db:"already_existing" json:"already_existing"`
	AverageScore    float64         `db:"average_score" json:"average_score"`
	StorageFailed   bool            `db:"storage_failed" json:"storage_failed"`
	StartedAt       time.Time       `db:"started_at" json:"started_at"`
	DurationMS      int64           `db:"duration_ms" json:"duration_ms"`
}

type RunStore struct {
	db *sqlx.DB
	tm *TransactionManager
}

func NewRunStore(db *sqlx.DB, tm *TransactionManager) *RunStore {
	return &RunStore{db: db, tm: tm}
}

// Record writes the run summary and its item failures in one transaction.
func (s *RunStore) Record(ctx context.Context, r *domain.RunReport) error {
	return s.tm.WithTransaction(ctx, func(ctx context.Context) error {
		exec := GetExecutor(ctx, s.db)

		_, err := exec.ExecContext(ctx, `
			INSERT INTO query_runs (
				run_id, keyword, outcome, fetched, duplicates, analyzed, skipped,
				inserted, already_existing, average_score, storage_failed, started_at, duration_ms
			) VALUES (
				$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
			)`,
			r.RunID,
			r.Query.Keyword,
			r.Outcome,
			r.Fetched,
			r.Duplicates,
			r.Aggregate.NewsAnalyzed,
			r.Aggregate.Skipped,
			r.Inserted,
			r.AlreadyExisting,
			r.Aggregate.AverageSentiment,
			r.StorageFailed,
			r.StartedAt,
			r.Duration.Milliseconds(),
		)
		if err != nil {
			return fmt.Errorf("insert run %s: %w", r.RunID, err)
		}

		for _, f := range r.Failures {
			_, err := exec.ExecContext(ctx,
				`INSERT INTO run_failures (run_id, url, title, stage, reason) VALUES ($1, $2, $3, $4, $5)`,
				r.RunID, f.URL, f.Title, f.Stage, f.Reason,
			)
			if err != nil {
				return fmt.Errorf("insert failure for run %s: %w", r.RunID, err)
			}
		}
		return nil
	})
}

func (s *RunStore) Recent(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT run_id, keyword, outcome, fetched, duplicates, analyzed, skipped,
			inserted, already_existing, average_score, storage_failed, started_at, duration_ms
		FROM query_runs
		ORDER BY started_at DESC
		LIMIT $1`

	var runs []RunSummary
	if err := s.db.SelectContext(ctx, &runs, query, limit); err != nil {
		return nil, err
	}
	return runs, nil
}

// Failures lists the item failures recorded for one run.
func (s *RunStore) Failures(ctx context.Context, runID string) ([]domain.ItemFailure, error) {
	var failures []domain.ItemFailure
	err := s.db.SelectContext(ctx, &failures,
		`SELECT url, title, stage, reason FROM run_failures WHERE run_id = $1 ORDER BY id`,
		runID,
	)
	return failures, err
}
