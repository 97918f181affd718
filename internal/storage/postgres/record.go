package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"news_sentiment/internal/domain"
)

const recordColumns = `id, url, url_key, keyword, title, description, content, source, author,
	published_at, language, sentiment_score, sentiment_label, fetched_at`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type RecordStore struct {
	db *sqlx.DB
}

func NewRecordStore(db *sqlx.DB) *RecordStore {
	return &RecordStore{db: db}
}

// Ping checks that the database is reachable before a batch of writes.
func (s *RecordStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStorageUnavailable, err)
	}
	return nil
}

// Upsert inserts the record unless one with the same url_key already exists.
// The first write wins; an existing row is never modified.
func (s *RecordStore) Upsert(ctx context.Context, rec *domain.ScoredRecord) (domain.UpsertOutcome, error) {
	query := `
		INSERT INTO news_records (
			url, url_key, keyword, title, description, content, source, author,
			published_at, language, sentiment_score, sentiment_label, fetched_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13
		)
		ON CONFLICT (url_key) DO NOTHING
		RETURNING id`

	var id int64
	err := GetExecutor(ctx, s.db).QueryRowxContext(ctx, query,
		rec.URL,
		rec.URLKey,
		rec.Keyword,
		rec.Title,
		rec.Description,
		rec.Content,
		rec.Source,
		rec.Author,
		rec.PublishedAt,
		rec.Language,
		rec.SentimentScore,
		rec.SentimentLabel,
		rec.FetchedAt,
	).Scan(&id)

	if errors.Is(err, sql.ErrNoRows) {
		return domain.AlreadyExists, nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: insert %s: %v", domain.ErrStorageUnavailable, rec.URLKey, err)
	}

	rec.ID = id
	return domain.Inserted, nil
}

// History returns stored records matching the filter, newest first.
func (s *RecordStore) History(ctx context.Context, f domain.HistoryFilter) ([]domain.ScoredRecord, error) {
	b := applyFilter(psql.Select(recordColumns).From("news_records"), f).
		OrderBy("published_at DESC", "id DESC")
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit))
	}

	query, args, err := b.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build history query: %w", err)
	}

	var records []domain.ScoredRecord
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("%w: history: %v", domain.ErrStorageUnavailable, err)
	}
	return records, nil
}

// Stats aggregates stored records per label. Limit is ignored.
func (s *RecordStore) Stats(ctx context.Context, f domain.HistoryFilter) (domain.HistoricalStats, error) {
	query, args, err := applyFilter(
		psql.Select("sentiment_label", "COUNT(*) AS count", "COALESCE(AVG(sentiment_score), 0) AS avg_score").
			From("news_records"),
		f,
	).GroupBy("sentiment_label").ToSql()
	if err != nil {
		return domain.HistoricalStats{}, fmt.Errorf("build stats query: %w", err)
	}

	var rows []struct {
		Label domain.Label `db:"sentiment_label"`
		domain.LabelStats
	}
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return domain.HistoricalStats{}, fmt.Errorf("%w: stats: %v", domain.ErrStorageUnavailable, err)
	}

	stats := domain.HistoricalStats{PerLabel: make(map[domain.Label]domain.LabelStats, len(rows))}
	var sum float64
	for _, r := range rows {
		stats.Total += r.Count
		sum += r.AverageScore * float64(r.Count)
		stats.PerLabel[r.Label] = domain.LabelStats{
			Count:        r.Count,
			AverageScore: domain.Round2(r.AverageScore),
		}
	}
	if stats.Total > 0 {
		stats.AverageScore = domain.Round2(sum / float64(stats.Total))
	}
	return stats, nil
}

func applyFilter(b sq.SelectBuilder, f domain.HistoryFilter) sq.SelectBuilder {
	if f.Keyword != "" {
		b = b.Where(sq.Expr("lower(keyword) = lower(?)", f.Keyword))
	}
	if f.Label != "" {
		b = b.Where(sq.Eq{"sentiment_label": f.Label})
	}
	if !f.From.IsZero() {
		b = b.Where(sq.GtOrEq{"published_at": f.From})
	}
	if !f.To.IsZero() {
		b = b.Where(sq.Lt{"published_at": f.To})
	}
	return b
}
