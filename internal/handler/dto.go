package handler

import (
	"time"

	"news_sentiment/internal/domain"
)

type DistributionResponse struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

type FailureResponse struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

// RunResponse is the caller-facing result of one pipeline run.
type RunResponse struct {
	RunID                 string               `json:"run_id"`
	Query                 string               `json:"query"`
	NewsAnalyzed          int                  `json:"news_analyzed"`
	AverageSentiment      float64              `json:"average_sentiment"`
	SentimentDistribution DistributionResponse `json:"sentiment_distribution"`
	Timestamp             string               `json:"timestamp"`
	Outcome               string               `json:"outcome"`
	Fetched               int                  `json:"fetched"`
	Duplicates            int                  `json:"duplicates"`
	Skipped               int                  `json:"skipped"`
	Inserted              int                  `json:"inserted"`
	AlreadyExisting       int                  `json:"already_existing"`
	StorageFailed         bool                 `json:"storage_failed"`
	Failures              []FailureResponse    `json:"failures"`
}

func newRunResponse(r *domain.RunReport) RunResponse {
	agg := r.Aggregate
	res := RunResponse{
		RunID:            r.RunID,
		Query:            agg.Query,
		NewsAnalyzed:     agg.NewsAnalyzed,
		AverageSentiment: agg.AverageSentiment,
		SentimentDistribution: DistributionResponse{
			Positive: agg.Distribution.Positive,
			Neutral:  agg.Distribution.Neutral,
			Negative: agg.Distribution.Negative,
		},
		Timestamp:       agg.Timestamp.UTC().Format(time.RFC3339),
		Outcome:         string(r.Outcome),
		Fetched:         r.Fetched,
		Duplicates:      r.Duplicates,
		Skipped:         agg.Skipped,
		Inserted:        r.Inserted,
		AlreadyExisting: r.AlreadyExisting,
		StorageFailed:   r.StorageFailed,
		Failures:        make([]FailureResponse, 0, len(r.Failures)),
	}
	for _, f := range r.Failures {
		res.Failures = append(res.Failures, FailureResponse{
			URL:    f.URL,
			Title:  f.Title,
			Stage:  string(f.Stage),
			Reason: f.Reason,
		})
	}
	return res
}

type RecordResponse struct {
	ID             int64   `json:"id"`
	URL            string  `json:"url"`
	Keyword        string  `json:"keyword"`
	Title          string  `json:"title"`
	Description    *string `json:"description"`
	Source         *string `json:"source"`
	Author         *string `json:"author"`
	PublishedAt    string  `json:"published_at"`
	Language       *string `json:"language"`
	SentimentScore float64 `json:"sentiment_score"`
	SentimentLabel string  `json:"sentiment_label"`
	FetchedAt      string  `json:"fetched_at"`
}

type RecordsResponse struct {
	Records []RecordResponse `json:"news"`
	Count   int              `json:"count"`
}

func newRecordsResponse(records []domain.ScoredRecord) RecordsResponse {
	res := RecordsResponse{Records: make([]RecordResponse, 0, len(records)), Count: len(records)}
	for _, r := range records {
		res.Records = append(res.Records, RecordResponse{
			ID:             r.ID,
			URL:            r.URL,
			Keyword:        r.Keyword,
			Title:          r.Title,
			Description:    r.Description,
			Source:         r.Source,
			Author:         r.Author,
			PublishedAt:    r.PublishedAt.UTC().Format(time.RFC3339),
			Language:       r.Language,
			SentimentScore: r.SentimentScore,
			SentimentLabel: string(r.SentimentLabel),
			FetchedAt:      r.FetchedAt.UTC().Format(time.RFC3339),
		})
	}
	return res
}

type LabelStatsResponse struct {
	Count    int     `json:"count"`
	AvgScore float64 `json:"avg_score"`
}

type StatsResponse struct {
	Keyword         string                        `json:"keyword,omitempty"`
	DaysBack        int                           `json:"days_back"`
	TotalNews       int                           `json:"total_news"`
	OverallAvgScore float64                       `json:"overall_avg_score"`
	ByLabel         map[string]LabelStatsResponse `json:"by_label"`
}

func newStatsResponse(keyword string, daysBack int, s domain.HistoricalStats) StatsResponse {
	res := StatsResponse{
		Keyword:         keyword,
		DaysBack:        daysBack,
		TotalNews:       s.Total,
		OverallAvgScore: s.AverageScore,
		ByLabel:         make(map[string]LabelStatsResponse, 3),
	}
	for _, l := range []domain.Label{domain.LabelPositive, domain.LabelNeutral, domain.LabelNegative} {
		ls := s.PerLabel[l]
		res.ByLabel[string(l)] = LabelStatsResponse{Count: ls.Count, AvgScore: ls.AverageScore}
	}
	return res
}
