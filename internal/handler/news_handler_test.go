package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_sentiment/internal/domain"
)

type fakeRunner struct {
	report *domain.RunReport
	err    error
	got    domain.QueryInput
}

func (f *fakeRunner) Run(_ context.Context, in domain.QueryInput) (*domain.RunReport, error) {
	f.got = in
	return f.report, f.err
}

type fakeHistory struct {
	records []domain.ScoredRecord
	stats   domain.HistoricalStats
	err     error
	pingErr error
	filter  domain.HistoryFilter
}

func (f *fakeHistory) Ping(context.Context) error { return f.pingErr }

func (f *fakeHistory) History(_ context.Context, filter domain.HistoryFilter) ([]domain.ScoredRecord, error) {
	f.filter = filter
	return f.records, f.err
}

func (f *fakeHistory) Stats(_ context.Context, filter domain.HistoryFilter) (domain.HistoricalStats, error) {
	f.filter = filter
	return f.stats, f.err
}

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestRouter(runner Runner, history HistoryStore) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewNewsHandler(runner, history, Services{NewsProvider: "newsapi", Classifier: "openai"},
		slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return fixedNow }
	h.Register(r)
	return r
}

func get(r *gin.Engine, target string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, target, nil))
	return w
}

func sampleReport() *domain.RunReport {
	return &domain.RunReport{
		RunID:   "run-1",
		Outcome: domain.StatePartiallyCompleted,
		Aggregate: domain.AggregateResult{
			Query:            "inteligencia artificial",
			NewsAnalyzed:     3,
			AverageSentiment: 2.33,
			Distribution:     domain.Distribution{Positive: 1, Neutral: 1, Negative: 1},
			Skipped:          2,
			Timestamp:        fixedNow,
		},
		Failures: []domain.ItemFailure{
			{URL: "https://example.com/x", Title: "X", Stage: domain.StageClassify, Reason: "timeout"},
		},
		Fetched:  5,
		Inserted: 3,
	}
}

func TestSearchNews_ReturnsResult(t *testing.T) {
	runner := &fakeRunner{report: sampleReport()}
	r := newTestRouter(runner, &fakeHistory{})

	w := get(r, "/api/news?q=inteligencia+artificial&days=3&page_size=5")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, domain.QueryInput{Raw: "inteligencia artificial", LookbackDays: 3, MaxResults: 5}, runner.got)

	var res RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, "run-1", res.RunID)
	assert.Equal(t, "inteligencia artificial", res.Query)
	assert.Equal(t, 3, res.NewsAnalyzed)
	assert.Equal(t, 2.33, res.AverageSentiment)
	assert.Equal(t, DistributionResponse{Positive: 1, Neutral: 1, Negative: 1}, res.SentimentDistribution)
	assert.Equal(t, "2025-03-10T12:00:00Z", res.Timestamp)
	assert.Equal(t, "partially_completed", res.Outcome)
	assert.Len(t, res.Failures, 1)
	assert.Equal(t, "classify", res.Failures[0].Stage)
}

func TestSearchNews_StorageFailureStillReturnsResult(t *testing.T) {
	report := sampleReport()
	report.StorageFailed = true
	runner := &fakeRunner{report: report, err: fmt.Errorf("persist: %w", domain.ErrStorageUnavailable)}
	r := newTestRouter(runner, &fakeHistory{})

	w := get(r, "/api/news?q=k")
	require.Equal(t, http.StatusOK, w.Code)

	var res RunResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.StorageFailed)
	assert.Equal(t, 3, res.NewsAnalyzed)
}

func TestSearchNews_ErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"invalid query", fmt.Errorf("%w: empty keyword", domain.ErrInvalidQuery), http.StatusBadRequest},
		{"provider rejected", fmt.Errorf("fetch news: %w", domain.ErrProviderRejected), http.StatusBadGateway},
		{"provider unavailable", fmt.Errorf("fetch news: %w", domain.ErrProviderUnavailable), http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(&fakeRunner{err: tt.err}, &fakeHistory{})
			w := get(r, "/api/news?q=k")
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestSearchNews_BadIntegerParam(t *testing.T) {
	runner := &fakeRunner{report: sampleReport()}
	r := newTestRouter(runner, &fakeHistory{})

	w := get(r, "/api/news?q=k&days=seven")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetRecent_ClampsLimit(t *testing.T) {
	history := &fakeHistory{records: []domain.ScoredRecord{
		{ID: 7, URL: "https://example.com/a", Title: "A", SentimentScore: 4.1, SentimentLabel: domain.LabelPositive, PublishedAt: fixedNow},
	}}
	r := newTestRouter(&fakeRunner{}, history)

	w := get(r, "/api/news/recent?limit=500")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 100, history.filter.Limit)

	var res RecordsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, "positive", res.Records[0].SentimentLabel)
	assert.Equal(t, "2025-03-10T12:00:00Z", res.Records[0].PublishedAt)
}

func TestGetByKeyword_AppliesWindow(t *testing.T) {
	history := &fakeHistory{}
	r := newTestRouter(&fakeRunner{}, history)

	w := get(r, "/api/news/by-keyword/econom%C3%ADa?days_back=3&limit=5")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, "economía", history.filter.Keyword)
	assert.Equal(t, 5, history.filter.Limit)
	assert.Equal(t, fixedNow.AddDate(0, 0, -3), history.filter.From)
}

func TestGetStats(t *testing.T) {
	history := &fakeHistory{stats: domain.HistoricalStats{
		Total:        3,
		AverageScore: 3.0,
		PerLabel: map[domain.Label]domain.LabelStats{
			domain.LabelPositive: {Count: 2, AverageScore: 4.0},
			domain.LabelNegative: {Count: 1, AverageScore: 1.0},
		},
	}}
	r := newTestRouter(&fakeRunner{}, history)

	w := get(r, "/api/stats?keyword=econom%C3%ADa")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, fixedNow.AddDate(0, 0, -30), history.filter.From)

	var res StatsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.Equal(t, 3, res.TotalNews)
	assert.Equal(t, LabelStatsResponse{Count: 2, AvgScore: 4.0}, res.ByLabel["positive"])
	assert.Equal(t, LabelStatsResponse{}, res.ByLabel["neutral"])
}

func TestGetStats_StorageUnavailable(t *testing.T) {
	history := &fakeHistory{err: fmt.Errorf("%w: stats", domain.ErrStorageUnavailable)}
	r := newTestRouter(&fakeRunner{}, history)

	w := get(r, "/api/stats")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestGetHealth(t *testing.T) {
	r := newTestRouter(&fakeRunner{}, &fakeHistory{})
	w := get(r, "/api/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database":"connected"`)

	r = newTestRouter(&fakeRunner{}, &fakeHistory{pingErr: errors.New("down")})
	w = get(r, "/api/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"unhealthy"`)
}

func TestInvalidIntParam_LogsThroughHandlerLogger(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var buf bytes.Buffer
	history := &fakeHistory{}
	h := NewNewsHandler(&fakeRunner{}, history, Services{}, slog.New(slog.NewTextHandler(&buf, nil)))
	r := gin.New()
	h.Register(r)

	w := get(r, "/api/news/recent?limit=many")
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, 10, history.filter.Limit)
	assert.Contains(t, buf.String(), "component=http")
	assert.Contains(t, buf.String(), "param=limit")
}
