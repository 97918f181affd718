package newsapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/cenkalti/backoff/v4"

	"news_sentiment/internal/domain"
)

const (
	SourceID     = "newsapi"
	everything   = "/v2/everything"
	removedTitle = "[removed]"
)

// Config holds NewsAPI source configuration.
type Config struct {
	BaseURL        string
	APIKey         string
	Language       string
	SortBy         string
	Timeout        time.Duration
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// Source fetches candidate articles from NewsAPI.
type Source struct {
	httpClient     *http.Client
	baseURL        string
	apiKey         string
	language       string
	sortBy         string
	maxAttempts    int
	initialBackoff time.Duration
	maxBackoff     time.Duration
	now            func() time.Time
	logger         *slog.Logger
}

// New creates a new NewsAPI source.
func New(cfg Config, logger *slog.Logger) *Source {
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	return &Source{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		language:       cfg.Language,
		sortBy:         cfg.SortBy,
		maxAttempts:    maxAttempts,
		initialBackoff: cfg.InitialBackoff,
		maxBackoff:     cfg.MaxBackoff,
		now:            time.Now,
		logger:         logger.With("source", SourceID),
	}
}

// ID returns the source identifier.
func (s *Source) ID() string {
	return SourceID
}

// Fetch returns the most recent articles matching q within its lookback window,
// at most q.MaxResults of them, newest first.
func (s *Source) Fetch(ctx context.Context, q domain.Query) ([]domain.Candidate, error) {
	reqURL := s.buildURL(q)

	var resp *APIResponse
	attempt := 0
	op := func() error {
		attempt++
		r, err := s.doRequest(ctx, reqURL)
		if err != nil {
			if errors.Is(err, domain.ErrProviderRejected) {
				return backoff.Permanent(err)
			}
			return err
		}
		resp = r
		return nil
	}

	notify := func(err error, wait time.Duration) {
		s.logger.Warn("request failed, retrying",
			"attempt", attempt,
			"backoff", wait,
			"error", err,
		)
	}

	if err := backoff.RetryNotify(op, s.policy(ctx), notify); err != nil {
		if errors.Is(err, domain.ErrProviderRejected) || errors.Is(err, domain.ErrProviderUnavailable) {
			return nil, fmt.Errorf("after %d attempts: %w", attempt, err)
		}
		return nil, fmt.Errorf("after %d attempts: %w: %w", attempt, domain.ErrProviderUnavailable, err)
	}

	candidates := s.transform(resp.Articles)
	if len(candidates) > q.MaxResults {
		candidates = candidates[:q.MaxResults]
	}

	s.logger.Debug("fetched articles",
		"keyword", q.Keyword,
		"total_results", resp.TotalResults,
		"returned", len(resp.Articles),
		"kept", len(candidates),
	)

	return candidates, nil
}

func (s *Source) policy(ctx context.Context) backoff.BackOffContext {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = s.initialBackoff
	b.MaxInterval = s.maxBackoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxElapsedTime = 0

	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(s.maxAttempts-1)), ctx)
}

func (s *Source) buildURL(q domain.Query) string {
	to := s.now().UTC()
	from := to.AddDate(0, 0, -q.LookbackDays)

	params := url.Values{}
	params.Set("q", q.Keyword)
	params.Set("from", from.Format(time.RFC3339))
	params.Set("to", to.Format(time.RFC3339))
	params.Set("sortBy", s.sortBy)
	params.Set("pageSize", strconv.Itoa(q.MaxResults))
	if s.language != "" {
		params.Set("language", s.language)
	}

	return s.baseURL + everything + "?" + params.Encode()
}

func (s *Source) doRequest(ctx context.Context, reqURL string) (*APIResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "NewsSentiment/1.0")
	req.Header.Set("X-Api-Key", s.apiKey)

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: execute request: %w", domain.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: unexpected status: %d", domain.ErrProviderUnavailable, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("%w: status %d: %s", domain.ErrProviderRejected, resp.StatusCode, rejectionMessage(payload))
	}

	var apiResp APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("%w: decode response: %w", domain.ErrProviderUnavailable, err)
	}

	if apiResp.Status == "error" {
		return nil, fmt.Errorf("%w: %s: %s", domain.ErrProviderRejected, apiResp.Code, apiResp.Message)
	}

	return &apiResp, nil
}

func rejectionMessage(payload []byte) string {
	var body APIResponse
	if err := json.Unmarshal(payload, &body); err == nil && body.Message != "" {
		return body.Code + ": " + body.Message
	}
	return strings.TrimSpace(string(payload))
}

func (s *Source) transform(articles []APIArticle) []domain.Candidate {
	candidates := make([]domain.Candidate, 0, len(articles))

	for _, a := range articles {
		title := strings.TrimSpace(a.Title)
		if title == "" || strings.EqualFold(title, removedTitle) {
			continue
		}
		if strings.TrimSpace(a.URL) == "" {
			s.logger.Warn("article without url", "title", title)
			continue
		}

		publishedAt, err := time.Parse(time.RFC3339, a.PublishedAt)
		if err != nil {
			s.logger.Warn("failed to parse date",
				"url", a.URL,
				"date", a.PublishedAt,
			)
			continue
		}

		candidate := domain.Candidate{
			URL:         strings.TrimSpace(a.URL),
			Title:       title,
			Description: plainText(a.Description),
			Content:     plainText(a.Content),
			Author:      nonEmpty(a.Author),
			PublishedAt: publishedAt.UTC(),
		}
		if a.Source.Name != "" {
			name := a.Source.Name
			candidate.Source = &name
		}
		if s.language != "" {
			lang := s.language
			candidate.Language = &lang
		}

		candidates = append(candidates, candidate)
	}

	return candidates
}

// plainText strips markup that NewsAPI leaves in descriptions and content snippets.
func plainText(s *string) *string {
	if s == nil {
		return nil
	}

	text := *s
	if strings.ContainsAny(text, "<&") {
		if doc, err := goquery.NewDocumentFromReader(strings.NewReader(text)); err == nil {
			text = doc.Text()
		}
	}

	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}
	return &text
}

func nonEmpty(s *string) *string {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil
	}
	v := strings.TrimSpace(*s)
	return &v
}
