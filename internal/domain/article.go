package domain

import "time"

// Candidate is one article as returned by the news provider, before deduplication.
type Candidate struct {
	URL         string
	Title       string
	Description *string
	Content     *string
	Source      *string
	Author      *string
	PublishedAt time.Time
	Language    *string
}

// ScoredRecord is the persisted unit. URLKey is the canonical form of URL and is
// unique across all keywords.
type ScoredRecord struct {
	ID             int64     `db:"id" json:"id,omitempty"`
	URL            string    `db:"url" json:"url"`
	URLKey         string    `db:"url_key" json:"-"`
	Keyword        string    `db:"keyword" json:"keyword"`
	Title          string    `db:"title" json:"title"`
	Description    *string   `db:"description" json:"description,omitempty"`
	Content        *string   `db:"content" json:"content,omitempty"`
	Source         *string   `db:"source" json:"source,omitempty"`
	Author         *string   `db:"author" json:"author,omitempty"`
	PublishedAt    time.Time `db:"published_at" json:"published_at"`
	Language       *string   `db:"language" json:"language,omitempty"`
	SentimentScore float64   `db:"sentiment_score" json:"sentiment_score"`
	SentimentLabel Label     `db:"sentiment_label" json:"sentiment_label"`
	FetchedAt      time.Time `db:"fetched_at" json:"fetched_at"`
}

// NewScoredRecord builds the record for a classified candidate. The label is always
// derived from the stored form of the score.
func NewScoredRecord(q Query, c Candidate, score float64, fetchedAt time.Time) ScoredRecord {
	score = StoredScore(score)
	return ScoredRecord{
		URL:            c.URL,
		URLKey:         CanonicalURL(c.URL),
		Keyword:        q.Keyword,
		Title:          c.Title,
		Description:    c.Description,
		Content:        c.Content,
		Source:         c.Source,
		Author:         c.Author,
		PublishedAt:    c.PublishedAt,
		Language:       c.Language,
		SentimentScore: score,
		SentimentLabel: LabelForScore(score),
		FetchedAt:      fetchedAt,
	}
}

// UpsertOutcome reports what an idempotent insert did.
type UpsertOutcome string

const (
	Inserted      UpsertOutcome = "inserted"
	AlreadyExists UpsertOutcome = "already_exists"
)
