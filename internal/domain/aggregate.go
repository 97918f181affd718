package domain

import (
	"math"
	"time"
)

// Distribution counts records per label.
type Distribution struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

func (d *Distribution) add(l Label) {
	switch l {
	case LabelPositive:
		d.Positive++
	case LabelNeutral:
		d.Neutral++
	case LabelNegative:
		d.Negative++
	}
}

// AggregateResult summarizes one run. It is never persisted.
type AggregateResult struct {
	Query            string       `json:"query"`
	NewsAnalyzed     int          `json:"news_analyzed"`
	AverageSentiment float64      `json:"average_sentiment"`
	Distribution     Distribution `json:"sentiment_distribution"`
	Skipped          int          `json:"skipped"`
	Timestamp        time.Time    `json:"timestamp"`
}

// Aggregate computes the per-run summary over successfully scored records only.
func Aggregate(q Query, records []ScoredRecord, skipped int, now time.Time) AggregateResult {
	res := AggregateResult{
		Query:        q.Keyword,
		NewsAnalyzed: len(records),
		Skipped:      skipped,
		Timestamp:    now,
	}
	if len(records) == 0 {
		return res
	}

	var sum float64
	for _, r := range records {
		sum += r.SentimentScore
		res.Distribution.add(r.SentimentLabel)
	}
	res.AverageSentiment = Round2(sum / float64(len(records)))
	return res
}

// Round2 rounds to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
