package domain

import "math"

type Label string

const (
	LabelPositive Label = "positive"
	LabelNeutral  Label = "neutral"
	LabelNegative Label = "negative"
)

const (
	MinScore = 0.0
	MaxScore = 5.0

	negativeUpperBound = 1.5
	neutralUpperBound  = 3.4
)

// Valid reports whether l is one of the three stored labels.
func (l Label) Valid() bool {
	switch l {
	case LabelPositive, LabelNeutral, LabelNegative:
		return true
	}
	return false
}

// LabelForScore is the only place a label is assigned:
// score <= 1.5 is negative, score <= 3.4 is neutral, anything above is positive.
func LabelForScore(score float64) Label {
	switch {
	case score <= negativeUpperBound:
		return LabelNegative
	case score <= neutralUpperBound:
		return LabelNeutral
	default:
		return LabelPositive
	}
}

// ClampScore forces a score into [0,5].
func ClampScore(score float64) float64 {
	return math.Max(MinScore, math.Min(MaxScore, score))
}

// StoredScore clamps and rounds to the 4 decimals kept by sentiment_score, so the
// label derived from it matches the stored row.
func StoredScore(score float64) float64 {
	return math.Round(ClampScore(score)*1e4) / 1e4
}

// Classification is the validated output of the language model for one candidate.
// LabelHint and Rationale are informational only.
type Classification struct {
	Score     float64 `json:"score"`
	LabelHint string  `json:"label_hint,omitempty"`
	Rationale string  `json:"rationale,omitempty"`
}
