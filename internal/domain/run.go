package domain

import "time"

// RunState tracks where a pipeline run is. Normalization and fetch failures
// produce no report, so they have no state here.
type RunState string

const (
	StateFetching           RunState = "fetching"
	StateDeduplicating      RunState = "deduplicating"
	StateClassifying        RunState = "classifying"
	StatePersisting         RunState = "persisting"
	StateDone               RunState = "done"
	StatePartiallyCompleted RunState = "partially_completed"
)

// Stage names where an item-level failure happened.
type Stage string

const (
	StageClassify Stage = "classify"
	StagePersist  Stage = "persist"
)

// ItemFailure is a per-candidate failure reported alongside the aggregate.
type ItemFailure struct {
	URL    string `json:"url"`
	Title  string `json:"title"`
	Stage  Stage  `json:"stage"`
	Reason string `json:"reason"`
}

// RunReport holds everything a single run produced.
type RunReport struct {
	RunID           string          `json:"run_id"`
	Query           Query           `json:"-"`
	Outcome         RunState        `json:"outcome"`
	Aggregate       AggregateResult `json:"aggregate"`
	Records         []ScoredRecord  `json:"-"`
	Failures        []ItemFailure   `json:"failures"`
	Fetched         int             `json:"fetched"`
	Duplicates      int             `json:"duplicates"`
	Inserted        int             `json:"inserted"`
	InsertedURLs    []string        `json:"inserted_urls,omitempty"`
	AlreadyExisting int             `json:"already_existing"`
	StorageFailed   bool            `json:"storage_failed"`
	StartedAt       time.Time       `json:"started_at"`
	Duration        time.Duration   `json:"duration"`
}

// HistoryFilter narrows historical reads. Zero values mean no filter.
type HistoryFilter struct {
	Keyword string
	Label   Label
	From    time.Time
	To      time.Time
	Limit   int
}

// LabelStats is the per-label slice of HistoricalStats.
type LabelStats struct {
	Count        int     `json:"count" db:"count"`
	AverageScore float64 `json:"avg_score" db:"avg_score"`
}

// HistoricalStats aggregates stored records, as opposed to AggregateResult which only
// covers one run.
type HistoricalStats struct {
	Total        int                  `json:"total_news"`
	AverageScore float64              `json:"overall_avg_score"`
	PerLabel     map[Label]LabelStats `json:"per_label"`
}
