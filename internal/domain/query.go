package domain

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// QueryInput is the raw caller input. Zero overrides fall back to the limits' defaults.
type QueryInput struct {
	Raw          string
	LookbackDays int
	MaxResults   int
}

// QueryLimits bounds what a caller may ask for.
type QueryLimits struct {
	MaxLength           int
	DefaultLookbackDays int
	MaxLookbackDays     int
	DefaultMaxResults   int
	MaxMaxResults       int
}

// Query is the normalized input of one pipeline run. Keyword keeps the caller's
// casing; stores compare it case-insensitively.
type Query struct {
	Raw          string
	Keyword      string
	LookbackDays int
	MaxResults   int
}

// NormalizeQuery trims and collapses whitespace, rejects empty or oversized input
// and resolves the lookback window and result cap.
func NormalizeQuery(in QueryInput, limits QueryLimits) (Query, error) {
	keyword := strings.Join(strings.Fields(in.Raw), " ")
	if keyword == "" {
		return Query{}, fmt.Errorf("%w: empty keyword", ErrInvalidQuery)
	}
	if limits.MaxLength > 0 && utf8.RuneCountInString(keyword) > limits.MaxLength {
		return Query{}, fmt.Errorf("%w: keyword longer than %d characters", ErrInvalidQuery, limits.MaxLength)
	}

	lookback, err := resolveBound("lookback_days", in.LookbackDays, limits.DefaultLookbackDays, limits.MaxLookbackDays)
	if err != nil {
		return Query{}, err
	}
	maxResults, err := resolveBound("max_results", in.MaxResults, limits.DefaultMaxResults, limits.MaxMaxResults)
	if err != nil {
		return Query{}, err
	}

	return Query{
		Raw:          in.Raw,
		Keyword:      keyword,
		LookbackDays: lookback,
		MaxResults:   maxResults,
	}, nil
}

func resolveBound(name string, value, def, max int) (int, error) {
	if value == 0 {
		value = def
	}
	if value <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidQuery, name)
	}
	if max > 0 && value > max {
		return 0, fmt.Errorf("%w: %s must not exceed %d", ErrInvalidQuery, name, max)
	}
	return value, nil
}
