package classifier

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"news_sentiment/internal/domain"
)

type modelAnswer struct {
	SentimentScore *flexFloat `json:"sentiment_score"`
	Score          *flexFloat `json:"score"`
	SentimentLabel string     `json:"sentiment_label"`
	Reasoning      string     `json:"reasoning"`
}

// flexFloat accepts both 3.5 and "3.5".
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if unquoted, err := strconv.Unquote(raw); err == nil {
		raw = strings.TrimSpace(unquoted)
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("score %s is not a number", string(b))
	}
	*f = flexFloat(v)
	return nil
}

// ParseResponse turns raw model output into a Classification. It accepts a JSON
// object carrying sentiment_score (optionally wrapped in code fences or prose) or a
// bare number. Everything else is ErrClassificationFailed. The score is clamped.
func ParseResponse(text string) (domain.Classification, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return domain.Classification{}, fmt.Errorf("%w: empty response", domain.ErrClassificationFailed)
	}

	if v, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return finish(v, "", "")
	}

	content := cleanJSONResponse(trimmed)

	var answer modelAnswer
	if err := json.Unmarshal([]byte(content), &answer); err != nil {
		return domain.Classification{}, fmt.Errorf("%w: parse response: %w", domain.ErrClassificationFailed, err)
	}

	score := answer.SentimentScore
	if score == nil {
		score = answer.Score
	}
	if score == nil {
		return domain.Classification{}, fmt.Errorf("%w: response has no sentiment_score", domain.ErrClassificationFailed)
	}

	return finish(float64(*score), answer.SentimentLabel, answer.Reasoning)
}

func finish(score float64, hint, rationale string) (domain.Classification, error) {
	if math.IsNaN(score) || math.IsInf(score, 0) {
		return domain.Classification{}, fmt.Errorf("%w: score is not finite", domain.ErrClassificationFailed)
	}
	return domain.Classification{
		Score:     domain.ClampScore(score),
		LabelHint: strings.ToLower(strings.TrimSpace(hint)),
		Rationale: strings.TrimSpace(rationale),
	}, nil
}

func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")
	content = strings.TrimSpace(content)

	// Models sometimes wrap the object in prose.
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		content = content[start : end+1]
	}
	return content
}
