package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_sentiment/internal/domain"
)

func TestParseResponse_Accepts(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantScore float64
		wantHint  string
	}{
		{
			name:      "plain JSON",
			input:     `{"sentiment_score": 4.2, "sentiment_label": "positive", "reasoning": "good news"}`,
			wantScore: 4.2,
			wantHint:  "positive",
		},
		{
			name:      "fenced JSON",
			input:     "```json\n{\"sentiment_score\": 1.0, \"sentiment_label\": \"Negative\"}\n```",
			wantScore: 1.0,
			wantHint:  "negative",
		},
		{
			name:      "prose around JSON",
			input:     "Here is my analysis: {\"sentiment_score\": 2.5} Hope it helps.",
			wantScore: 2.5,
		},
		{
			name:      "score as string",
			input:     `{"sentiment_score": "3.1"}`,
			wantScore: 3.1,
		},
		{
			name:      "short score key",
			input:     `{"score": 0.5}`,
			wantScore: 0.5,
		},
		{
			name:      "bare number",
			input:     " 3.75\n",
			wantScore: 3.75,
		},
		{
			name:      "out of range high is clamped",
			input:     `{"sentiment_score": 8}`,
			wantScore: 5,
		},
		{
			name:      "out of range low is clamped",
			input:     "-1.5",
			wantScore: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cls, err := ParseResponse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, cls.Score)
			assert.Equal(t, tt.wantHint, cls.LabelHint)
		})
	}
}

func TestParseResponse_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", "   "},
		{"prose only", "The headline is fairly positive, maybe a four."},
		{"missing score", `{"sentiment_label": "positive"}`},
		{"null score", `{"sentiment_score": null}`},
		{"non numeric score", `{"sentiment_score": "high"}`},
		{"not a number", "NaN"},
		{"infinite", "+Inf"},
		{"broken JSON", `{"sentiment_score": 3.`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseResponse(tt.input)
			assert.ErrorIs(t, err, domain.ErrClassificationFailed)
		})
	}
}

func TestParseResponse_KeepsRationale(t *testing.T) {
	cls, err := ParseResponse(`{"sentiment_score": 4, "reasoning": "  record profits  "}`)
	require.NoError(t, err)
	assert.Equal(t, "record profits", cls.Rationale)
}

func TestCleanJSONResponse(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain JSON unchanged", `{"a":1}`, `{"a":1}`},
		{"strips json fenced block", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"strips plain fenced block", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"trims surrounding whitespace", "  {\"a\":1}  ", `{"a":1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSONResponse(tt.input))
		})
	}
}
