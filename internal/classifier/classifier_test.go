package classifier

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"news_sentiment/internal/domain"
)

type fakeLLM struct {
	response string
	err      error
	delay    time.Duration
	prompts  []Prompt
}

func (f *fakeLLM) Name() string { return "fake" }

func (f *fakeLLM) Complete(ctx context.Context, p Prompt) (string, error) {
	f.prompts = append(f.prompts, p)
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.response, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr(s string) *string { return &s }

func TestClassify_Success(t *testing.T) {
	llm := &fakeLLM{response: `{"sentiment_score": 4.5, "sentiment_label": "positive", "reasoning": "growth"}`}
	c := New(llm, time.Second, discardLogger())

	cls, err := c.Classify(context.Background(), domain.Candidate{
		URL:         "https://example.com/a",
		Title:       "La economía crece",
		Description: ptr("Datos del trimestre"),
	})
	require.NoError(t, err)

	assert.Equal(t, 4.5, cls.Score)
	assert.Equal(t, "positive", cls.LabelHint)
	require.Len(t, llm.prompts, 1)
	assert.Equal(t, systemPrompt, llm.prompts[0].System)
	assert.Equal(t, "Headline: La economía crece\nDescription: Datos del trimestre", llm.prompts[0].User)
}

func TestClassify_TitleOnlyPrompt(t *testing.T) {
	llm := &fakeLLM{response: "2"}
	c := New(llm, time.Second, discardLogger())

	_, err := c.Classify(context.Background(), domain.Candidate{Title: "Sin descripción"})
	require.NoError(t, err)
	assert.Equal(t, "Headline: Sin descripción", llm.prompts[0].User)
}

func TestClassify_BackendError(t *testing.T) {
	c := New(&fakeLLM{err: errors.New("boom")}, time.Second, discardLogger())

	_, err := c.Classify(context.Background(), domain.Candidate{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrClassificationFailed)
	assert.Contains(t, err.Error(), "boom")
}

func TestClassify_Malformed(t *testing.T) {
	c := New(&fakeLLM{response: "I cannot rate this."}, time.Second, discardLogger())

	_, err := c.Classify(context.Background(), domain.Candidate{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrClassificationFailed)
}

func TestClassify_Timeout(t *testing.T) {
	c := New(&fakeLLM{response: "3", delay: time.Second}, 10*time.Millisecond, discardLogger())

	start := time.Now()
	_, err := c.Classify(context.Background(), domain.Candidate{Title: "x"})
	assert.ErrorIs(t, err, domain.ErrClassificationFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestTruncate_KeepsRunesWhole(t *testing.T) {
	assert.Equal(t, "corto", truncate("corto", 10))
	assert.Equal(t, "añ...", truncate("añoñoño", 2))
	assert.Equal(t, "ñññ...", truncate("ññññ", 3))
	assert.True(t, utf8.ValidString(truncate("€€€€€", 1)))
}
