package classifier

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"news_sentiment/internal/domain"
)

const systemPrompt = `You are a news sentiment analyst. You receive one news headline, optionally with a short description, in any language.

Rate the sentiment the headline conveys on a scale from 0 to 5:
- 0-1: very negative
- 1-2: negative
- 2-3: neutral
- 3-4: positive
- 4-5: very positive

Respond with JSON only, no other text:
{
  "sentiment_score": <number between 0 and 5>,
  "sentiment_label": "positive|neutral|negative",
  "reasoning": "one short sentence"
}`

// Prompt is a single-turn request to a language model.
type Prompt struct {
	System string
	User   string
}

// LLM is a language model backend that answers one prompt with raw text.
type LLM interface {
	Name() string
	Complete(ctx context.Context, p Prompt) (string, error)
}

// Classifier scores one candidate per call against an LLM backend.
type Classifier struct {
	llm     LLM
	timeout time.Duration
	logger  *slog.Logger
}

func New(llm LLM, timeout time.Duration, logger *slog.Logger) *Classifier {
	return &Classifier{
		llm:     llm,
		timeout: timeout,
		logger:  logger.With("component", "classifier", "backend", llm.Name()),
	}
}

// Classify asks the model for a score for c. Any transport, timeout or parse problem
// is returned wrapped in domain.ErrClassificationFailed.
func (c *Classifier) Classify(ctx context.Context, candidate domain.Candidate) (domain.Classification, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	text, err := c.llm.Complete(ctx, Prompt{System: systemPrompt, User: userPrompt(candidate)})
	if err != nil {
		return domain.Classification{}, fmt.Errorf("%w: %s: %w", domain.ErrClassificationFailed, c.llm.Name(), err)
	}

	cls, err := ParseResponse(text)
	if err != nil {
		c.logger.Debug("unparseable model response", "url", candidate.URL, "response", truncate(text, 200))
		return domain.Classification{}, err
	}

	c.logger.Debug("classified headline",
		"url", candidate.URL,
		"score", cls.Score,
		"label_hint", cls.LabelHint,
		"rationale", cls.Rationale,
	)

	return cls, nil
}

func userPrompt(c domain.Candidate) string {
	var sb strings.Builder
	sb.WriteString("Headline: ")
	sb.WriteString(c.Title)
	if c.Description != nil && *c.Description != "" {
		sb.WriteString("\nDescription: ")
		sb.WriteString(*c.Description)
	}
	return sb.String()
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
