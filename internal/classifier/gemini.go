package classifier

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

type Gemini struct {
	client      *genai.Client
	model       string
	temperature float64
	maxTokens   int
}

func NewGemini(ctx context.Context, opts Options) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  opts.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}

	return &Gemini{
		client:      client,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
	}, nil
}

func (c *Gemini) Name() string {
	return "gemini"
}

func (c *Gemini) Complete(ctx context.Context, p Prompt) (string, error) {
	resp, err := c.client.Models.GenerateContent(ctx, c.model, genai.Text(p.User), &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{{Text: p.System}},
		},
		Temperature:      genai.Ptr(float32(c.temperature)),
		MaxOutputTokens:  int32(c.maxTokens),
		ResponseMIMEType: "application/json",
		ResponseSchema:   responseSchema(),
	})
	if err != nil {
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return "", fmt.Errorf("no response from gemini")
	}
	return text, nil
}

func responseSchema() *genai.Schema {
	return &genai.Schema{
		Type: genai.TypeObject,
		Properties: map[string]*genai.Schema{
			"sentiment_score": {Type: genai.TypeNumber, Description: "Sentiment between 0 (very negative) and 5 (very positive)."},
			"sentiment_label": {Type: genai.TypeString, Enum: []string{"positive", "neutral", "negative"}},
			"reasoning":       {Type: genai.TypeString, Description: "One short sentence."},
		},
		Required: []string{"sentiment_score"},
	}
}
