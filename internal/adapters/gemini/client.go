package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"google.golang.org/genai"

	"startrip/internal/adapters/observability"
)

const DefaultModel = "gemini-2.0-flash"

// Client is a domain.TextGenerator over the Gemini API.
type Client struct {
	cli   *genai.Client
	model string
}

func New(ctx context.Context, apiKey, model string) (*Client, error) {
	return newClient(ctx, apiKey, model, genai.HTTPOptions{})
}

func newClient(ctx context.Context, apiKey, model string, httpOpts genai.HTTPOptions) (*Client, error) {
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}
	if model == "" {
		model = DefaultModel
	}
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPOptions: httpOpts,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &Client{cli: cli, model: model}, nil
}

// Generate asks for a JSON answer and returns the concatenated text parts.
func (c *Client) Generate(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	resp, err := c.cli.Models.GenerateContent(ctx, c.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.5),
		ResponseMIMEType: "application/json",
	})
	status := 200
	if err != nil {
		status = 0
	}
	observability.ObserveExternal("gemini", c.model, status, time.Since(start))
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("empty model response")
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}
