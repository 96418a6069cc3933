// Package openai wraps the OpenAI content-analysis API.
package openai

import (
	"context"
	"fmt"
	"strings"

	"loom/internal/config"
	"loom/internal/services"
	"loom/internal/services/remote"
)

const defaultModel = "gpt-4o-mini"

// Analysis captures the JSON payload returned by OpenAI.
type Analysis struct {
	Summary   string   `json:"summary"`
	Topics    []string `json:"topics"`
	Sentiment string   `json:"sentiment"`
	Model     string   `json:"model"`
}

// Client requests content analysis.
type Client struct {
	caller *remote.Caller
	model  string
}

// Option customizes the client.
type Option func(*Client)

// WithModel overrides the default completion model.
func WithModel(model string) Option {
	return func(c *Client) {
		model = strings.TrimSpace(model)
		if model != "" {
			c.model = model
		}
	}
}

// NewClient constructs a client from dependency configuration.
func NewClient(cfg config.Dependency, callerOpts []remote.Option, opts ...Option) *Client {
	callerOpts = append([]remote.Option{remote.WithTimeout(cfg.Timeout())}, callerOpts...)
	client := &Client{
		caller: remote.New(cfg.BaseURL, cfg.APIKey, callerOpts...),
		model:  defaultModel,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type analyzeRequest struct {
	Model      string `json:"model"`
	VideoID    string `json:"video_id"`
	Title      string `json:"title,omitempty"`
	Transcript string `json:"transcript"`
}

// Analyze asks OpenAI to summarize a transcript.
func (c *Client) Analyze(ctx context.Context, videoID, title, transcript string) (*Analysis, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("%w: transcript required", services.ErrValidation)
	}
	var analysis Analysis
	req := analyzeRequest{Model: c.model, VideoID: videoID, Title: title, Transcript: transcript}
	if err := c.caller.PostJSON(ctx, "/v1/analyze", req, &analysis); err != nil {
		return nil, fmt.Errorf("openai analyze: %w", err)
	}
	if strings.TrimSpace(analysis.Summary) == "" {
		return nil, fmt.Errorf("openai analyze: %w: empty summary in response", services.ErrValidation)
	}
	if analysis.Model == "" {
		analysis.Model = c.model
	}
	return &analysis, nil
}
