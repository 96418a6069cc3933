// Package gemini wraps the Gemini content-analysis API.
package gemini

import (
	"context"
	"fmt"
	"strings"

	"loom/internal/config"
	"loom/internal/services"
	"loom/internal/services/remote"
)

// Analysis captures the JSON payload returned by Gemini.
type Analysis struct {
	Summary   string   `json:"summary"`
	Topics    []string `json:"topics"`
	Sentiment string   `json:"sentiment"`
	Model     string   `json:"model"`
}

// Client requests content analysis.
type Client struct {
	caller *remote.Caller
}

// NewClient constructs a client from dependency configuration.
func NewClient(cfg config.Dependency, opts ...remote.Option) *Client {
	opts = append([]remote.Option{remote.WithTimeout(cfg.Timeout())}, opts...)
	return &Client{caller: remote.New(cfg.BaseURL, cfg.APIKey, opts...)}
}

type analyzeRequest struct {
	VideoID    string `json:"video_id"`
	Title      string `json:"title,omitempty"`
	Transcript string `json:"transcript"`
}

// Analyze asks Gemini to summarize a transcript.
func (c *Client) Analyze(ctx context.Context, videoID, title, transcript string) (*Analysis, error) {
	if strings.TrimSpace(transcript) == "" {
		return nil, fmt.Errorf("%w: transcript required", services.ErrValidation)
	}
	var analysis Analysis
	req := analyzeRequest{VideoID: videoID, Title: title, Transcript: transcript}
	if err := c.caller.PostJSON(ctx, "/v1/analyze", req, &analysis); err != nil {
		return nil, fmt.Errorf("gemini analyze: %w", err)
	}
	if strings.TrimSpace(analysis.Summary) == "" {
		return nil, fmt.Errorf("gemini analyze: %w: empty summary in response", services.ErrValidation)
	}
	return &analysis, nil
}
