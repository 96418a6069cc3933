// Package whisper wraps the transcription API used by the transcribe stage.
package whisper

import (
	"context"
	"fmt"
	"strings"

	"loom/internal/config"
	"loom/internal/services"
	"loom/internal/services/remote"
)

// Transcript is the transcription result for one video.
type Transcript struct {
	VideoID         string  `json:"video_id"`
	Language        string  `json:"language"`
	DurationSeconds float64 `json:"duration_seconds"`
	Text            string  `json:"text"`
}

// Client requests transcriptions.
type Client struct {
	caller *remote.Caller
}

// NewClient constructs a client from dependency configuration.
func NewClient(cfg config.Dependency, opts ...remote.Option) *Client {
	opts = append([]remote.Option{remote.WithTimeout(cfg.Timeout())}, opts...)
	return &Client{caller: remote.New(cfg.BaseURL, cfg.APIKey, opts...)}
}

type transcribeRequest struct {
	VideoID   string `json:"video_id"`
	SourceURL string `json:"source_url,omitempty"`
}

// Transcribe runs speech-to-text over a video's audio track. Long videos make
// this the slowest stage, so callers should budget generous timeouts.
func (c *Client) Transcribe(ctx context.Context, videoID, sourceURL string) (*Transcript, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, fmt.Errorf("%w: video id required", services.ErrValidation)
	}
	var transcript Transcript
	req := transcribeRequest{VideoID: videoID, SourceURL: sourceURL}
	if err := c.caller.PostJSON(ctx, "/transcribe", req, &transcript); err != nil {
		return nil, fmt.Errorf("whisper transcribe: %w", err)
	}
	if strings.TrimSpace(transcript.Text) == "" {
		return nil, fmt.Errorf("whisper transcribe: %w: empty transcript in response", services.ErrValidation)
	}
	if transcript.VideoID == "" {
		transcript.VideoID = videoID
	}
	return &transcript, nil
}
