// Package youtube wraps the YouTube metadata API used by the extract stage.
package youtube

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"loom/internal/config"
	"loom/internal/services"
	"loom/internal/services/remote"
)

// VideoMetadata captures the fields the pipeline needs from a video record.
type VideoMetadata struct {
	VideoID         string `json:"video_id"`
	Title           string `json:"title"`
	Channel         string `json:"channel"`
	DurationSeconds int    `json:"duration_seconds"`
	PublishedAt     string `json:"published_at"`
	Description     string `json:"description"`
}

// Client fetches video metadata.
type Client struct {
	caller *remote.Caller
}

// NewClient constructs a client from dependency configuration.
func NewClient(cfg config.Dependency, opts ...remote.Option) *Client {
	opts = append([]remote.Option{remote.WithTimeout(cfg.Timeout())}, opts...)
	return &Client{caller: remote.New(cfg.BaseURL, cfg.APIKey, opts...)}
}

// Metadata fetches the metadata record for a video.
func (c *Client) Metadata(ctx context.Context, videoID string) (*VideoMetadata, error) {
	videoID = strings.TrimSpace(videoID)
	if videoID == "" {
		return nil, fmt.Errorf("%w: video id required", services.ErrValidation)
	}
	var meta VideoMetadata
	query := url.Values{"part": []string{"snippet,contentDetails"}}
	if err := c.caller.GetJSON(ctx, "/videos/"+url.PathEscape(videoID), query, &meta); err != nil {
		return nil, fmt.Errorf("youtube metadata: %w", err)
	}
	if meta.VideoID == "" {
		meta.VideoID = videoID
	}
	meta.Title = NormalizeTitle(meta.Title)
	if meta.Title == "" {
		return nil, fmt.Errorf("youtube metadata: %w: empty title in response", services.ErrValidation)
	}
	return &meta, nil
}
