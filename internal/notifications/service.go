package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"loom/internal/config"
)

const userAgent = "Loom-Go/0.1.0"

// Service defines the notification surface exposed to daemon components.
type Service interface {
	NotifyJobCompleted(ctx context.Context, videoID, title string) error
	NotifyJobPartialFailure(ctx context.Context, videoID, detail string) error
	NotifyJobFailed(ctx context.Context, videoID, detail string) error
	NotifyJobCancelled(ctx context.Context, videoID, reason string) error
	NotifyBreakerOpened(ctx context.Context, dependency string) error
	NotifyBreakerClosed(ctx context.Context, dependency string) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyJobCompleted(ctx context.Context, videoID, title string) error {
	videoID = strings.TrimSpace(videoID)
	message := fmt.Sprintf("Analysis complete: %s", videoID)
	if title = strings.TrimSpace(title); title != "" {
		message = fmt.Sprintf("Analysis complete: %s (%s)", title, videoID)
	}
	data := payload{
		title:   "Loom - Job Complete",
		message: message,
		tags:    []string{"loom", "job", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobPartialFailure(ctx context.Context, videoID, detail string) error {
	videoID = strings.TrimSpace(videoID)
	message := fmt.Sprintf("Analysis finished with degraded results: %s", videoID)
	if detail = strings.TrimSpace(detail); detail != "" {
		message = fmt.Sprintf("%s\n%s", message, detail)
	}
	data := payload{
		title:   "Loom - Partial Failure",
		message: message,
		tags:    []string{"loom", "job", "partial"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobFailed(ctx context.Context, videoID, detail string) error {
	videoID = strings.TrimSpace(videoID)
	message := fmt.Sprintf("Analysis failed: %s", videoID)
	if detail = strings.TrimSpace(detail); detail != "" {
		message = fmt.Sprintf("%s\n%s", message, detail)
	}
	data := payload{
		title:    "Loom - Job Failed",
		message:  message,
		tags:     []string{"loom", "job", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyJobCancelled(ctx context.Context, videoID, reason string) error {
	videoID = strings.TrimSpace(videoID)
	message := fmt.Sprintf("Analysis cancelled: %s", videoID)
	if reason = strings.TrimSpace(reason); reason != "" {
		message = fmt.Sprintf("%s (%s)", message, reason)
	}
	data := payload{
		title:   "Loom - Job Cancelled",
		message: message,
		tags:    []string{"loom", "job", "cancelled"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBreakerOpened(ctx context.Context, dependency string) error {
	dependency = strings.TrimSpace(dependency)
	data := payload{
		title:    "Loom - Circuit Open",
		message:  fmt.Sprintf("Dependency %s is failing; calls are suspended", dependency),
		tags:     []string{"loom", "breaker", "open"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyBreakerClosed(ctx context.Context, dependency string) error {
	dependency = strings.TrimSpace(dependency)
	data := payload{
		title:   "Loom - Circuit Closed",
		message: fmt.Sprintf("Dependency %s recovered; calls resumed", dependency),
		tags:    []string{"loom", "breaker", "closed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" with ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "Loom - Error",
		message:  builder.String(),
		tags:     []string{"loom", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Loom - Test",
		message:  "Notification system test",
		tags:     []string{"loom", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

type noopService struct{}

func (noopService) NotifyJobCompleted(context.Context, string, string) error      { return nil }
func (noopService) NotifyJobPartialFailure(context.Context, string, string) error { return nil }
func (noopService) NotifyJobFailed(context.Context, string, string) error         { return nil }
func (noopService) NotifyJobCancelled(context.Context, string, string) error      { return nil }
func (noopService) NotifyBreakerOpened(context.Context, string) error             { return nil }
func (noopService) NotifyBreakerClosed(context.Context, string) error             { return nil }
func (noopService) NotifyError(context.Context, error, string) error              { return nil }
func (noopService) TestNotification(context.Context) error                        { return nil }
