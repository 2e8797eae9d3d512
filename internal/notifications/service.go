package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"tomopipe/internal/config"
)

const userAgent = "tomopipe/0.1.0"

// Service defines the notification surface exposed to pipeline components.
type Service interface {
	NotifyRunStarted(ctx context.Context, kind string, count int) error
	NotifyDatasetFailed(ctx context.Context, dataset, detail string) error
	NotifyRunCompleted(ctx context.Context, kind string, completed, failed, skipped int, duration time.Duration) error
	NotifyDenoiseHandoff(ctx context.Context, root string) error
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
		endpoint:  topic,
		client:    &http.Client{Timeout: timeout},
		runEvents: cfg.Notifications.RunEvents,
		errors:    cfg.Notifications.Errors,
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint  string
	client    *http.Client
	runEvents bool
	errors    bool
}

func (n *ntfyService) NotifyRunStarted(ctx context.Context, kind string, count int) error {
	if !n.runEvents {
		return nil
	}
	kind = strings.TrimSpace(kind)
	data := payload{
		title:   "Tomopipe - Run Started",
		message: fmt.Sprintf("🔬 Started %s run over %d datasets", kind, count),
		tags:    []string{"tomopipe", kind, "started"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDatasetFailed(ctx context.Context, dataset, detail string) error {
	if !n.errors {
		return nil
	}
	dataset = strings.TrimSpace(dataset)
	message := fmt.Sprintf("❌ Dataset failed: %s", dataset)
	if detail = strings.TrimSpace(detail); detail != "" {
		message = fmt.Sprintf("%s\n%s", message, detail)
	}
	data := payload{
		title:    "Tomopipe - Dataset Failed",
		message:  message,
		tags:     []string{"tomopipe", "dataset", "failed"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, kind string, completed, failed, skipped int, duration time.Duration) error {
	if !n.runEvents {
		return nil
	}
	kind = strings.TrimSpace(kind)

	duration = duration.Round(time.Second)
	if duration < 0 {
		duration = 0
	}
	durationText := duration.String()
	if duration == 0 {
		durationText = "0s"
	}

	var title string
	var message string
	var priority string
	if failed == 0 {
		title = "Tomopipe - Run Complete"
		message = fmt.Sprintf("✅ %s run complete: %d completed, %d skipped in %s", kind, completed, skipped, durationText)
	} else {
		title = "Tomopipe - Run Complete (with errors)"
		message = fmt.Sprintf("%s run complete: %d completed, %d failed, %d skipped in %s", kind, completed, failed, skipped, durationText)
		priority = "high"
	}

	data := payload{
		title:    title,
		message:  message,
		tags:     []string{"tomopipe", kind, "completed"},
		priority: priority,
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyDenoiseHandoff(ctx context.Context, root string) error {
	if !n.runEvents {
		return nil
	}
	root = strings.TrimSpace(root)
	data := payload{
		title:   "Tomopipe - Denoising Queued",
		message: fmt.Sprintf("🧠 Denoising handed off for %s", root),
		tags:    []string{"tomopipe", "denoise", "queued"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	if !n.errors {
		return nil
	}
	var builder strings.Builder
	builder.WriteString("❌ Error")
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
		title:    "Tomopipe - Error",
		message:  builder.String(),
		tags:     []string{"tomopipe", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "Tomopipe - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"tomopipe", "test"},
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

func (noopService) NotifyRunStarted(context.Context, string, int) error { return nil }
func (noopService) NotifyDatasetFailed(context.Context, string, string) error {
	return nil
}
func (noopService) NotifyRunCompleted(context.Context, string, int, int, int, time.Duration) error {
	return nil
}
func (noopService) NotifyDenoiseHandoff(context.Context, string) error { return nil }
func (noopService) NotifyError(context.Context, error, string) error   { return nil }
func (noopService) TestNotification(context.Context) error             { return nil }
