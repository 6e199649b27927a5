package notify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	slackapi "github.com/slack-go/slack"
)

// maxRetries is the max number of retries for rate-limited chat API calls.
const maxRetries = 3

// webhookPoster abstracts slackapi.PostWebhookContext, enabling test mocks.
type webhookPoster func(ctx context.Context, url string, msg *slackapi.WebhookMessage) error

// Slack posts notices to a Slack incoming webhook.
type Slack struct {
	url  string
	post webhookPoster
}

// NewSlack creates a Slack webhook sender.
func NewSlack(webhookURL string) (*Slack, error) {
	if webhookURL == "" {
		return nil, fmt.Errorf("slack: webhook url is required")
	}
	return &Slack{url: webhookURL, post: slackapi.PostWebhookContext}, nil
}

// Send posts msg's body to the webhook.
func (s *Slack) Send(ctx context.Context, msg Message) error {
	wm := &slackapi.WebhookMessage{Text: msg.Body}
	err := retryOnRateLimit(ctx, func() error {
		return s.post(ctx, s.url, wm)
	})
	if err != nil {
		return fmt.Errorf("slack: post webhook: %w", err)
	}
	return nil
}

// retryOnRateLimit calls fn and retries with exponential backoff on Slack
// rate limit errors. It respects context cancellation.
func retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var rle *slackapi.RateLimitedError
		if !errors.As(err, &rle) {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		wait := rle.RetryAfter
		if wait <= 0 {
			wait = time.Duration(math.Pow(2, float64(attempt))) * time.Second
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}
