package notify

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/NBMedia786/chabot/internal/logging"
)

// webhookExecutor abstracts the discordgo.Session method we use, enabling
// test mocks.
type webhookExecutor interface {
	WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// Discord posts notices to a Discord channel webhook.
type Discord struct {
	id    string
	token string
	sess  webhookExecutor

	baseBackoff time.Duration
	maxBackoff  time.Duration
}

// NewDiscord creates a Discord webhook sender.
func NewDiscord(webhookID, webhookToken string) (*Discord, error) {
	if webhookID == "" || webhookToken == "" {
		return nil, fmt.Errorf("discord: webhook id and token are required")
	}
	// Webhook execution is authenticated by the token in the URL.
	sess, err := discordgo.New("")
	if err != nil {
		return nil, fmt.Errorf("discord: create session: %w", err)
	}
	return &Discord{
		id:          webhookID,
		token:       webhookToken,
		sess:        sess,
		baseBackoff: time.Second,
		maxBackoff:  30 * time.Second,
	}, nil
}

// Send executes the webhook with msg's body.
func (d *Discord) Send(ctx context.Context, msg Message) error {
	params := &discordgo.WebhookParams{
		Content:  msg.Body,
		Username: "AI Voice Coach",
	}
	err := d.retryOnRateLimit(ctx, func() error {
		_, err := d.sess.WebhookExecute(d.id, d.token, false, params, discordgo.WithContext(ctx))
		return err
	})
	if err != nil {
		return fmt.Errorf("discord: execute webhook: %w", err)
	}
	return nil
}

// retryOnRateLimit calls fn and retries with exponential backoff while
// Discord answers 429.
func (d *Discord) retryOnRateLimit(ctx context.Context, fn func() error) error {
	for attempt := 0; attempt <= maxRetries; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}

		var restErr *discordgo.RESTError
		if !errors.As(err, &restErr) || restErr.Response == nil || restErr.Response.StatusCode != http.StatusTooManyRequests {
			return err
		}
		if attempt == maxRetries {
			return err
		}

		wait := time.Duration(math.Pow(2, float64(attempt))) * d.baseBackoff
		if wait > d.maxBackoff {
			wait = d.maxBackoff
		}
		logging.From(ctx).Debug("discord: rate limited, retrying",
			"attempt", attempt+1, "max", maxRetries, "wait", wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil
}
