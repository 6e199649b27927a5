package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	slackapi "github.com/slack-go/slack"
)

func TestSlack_Send(t *testing.T) {
	var gotURL, gotText string
	s, err := NewSlack("https://hooks.slack.test/T/B/X")
	if err != nil {
		t.Fatalf("NewSlack: %v", err)
	}
	s.post = func(_ context.Context, url string, msg *slackapi.WebhookMessage) error {
		gotURL, gotText = url, msg.Text
		return nil
	}

	if err := s.Send(context.Background(), Message{Body: "sent: hello"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if gotURL != "https://hooks.slack.test/T/B/X" {
		t.Errorf("url = %q", gotURL)
	}
	if gotText != "sent: hello" {
		t.Errorf("text = %q, want %q", gotText, "sent: hello")
	}
}

func TestNewSlack_RequiresURL(t *testing.T) {
	if _, err := NewSlack(""); err == nil {
		t.Fatal("expected error")
	}
}

func TestRetryOnRateLimit_RetriesAndSucceeds(t *testing.T) {
	calls := 0
	err := retryOnRateLimit(context.Background(), func() error {
		calls++
		if calls < 3 {
			return &slackapi.RateLimitedError{RetryAfter: time.Millisecond}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 3 {
		t.Errorf("expected 3 calls, got %d", calls)
	}
}

func TestRetryOnRateLimit_NonRateLimitError(t *testing.T) {
	calls := 0
	err := retryOnRateLimit(context.Background(), func() error {
		calls++
		return fmt.Errorf("some other error")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Errorf("should not retry non-rate-limit errors, calls = %d", calls)
	}
}

func TestRetryOnRateLimit_ExhaustsRetries(t *testing.T) {
	calls := 0
	err := retryOnRateLimit(context.Background(), func() error {
		calls++
		return &slackapi.RateLimitedError{RetryAfter: time.Millisecond}
	})
	var rle *slackapi.RateLimitedError
	if !errors.As(err, &rle) {
		t.Fatalf("expected rate limit error, got %v", err)
	}
	if calls != maxRetries+1 {
		t.Errorf("calls = %d, want %d", calls, maxRetries+1)
	}
}

// mockWebhook scripts WebhookExecute results.
type mockWebhook struct {
	errs   []error
	calls  int
	params []*discordgo.WebhookParams
}

func (m *mockWebhook) WebhookExecute(webhookID, token string, wait bool, data *discordgo.WebhookParams, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.calls++
	m.params = append(m.params, data)
	if len(m.errs) > 0 {
		err := m.errs[0]
		m.errs = m.errs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &discordgo.Message{}, nil
}

func newTestDiscord(m *mockWebhook) *Discord {
	return &Discord{
		id:          "123",
		token:       "tok",
		sess:        m,
		baseBackoff: time.Millisecond,
		maxBackoff:  5 * time.Millisecond,
	}
}

func TestDiscord_Send(t *testing.T) {
	m := &mockWebhook{}
	d := newTestDiscord(m)
	if err := d.Send(context.Background(), Message{Body: "sent: hi"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m.calls != 1 {
		t.Fatalf("calls = %d, want 1", m.calls)
	}
	if m.params[0].Content != "sent: hi" {
		t.Errorf("content = %q", m.params[0].Content)
	}
}

func TestDiscord_RetriesOn429(t *testing.T) {
	rateLimited := &discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusTooManyRequests}}
	m := &mockWebhook{errs: []error{rateLimited, rateLimited, nil}}
	d := newTestDiscord(m)

	if err := d.Send(context.Background(), Message{Body: "x"}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if m.calls != 3 {
		t.Errorf("calls = %d, want 3", m.calls)
	}
}

func TestDiscord_NoRetryOnOtherError(t *testing.T) {
	m := &mockWebhook{errs: []error{&discordgo.RESTError{Response: &http.Response{StatusCode: http.StatusForbidden}}}}
	d := newTestDiscord(m)

	if err := d.Send(context.Background(), Message{Body: "x"}); err == nil {
		t.Fatal("expected error")
	}
	if m.calls != 1 {
		t.Errorf("calls = %d, want 1", m.calls)
	}
}

func TestNewDiscord_RequiresCredentials(t *testing.T) {
	if _, err := NewDiscord("id", ""); err == nil {
		t.Fatal("expected error")
	}
}
