// Package notify delivers user notifications. Senders wrap a single
// transport; Chain and Mirror compose them; Pool delivers after a delay
// without holding up the caller.
package notify

import (
	"context"
	"errors"
	"fmt"
)

// ErrNoTransport is returned when no sender is configured.
var ErrNoTransport = errors.New("notify: no transport configured")

// Message is a plain-text notification.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a Message over one transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// BlueprintSubject is the fixed subject of the blueprint-ready email.
const BlueprintSubject = "Your Mind Map Blueprint is Ready!"

// BlueprintMessage builds the email that points recipient at link.
func BlueprintMessage(recipient, link string) Message {
	body := fmt.Sprintf(`Hello!

Your conversation analysis is complete. Click the link below to view your Mind Map Blueprint:
%s

Best regards,
AI Voice Coach Team`, link)
	return Message{To: recipient, Subject: BlueprintSubject, Body: body}
}

// TestMessage builds the transport check email.
func TestMessage(recipient string) Message {
	return Message{
		To:      recipient,
		Subject: "Test from AI Voice Coach",
		Body:    "This is a test email. If you received it, your email setup works.",
	}
}

// SenderFunc adapts an ordinary function to the Sender interface.
type SenderFunc func(ctx context.Context, msg Message) error

// Send calls f(ctx, msg).
func (f SenderFunc) Send(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}
