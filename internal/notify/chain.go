package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/NBMedia786/chabot/internal/logging"
)

// Chain tries each sender in order until one succeeds.
type Chain []Sender

// Send delivers msg through the first sender that accepts it.
func (c Chain) Send(ctx context.Context, msg Message) error {
	if len(c) == 0 {
		logging.From(ctx).Warn("no mail transport configured; would have sent",
			"to", msg.To, "subject", msg.Subject)
		return ErrNoTransport
	}

	var errs []error
	for i, s := range c {
		err := s.Send(ctx, msg)
		if err == nil {
			return nil
		}
		logging.From(ctx).Warn("mail transport failed", "transport", i, "to", msg.To, "error", err)
		errs = append(errs, err)
	}
	return fmt.Errorf("notify: all transports failed: %w", errors.Join(errs...))
}

// Mirror sends through Primary and copies a short notice to each mirror.
// Mirror failures are logged and never change the result.
type Mirror struct {
	Primary Sender
	Mirrors []Sender
}

// Send delivers msg through the primary sender, then the mirrors.
func (m Mirror) Send(ctx context.Context, msg Message) error {
	err := m.Primary.Send(ctx, msg)

	status := "sent"
	if err != nil {
		status = "failed"
	}
	notice := Message{
		To:      msg.To,
		Subject: msg.Subject,
		Body:    fmt.Sprintf("%s: %q to %s", status, msg.Subject, msg.To),
	}
	for _, mirror := range m.Mirrors {
		if merr := mirror.Send(ctx, notice); merr != nil {
			logging.From(ctx).Warn("notification mirror failed", "error", merr)
		}
	}
	return err
}
