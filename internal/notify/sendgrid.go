package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/NBMedia786/chabot/internal/httpclient"
)

const (
	sendGridURL     = "https://api.sendgrid.com/v3/mail/send"
	sendGridTimeout = 30 * time.Second
)

// SendGrid delivers mail through the SendGrid v3 API.
type SendGrid struct {
	client   *httpclient.Client
	endpoint string
	apiKey   string
	from     Address
	replyTo  string
	sandbox  bool
}

// Address is a named email address.
type Address struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// SendGridOpts holds parameters for creating a SendGrid sender.
type SendGridOpts struct {
	APIKey   string
	From     Address
	ReplyTo  string
	Sandbox  bool
	Client   *httpclient.Client // defaults to httpclient.New(nil)
	Endpoint string             // defaults to the public API
}

// NewSendGrid creates a SendGrid sender.
func NewSendGrid(opts SendGridOpts) (*SendGrid, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("sendgrid: api key is required")
	}
	if opts.From.Email == "" {
		return nil, fmt.Errorf("sendgrid: from address is required")
	}
	s := &SendGrid{
		client:   opts.Client,
		endpoint: opts.Endpoint,
		apiKey:   opts.APIKey,
		from:     opts.From,
		replyTo:  opts.ReplyTo,
		sandbox:  opts.Sandbox,
	}
	if s.client == nil {
		s.client = httpclient.New(nil)
	}
	if s.endpoint == "" {
		s.endpoint = sendGridURL
	}
	return s, nil
}

type sgPersonalization struct {
	To      []Address `json:"to"`
	ReplyTo *Address  `json:"reply_to,omitempty"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgMail struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             Address             `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
	MailSettings     struct {
		SandboxMode struct {
			Enable bool `json:"enable"`
		} `json:"sandbox_mode"`
	} `json:"mail_settings"`
}

// Send posts msg to SendGrid. Only 200 and 202 count as delivered.
func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	p := sgPersonalization{To: []Address{{Email: msg.To}}}
	if s.replyTo != "" {
		p.ReplyTo = &Address{Email: s.replyTo}
	}
	mail := sgMail{
		Personalizations: []sgPersonalization{p},
		From:             s.from,
		Subject:          msg.Subject,
		Content:          []sgContent{{Type: "text/plain", Value: msg.Body}},
	}
	mail.MailSettings.SandboxMode.Enable = s.sandbox

	body, err := json.Marshal(mail)
	if err != nil {
		return fmt.Errorf("sendgrid: marshal: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+s.apiKey)
	header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(ctx, httpclient.Request{
		Method:  http.MethodPost,
		URL:     s.endpoint,
		Header:  header,
		Body:    body,
		Timeout: sendGridTimeout,
	})
	if err != nil {
		return fmt.Errorf("sendgrid: request: %w", err)
	}
	if resp.Status != http.StatusOK && resp.Status != http.StatusAccepted {
		return fmt.Errorf("sendgrid: status %d: %s", resp.Status, resp.Snippet(300))
	}
	return nil
}
