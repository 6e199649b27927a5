package notify

import (
	"strings"
	"testing"
)

func TestNewSMTP_DefaultsPort(t *testing.T) {
	s, err := NewSMTP(SMTPOpts{Host: "smtp.example.com"})
	if err != nil {
		t.Fatalf("NewSMTP: %v", err)
	}
	if s.port != 587 {
		t.Errorf("port = %d, want 587", s.port)
	}
	if s.tlsConf.ServerName != "smtp.example.com" {
		t.Errorf("ServerName = %q", s.tlsConf.ServerName)
	}
}

func TestNewSMTP_RequiresHost(t *testing.T) {
	if _, err := NewSMTP(SMTPOpts{}); err == nil {
		t.Fatal("expected error for missing host")
	}
}

func TestSMTP_Format(t *testing.T) {
	s, _ := NewSMTP(SMTPOpts{
		Host:    "smtp.example.com",
		From:    Address{Email: "info@example.com", Name: "AI Voice Coach"},
		ReplyTo: "reply@example.com",
	})
	raw := string(s.format(BlueprintMessage("user@x.io", "http://l/blueprint/1")))

	for _, want := range []string{
		"From: \"AI Voice Coach\" <info@example.com>\r\n",
		"To: user@x.io\r\n",
		"Reply-To: reply@example.com\r\n",
		"Subject: Your Mind Map Blueprint is Ready!\r\n",
		"Content-Type: text/plain; charset=\"utf-8\"\r\n",
		"\r\n\r\nHello!",
		"http://l/blueprint/1",
	} {
		if !strings.Contains(raw, want) {
			t.Errorf("message missing %q:\n%s", want, raw)
		}
	}
}
