package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestNewSendGrid_RequiresKey(t *testing.T) {
	if _, err := NewSendGrid(SendGridOpts{From: Address{Email: "f@x.io"}}); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestSendGrid_Send(t *testing.T) {
	var gotAuth string
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &got)
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	sg, err := NewSendGrid(SendGridOpts{
		APIKey:   "SG.key",
		From:     Address{Email: "info@example.com", Name: "AI Voice Coach"},
		ReplyTo:  "reply@example.com",
		Sandbox:  true,
		Endpoint: srv.URL,
	})
	if err != nil {
		t.Fatalf("NewSendGrid: %v", err)
	}
	if err := sg.Send(context.Background(), BlueprintMessage("user@x.io", "http://l/blueprint/1")); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if gotAuth != "Bearer SG.key" {
		t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer SG.key")
	}
	if got["subject"] != BlueprintSubject {
		t.Errorf("subject = %v", got["subject"])
	}
	p := got["personalizations"].([]any)[0].(map[string]any)
	to := p["to"].([]any)[0].(map[string]any)
	if to["email"] != "user@x.io" {
		t.Errorf("to = %v, want user@x.io", to["email"])
	}
	if p["reply_to"].(map[string]any)["email"] != "reply@example.com" {
		t.Errorf("reply_to = %v", p["reply_to"])
	}
	sandbox := got["mail_settings"].(map[string]any)["sandbox_mode"].(map[string]any)
	if sandbox["enable"] != true {
		t.Errorf("sandbox_mode.enable = %v, want true", sandbox["enable"])
	}
}

func TestSendGrid_RejectedStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"errors":[{"message":"bad from"}]}`))
	}))
	defer srv.Close()

	sg, _ := NewSendGrid(SendGridOpts{APIKey: "k", From: Address{Email: "f@x.io"}, Endpoint: srv.URL})
	err := sg.Send(context.Background(), TestMessage("user@x.io"))
	if err == nil {
		t.Fatal("expected error for 400")
	}
	if !strings.Contains(err.Error(), "400") || !strings.Contains(err.Error(), "bad from") {
		t.Errorf("error should carry status and body, got %v", err)
	}
}
