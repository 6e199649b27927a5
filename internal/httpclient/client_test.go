package httpclient

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func fastClient() *Client {
	c := New(nil)
	c.BaseDelay = time.Millisecond
	return c
}

func TestDo_RetriesRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	resp, err := fastClient().Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.Status != http.StatusOK {
		t.Errorf("Status = %d, want 200", resp.Status)
	}
	if resp.Tries != 3 {
		t.Errorf("Tries = %d, want 3", resp.Tries)
	}
	if calls.Load() != 3 {
		t.Errorf("server calls = %d, want 3", calls.Load())
	}
}

func TestDo_ExhaustedReturnsLastResponse(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	resp, err := fastClient().Do(context.Background(), Request{Method: http.MethodPost, URL: srv.URL, Body: []byte("{}")})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.Status != http.StatusBadGateway {
		t.Errorf("Status = %d, want 502", resp.Status)
	}
	if resp.Snippet(8) != "upstream" {
		t.Errorf("Snippet = %q", resp.Snippet(8))
	}
	if calls.Load() != DefaultMaxTries {
		t.Errorf("server calls = %d, want %d", calls.Load(), DefaultMaxTries)
	}
}

func TestDo_NonRetryableStatus(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	resp, err := fastClient().Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.Status != http.StatusUnauthorized {
		t.Errorf("Status = %d, want 401", resp.Status)
	}
	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1", calls.Load())
	}
}

func TestDo_OnlyGetAndPostRetry(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := fastClient().Do(context.Background(), Request{Method: http.MethodPut, URL: srv.URL}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("server calls = %d, want 1 for PUT", calls.Load())
	}
}

func TestDo_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	if _, err := fastClient().Do(context.Background(), Request{Method: http.MethodGet, URL: url}); err == nil {
		t.Fatal("expected transport error")
	}
}

func TestDo_SendsHeadersAndBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("xi-api-key"); got != "k" {
			t.Errorf("xi-api-key = %q, want %q", got, "k")
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"agent_id":"a"}` {
			t.Errorf("body = %q", body)
		}
	}))
	defer srv.Close()

	_, err := fastClient().Do(context.Background(), Request{
		Method: http.MethodPost,
		URL:    srv.URL,
		Header: http.Header{"xi-api-key": []string{"k"}},
		Body:   []byte(`{"agent_id":"a"}`),
	})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
}

func TestDo_PerAttemptTimeout(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := fastClient().Do(context.Background(), Request{Method: http.MethodGet, URL: srv.URL, Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.Status != http.StatusOK || resp.Tries != 2 {
		t.Errorf("Status = %d Tries = %d, want 200 after 2 tries", resp.Status, resp.Tries)
	}
}
