package token

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/NBMedia786/chabot/internal/errs"
	"github.com/NBMedia786/chabot/internal/httpclient"
	"github.com/NBMedia786/chabot/internal/logging"
)

// DefaultEndpoints are the known token endpoints, tried in order after any
// configured override.
var DefaultEndpoints = []string{
	"https://api.elevenlabs.io/v1/convai/conversations",
	"https://api.elevenlabs.io/v1/convai/conversation/token",
	"https://api.elevenlabs.io/v1/convai/conversation",
}

// methods is the fixed per-endpoint method order.
var methods = []string{http.MethodPost, http.MethodGet}

const (
	// DefaultRequestTimeout bounds every individual HTTP attempt.
	DefaultRequestTimeout = 9 * time.Second
	// diagnosticLen caps response text kept in attempt diagnostics.
	diagnosticLen = 300
)

// Upstream fetches a fresh token from the voice-agent provider.
type Upstream interface {
	Fetch(ctx context.Context, agentID, apiKey, participantName string) (string, error)
}

// Fetcher tries each candidate endpoint with POST then GET until one returns
// a usable token.
type Fetcher struct {
	client    *httpclient.Client
	override  string
	endpoints []string
	timeout   time.Duration
}

// FetcherOpts holds parameters for creating a Fetcher.
type FetcherOpts struct {
	Client      *httpclient.Client // defaults to httpclient.New(nil)
	OverrideURL string             // optional; tried before Endpoints
	Endpoints   []string           // defaults to DefaultEndpoints
	Timeout     time.Duration      // per attempt; defaults to DefaultRequestTimeout
}

// NewFetcher creates a Fetcher.
func NewFetcher(opts FetcherOpts) *Fetcher {
	f := &Fetcher{
		client:    opts.Client,
		override:  opts.OverrideURL,
		endpoints: opts.Endpoints,
		timeout:   opts.Timeout,
	}
	if f.client == nil {
		f.client = httpclient.New(nil)
	}
	if f.endpoints == nil {
		f.endpoints = DefaultEndpoints
	}
	if f.timeout <= 0 {
		f.timeout = DefaultRequestTimeout
	}
	return f
}

// Candidates returns the ordered endpoint list: override first, then the
// known endpoints. Empty entries are skipped.
func (f *Fetcher) Candidates() []string {
	var out []string
	if f.override != "" {
		out = append(out, f.override)
	}
	for _, e := range f.endpoints {
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// Fetch returns the first token any candidate yields. When every
// (endpoint, method) pair fails it returns an *errs.UpstreamExhaustedError
// listing each attempt.
func (f *Fetcher) Fetch(ctx context.Context, agentID, apiKey, participantName string) (string, error) {
	tok, _, err := f.FetchWithAttempts(ctx, agentID, apiKey, participantName)
	return tok, err
}

// FetchWithAttempts is Fetch that also returns the failed attempts made
// before the successful one.
func (f *Fetcher) FetchWithAttempts(ctx context.Context, agentID, apiKey, participantName string) (string, []errs.Attempt, error) {
	logger := logging.From(ctx)

	payload := map[string]string{"agent_id": agentID}
	if participantName != "" {
		payload["participant_name"] = participantName
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", nil, fmt.Errorf("token: marshal payload: %w", err)
	}
	query := url.Values{}
	for k, v := range payload {
		query.Set(k, v)
	}

	header := http.Header{}
	header.Set("Accept", "application/json")
	header.Set("Content-Type", "application/json")
	header.Set("xi-api-key", apiKey)

	var attempts []errs.Attempt
	for _, endpoint := range f.Candidates() {
		for _, method := range methods {
			req := httpclient.Request{
				Method:  method,
				URL:     endpoint,
				Header:  header,
				Timeout: f.timeout,
			}
			if method == http.MethodPost {
				req.Body = body
			} else {
				req.URL = withQuery(endpoint, query)
			}

			tok, attempt := f.try(ctx, req, endpoint)
			if tok != "" {
				logger.Info("conversation token issued",
					"method", method, "endpoint", endpoint, "participant", participantName)
				return tok, attempts, nil
			}
			attempts = append(attempts, attempt)
			if ctx.Err() != nil {
				return "", attempts, &errs.UpstreamExhaustedError{Attempts: attempts}
			}
		}
	}

	logger.Warn("all token endpoints failed", "attempts", len(attempts))
	return "", attempts, &errs.UpstreamExhaustedError{Attempts: attempts}
}

// try performs one (endpoint, method) attempt. It returns either a token or
// the diagnostic describing why none was obtained.
func (f *Fetcher) try(ctx context.Context, req httpclient.Request, endpoint string) (string, errs.Attempt) {
	attempt := errs.Attempt{Endpoint: endpoint, Method: req.Method}

	resp, err := f.client.Do(ctx, req)
	if err != nil {
		attempt.Error = "request_exception"
		attempt.Diagnostic = err.Error()
		return "", attempt
	}
	attempt.Status = resp.Status

	var payload map[string]any
	jsonErr := json.Unmarshal(resp.Body, &payload)

	if resp.Status >= 400 {
		attempt.Error = "http_status"
		attempt.Diagnostic = resp.Snippet(diagnosticLen)
		return "", attempt
	}
	if jsonErr != nil {
		attempt.Error = "non_json"
		attempt.Diagnostic = resp.Snippet(diagnosticLen)
		return "", attempt
	}
	if tok := extractToken(payload); tok != "" {
		return tok, attempt
	}
	attempt.Error = "no_token_in_payload"
	attempt.Diagnostic = resp.Snippet(diagnosticLen)
	return "", attempt
}

func withQuery(endpoint string, q url.Values) string {
	u, err := url.Parse(endpoint)
	if err != nil {
		return endpoint
	}
	merged := u.Query()
	for k, vs := range q {
		for _, v := range vs {
			merged.Set(k, v)
		}
	}
	u.RawQuery = merged.Encode()
	return u.String()
}
