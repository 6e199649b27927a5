// Package httpclient wraps net/http with the gateway's transient-fault retry
// policy: a fixed number of tries with doubling backoff, applied only to
// transport failures and a short list of retryable statuses.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const (
	// DefaultMaxTries is the total number of attempts per request.
	DefaultMaxTries = 3
	// DefaultBaseDelay is the wait before the first retry; it doubles after.
	DefaultBaseDelay = 350 * time.Millisecond
	// maxBodyBytes caps how much of a response body is retained.
	maxBodyBytes = 1 << 20
)

// retryableStatus lists the HTTP statuses that trigger a retry.
var retryableStatus = map[int]bool{
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// Request describes a single logical request.
type Request struct {
	Method  string
	URL     string
	Header  http.Header
	Body    []byte        // sent as-is; nil for no body
	Timeout time.Duration // per attempt; zero means no per-attempt limit
}

// Response is a fully-read HTTP response.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	Tries  int
}

// Client executes Requests with retry.
type Client struct {
	HTTP      *http.Client
	MaxTries  uint
	BaseDelay time.Duration
}

// New returns a Client with the default retry policy.
func New(httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	return &Client{
		HTTP:      httpClient,
		MaxTries:  DefaultMaxTries,
		BaseDelay: DefaultBaseDelay,
	}
}

// statusError marks a response whose status should be retried.
type statusError struct {
	resp *Response
}

func (e *statusError) Error() string {
	return fmt.Sprintf("httpclient: retryable status %d", e.resp.Status)
}

// Do performs req, retrying transport failures and retryable statuses for GET
// and POST. When retries are exhausted on a retryable status the last response
// is returned without error so the caller can inspect it.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	tries := c.MaxTries
	if tries == 0 {
		tries = DefaultMaxTries
	}
	if req.Method != http.MethodGet && req.Method != http.MethodPost {
		tries = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.BaseDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0

	var (
		attempt int
		last    *Response
	)
	op := func() (*Response, error) {
		attempt++
		resp, err := c.once(ctx, req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, backoff.Permanent(err)
			}
			return nil, err
		}
		resp.Tries = attempt
		last = resp
		if retryableStatus[resp.Status] {
			return nil, &statusError{resp: resp}
		}
		return resp, nil
	}

	resp, err := backoff.Retry(ctx, op, backoff.WithBackOff(b), backoff.WithMaxTries(tries))
	if err != nil {
		var se *statusError
		if errors.As(err, &se) && last != nil {
			return last, nil
		}
		return nil, err
	}
	return resp, nil
}

// once performs a single attempt under the per-attempt timeout.
func (c *Client) once(ctx context.Context, req Request) (*Response, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, backoff.Permanent(fmt.Errorf("httpclient: build request: %w", err))
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}

	httpResp, err := c.HTTP.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s %s: %w", req.Method, req.URL, err)
	}
	defer httpResp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}
	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   data,
	}, nil
}

// Snippet returns at most n bytes of the body as a string, for diagnostics.
func (r *Response) Snippet(n int) string {
	if len(r.Body) <= n {
		return string(r.Body)
	}
	return string(r.Body[:n])
}
