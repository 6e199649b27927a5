package token

import (
	"context"
	"time"

	"github.com/NBMedia786/chabot/internal/errs"
	"github.com/NBMedia786/chabot/internal/logging"
	"github.com/NBMedia786/chabot/internal/metrics"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a cached token is served without contacting the
// upstream. It is a local policy, independent of the token's real lifetime.
const DefaultTTL = 55 * time.Second

// Service is the read-through token cache in front of an Upstream.
type Service struct {
	cache    Cache
	upstream Upstream
	agentID  string
	apiKey   string
	ttl      time.Duration
	now      func() time.Time
	metrics  *metrics.Metrics
	inflight singleflight.Group
}

// ServiceOpts holds parameters for creating a Service.
type ServiceOpts struct {
	Cache    Cache    // defaults to NewMemoryCache()
	Upstream Upstream // required
	AgentID  string
	APIKey   string
	TTL      time.Duration // defaults to DefaultTTL
	Metrics  *metrics.Metrics
}

// NewService creates a Service. Missing credentials are reported per call,
// not here, so the gateway can start without them.
func NewService(opts ServiceOpts) *Service {
	s := &Service{
		cache:    opts.Cache,
		upstream: opts.Upstream,
		agentID:  opts.AgentID,
		apiKey:   opts.APIKey,
		ttl:      opts.TTL,
		now:      time.Now,
		metrics:  opts.Metrics,
	}
	if s.cache == nil {
		s.cache = NewMemoryCache()
	}
	if s.upstream == nil {
		s.upstream = NewFetcher(FetcherOpts{})
	}
	if s.ttl <= 0 {
		s.ttl = DefaultTTL
	}
	return s
}

// Token returns a conversation token for participantName. An empty name is
// the anonymous participant and shares a cache slot with other anonymous
// callers. Concurrent misses on the same key share a single upstream fetch.
func (s *Service) Token(ctx context.Context, participantName string) (string, error) {
	if missing := s.missingCredentials(); len(missing) > 0 {
		return "", &errs.ConfigurationError{Missing: missing}
	}

	key := participantName
	if tok, ok := s.fresh(key); ok {
		s.metrics.TokenRequest("cache_hit")
		return tok, nil
	}

	v, err, shared := s.inflight.Do(key, func() (any, error) {
		// Another caller may have filled the slot while we waited to enter.
		if tok, ok := s.fresh(key); ok {
			return tok, nil
		}
		tok, err := s.upstream.Fetch(context.WithoutCancel(ctx), s.agentID, s.apiKey, participantName)
		if err != nil {
			return "", err
		}
		s.cache.Put(key, tok)
		return tok, nil
	})
	if err != nil {
		s.metrics.TokenRequest("failed")
		return "", err
	}
	if shared {
		logging.From(ctx).Debug("joined in-flight token fetch", "participant", participantName)
	}
	s.metrics.TokenRequest("fetched")
	return v.(string), nil
}

// fresh returns the cached token for key when it is younger than the TTL.
func (s *Service) fresh(key string) (string, bool) {
	entry, ok := s.cache.Get(key)
	if !ok || entry.Token == "" {
		return "", false
	}
	if entry.Age(s.now()) < s.ttl {
		return entry.Token, true
	}
	return "", false
}

func (s *Service) missingCredentials() []string {
	var missing []string
	if s.apiKey == "" {
		missing = append(missing, "ELEVEN_API_KEY")
	}
	if s.agentID == "" {
		missing = append(missing, "AGENT_ID or ELEVEN_AGENT_ID")
	}
	return missing
}
