package summarize

import (
	"context"
	"strings"
	"time"

	"github.com/NBMedia786/chabot/internal/logging"
	"github.com/NBMedia786/chabot/internal/metrics"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/genai"
)

// DefaultTimeout bounds a single summarization call.
const DefaultTimeout = 30 * time.Second

// contentGenerator is the subset of *genai.Models the summarizer uses.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini summarizes transcripts with a Gemini model.
type Gemini struct {
	models  contentGenerator
	model   string
	timeout time.Duration
	metrics *metrics.Metrics
}

// GeminiOption customizes a Gemini summarizer.
type GeminiOption func(*Gemini)

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) GeminiOption {
	return func(g *Gemini) { g.timeout = d }
}

// WithMetrics records which source produced each blueprint.
func WithMetrics(m *metrics.Metrics) GeminiOption {
	return func(g *Gemini) { g.metrics = m }
}

// withGenerator replaces the genai client, for tests.
func withGenerator(gen contentGenerator) GeminiOption {
	return func(g *Gemini) { g.models = gen }
}

// NewGemini creates a Gemini summarizer using the Gemini API backend.
func NewGemini(ctx context.Context, apiKey, model string, opts ...GeminiOption) (*Gemini, error) {
	g := &Gemini{model: model, timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(g)
	}
	if g.models == nil {
		client, err := genai.NewClient(ctx, &genai.ClientConfig{
			APIKey:  apiKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			return nil, goerr.Wrap(err, "failed to create genai client", goerr.V("model", model))
		}
		g.models = client.Models
	}
	return g, nil
}

// Summarize asks the model for a mind-map summary, falling back to the
// local outline on any error or empty answer.
func (g *Gemini) Summarize(ctx context.Context, transcript string) string {
	logger := logging.From(ctx)

	text, err := g.generate(ctx, transcript)
	if err != nil {
		logger.Warn("gemini summarization failed, using fallback", "error", err)
		g.metrics.Summary("fallback")
		return Fallback(transcript)
	}
	g.metrics.Summary("gemini")
	return text
}

func (g *Gemini) generate(ctx context.Context, transcript string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.models.GenerateContent(ctx, g.model, genai.Text(prompt(transcript)), nil)
	if err != nil {
		return "", goerr.Wrap(err, "failed to generate content", goerr.V("model", g.model))
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", goerr.New("empty response from gemini", goerr.V("model", g.model))
	}

	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part != nil {
			b.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(b.String())
	if text == "" {
		return "", goerr.New("gemini returned no text", goerr.V("model", g.model))
	}
	return text, nil
}

// New returns a Gemini summarizer when apiKey is set and an Offline one
// otherwise.
func New(ctx context.Context, apiKey, model string, m *metrics.Metrics) (Summarizer, error) {
	if apiKey == "" {
		logging.From(ctx).Warn("GEMINI_API_KEY not set; blueprints will use the offline outline")
		return Offline{}, nil
	}
	return NewGemini(ctx, apiKey, model, WithMetrics(m))
}
