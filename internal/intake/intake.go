// Package intake accepts finished conversation sessions: it stores the
// transcript, builds a blueprint, and schedules the email that links to it.
package intake

import (
	"context"
	"errors"
	"math/rand/v2"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/NBMedia786/chabot/internal/blueprint"
	"github.com/NBMedia786/chabot/internal/errs"
	"github.com/NBMedia786/chabot/internal/logging"
	"github.com/NBMedia786/chabot/internal/metrics"
	"github.com/NBMedia786/chabot/internal/summarize"
	"github.com/NBMedia786/chabot/internal/transcript"
)

const (
	DefaultMaxTranscriptChars = 20000
	DefaultMinDelay           = 10
	DefaultMaxDelay           = 30

	// idAttempts bounds how often a colliding blueprint id is regenerated.
	idAttempts = 5
)

// Scheduler queues the delayed blueprint email.
type Scheduler interface {
	Schedule(ctx context.Context, recipient, link string, delay time.Duration) error
}

// TranscriptWriter saves transcripts without blocking the caller.
type TranscriptWriter interface {
	Write(ctx context.Context, name string, data []byte)
}

// Audio is an optional recording uploaded alongside a transcript.
type Audio struct {
	Data []byte
	Ext  string // with leading dot, e.g. ".webm"
}

// Request is one uploaded session.
type Request struct {
	Email      string
	Transcript string
	Audio      *Audio
	// BaseURL is the absolute origin links are built on when no public
	// base URL is configured.
	BaseURL string
}

// Result describes the accepted session.
type Result struct {
	ScheduledInSeconds int    `json:"scheduled_in_seconds"`
	BlueprintID        string `json:"blueprint_id"`
	BlueprintURL       string `json:"blueprint_url"`
}

// Service runs session intake.
type Service struct {
	blueprints  blueprint.Store
	summarizer  summarize.Summarizer
	transcripts TranscriptWriter
	scheduler   Scheduler
	metrics     *metrics.Metrics

	publicBaseURL string
	maxChars      int
	minDelay      int
	maxDelay      int

	now  func() time.Time
	intn func(n int) int
}

// ServiceOpts holds parameters for creating a Service.
type ServiceOpts struct {
	Blueprints  blueprint.Store
	Summarizer  summarize.Summarizer
	Transcripts TranscriptWriter
	Scheduler   Scheduler
	Metrics     *metrics.Metrics

	PublicBaseURL      string
	MaxTranscriptChars int
	MinDelaySec        int
	MaxDelaySec        int
}

// NewService creates a Service. Missing collaborators fall back to an
// in-memory blueprint store and the offline summarizer.
func NewService(opts ServiceOpts) *Service {
	s := &Service{
		blueprints:    opts.Blueprints,
		summarizer:    opts.Summarizer,
		transcripts:   opts.Transcripts,
		scheduler:     opts.Scheduler,
		metrics:       opts.Metrics,
		publicBaseURL: opts.PublicBaseURL,
		maxChars:      opts.MaxTranscriptChars,
		minDelay:      opts.MinDelaySec,
		maxDelay:      opts.MaxDelaySec,
		now:           time.Now,
		intn:          rand.IntN,
	}
	if s.blueprints == nil {
		s.blueprints = blueprint.NewMemoryStore()
	}
	if s.summarizer == nil {
		s.summarizer = summarize.Offline{}
	}
	if s.maxChars <= 0 {
		s.maxChars = DefaultMaxTranscriptChars
	}
	if s.minDelay <= 0 {
		s.minDelay = DefaultMinDelay
	}
	if s.maxDelay < s.minDelay {
		s.maxDelay = max(DefaultMaxDelay, s.minDelay)
	}
	return s
}

// Intake validates req, stores its transcript and blueprint, and schedules
// the notification. It returns before the notification is sent.
func (s *Service) Intake(ctx context.Context, req Request) (*Result, error) {
	log := logging.From(ctx)

	email := strings.TrimSpace(req.Email)
	text := strings.TrimSpace(req.Transcript)
	if email == "" {
		s.metrics.Intake("invalid")
		return nil, errs.Missing("email")
	}
	if text == "" {
		s.metrics.Intake("invalid")
		return nil, errs.Missing("transcript")
	}
	text = truncate(text, s.maxChars)

	now := s.now()
	content := s.summarizer.Summarize(ctx, text)

	id, stamp, sessionID, err := s.store(content, email, now)
	s.saveTranscript(ctx, stamp, sessionID, text, req.Audio)
	if err != nil {
		s.metrics.Intake("failed")
		return nil, err
	}

	link := absoluteURL(s.baseURL(req.BaseURL), "/blueprint/"+id)
	delay := s.minDelay + s.intn(s.maxDelay-s.minDelay+1)

	if s.scheduler != nil {
		if err := s.scheduler.Schedule(ctx, email, link, time.Duration(delay)*time.Second); err != nil {
			log.Error("failed to schedule blueprint email", "blueprint_id", id, "error",
				&errs.NotificationError{Op: "schedule", Err: err})
		}
	}

	s.metrics.Intake("accepted")
	log.Info("session accepted", "blueprint_id", id, "delay_seconds", delay, "chars", utf8.RuneCountInString(text))
	return &Result{ScheduledInSeconds: delay, BlueprintID: id, BlueprintURL: link}, nil
}

// store inserts the blueprint under a fresh session id, drawing another if
// the id collides with an existing record. It returns the stamp and session
// id of the last attempt.
func (s *Service) store(content, email string, now time.Time) (id, stamp, sessionID string, err error) {
	for attempt := 0; ; attempt++ {
		stamp, sessionID = blueprint.NewSessionID(now)
		id = blueprint.ID(stamp, sessionID)
		err = s.blueprints.Put(blueprint.Record{
			ID:        id,
			Content:   content,
			Email:     email,
			CreatedAt: now.UTC(),
			SessionID: sessionID,
		})
		if err == nil {
			return id, stamp, sessionID, nil
		}
		if !errors.Is(err, blueprint.ErrDuplicateID) || attempt+1 >= idAttempts {
			return "", stamp, sessionID, &errs.PersistenceError{Op: "store blueprint", Err: err}
		}
	}
}

// saveTranscript hands the transcript and optional audio to the side-channel
// writer under the session's file names.
func (s *Service) saveTranscript(ctx context.Context, stamp, sessionID, text string, audio *Audio) {
	if s.transcripts == nil {
		return
	}
	s.transcripts.Write(ctx, transcript.FileName(stamp, sessionID), []byte(text))
	if audio != nil && len(audio.Data) > 0 {
		s.transcripts.Write(ctx, transcript.AudioFileName(stamp, sessionID, audio.Ext), audio.Data)
	}
}

func (s *Service) baseURL(requestBase string) string {
	if s.publicBaseURL != "" {
		return s.publicBaseURL
	}
	return requestBase
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// absoluteURL joins base and path with exactly one slash.
func absoluteURL(base, path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return strings.TrimRight(base, "/") + path
}
