// Package profile validates and stores user contact profiles.
package profile

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/NBMedia786/chabot/internal/errs"
	"github.com/NBMedia786/chabot/internal/logging"
	"github.com/NBMedia786/chabot/internal/models"
)

// Input is the profile request body. Age may arrive as a number or a
// numeric string.
type Input struct {
	Name  string          `json:"name"`
	Email string          `json:"email"`
	Phone string          `json:"phone"`
	Age   json.RawMessage `json:"age"`
}

// Store persists profiles keyed by email.
type Store interface {
	UpsertProfile(p *models.Profile) error
}

// Parse decodes and validates a request body into a Profile.
func Parse(body []byte) (*models.Profile, error) {
	var in Input
	if err := json.Unmarshal(body, &in); err != nil {
		return nil, &errs.ValidationError{Field: "body", Message: "Invalid JSON"}
	}
	return in.Profile()
}

// Profile validates in and converts it to a model.
func (in Input) Profile() (*models.Profile, error) {
	name := strings.TrimSpace(in.Name)
	email := strings.TrimSpace(in.Email)
	phone := strings.TrimSpace(in.Phone)
	if name == "" {
		return nil, errs.Missing("name")
	}
	if email == "" {
		return nil, errs.Missing("email")
	}

	age, err := parseAge(in.Age)
	if err != nil {
		return nil, err
	}

	p := &models.Profile{Name: name, Email: email, Age: age}
	if phone != "" {
		p.Phone = &phone
	}
	return p, nil
}

// parseAge accepts null, "", an integer, or an integer string.
func parseAge(raw json.RawMessage) (*int, error) {
	invalid := &errs.ValidationError{Field: "age", Message: "age must be an integer"}

	s := strings.TrimSpace(string(raw))
	if s == "" || s == "null" {
		return nil, nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, invalid
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, invalid
	}
	return &n, nil
}

// Service upserts profiles into an optional store.
type Service struct {
	store Store
}

// NewService returns a Service. A nil store makes every upsert fail with a
// ConfigurationError.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// Configured reports whether a store is attached.
func (s *Service) Configured() bool {
	return s.store != nil
}

// Pinger is implemented by stores that can report whether they are reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Ping checks the attached store. Stores that cannot be checked, and an
// unconfigured service, report nil.
func (s *Service) Ping(ctx context.Context) error {
	p, ok := s.store.(Pinger)
	if !ok {
		return nil
	}
	return p.Ping(ctx)
}

// Upsert validates body and stores the profile.
func (s *Service) Upsert(ctx context.Context, body []byte) error {
	if s.store == nil {
		return &errs.ConfigurationError{Missing: []string{"DATABASE_DRIVER"}}
	}
	p, err := Parse(body)
	if err != nil {
		return err
	}
	if err := s.store.UpsertProfile(p); err != nil {
		logging.From(ctx).Error("profile upsert failed", "email", p.Email, "error", err)
		return &errs.PersistenceError{Op: "upsert profile", Err: err}
	}
	return nil
}
