// Package blueprint holds generated conversation summaries ("blueprints")
// addressed by an opaque id that is embedded in the link mailed to the user.
package blueprint

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrDuplicateID is returned by Put when the id is already stored.
var ErrDuplicateID = errors.New("blueprint: duplicate id")

// Record is a stored blueprint. Records are never modified after insertion.
type Record struct {
	ID        string
	Content   string
	Email     string
	CreatedAt time.Time
	SessionID string
}

// Store is a keyed store of blueprint records.
type Store interface {
	// Put inserts rec. It fails with ErrDuplicateID if rec.ID exists.
	Put(rec Record) error
	Get(id string) (Record, bool)
}

// MemoryStore is a process-lifetime Store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

// Put inserts rec if its id is unused.
func (s *MemoryStore) Put(rec Record) error {
	if rec.ID == "" {
		return fmt.Errorf("blueprint: id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[rec.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateID, rec.ID)
	}
	s.records[rec.ID] = rec
	return nil
}

// Get returns the record for id.
func (s *MemoryStore) Get(id string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Len returns the number of stored records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// stampLayout is the compact UTC timestamp used in session and blueprint ids.
const stampLayout = "20060102T150405"

// NewSessionID returns a short random session id and the stamp to pair it with.
func NewSessionID(now time.Time) (stamp, sessionID string) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return now.UTC().Format(stampLayout), id[:8]
}

// ID composes a blueprint id from a stamp and session id.
func ID(stamp, sessionID string) string {
	return stamp + "_" + sessionID
}
