// Package session remembers the last recommendation result of each client so
// it can be exported later. Each session holds a single slot: any query, in
// any domain, replaces it.
package session

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/shelfrec/internal/domain"
	"github.com/kailas-cloud/shelfrec/internal/domain/kind"
	"github.com/kailas-cloud/shelfrec/internal/domain/result"
)

// DefaultTTL evicts sessions idle for longer than this.
const DefaultTTL = 30 * time.Minute

type slot struct {
	last    result.Result
	touched time.Time
}

// Store is an in-memory session table.
type Store struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*slot
}

// NewStore creates a Store. ttl <= 0 uses DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{ttl: ttl, now: time.Now, sessions: make(map[string]*slot)}
}

// NewID issues a fresh session ID.
func NewID() string { return uuid.NewString() }

// ValidID reports whether raw is a well-formed session ID.
func ValidID(raw string) bool {
	_, err := uuid.Parse(raw)
	return err == nil
}

// Put replaces the last result of session id.
func (s *Store) Put(id string, res result.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[id] = &slot{last: res, touched: s.now()}
}

// Last returns the last result of session id, whatever its domain.
func (s *Store) Last(id string) (result.Result, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sl, ok := s.sessions[id]
	if !ok || s.idle(sl) {
		delete(s.sessions, id)
		return result.Result{}, false
	}
	sl.touched = s.now()
	return sl.last, true
}

// LastFor returns the last result of session id when it belongs to domain k.
// A session whose latest query targeted another domain has nothing to export for k.
func (s *Store) LastFor(id string, k kind.Kind) (result.Result, error) {
	res, ok := s.Last(id)
	if !ok {
		return result.Result{}, fmt.Errorf("%w: session has no result", domain.ErrNoResult)
	}
	if res.Kind() != k {
		return result.Result{}, fmt.Errorf("%w: last result is for %s", domain.ErrNoResult, res.Kind())
	}
	return res, nil
}

// Sweep drops idle sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sl := range s.sessions {
		if s.idle(sl) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked sessions.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func (s *Store) idle(sl *slot) bool {
	return s.now().Sub(sl.touched) > s.ttl
}
