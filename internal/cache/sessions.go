package cache

import (
	"sync"
	"time"

	"github.com/blogpulse/blogpulse/pkg/config"
)

// SessionEntry is one asked question in a session's log.
type SessionEntry struct {
	Question string    `json:"question"`
	Answer   string    `json:"answer"`
	CacheHit bool      `json:"cache_hit"`
	AskedAt  time.Time `json:"asked_at"`
}

// Sessions keeps a bounded per-session query log. Sessions expire after an
// idle period; expired sessions are pruned lazily on access.
type Sessions struct {
	mu       sync.Mutex
	sessions map[string]*session
	logMax   int
	idleTTL  time.Duration
	now      func() time.Time
}

type session struct {
	entries    []SessionEntry
	lastActive time.Time
}

// NewSessions creates a Sessions log with the configured bounds.
func NewSessions(cfg config.SessionConfig) *Sessions {
	logMax := cfg.LogMax
	if logMax <= 0 {
		logMax = 50
	}
	idleTTL := cfg.TTL
	if idleTTL <= 0 {
		idleTTL = 24 * time.Hour
	}
	return &Sessions{
		sessions: make(map[string]*session),
		logMax:   logMax,
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Record appends an entry to a session's log, creating the session on first
// use and dropping the oldest entries beyond the bound.
func (s *Sessions) Record(id string, entry SessionEntry) {
	if id == "" {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()

	sess, ok := s.sessions[id]
	if !ok {
		sess = &session{}
		s.sessions[id] = sess
	}
	sess.entries = append(sess.entries, entry)
	if excess := len(sess.entries) - s.logMax; excess > 0 {
		sess.entries = append([]SessionEntry(nil), sess.entries[excess:]...)
	}
	sess.lastActive = s.now()
}

// Get returns a session's log, oldest first. Expired or unknown sessions
// report false.
func (s *Sessions) Get(id string) ([]SessionEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()

	sess, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	out := make([]SessionEntry, len(sess.entries))
	copy(out, sess.entries)
	return out, true
}

// Len returns the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prune()
	return len(s.sessions)
}

func (s *Sessions) prune() {
	cutoff := s.now().Add(-s.idleTTL)
	for id, sess := range s.sessions {
		if sess.lastActive.Before(cutoff) {
			delete(s.sessions, id)
		}
	}
}
