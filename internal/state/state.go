// Package state persists the pipeline watermark: which posts have been
// seen, the outcome of the last run, and a bounded run history. Saves are
// all-or-nothing so a crashed run never leaves a partial watermark behind.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/blogpulse/blogpulse/internal/blog"
	"github.com/blogpulse/blogpulse/pkg/config"
	"github.com/blogpulse/blogpulse/pkg/objstore"
	"github.com/blogpulse/blogpulse/pkg/postgres"
)

// DefaultHistoryMax bounds the retained run history.
const DefaultHistoryMax = 10

// Store loads and saves pipeline state. Load on a store that has never been
// saved returns an empty state, not an error.
type Store interface {
	Load(ctx context.Context) (*State, error)
	Save(ctx context.Context, s *State) error
}

// State is the durable watermark. It is not safe for concurrent mutation;
// the pipeline owns it for the duration of a run.
type State struct {
	lastSeen   []string
	seen       map[string]struct{}
	lastResult *blog.IngestionResult
	history    []blog.IngestionResult
}

// NewState returns an empty state.
func NewState() *State {
	return &State{seen: make(map[string]struct{})}
}

// Seen reports whether a post id has been recorded by a previous run.
func (s *State) Seen(id string) bool {
	_, ok := s.seen[id]
	return ok
}

// AddSeen records post ids, preserving first-seen order and ignoring
// duplicates.
func (s *State) AddSeen(ids ...string) {
	for _, id := range ids {
		if _, ok := s.seen[id]; ok {
			continue
		}
		s.seen[id] = struct{}{}
		s.lastSeen = append(s.lastSeen, id)
	}
}

// SeenCount returns the number of recorded post ids.
func (s *State) SeenCount() int {
	return len(s.lastSeen)
}

// LastResult returns the most recent run result, or nil before any run.
func (s *State) LastResult() *blog.IngestionResult {
	return s.lastResult
}

// History returns the retained run results, oldest first.
func (s *State) History() []blog.IngestionResult {
	out := make([]blog.IngestionResult, len(s.history))
	copy(out, s.history)
	return out
}

// RecordRun sets the last result and appends it to the history, dropping the
// oldest entries beyond maxHistory.
func (s *State) RecordRun(res blog.IngestionResult, maxHistory int) {
	if maxHistory <= 0 {
		maxHistory = DefaultHistoryMax
	}
	r := res
	s.lastResult = &r
	s.history = append(s.history, res)
	if excess := len(s.history) - maxHistory; excess > 0 {
		s.history = append([]blog.IngestionResult(nil), s.history[excess:]...)
	}
}

type stateJSON struct {
	LastSeen   []string               `json:"app:last_seen_post_ids"`
	LastResult *blog.IngestionResult  `json:"app:last_result,omitempty"`
	History    []blog.IngestionResult `json:"app:history"`
}

func (s *State) MarshalJSON() ([]byte, error) {
	doc := stateJSON{
		LastSeen: s.lastSeen,
		History:  s.history,
	}
	if doc.LastSeen == nil {
		doc.LastSeen = []string{}
	}
	if doc.History == nil {
		doc.History = []blog.IngestionResult{}
	}
	doc.LastResult = s.lastResult
	return json.Marshal(doc)
}

func (s *State) UnmarshalJSON(data []byte) error {
	var doc stateJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	s.lastSeen = nil
	s.seen = make(map[string]struct{}, len(doc.LastSeen))
	s.AddSeen(doc.LastSeen...)
	s.lastResult = doc.LastResult
	s.history = doc.History
	return nil
}

// Open builds a Store from a location string: an s3://bucket/key URI, a
// postgres:// DSN, or a local file path. Object-store credentials are shared
// with the managed backend configuration.
func Open(path string, managed config.ManagedBackend) (Store, error) {
	switch {
	case strings.HasPrefix(path, "s3://"):
		bucket, key, err := splitObjectURI(path)
		if err != nil {
			return nil, err
		}
		client, err := objstore.New(objstore.Config{
			Bucket:          bucket,
			Region:          managed.Region,
			Endpoint:        managed.Endpoint,
			AccessKeyID:     managed.AccessKeyID,
			SecretAccessKey: managed.SecretAccessKey,
			PathStyle:       managed.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		return NewObjectStore(client, key), nil
	case strings.HasPrefix(path, "postgres://"), strings.HasPrefix(path, "postgresql://"):
		pg, err := postgres.New(path)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(pg), nil
	default:
		return NewFileStore(path), nil
	}
}

func splitObjectURI(uri string) (bucket, key string, err error) {
	rest := strings.TrimPrefix(uri, "s3://")
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("state: invalid object URI %q, want s3://bucket/key", uri)
	}
	return bucket, key, nil
}
