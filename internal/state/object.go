package state

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/blogpulse/blogpulse/pkg/objstore"
)

// ObjectAPI is the slice of the object-store client the state store needs.
type ObjectAPI interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// ObjectStore persists state as a single JSON object. Object stores replace
// keys atomically, so a save is all-or-nothing without a rename dance.
type ObjectStore struct {
	obj ObjectAPI
	key string
}

// NewObjectStore creates an ObjectStore writing to the given key.
func NewObjectStore(obj ObjectAPI, key string) *ObjectStore {
	return &ObjectStore{obj: obj, key: key}
}

// Load reads the state object. A missing key yields an empty state.
func (o *ObjectStore) Load(ctx context.Context) (*State, error) {
	data, err := o.obj.Get(ctx, o.key)
	if err != nil {
		if objstore.IsNotFound(err) {
			return NewState(), nil
		}
		return nil, fmt.Errorf("loading state object %s: %w", o.key, err)
	}
	s := NewState()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("parsing state object %s: %w", o.key, err)
	}
	return s, nil
}

// Save overwrites the state object.
func (o *ObjectStore) Save(ctx context.Context, s *State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encoding state: %w", err)
	}
	if err := o.obj.Put(ctx, o.key, data, "application/json"); err != nil {
		return fmt.Errorf("saving state object %s: %w", o.key, err)
	}
	return nil
}
