package session

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryStore keeps encoded session state in process memory.
type MemoryStore struct {
	items *cache.Cache
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	cleanup := ttl / 2
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &MemoryStore{items: cache.New(ttl, cleanup)}
}

func (m *MemoryStore) Load(_ context.Context, id string) (State, error) {
	v, ok := m.items.Get(id)
	if !ok {
		return idle(), nil
	}
	return decode(v.([]byte))
}

// Save stores a copy of st; later mutation of st does not leak into the store.
func (m *MemoryStore) Save(_ context.Context, id string, st State) error {
	b, err := encode(st)
	if err != nil {
		return err
	}
	m.items.Set(id, b, cache.DefaultExpiration)
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.items.Delete(id)
	return nil
}
