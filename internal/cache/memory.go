package cache

import (
	"container/list"
	"context"
	"hash/fnv"
	"sync"
	"time"
)

const shardCount = 16

// Memory is a sharded in-process store with per-entry TTL and LRU eviction.
// Sharding keeps lock contention low when many QA requests land at once.
type Memory struct {
	shards      [shardCount]*memoryShard
	maxPerShard int
	now         func() time.Time
}

type memoryShard struct {
	mu    sync.Mutex
	order *list.List
	items map[string]*list.Element
}

type memoryEntry struct {
	key       string
	value     string
	expiresAt time.Time
}

// NewMemory creates a Memory store holding at most maxSize entries.
func NewMemory(maxSize int) *Memory {
	if maxSize <= 0 {
		maxSize = 1000
	}
	perShard := (maxSize + shardCount - 1) / shardCount
	m := &Memory{maxPerShard: perShard, now: time.Now}
	for i := range m.shards {
		m.shards[i] = &memoryShard{
			order: list.New(),
			items: make(map[string]*list.Element),
		}
	}
	return m
}

func (m *Memory) shard(key string) *memoryShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return m.shards[h.Sum32()%shardCount]
}

// Get returns the value for key if present and unexpired, promoting it to
// most recently used.
func (m *Memory) Get(_ context.Context, key string) (string, bool) {
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.items[key]
	if !ok {
		return "", false
	}
	entry := el.Value.(*memoryEntry)
	if m.now().After(entry.expiresAt) {
		s.order.Remove(el)
		delete(s.items, key)
		return "", false
	}
	s.order.MoveToFront(el)
	return entry.value, true
}

// Set stores a value, evicting the least recently used entry when the shard
// is full.
func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) {
	s := m.shard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.items[key]; ok {
		entry := el.Value.(*memoryEntry)
		entry.value = value
		entry.expiresAt = m.now().Add(ttl)
		s.order.MoveToFront(el)
		return
	}

	if s.order.Len() >= m.maxPerShard {
		oldest := s.order.Back()
		if oldest != nil {
			s.order.Remove(oldest)
			delete(s.items, oldest.Value.(*memoryEntry).key)
		}
	}

	el := s.order.PushFront(&memoryEntry{key: key, value: value, expiresAt: m.now().Add(ttl)})
	s.items[key] = el
}

// Len returns the number of live entries across all shards. Expired entries
// still count until observed.
func (m *Memory) Len() int {
	total := 0
	for _, s := range m.shards {
		s.mu.Lock()
		total += s.order.Len()
		s.mu.Unlock()
	}
	return total
}
