package store

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/i474232898/wellness-van-map/internal/sheets"
)

// Entry holds the last successful fetch of one dataset.
type Entry struct {
	Rows      []sheets.Row
	FetchedAt time.Time
}

// MemoryStore is a concurrency-safe in-memory cache of dataset rows.
// Entries never expire on their own; an old entry is still served by Stale
// until it is overwritten or cleared.
type MemoryStore struct {
	mu sync.RWMutex

	// key: dataset name
	data map[string]Entry

	clock clockwork.Clock
}

// NewMemoryStore creates an empty store. A nil clock means the real clock.
func NewMemoryStore(clock clockwork.Clock) *MemoryStore {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &MemoryStore{
		data:  make(map[string]Entry),
		clock: clock,
	}
}

// Read returns the rows for key if they were written less than ttl ago.
// A miss leaves the entry in place.
func (s *MemoryStore) Read(key string, ttl time.Duration) ([]sheets.Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[key]
	if !ok {
		return nil, false
	}
	if s.clock.Since(entry.FetchedAt) >= ttl {
		return nil, false
	}
	return entry.Rows, true
}

// Write stores rows for key, stamped with the current time.
func (s *MemoryStore) Write(key string, rows []sheets.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data[key] = Entry{Rows: rows, FetchedAt: s.clock.Now()}
}

// Stale returns whatever is cached for key regardless of age. It is the
// fallback after a failed fetch.
func (s *MemoryStore) Stale(key string) ([]sheets.Row, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[key]
	if !ok {
		return nil, false
	}
	return entry.Rows, true
}

// FetchedAt reports when key was last written.
func (s *MemoryStore) FetchedAt(key string) (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[key]
	return entry.FetchedAt, ok
}

// Keys lists the cached dataset names in sorted order.
func (s *MemoryStore) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Clear drops every entry.
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = make(map[string]Entry)
}
