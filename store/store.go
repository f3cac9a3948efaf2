// Package store holds an ordered sequence of records for display and exposes
// synchronous mutation primitives for optimistic updates. Every operation is
// total: a stale or unknown id is a no-op, never an error.
package store

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/Borislavv/go-ash-query/model"
)

// Invalidator drops cache keys containing pattern. It is satisfied by the query cache.
type Invalidator interface {
	Invalidate(pattern string) (int, error)
}

type Option func(s *Store)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithInvalidation makes every applied mutation invalidate patterns so the next fetch is fresh.
func WithInvalidation(inv Invalidator, patterns ...string) Option {
	return func(s *Store) {
		s.invalidator = inv
		s.patterns = append(s.patterns, patterns...)
	}
}

type Store struct {
	mu      sync.RWMutex
	items   []model.Record
	version uint64

	// aggregates memoized for the current version only
	memoVersion uint64
	counts      map[string]map[string]int
	groups      map[string]map[string][]model.Record

	invalidator Invalidator
	patterns    []string
	logger      *slog.Logger
}

func New(opts ...Option) *Store {
	s := &Store{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load replaces the whole sequence, preserving the given order.
func (s *Store) Load(records []model.Record) {
	items := make([]model.Record, len(records))
	for i, r := range records {
		items[i] = r.Clone()
	}

	s.mu.Lock()
	s.items = items
	s.version++
	s.mu.Unlock()
}

// Add prepends record. Ids are not checked for uniqueness: adding an id which
// is already present results in two records with that id.
func (s *Store) Add(record model.Record) {
	s.mu.Lock()
	items := make([]model.Record, 0, len(s.items)+1)
	items = append(items, record.Clone())
	s.items = append(items, s.items...)
	s.version++
	s.mu.Unlock()

	s.invalidate("add", record.ID())
}

// Update shallow-merges patch into the first record with id, keeping its position.
func (s *Store) Update(id string, patch model.Record) bool {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.items[idx] = s.items[idx].Merge(patch)
	s.version++
	s.mu.Unlock()

	s.invalidate("update", id)
	return true
}

// Replace swaps the first record with id for record as a whole, keeping its position.
// Unlike Update, fields missing from record are dropped.
func (s *Store) Replace(id string, record model.Record) bool {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	s.items[idx] = record.Clone()
	s.version++
	s.mu.Unlock()

	s.invalidate("replace", id)
	return true
}

// Remove drops the first record with id.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	idx := s.indexOf(id)
	if idx < 0 {
		s.mu.Unlock()
		return false
	}
	items := make([]model.Record, 0, len(s.items)-1)
	items = append(items, s.items[:idx]...)
	s.items = append(items, s.items[idx+1:]...)
	s.version++
	s.mu.Unlock()

	s.invalidate("remove", id)
	return true
}

func (s *Store) FindByID(id string) (model.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if idx := s.indexOf(id); idx >= 0 {
		return s.items[idx].Clone(), true
	}
	return nil, false
}

// All returns a copy of the sequence in display order.
func (s *Store) All() []model.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Record, len(s.items))
	for i, r := range s.items {
		out[i] = r.Clone()
	}
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// CountBy counts records per value of field. Records without the field are counted under "".
func (s *Store) CountBy(field string) map[string]int {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetMemoIfStale()
	counts, ok := s.counts[field]
	if !ok {
		counts = make(map[string]int)
		for _, r := range s.items {
			counts[groupKey(r, field)]++
		}
		s.counts[field] = counts
	}

	out := make(map[string]int, len(counts))
	for k, v := range counts {
		out[k] = v
	}
	return out
}

// GroupBy maps every value of field to the records holding it, in display order.
func (s *Store) GroupBy(field string) map[string][]model.Record {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resetMemoIfStale()
	groups, ok := s.groups[field]
	if !ok {
		groups = make(map[string][]model.Record)
		for _, r := range s.items {
			k := groupKey(r, field)
			groups[k] = append(groups[k], r)
		}
		s.groups[field] = groups
	}

	out := make(map[string][]model.Record, len(groups))
	for k, records := range groups {
		cloned := make([]model.Record, len(records))
		for i, r := range records {
			cloned[i] = r.Clone()
		}
		out[k] = cloned
	}
	return out
}

func (s *Store) indexOf(id string) int {
	for i, r := range s.items {
		if r.ID() == id {
			return i
		}
	}
	return -1
}

func (s *Store) resetMemoIfStale() {
	if s.counts != nil && s.memoVersion == s.version {
		return
	}
	s.memoVersion = s.version
	s.counts = make(map[string]map[string]int)
	s.groups = make(map[string]map[string][]model.Record)
}

// invalidate never fails the mutation: cache trouble is only logged.
func (s *Store) invalidate(op, id string) {
	if s.invalidator == nil {
		return
	}
	for _, pattern := range s.patterns {
		removed, err := s.invalidator.Invalidate(pattern)
		if err != nil {
			s.logger.Warn("invalidate after mutation failed", "op", op, "id", id, "pattern", pattern, "err", err)
			continue
		}
		s.logger.Debug("invalidated after mutation", "op", op, "id", id, "pattern", pattern, "removed", removed)
	}
}

func groupKey(r model.Record, field string) string {
	v, ok := r[field]
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
