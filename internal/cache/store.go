// Package cache is a keyed in-memory store for query results. One entry
// exists per distinct query key; entries carry a generation counter, a
// staleness flag and a subscriber list. Values are treated as immutable
// snapshots: writers store fresh copies, readers never mutate what they
// get back.
package cache

import (
	"sync"

	"go.uber.org/zap"
)

type subscriber struct {
	id int
	ch chan struct{}
}

type entry struct {
	value       any
	generation  uint64
	stale       bool
	subscribers []subscriber
}

// Store holds cache entries keyed by endpoint plus serialized arguments.
type Store struct {
	mu     sync.RWMutex
	data   map[string]*entry
	nextID int
	stats  *Stats
	log    *zap.Logger
}

func NewStore(log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{
		data:  make(map[string]*entry),
		stats: NewStats(),
		log:   log,
	}
}

// Lookup returns the cached value for key. ok is false on a miss; stale
// reports whether the entry has been invalidated since it was last set.
func (s *Store) Lookup(key string) (value any, ok bool, stale bool) {
	s.mu.RLock()
	e, ok := s.data[key]
	if ok {
		value, stale = e.value, e.stale
	}
	s.mu.RUnlock()

	if !ok || value == nil {
		s.stats.IncMiss()
		return nil, false, false
	}
	s.stats.IncHit()
	return value, true, stale
}

// Set stores a fresh value for key, bumps the generation and notifies
// subscribers. A Set clears staleness: the value is authoritative until
// the next invalidation.
func (s *Store) Set(key string, value any) {
	s.mu.Lock()
	e := s.ensure(key)
	e.value = value
	e.generation++
	e.stale = false
	s.notify(e)
	s.mu.Unlock()
}

// Invalidate marks the entry stale so the next read re-fetches, and
// notifies subscribers. Unknown keys are ignored.
func (s *Store) Invalidate(key string) {
	s.mu.Lock()
	if e, ok := s.data[key]; ok {
		e.stale = true
		e.generation++
		s.notify(e)
		s.log.Debug("cache entry invalidated", zap.String("key", key))
	}
	s.mu.Unlock()
}

// InvalidateAll marks every entry stale.
func (s *Store) InvalidateAll() {
	s.mu.Lock()
	for _, e := range s.data {
		e.stale = true
		e.generation++
		s.notify(e)
	}
	s.mu.Unlock()
}

// Generation returns the current generation of key, zero if absent.
func (s *Store) Generation(key string) uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if e, ok := s.data[key]; ok {
		return e.generation
	}
	return 0
}

// Subscribe registers interest in key. The returned channel receives a
// coalesced signal on every write to the entry; Cancel must be called
// when the subscriber goes away.
func (s *Store) Subscribe(key string) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.ensure(key)
	s.nextID++
	sub := subscriber{id: s.nextID, ch: make(chan struct{}, 1)}
	e.subscribers = append(e.subscribers, sub)
	return &Subscription{store: s, key: key, id: sub.id, C: sub.ch}
}

// Len returns the number of live entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Stats exposes hit/miss counters.
func (s *Store) Stats() (hits, misses uint64) {
	return s.stats.Snapshot()
}

func (s *Store) ensure(key string) *entry {
	e, ok := s.data[key]
	if !ok {
		e = &entry{}
		s.data[key] = e
	}
	return e
}

// notify signals all subscribers of e without blocking; a subscriber that
// has not drained its channel keeps the single pending signal.
func (s *Store) notify(e *entry) {
	for _, sub := range e.subscribers {
		select {
		case sub.ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) unsubscribe(key string, id int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[key]
	if !ok {
		return
	}
	for i, sub := range e.subscribers {
		if sub.id == id {
			e.subscribers = append(e.subscribers[:i], e.subscribers[i+1:]...)
			break
		}
	}
	// Entries are garbage-collected once their last subscriber leaves.
	if len(e.subscribers) == 0 {
		delete(s.data, key)
	}
}

// Subscription is a live interest registration on one cache entry.
type Subscription struct {
	store *Store
	key   string
	id    int

	// C receives a signal whenever the entry changes.
	C <-chan struct{}
}

// Cancel removes the subscription. The entry is dropped from the store
// when its last subscriber cancels.
func (s *Subscription) Cancel() {
	s.store.unsubscribe(s.key, s.id)
}
