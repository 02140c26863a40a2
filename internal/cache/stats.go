package cache

import "sync/atomic"

// Stats counts cache hits and misses.
type Stats struct {
	hits   atomic.Uint64
	misses atomic.Uint64
}

func NewStats() *Stats {
	return &Stats{}
}

func (s *Stats) IncHit()  { s.hits.Add(1) }
func (s *Stats) IncMiss() { s.misses.Add(1) }

func (s *Stats) Snapshot() (hits, misses uint64) {
	return s.hits.Load(), s.misses.Load()
}
