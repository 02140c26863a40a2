package cache

import "go.uber.org/zap"

// Transaction applies one optimistic patch to a cache entry and settles
// it exactly once: Commit after the server confirmed the mutation,
// Rollback after it failed. The patch is applied synchronously under the
// store lock, so subscribers observe it before any network I/O starts
// and concurrent patches compose in invocation order.
type Transaction struct {
	store   *Store
	key     string
	applied bool
	settled bool
	prev    any
	patched uint64 // generation right after our patch
}

// Begin opens a transaction on key. Begin itself changes nothing; the
// entry is touched only when Patch runs.
func (s *Store) Begin(key string) *Transaction {
	return &Transaction{store: s, key: key}
}

// Patch replaces the cached value with fn(current) and notifies
// subscribers. fn must be pure and must not mutate its argument; it runs
// once, under the store lock. Patch reports false when there is nothing
// cached to patch — the transaction then settles as a no-op and the
// caller relies on the next fetch instead.
func (t *Transaction) Patch(fn func(current any) any) bool {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.data[t.key]
	if !ok || e.value == nil {
		return false
	}
	t.prev = e.value
	e.value = fn(e.value)
	e.generation++
	t.patched = e.generation
	t.applied = true
	s.notify(e)
	return true
}

// Commit marks the entry stale so the next read reconciles the
// provisional patch with server truth.
func (t *Transaction) Commit() {
	if t.settled {
		return
	}
	t.settled = true
	if !t.applied {
		return
	}
	t.store.Invalidate(t.key)
}

// Rollback undoes this transaction's own patch, restoring the exact
// prior snapshot. If a later write superseded the patch, the stale
// snapshot must not clobber it: the entry is invalidated instead so the
// next read fetches authoritative state.
func (t *Transaction) Rollback() {
	if t.settled {
		return
	}
	t.settled = true
	if !t.applied {
		return
	}

	s := t.store
	s.mu.Lock()
	e, ok := s.data[t.key]
	if !ok {
		s.mu.Unlock()
		return
	}
	if e.generation != t.patched {
		e.stale = true
		e.generation++
		s.notify(e)
		s.mu.Unlock()
		s.log.Debug("rollback superseded, entry invalidated", zap.String("key", t.key))
		return
	}
	e.value = t.prev
	e.generation++
	s.notify(e)
	s.mu.Unlock()
}
