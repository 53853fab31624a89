package table

import (
	"errors"
	"sync"
	"time"

	"rwlock_kv/store"
)

// ErrLockPoisoned is returned by every operation after a goroutine panicked
// while holding the table lock exclusively. The store may have been left
// half-updated, so it is no longer read or written.
var ErrLockPoisoned = errors.New("table lock poisoned by a panicking writer")

type mode int

const (
	shared mode = iota
	exclusive
)

func (m mode) String() string {
	if m == exclusive {
		return "WRITE"
	}
	return "READ"
}

func (m mode) lock(mu *sync.RWMutex) {
	if m == exclusive {
		mu.Lock()
	} else {
		mu.RLock()
	}
}

func (m mode) unlock(mu *sync.RWMutex) {
	if m == exclusive {
		mu.Unlock()
	} else {
		mu.RUnlock()
	}
}

// withLock runs f on the store holding the table lock in mode m, logging the
// wait, the acquisition and the release on behalf of command id.
//
// ACQUIRED is logged right after the lock is taken and RELEASED right before
// it is dropped, so two WRITE holders never appear to overlap in the log and
// every line f logs falls between its own pair. Every WAITING line is
// followed by ACQUIRED or LOCK POISONED.
func (t *Table) withLock(id uint32, m mode, f func(s *store.Store)) error {
	t.audit.Logf("THREAD %d WAITING FOR MY TURN", id)
	m.lock(&t.mu)
	if t.poisoned.Load() {
		t.audit.Logf("THREAD %d LOCK POISONED", id)
		m.unlock(&t.mu)
		return ErrLockPoisoned
	}
	t.counters.acquired()
	t.recorder.LockAcquired(m.String())
	t.audit.Logf("THREAD %d %s LOCK ACQUIRED", id, m)
	start := time.Now()

	released := false
	defer func() {
		if released {
			return
		}
		// f panicked; the panic continues once the lock is free.
		// A reader cannot have changed the store, so only a writer poisons.
		if m == exclusive {
			t.poisoned.Store(true)
			t.audit.Logf("THREAD %d WRITE LOCK POISONED", id)
		} else {
			t.release(id, m, start)
		}
		m.unlock(&t.mu)
	}()

	f(t.records)

	t.release(id, m, start)
	released = true
	m.unlock(&t.mu)
	return nil
}

// release records and logs the end of a hold; mu is still held.
func (t *Table) release(id uint32, m mode, start time.Time) {
	t.counters.released()
	t.recorder.LockReleased(m.String(), time.Since(start))
	t.audit.Logf("THREAD %d %s LOCK RELEASED", id, m)
}
