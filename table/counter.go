package table

import (
	"sync"

	"github.com/goose-lang/std"
)

// LockCounters counts logged lock acquisitions and releases over the life of
// a table. A table bumps each count exactly once per ACQUIRED or RELEASED
// audit line.
type LockCounters struct {
	mu           sync.Mutex
	acquisitions uint64
	releases     uint64
}

func NewLockCounters() *LockCounters {
	return &LockCounters{}
}

func (lc *LockCounters) acquired() {
	lc.mu.Lock()
	lc.acquisitions = std.SumAssumeNoOverflow(lc.acquisitions, 1)
	lc.mu.Unlock()
}

func (lc *LockCounters) released() {
	lc.mu.Lock()
	lc.releases = std.SumAssumeNoOverflow(lc.releases, 1)
	lc.mu.Unlock()
}

// snapshot reads both counts at one instant.
func (lc *LockCounters) snapshot() (acquisitions, releases uint64) {
	lc.mu.Lock()
	defer lc.mu.Unlock()
	return lc.acquisitions, lc.releases
}

func (lc *LockCounters) Acquisitions() uint64 {
	n, _ := lc.snapshot()
	return n
}

func (lc *LockCounters) Releases() uint64 {
	_, n := lc.snapshot()
	return n
}
