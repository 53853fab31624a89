// Package table implements the concurrent table: one record chain guarded
// by one reader/writer lock, with every lock transition written to the
// audit log.
//
// Insert, Delete and Update take the lock exclusively; Search and Print
// share it. Every operation follows the same protocol:
//
//	THREAD <id> <COMMAND>,<args>
//	THREAD <id> WAITING FOR MY TURN
//	THREAD <id> <WRITE|READ> LOCK ACQUIRED
//	<result lines>
//	THREAD <id> <WRITE|READ> LOCK RELEASED
//
// The id only labels log lines. It plays no part in scheduling.
package table

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"rwlock_kv/audit"
	"rwlock_kv/hasher"
	"rwlock_kv/store"
)

// A Recorder observes lock transitions and operation outcomes, for metrics.
type Recorder interface {
	LockAcquired(mode string)
	LockReleased(mode string, held time.Duration)
	Outcome(op, outcome string)
}

type nopRecorder struct{}

func (nopRecorder) LockAcquired(string)                {}
func (nopRecorder) LockReleased(string, time.Duration) {}
func (nopRecorder) Outcome(string, string)             {}

type Option func(*Table)

// WithConsole echoes result lines (without timestamps) to w.
func WithConsole(w io.Writer) Option {
	return func(t *Table) { t.console = w }
}

func WithRecorder(r Recorder) Option {
	return func(t *Table) { t.recorder = r }
}

type Table struct {
	mu       sync.RWMutex
	records  *store.Store
	poisoned atomic.Bool

	audit    *audit.Logger
	counters *LockCounters
	recorder Recorder

	consoleMu sync.Mutex
	console   io.Writer
}

// New returns an empty table. The logger and counters are shared with the
// caller, which reads the counters and closes the logger.
func New(log *audit.Logger, counters *LockCounters, opts ...Option) *Table {
	t := &Table{
		records:  store.New(),
		audit:    log,
		counters: counters,
		recorder: nopRecorder{},
		console:  io.Discard,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// result writes one result line to the audit log and the console.
func (t *Table) result(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	t.audit.Log(msg)
	t.consoleMu.Lock()
	fmt.Fprintln(t.console, msg)
	t.consoleMu.Unlock()
}

// Insert adds name with value. It reports false, leaving the existing
// record untouched, if the fingerprint of name is already present.
func (t *Table) Insert(id uint32, name string, value uint32) (bool, error) {
	fp := hasher.Hash(name)
	t.audit.Logf("THREAD %d INSERT,%s,%d", id, name, value)

	var inserted bool
	err := t.withLock(id, exclusive, func(s *store.Store) {
		inserted = s.Insert(name, value, fp)
		if inserted {
			t.result("Inserted %d,%s,%d", fp, name, value)
		} else {
			t.result("Insert failed. Entry %d is a duplicate.", fp)
		}
	})
	if err != nil {
		return false, err
	}
	t.recorder.Outcome("insert", outcome(inserted, "inserted", "duplicate"))
	return inserted, nil
}

func (t *Table) Delete(id uint32, name string) (bool, error) {
	fp := hasher.Hash(name)
	t.audit.Logf("THREAD %d DELETE,%s", id, name)

	var deleted bool
	err := t.withLock(id, exclusive, func(s *store.Store) {
		deleted = s.Delete(fp)
		if deleted {
			t.result("Deleted record for %d,%s", fp, name)
		} else {
			t.result("Entry %d not deleted. Not in database.", fp)
		}
	})
	if err != nil {
		return false, err
	}
	t.recorder.Outcome("delete", outcome(deleted, "deleted", "not_found"))
	return deleted, nil
}

// Update overwrites the value of an existing record and returns the old
// value. It never creates a record.
func (t *Table) Update(id uint32, name string, value uint32) (uint32, bool, error) {
	fp := hasher.Hash(name)
	t.audit.Logf("THREAD %d UPDATE,%s,%d", id, name, value)

	var old uint32
	var found bool
	err := t.withLock(id, exclusive, func(s *store.Store) {
		r := s.Find(fp)
		if r == nil {
			t.result("Update failed. Entry %d not found.", fp)
			return
		}
		found = true
		old = r.Value
		r.Value = value
		t.result("Updated record %d from %d,%s,%d to %d,%s,%d",
			fp, fp, r.Name, old, fp, r.Name, value)
	})
	if err != nil {
		return 0, false, err
	}
	t.recorder.Outcome("update", outcome(found, "updated", "not_found"))
	return old, found, nil
}

func (t *Table) Search(id uint32, name string) (store.Record, bool, error) {
	fp := hasher.Hash(name)
	t.audit.Logf("THREAD %d SEARCH,%s", id, name)

	var rec store.Record
	var found bool
	err := t.withLock(id, shared, func(s *store.Store) {
		rec, found = s.Search(fp)
		if found {
			t.result("Found: %s", rec)
		} else {
			t.result("%s not found.", name)
		}
	})
	if err != nil {
		return store.Record{}, false, err
	}
	t.recorder.Outcome("search", outcome(found, "found", "not_found"))
	return rec, found, nil
}

// Print logs every record in ascending fingerprint order and returns them.
func (t *Table) Print(id uint32) ([]store.Record, error) {
	t.audit.Logf("THREAD %d PRINT", id)

	var recs []store.Record
	err := t.withLock(id, shared, func(s *store.Store) {
		recs = s.Snapshot()
		store.SortByFingerprint(recs)
		t.result("Current Database:")
		for _, r := range recs {
			t.result("%s", r)
		}
	})
	if err != nil {
		return nil, err
	}
	t.recorder.Outcome("print", "printed")
	return recs, nil
}

// FinalPrint writes the closing summary: lock counts followed by the sorted
// table. It must run after every other operation has returned. Its own read
// of the table is neither logged as a command nor counted.
func (t *Table) FinalPrint() ([]store.Record, error) {
	t.mu.RLock()
	if t.poisoned.Load() {
		t.mu.RUnlock()
		return nil, ErrLockPoisoned
	}
	recs := t.records.Snapshot()
	t.mu.RUnlock()
	store.SortByFingerprint(recs)

	acquisitions, releases := t.counters.snapshot()
	lines := []string{
		"",
		fmt.Sprintf("Number of lock acquisitions: %d", acquisitions),
		fmt.Sprintf("Number of lock releases: %d", releases),
		"Final Table:",
	}
	for _, r := range recs {
		lines = append(lines, r.String())
	}

	t.consoleMu.Lock()
	defer t.consoleMu.Unlock()
	for _, line := range lines {
		t.audit.Plain(line)
		fmt.Fprintln(t.console, line)
	}
	return recs, nil
}

func outcome(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
