package store

import (
	"strconv"

	"github.com/goose-lang/primitive"
)

// Record is one entry of the table. Fingerprint is derived from Name and
// never changes; Value is the only mutable field.
type Record struct {
	Fingerprint uint32
	Name        string
	Value       uint32
}

// String renders the record as "fingerprint,name,value", the format used in
// table dumps.
func (r Record) String() string {
	return strconv.FormatUint(uint64(r.Fingerprint), 10) + "," + r.Name + "," +
		strconv.FormatUint(uint64(r.Value), 10)
}

type node struct {
	rec  Record
	next *node
}

// Store is a singly-linked chain of records with at most one record per
// fingerprint. Newest records are at the head.
//
// Store does no locking; callers hold the table lock around every call.
type Store struct {
	head *node
	n    uint64
}

func New() *Store {
	return &Store{}
}

// Find returns a pointer to the record with fingerprint fp, so an update can
// change its value in place, or nil if there is none.
func (s *Store) Find(fp uint32) *Record {
	for n := s.head; n != nil; n = n.next {
		if n.rec.Fingerprint == fp {
			return &n.rec
		}
	}
	return nil
}

// Insert prepends a new record. It returns false and leaves the store
// unchanged if a record with the same fingerprint already exists, even if
// the names differ.
func (s *Store) Insert(name string, value uint32, fp uint32) bool {
	if s.Find(fp) != nil {
		return false
	}
	s.head = &node{
		rec:  Record{Fingerprint: fp, Name: name, Value: value},
		next: s.head,
	}
	s.n++
	return true
}

// delete unlinks the record with fingerprint fp from the chain starting at
// n and returns the new start of that chain.
func (n *node) delete(fp uint32) (*node, bool) {
	if n == nil {
		return n, false
	}
	if n.rec.Fingerprint == fp {
		// fingerprints are unique, so the rest of the chain is kept as is
		return n.next, true
	}
	next, ok := n.next.delete(fp)
	n.next = next
	return n, ok
}

// Delete removes the record with fingerprint fp and reports whether one was
// found. The remaining records keep their relative order.
func (s *Store) Delete(fp uint32) bool {
	head, ok := s.head.delete(fp)
	s.head = head
	if ok {
		primitive.Assert(s.n > 0)
		s.n--
	}
	return ok
}

// Search returns a copy of the record with fingerprint fp.
func (s *Store) Search(fp uint32) (Record, bool) {
	r := s.Find(fp)
	if r == nil {
		return Record{}, false
	}
	return *r, true
}

// Snapshot copies out every record in chain order (newest first). Use
// SortByFingerprint for display order.
func (s *Store) Snapshot() []Record {
	out := make([]Record, 0, s.n)
	for n := s.head; n != nil; n = n.next {
		out = append(out, n.rec)
	}
	primitive.Assert(uint64(len(out)) == s.n)
	return out
}

func (s *Store) Len() int {
	return int(s.n)
}
