package store

import (
	"cmp"
	"slices"
)

// SortByFingerprint sorts recs by increasing Fingerprint, in place.
func SortByFingerprint(recs []Record) {
	slices.SortFunc(recs, func(a, b Record) int {
		return cmp.Compare(a.Fingerprint, b.Fingerprint)
	})
}
