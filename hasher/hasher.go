package hasher

// Hash computes the 32-bit fingerprint of a name using Bob Jenkins'
// one-at-a-time hash.
//
// Distinct names may collide; the table treats a collision as the same key.
// Output is stable across runs since prior audit logs are compared against
// it, so the mixing constants must not change.
func Hash(name string) uint32 {
	var h = uint32(0)
	for i := 0; i < len(name); i++ {
		h += uint32(name[i])
		h += h << 10
		h ^= h >> 6
	}
	h += h << 3
	h ^= h >> 11
	h += h << 15
	return h
}
