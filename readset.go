package tl2

// readSet is the ordered sequence of addresses a transaction has read.
// Order of insertion carries no semantic weight — validation is
// idempotent — but the set must be iterable start to end. A plain
// growable slice stands in for the teacher's/spec's linked list
// (spec.md §9: prefer a vector over a hand-rolled list in a language
// with growable arrays).
type readSet struct {
	addrs []Address
}

func (s *readSet) add(addr Address) {
	s.addrs = append(s.addrs, addr)
}

func (s *readSet) reset() {
	s.addrs = s.addrs[:0]
}
