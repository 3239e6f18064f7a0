package tl2

// defaultWriteSetIndexSize is S from spec.md §3: the static capacity
// of the write-set index's open-addressed table.
const defaultWriteSetIndexSize = 10000

// writeNode is one buffered write: the shared-memory address it will
// land at on commit, and a privately owned copy of the pending value.
// The buffer is owned by the node; it is reclaimed (by the garbage
// collector) exactly when the node drops out of the write set.
type writeNode struct {
	target Address
	buffer []byte
}

// writeSetIndex is an open-addressed hash table mapping a target
// address to the position of its writeNode in the write set's
// sequence. It is a lookup accelerator only — the sequence in
// writeSet.nodes is what owns the nodes.
//
// get's probe is bounded by the table's own capacity: spec.md §4.4
// documents a reference version of this index whose probe loops
// forever once the table is full and the target is absent (it keeps
// comparing against occupied slots and never reaches one that's
// empty). Bounding the scan by capacity, rather than looping until an
// empty slot turns up, is the fix.
type writeSetIndex struct {
	keys     []Address
	slots    []int // index into writeSet.nodes; meaningful only where occupied[i]
	occupied []bool
}

func newWriteSetIndex(size int) *writeSetIndex {
	if size <= 0 {
		size = defaultWriteSetIndexSize
	}
	return &writeSetIndex{
		keys:     make([]Address, size),
		slots:    make([]int, size),
		occupied: make([]bool, size),
	}
}

func (idx *writeSetIndex) hash(addr Address) int {
	return int(uintptr(addr) % uintptr(len(idx.keys)))
}

// get returns the node index for target, or (0, false) on a miss.
func (idx *writeSetIndex) get(target Address) (int, bool) {
	n := len(idx.keys)
	start := idx.hash(target)
	for i := 0; i < n; i++ {
		slot := (start + i) % n
		if !idx.occupied[slot] {
			return 0, false
		}
		if idx.keys[slot] == target {
			return idx.slots[slot], true
		}
	}
	return 0, false
}

// add installs target -> nodeIdx, probing linearly past occupied
// slots. It never compares keys while inserting (spec.md §4.4) — a
// prior entry for the same target must go through overwrite instead,
// never through add again.
func (idx *writeSetIndex) add(target Address, nodeIdx int) bool {
	n := len(idx.keys)
	start := idx.hash(target)
	for i := 0; i < n; i++ {
		slot := (start + i) % n
		if !idx.occupied[slot] {
			idx.occupied[slot] = true
			idx.keys[slot] = target
			idx.slots[slot] = nodeIdx
			return true
		}
	}
	return false // capacity exceeded: a design fault, per spec.md §3
}

func (idx *writeSetIndex) reset() {
	for i := range idx.occupied {
		idx.occupied[i] = false
	}
}

// writeSet is the per-transaction log of buffered writes: an
// append-only ordered sequence of nodes plus the index above for O(1)
// membership tests.
type writeSet struct {
	nodes []writeNode
	index *writeSetIndex
}

func newWriteSet(indexSize int) *writeSet {
	return &writeSet{index: newWriteSetIndex(indexSize)}
}

// find looks up target, returning its node index if present.
func (s *writeSet) find(target Address) (int, bool) {
	return s.index.get(target)
}

// add appends a new node for target, holding a copy of source,
// and installs it in the index. Caller must have already confirmed
// target is not already present (via find) — add does not check.
func (s *writeSet) add(target Address, source []byte) bool {
	buf := make([]byte, len(source))
	copy(buf, source)
	s.nodes = append(s.nodes, writeNode{target: target, buffer: buf})
	return s.index.add(target, len(s.nodes)-1)
}

// overwrite replaces the buffered value of an existing node in place.
func (s *writeSet) overwrite(nodeIdx int, source []byte) {
	copy(s.nodes[nodeIdx].buffer, source)
}

func (s *writeSet) len() int {
	return len(s.nodes)
}

func (s *writeSet) reset() {
	s.nodes = s.nodes[:0]
	s.index.reset()
}
