package tl2

// txnState tracks where a transaction sits in the Active -> Committed |
// Aborted state machine (spec.md §4.6). The commit engine sets it on
// commit and abort; no operation reads it, so reusing a handle after it
// failed is not detected.
type txnState int

const (
	txnActive txnState = iota
	txnCommitted
	txnAborted
)

// Transaction bundles everything one speculative execution needs:
// whether it is read-only, the clock value it began at, and (for
// read-write transactions) its read and write sets. It is created by
// Region.Begin, mutated only by the issuing actor, and torn down by
// Region.End or by any internal abort path — never reused afterward.
type Transaction struct {
	isRO  bool
	rv    uint64
	state txnState

	reads  readSet
	writes *writeSet

	// locked records, in acquisition order, the stripes this
	// transaction's commit attempt has acquired so far, so a failed
	// lock phase can release exactly what it took.
	locked []Address
}

func newTransaction(isRO bool, rv uint64, writeSetIndexSize int) *Transaction {
	t := &Transaction{isRO: isRO, rv: rv, state: txnActive}
	if !isRO {
		t.writes = newWriteSet(writeSetIndexSize)
	}
	return t
}

// cleanup releases the transaction's read/write sets. The handle must
// not be used again afterward; there is no reuse path (spec.md §1
// non-goals: the caller re-issues Begin rather than restarting a
// failed transaction).
func (t *Transaction) cleanup() {
	t.reads.reset()
	if t.writes != nil {
		t.writes.reset()
	}
	t.locked = nil
}
