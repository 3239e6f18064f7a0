package tl2

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestRegion(t *testing.T) *Region {
	t.Helper()
	r, err := NewRegion(64, 8)
	require.NoError(t, err)
	return r
}

func TestZeroSizeReadIsRejected(t *testing.T) {
	r := newTestRegion(t)
	txn := r.Begin(true)
	require.False(t, r.Read(txn, r.Start(), 0, make([]byte, 8)))
}

func TestUnbufferedSizeMismatchIsRejected(t *testing.T) {
	r := newTestRegion(t)
	txn := r.Begin(false)
	require.False(t, r.Write(txn, []byte{1, 2, 3}, 8, r.Start()))
}

// Scenario 1: single-writer, single-reader round-trip.
func TestSingleWriterSingleReaderRoundTrip(t *testing.T) {
	r := newTestRegion(t)

	wtxn := r.Begin(false)
	payload := []byte{0x11, 0x12, 0x13, 0x14, 0x15, 0x16, 0x17, 0x18}
	require.True(t, r.Write(wtxn, payload, 8, r.Start()))
	require.True(t, r.End(wtxn))

	rtxn := r.Begin(true)
	got := make([]byte, 8)
	require.True(t, r.Read(rtxn, r.Start(), 8, got))
	require.Equal(t, payload, got)
	require.True(t, r.End(rtxn))
}

// Scenario 2: read-your-writes, then a later read-only transaction
// observes the committed value.
func TestReadYourWrites(t *testing.T) {
	r := newTestRegion(t)
	offset8 := Address(uintptr(r.Start()) + 8)

	txn := r.Begin(false)
	word := []byte{0xAA, 0, 0, 0, 0, 0, 0, 0}
	require.True(t, r.Write(txn, word, 8, offset8))
	got := make([]byte, 8)
	require.True(t, r.Read(txn, offset8, 8, got))
	require.Equal(t, word, got)
	require.True(t, r.End(txn))

	rtxn := r.Begin(true)
	got2 := make([]byte, 8)
	require.True(t, r.Read(rtxn, offset8, 8, got2))
	require.Equal(t, word, got2)
	require.True(t, r.End(rtxn))
}

// A transaction writing a word twice yields the second value on
// commit.
func TestDoubleWriteYieldsSecondValue(t *testing.T) {
	r := newTestRegion(t)

	txn := r.Begin(false)
	require.True(t, r.Write(txn, []byte{1, 0, 0, 0, 0, 0, 0, 0}, 8, r.Start()))
	require.True(t, r.Write(txn, []byte{2, 0, 0, 0, 0, 0, 0, 0}, 8, r.Start()))
	require.True(t, r.End(txn))

	rtxn := r.Begin(true)
	got := make([]byte, 8)
	require.True(t, r.Read(rtxn, r.Start(), 8, got))
	require.Equal(t, []byte{2, 0, 0, 0, 0, 0, 0, 0}, got)
	require.True(t, r.End(rtxn))
}

// Scenario 3: write-write conflict. Both transactions begin at the
// same clock value and write the same word; forcing t1's commit to
// actually hold the stripe while t2 attempts to acquire it reproduces
// the conflict deterministically (two End calls that merely run one
// after another never contend, since the first one's lock phase has
// already released by the time the second starts).
func TestWriteWriteConflictAbort(t *testing.T) {
	r := newTestRegion(t)

	t1 := r.Begin(false)
	t2 := r.Begin(false)
	require.True(t, r.Write(t1, []byte{1, 0, 0, 0, 0, 0, 0, 0}, 8, r.Start()))
	require.True(t, r.Write(t2, []byte{2, 0, 0, 0, 0, 0, 0, 0}, 8, r.Start()))

	// Stand in for t1 actively holding its write-set lock mid-commit.
	require.True(t, r.locks.acquire(r.Start()))

	c2 := r.End(t2)
	require.False(t, c2, "t2 must abort while t1's stripe is held")

	r.locks.release(r.Start())
	c1 := r.End(t1)
	require.True(t, c1, "t1 must commit once it can acquire its own stripe")

	rtxn := r.Begin(true)
	got := make([]byte, 8)
	require.True(t, r.Read(rtxn, r.Start(), 8, got))
	require.Equal(t, byte(1), got[0])
	require.True(t, r.End(rtxn))
}

// Scenario 4: a read-only transaction's next read observes a version
// bump from a concurrent, already-committed writer and aborts.
func TestReadWriteConflictAbort(t *testing.T) {
	r := newTestRegion(t)

	rtxn := r.Begin(true)
	got := make([]byte, 8)
	require.True(t, r.Read(rtxn, r.Start(), 8, got))

	wtxn := r.Begin(false)
	require.True(t, r.Write(wtxn, []byte{9, 0, 0, 0, 0, 0, 0, 0}, 8, r.Start()))
	require.True(t, r.End(wtxn))

	require.False(t, r.Read(rtxn, r.Start(), 8, make([]byte, 8)))
}

// Scenario 5: fast-path validation skip. A solitary writer's wv is
// exactly rv+1, so its (empty) read-set validation is skipped, and the
// commit still succeeds.
func TestFastPathCommitWithNoConcurrentWriter(t *testing.T) {
	r := newTestRegion(t)
	txn := r.Begin(false)
	require.True(t, r.Write(txn, []byte{1, 0, 0, 0, 0, 0, 0, 0}, 8, r.Start()))
	require.True(t, r.End(txn))
}

// Scenario 6: bounded spin abort. Two writers contend on the same
// stripe; with a spin bound of one burst and one thread pinned holding
// the lock, the contender must abort rather than deadlock.
func TestBoundedSpinAbortsRatherThanDeadlocks(t *testing.T) {
	r, err := NewRegion(64, 8, WithSpinBound(1, 1))
	require.NoError(t, err)

	holder := r.Begin(false)
	require.True(t, r.Write(holder, []byte{1, 0, 0, 0, 0, 0, 0, 0}, 8, r.Start()))

	// Directly exercise the lock table the way End's lock phase would,
	// pinning the stripe held so the second acquirer is guaranteed to
	// contend.
	require.True(t, r.locks.acquire(r.Start()))

	contender := r.Begin(false)
	require.True(t, r.Write(contender, []byte{2, 0, 0, 0, 0, 0, 0, 0}, 8, r.Start()))

	done := make(chan bool, 1)
	go func() { done <- r.End(contender) }()
	require.False(t, <-done)

	r.locks.release(r.Start())
	require.True(t, r.End(holder))
}
