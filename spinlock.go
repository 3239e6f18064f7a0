package tl2

import (
	"runtime"
	"sync/atomic"
)

// takenBit packs a stripe's lock state into a single atomic word: the
// high bit records whether the stripe is held, the remaining 63 bits
// hold its version. This mirrors the teacher's versionedWriteLock
// packing (one CAS-able word instead of two separate atomics), which
// is what lets validate observe taken-ness and version together.
const takenBit = uint64(1) << 63
const versionMask = takenBit - 1

// versionedSpinlock is one stripe of the lock table: a taken bit plus a
// monotonically non-decreasing version, both observed through a single
// atomic word.
type versionedSpinlock struct {
	word atomic.Uint64
}

// spinBackoff bounds how hard acquire spins before giving up. B bursts
// of pause instructions, as spec'd; the exact counts are tunables
// (see Option WithSpinBound).
type spinBackoff struct {
	bursts       int
	pausesPerRun int
}

var defaultBackoff = spinBackoff{bursts: 10, pausesPerRun: 4}

func pause() {
	runtime.Gosched()
}

// acquire attempts to set the taken bit. On contention it spins for a
// bounded number of pause bursts before giving up, so the commit
// protocol fails fast instead of deadlocking against another writer
// holding an overlapping stripe.
func (l *versionedSpinlock) acquire(b spinBackoff) bool {
	for burst := 0; ; burst++ {
		w := l.word.Load()
		if w&takenBit == 0 {
			if l.word.CompareAndSwap(w, w|takenBit) {
				return true
			}
			// lost the race to another acquirer; retry without
			// counting it against the spin bound.
			burst--
			continue
		}
		if burst >= b.bursts {
			return false
		}
		for i := 0; i < b.pausesPerRun; i++ {
			pause()
		}
	}
}

// release clears the taken bit, leaving version untouched. Undefined
// behavior if the caller does not hold the lock.
func (l *versionedSpinlock) release() {
	w := l.word.Load()
	l.word.Store(w &^ takenBit)
}

// update stamps a new version. Precondition: caller holds the lock.
func (l *versionedSpinlock) update(v uint64) {
	l.word.Store(takenBit | (v & versionMask))
}

// validate reports whether the stripe is free and its version does not
// exceed rv — the two conditions a reader's (or read-set entry's)
// snapshot must satisfy to remain consistent.
func (l *versionedSpinlock) validate(rv uint64) bool {
	w := l.word.Load()
	taken := w&takenBit != 0
	version := w & versionMask
	return !taken && version <= rv
}

// load returns the raw (taken, version) pair, for tests that need the
// two fields separately. validate does not tell which transaction holds
// a taken stripe, so the commit engine's read-set validation treats a
// stripe the committing transaction locked itself (a word it both read
// and wrote) like any other taken stripe.
func (l *versionedSpinlock) load() (taken bool, version uint64) {
	w := l.word.Load()
	return w&takenBit != 0, w & versionMask
}
