package tl2

import "log/slog"

// AllocStatus is the outcome of Region.Alloc.
type AllocStatus int

const (
	// AllocSuccess means the returned Address is the first address of a
	// freshly zeroed, size-byte segment linked into the region.
	AllocSuccess AllocStatus = iota
	// AllocNoMem means the allocation could not be satisfied.
	AllocNoMem
	// AllocAbort means the calling transaction must abort.
	AllocAbort
)

// Begin opens a new transaction against r, sampling the current clock
// value as its read version. isRO fixes whether the transaction may
// buffer writes for its entire lifetime.
func (r *Region) Begin(isRO bool) *Transaction {
	return newTransaction(isRO, r.clock.get(), r.writeSetIndexSize)
}

// Read copies size bytes, word by word, from the shared address source
// into the private buffer target, through txn's speculative view. size
// must be a positive multiple of r.Align(); source must be aligned.
// Returns false (after terminating the transaction) on a validation
// failure.
func (r *Region) Read(txn *Transaction, source Address, size uintptr, target []byte) bool {
	if size == 0 || size%r.align != 0 || uintptr(len(target)) < size {
		r.abortTxn(txn, "read: invalid size", slog.Uint64("size", uint64(size)))
		return false
	}

	for off := uintptr(0); off < size; off += r.align {
		wordAddr := Address(uintptr(source) + off)
		dst := target[off : off+r.align]

		if txn.isRO {
			copy(dst, wordAt(wordAddr, r.align))
			if !r.locks.validate(wordAddr, txn.rv) {
				r.abortTxn(txn, "read-only validation failed", slog.Uint64("addr", uint64(wordAddr)))
				return false
			}
			continue
		}

		if nodeIdx, ok := txn.writes.find(wordAddr); ok {
			copy(dst, txn.writes.nodes[nodeIdx].buffer)
		} else {
			copy(dst, wordAt(wordAddr, r.align))
			txn.reads.add(wordAddr)
		}
		if !r.locks.validate(wordAddr, txn.rv) {
			r.abortTxn(txn, "read-write validation failed", slog.Uint64("addr", uint64(wordAddr)))
			return false
		}
	}
	return true
}

// Write buffers size bytes, word by word, from the private buffer
// source into txn's write set, to be installed at the shared address
// target on a successful End. Never touches shared memory, the lock
// table, or the clock.
func (r *Region) Write(txn *Transaction, source []byte, size uintptr, target Address) bool {
	if txn.isRO {
		r.abortTxn(txn, "write on read-only transaction", slog.Uint64("addr", uint64(target)))
		return false
	}
	if size == 0 || size%r.align != 0 || uintptr(len(source)) < size {
		r.abortTxn(txn, "write: invalid size", slog.Uint64("size", uint64(size)))
		return false
	}

	for off := uintptr(0); off < size; off += r.align {
		wordAddr := Address(uintptr(target) + off)
		src := source[off : off+r.align]

		if nodeIdx, ok := txn.writes.find(wordAddr); ok {
			txn.writes.overwrite(nodeIdx, src)
		} else {
			txn.writes.add(wordAddr, src)
		}
	}
	return true
}

// End attempts to commit txn. Read-only transactions always commit
// (they hold no locks and touch the clock only at Begin). Read-write
// transactions run the full TL2 lock/sample/validate/writeback
// sequence; any step's failure aborts and releases whatever locks this
// attempt had acquired.
func (r *Region) End(txn *Transaction) bool {
	if txn.isRO {
		txn.state = txnCommitted
		txn.cleanup()
		return true
	}

	// Lock phase: acquire every write-set stripe, in sequence order.
	// Because acquisition is try-with-bound rather than globally
	// ordered, deadlock is prevented by the bound, not by lock order.
	for _, node := range txn.writes.nodes {
		if !r.locks.acquire(node.target) {
			r.releaseLocked(txn)
			r.abortTxn(txn, "lock phase: acquire failed", slog.Uint64("addr", uint64(node.target)))
			return false
		}
		txn.locked = append(txn.locked, node.target)
	}

	// The clock increment must happen only after every write-set lock
	// is held, or a later-acquiring concurrent writer's updates could
	// slip past this transaction's read-set validation unseen.
	wv := r.clock.incrementAndGet()

	if wv != txn.rv+1 {
		// Fast path (wv == rv+1) means no other writer committed
		// between this transaction's Begin and its lock phase, so the
		// read set cannot have gone stale; skip validating it.
		for _, addr := range txn.reads.addrs {
			if !r.locks.validate(addr, txn.rv) {
				r.releaseLocked(txn)
				r.abortTxn(txn, "read-set validation failed", slog.Uint64("addr", uint64(addr)))
				return false
			}
		}
	}

	// Writeback phase: publish each buffered value, stamp its stripe
	// with wv, then release it.
	for _, node := range txn.writes.nodes {
		dst := wordAt(node.target, r.align)
		copy(dst, node.buffer)
		r.locks.update(node.target, wv)
		r.locks.release(node.target)
	}

	txn.state = txnCommitted
	txn.cleanup()
	return true
}

// Alloc allocates a zeroed, size-byte segment, links it into the
// region's allocation list under the coarse segment mutex, and
// returns its first address. Allocations are never rolled back on
// abort: once linked, a segment is permanently part of the region
// until Destroy.
func (r *Region) Alloc(txn *Transaction, size uintptr) (Address, AllocStatus) {
	if size == 0 || size%r.align != 0 {
		return 0, AllocAbort
	}

	seg := &segment{data: make([]byte, size)}

	r.segMu.Lock()
	seg.next = r.segments
	r.segments = seg
	r.segMu.Unlock()

	r.logger.Debug("segment allocated", slog.Uint64("size", uint64(size)), slog.Uint64("addr", uint64(seg.start())))
	return seg.start(), AllocSuccess
}

// Free logically marks a segment as freed. Reclamation is deferred to
// Destroy, so this is conformant as a trivial no-op (spec.md §4.6):
// no concurrent reader can ever observe a dangling address, since
// nothing is actually freed early.
func (r *Region) Free(txn *Transaction, target Address) bool {
	return true
}

func (r *Region) releaseLocked(txn *Transaction) {
	for _, addr := range txn.locked {
		r.locks.release(addr)
	}
}

func (r *Region) abortTxn(txn *Transaction, reason string, fields ...any) {
	txn.state = txnAborted
	r.logger.Warn(reason, fields...)
	txn.cleanup()
}
