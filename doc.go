// Package tl2 implements a software transactional memory region using
// TL2 (Transactional Locking II): a global version clock, per-stripe
// versioned spinlocks, encounter-time reads with post-validation, and
// buffered writes committed under locks held only at end-of-transaction.
//
// A Region owns a word-addressed block of memory. Actors open
// transactions with Begin, read and write through Read/Write (which
// buffer speculatively), and attempt to commit with End. A failed
// operation terminates the transaction; the caller re-issues Begin and
// replays rather than retrying the same handle.
package tl2
