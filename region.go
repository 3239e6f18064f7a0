package tl2

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"
)

// segment is one block of the region's backing memory: either the
// non-freeable initial segment created with the region, or one handed
// out by Alloc. Segments are singly linked and append-only — Alloc
// only ever prepends a new head under segMu; nothing ever removes a
// node before Destroy.
type segment struct {
	data []byte
	next *segment
}

func (s *segment) start() Address {
	return Address(uintptr(unsafe.Pointer(&s.data[0])))
}

func (s *segment) contains(addr Address, size uintptr) bool {
	start := uintptr(s.start())
	a := uintptr(addr)
	return a >= start && a+size <= start+uintptr(len(s.data))
}

// Region is the shared, word-addressed memory multiple actors run
// transactions against: the non-freeable initial segment, the list of
// dynamically allocated segments, the immutable size/alignment
// constants, the lock table, and the global version clock.
type Region struct {
	align uintptr
	size  uintptr

	base *segment

	segMu    sync.Mutex
	segments *segment // head of dynamically allocated segments (not the base)

	locks *lockTable
	clock versionClock

	writeSetIndexSize int
	backoff           spinBackoff
	logger            *slog.Logger
}

// NewRegion creates a region of size bytes, aligned in align-byte
// words. size must be a positive multiple of align; align must be a
// power of two at least the size of a word (one byte, minimally).
func NewRegion(size, align uintptr, opts ...Option) (*Region, error) {
	if align == 0 || (align&(align-1)) != 0 {
		return nil, fmt.Errorf("tl2: align %d is not a power of two", align)
	}
	if size == 0 || size%align != 0 {
		return nil, fmt.Errorf("tl2: size %d is not a positive multiple of align %d", size, align)
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	r := &Region{
		align:             align,
		size:              size,
		base:              &segment{data: make([]byte, size)},
		locks:             newLockTable(cfg.lockTableSize, cfg.backoff),
		writeSetIndexSize: cfg.writeSetIndexSize,
		backoff:           cfg.backoff,
		logger:            cfg.logger,
	}
	r.logger.Debug("region created", slog.Uint64("size", uint64(size)), slog.Uint64("align", uint64(align)))
	return r, nil
}

// Destroy releases a region. Precondition: no transactions in flight.
// Go's garbage collector reclaims the backing segments once nothing
// references the region; Destroy exists as the spec'd lifecycle hook
// and drops the region's own references so they become collectible.
func (r *Region) Destroy() {
	r.segMu.Lock()
	defer r.segMu.Unlock()
	count := 0
	for s := r.segments; s != nil; s = s.next {
		count++
	}
	r.logger.Debug("region destroyed", slog.Int("allocated_segments", count))
	r.segments = nil
	r.base = nil
}

// Start returns the first byte of the region's initial segment.
func (r *Region) Start() Address {
	return r.base.start()
}

// Size returns the region's (initial-segment) size in bytes.
func (r *Region) Size() uintptr {
	return r.size
}

// Align returns the region's word alignment in bytes.
func (r *Region) Align() uintptr {
	return r.align
}

// wordAt returns a byte slice view over the align-byte word at addr,
// by converting the stored address straight back to a pointer. This
// is sound only because the segment backing that address is kept
// alive for the region's lifetime (held by base/segments), so the
// allocation is never moved or collected out from under it on the
// current (non-moving) Go runtime.
func wordAt(addr Address, align uintptr) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(uintptr(addr))), align)
}
