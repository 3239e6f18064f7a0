package tl2

import (
	"log/slog"
	"os"
)

// config holds the ambient knobs a Region is built with: the lock
// table size, the write-set index capacity, the bounded-spin backoff,
// and the logger diagnostics are written to. None of it affects
// commit-protocol semantics (spec.md §4.6) — only its tuning and
// observability.
type config struct {
	lockTableSize     int
	writeSetIndexSize int
	backoff           spinBackoff
	logger            *slog.Logger
}

func defaultConfig() config {
	return config{
		lockTableSize:     defaultLockTableSize,
		writeSetIndexSize: defaultWriteSetIndexSize,
		backoff:           defaultBackoff,
		logger:            slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})),
	}
}

// Option configures a Region at construction time.
type Option func(*config)

// WithLockTableSize overrides L, the number of stripes in the lock
// table. Larger tables reduce false conflicts from stripe aliasing at
// the cost of memory.
func WithLockTableSize(n int) Option {
	return func(c *config) { c.lockTableSize = n }
}

// WithWriteSetIndexSize overrides S, the write-set index's open-
// addressed table capacity. It must exceed the largest write set any
// transaction against this region will build; exceeding it is a
// design fault (spec.md §3), not a recoverable error.
func WithWriteSetIndexSize(n int) Option {
	return func(c *config) { c.writeSetIndexSize = n }
}

// WithSpinBound overrides the bounded passive backoff a stripe's
// acquire spins through before giving up: bursts of pausesPerRun pause
// instructions each, for up to bursts bursts.
func WithSpinBound(bursts, pausesPerRun int) Option {
	return func(c *config) { c.backoff = spinBackoff{bursts: bursts, pausesPerRun: pausesPerRun} }
}

// WithLogger installs a custom structured logger for region and
// commit-engine diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}
