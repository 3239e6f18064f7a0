package tl2

import "sync/atomic"

// versionClock is the region's monotonically increasing global version
// clock. It starts at zero and is only ever mutated by a committing
// writer, via incrementAndGet.
type versionClock struct {
	v atomic.Uint64
}

func (c *versionClock) get() uint64 {
	return c.v.Load()
}

func (c *versionClock) incrementAndGet() uint64 {
	return c.v.Add(1)
}
