package jacoio

import "sync/atomic"

// counters abstracts over where an Appender's reservation counters
// (N, W, F) live: in process memory (localCounters) for the single-process
// variant, or inside the mapped file's header (sharedCounters) for the
// multi-process variant. Both implementations provide the same ordering
// guarantees: N updates are CAS loops, W updates are additive, and F is
// set exactly once via CAS-from-sentinel so the first sealer wins even
// under concurrent over-capacity reservations.
type counters interface {
	loadN() uint64
	casN(old, new uint64) bool

	loadW() uint64
	addW(delta uint64) uint64

	loadF() int64
	// casSealF attempts to seal at n, succeeding only if F is still the
	// sentinel. Returns true if this call performed the seal.
	casSealF(n uint64) bool
}

// localCounters stores N, W, F in process-private memory. Only goroutines
// of this process observe them.
type localCounters struct {
	n atomic.Uint64
	w atomic.Uint64
	f atomic.Int64
}

func newLocalCounters(headerOffset int64) *localCounters {
	c := &localCounters{}
	c.n.Store(uint64(headerOffset))
	c.w.Store(uint64(headerOffset))
	c.f.Store(sealedSentinel)

	return c
}

func (c *localCounters) loadN() uint64            { return c.n.Load() }
func (c *localCounters) casN(old, new uint64) bool { return c.n.CompareAndSwap(old, new) }
func (c *localCounters) loadW() uint64             { return c.w.Load() }
func (c *localCounters) addW(delta uint64) uint64  { return c.w.Add(delta) }
func (c *localCounters) loadF() int64              { return c.f.Load() }

func (c *localCounters) casSealF(n uint64) bool {
	return c.f.CompareAndSwap(sealedSentinel, int64(n))
}

// sharedCounters stores N, W, F at fixed offsets in the header of a mapped
// region, visible across every process that maps the same file.
type sharedCounters struct {
	r *region
}

func newSharedCounters(r *region) *sharedCounters {
	return &sharedCounters{r: r}
}

func (c *sharedCounters) loadN() uint64 {
	return atomic.LoadUint64(c.r.ptr64(offN))
}

func (c *sharedCounters) casN(old, new uint64) bool {
	return atomic.CompareAndSwapUint64(c.r.ptr64(offN), old, new)
}

func (c *sharedCounters) loadW() uint64 {
	return atomic.LoadUint64(c.r.ptr64(offW))
}

func (c *sharedCounters) addW(delta uint64) uint64 {
	return atomic.AddUint64(c.r.ptr64(offW), delta)
}

func (c *sharedCounters) loadF() int64 {
	return atomic.LoadInt64(c.r.ptr64Signed(offF))
}

func (c *sharedCounters) casSealF(n uint64) bool {
	return atomic.CompareAndSwapInt64(c.r.ptr64Signed(offF), sealedSentinel, int64(n))
}
