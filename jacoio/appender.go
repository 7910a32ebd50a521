package jacoio

import (
	"encoding/binary"
	"fmt"
	"math"
	"sync"
)

// NullOffset is returned by reserve and every write variant when a record
// does not fit in the remaining capacity.
const NullOffset = -1

// appender owns one mapped region and the reservation/completion protocol
// for it. It is the concrete type behind both the bounded and rolling
// Appender facades (see facade.go); callers outside this package never
// construct or hold one directly.
//
// The reservation protocol (reserve/commit) is lock-free: every writer
// advances N via a CAS loop and operates on its own disjoint byte range,
// never blocking on another writer's in-flight memcpy. Close is the sole
// operation that waits, and only for writers already in flight.
type appender struct {
	path string
	r    *region
	c    counters

	capacity     int64 // C
	headerOffset int64 // H

	mu     sync.Mutex // guards closed only, never reserve/commit
	closed bool
}

func newAppender(path string, r *region, c counters, capacity, headerOffset int64) *appender {
	return &appender{
		path:         path,
		r:            r,
		c:            c,
		capacity:     capacity,
		headerOffset: headerOffset,
	}
}

// reserve implements §4.1's algorithm: a CAS loop on N that either grants a
// disjoint [n, n+length) range or, on the reservation that first crosses
// capacity, seals the appender and credits the skipped length to W so
// pending never wedges.
func (a *appender) reserve(length int64) int64 {
	for {
		n := a.c.loadN()
		if int64(n) >= a.capacity {
			return NullOffset
		}

		if !a.c.casN(n, n+uint64(length)) {
			continue
		}

		if int64(n)+length <= a.capacity {
			return int64(n)
		}

		// This CAS just sealed the file: n+length overflows capacity.
		// casSealF only succeeds for the first sealer (CAS from the -1
		// sentinel); later concurrent sealers lose the CAS but must still
		// credit W, since each of them also advanced N by their own length.
		a.c.casSealF(n)
		a.c.addW(uint64(length))

		return NullOffset
	}
}

// commit publishes length completed bytes. Callers must have already
// written their payload into the granted range before calling commit —
// the payload writes must be visible before W advances.
func (a *appender) commit(length int64) {
	a.c.addW(uint64(length))
}

// write reserves length bytes, hands the caller the granted offset to copy
// into, and commits. fn must write exactly length bytes at region[offset:].
func (a *appender) write(length int64, fn func(offset int64)) int64 {
	offset := a.reserve(length)
	if offset == NullOffset {
		return NullOffset
	}

	fn(offset)
	a.commit(length)

	return offset
}

// isPending reports whether any reservation has not yet completed.
func (a *appender) isPending() bool {
	return a.c.loadW() != a.c.loadN()
}

// isFinished reports whether the appender is sealed and fully drained.
// Uses the corrected predicate (F >= 0, not F > 0): a first record that
// itself overflows capacity legitimately seals at F=0.
func (a *appender) isFinished() bool {
	w := a.c.loadW()

	return w == a.c.loadN() && w >= uint64(a.capacity) && a.c.loadF() >= 0
}

// finish forces sealing by reserving a length guaranteed to exceed any
// remaining capacity.
func (a *appender) finish() {
	a.reserve(math.MaxInt32)
}

// file returns the path of the underlying mapped file.
func (a *appender) file() string {
	return a.path
}

// close unmaps and closes the underlying file. Fails with ErrPending if
// writes are still in flight. If the appender sealed, the file is
// truncated to F first. Idempotent.
func (a *appender) close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed {
		return nil
	}

	if a.isPending() {
		return ErrPending
	}

	if f := a.c.loadF(); f >= 0 {
		if err := a.r.truncate(f); err != nil {
			return fmt.Errorf("truncate on close: %w", err)
		}
	}

	if err := a.r.close(); err != nil {
		return err
	}

	a.closed = true

	return nil
}

// isClosed reports whether close has already completed.
func (a *appender) isClosed() bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.closed
}

// hasAvailableCapacity reports whether a reservation could currently
// succeed. Used by the Rolling Coordinator to decide whether to keep
// using this appender or trigger a roll. It is inherently racy (another
// writer may seal immediately after this returns true) — callers must
// still handle a NullOffset write result.
func (a *appender) hasAvailableCapacity() bool {
	return a.c.loadN() < uint64(a.capacity)
}

// --- write variants ---

// writeBytes writes p in full, or returns NullOffset if it doesn't fit.
func (a *appender) writeBytes(p []byte) int64 {
	return a.write(int64(len(p)), func(offset int64) {
		a.r.writeAt(offset, p)
	})
}

// writeAt writes length bytes of p starting at srcOffset.
func (a *appender) writeAt(p []byte, srcOffset, length int) int64 {
	return a.write(int64(length), func(offset int64) {
		a.r.writeAt(offset, p[srcOffset:srcOffset+length])
	})
}

// writeAscii writes one byte per rune, replacing any rune above 127 with
// '?' (0x3F).
func (a *appender) writeAscii(s string) int64 {
	runes := []rune(s)
	buf := make([]byte, len(runes))

	for i, c := range runes {
		if c > 127 {
			buf[i] = '?'
		} else {
			buf[i] = byte(c)
		}
	}

	return a.writeBytes(buf)
}

// writeChars writes two bytes per rune in the given byte order.
func (a *appender) writeChars(s string, order binary.ByteOrder) int64 {
	runes := []rune(s)
	buf := make([]byte, len(runes)*2)

	for i, c := range runes {
		order.PutUint16(buf[i*2:i*2+2], uint16(c))
	}

	return a.writeBytes(buf)
}

// writeLong writes one 8-byte value in the given byte order.
func (a *appender) writeLong(v int64, order binary.ByteOrder) int64 {
	return a.writeLongs(order, v)
}

// writeLongs writes 1-4 consecutive 8-byte values in the given byte order.
func (a *appender) writeLongs(order binary.ByteOrder, vs ...int64) int64 {
	length := int64(len(vs) * 8)

	return a.write(length, func(offset int64) {
		for i, v := range vs {
			a.r.putUint64At(offset+int64(i*8), uint64(v), order)
		}
	})
}

// writeFunc reserves length bytes and hands the mapped region, the granted
// offset, and length to fn, which must write exactly length bytes itself.
// Like every other write variant it reduces to write (reserve, fn, commit).
func (a *appender) writeFunc(length int64, fn func(region []byte, offset int64, length int64) error) (int64, error) {
	var fnErr error

	offset := a.write(length, func(offset int64) {
		fnErr = fn(a.r.data, offset, length)
	})

	if fnErr != nil {
		return NullOffset, fnErr
	}

	return offset, nil
}
