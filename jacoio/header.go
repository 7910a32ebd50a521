package jacoio

// Shared-variant header layout: a fixed 64-byte, 8-byte-aligned region at
// the start of the mapped file, holding the three reservation counters.
// Payload starts immediately after, at offset headerSize. There is no
// magic, version, or CRC — jacoio imposes no record framing of its own, so
// the header carries only what the reservation protocol itself needs.
//
//	bytes  0- 7: N (next-write-offset), uint64 native order
//	bytes  8-15: W (write-complete),    uint64 native order
//	bytes 16-23: F (final-size),        int64  native order, sentinel -1
//	bytes 24-63: reserved, zero
//
// Unlike a framing format's header, these fields are never read with
// encoding/binary.LittleEndian: they are manipulated exclusively through
// the native-order atomic helpers in region.go, because sync/atomic has no
// explicit-byte-order variant.
const (
	headerSize = 64

	offN = 0
	offW = 8
	offF = 16
)

// sealedSentinel is F's value before any reservation has overflowed
// capacity.
const sealedSentinel int64 = -1

// initHeader publishes the initial counter values (N=W=H, F=sealedSentinel)
// into a freshly mapped shared region. Only the creating process calls
// this; a process opening an existing shared file observes whatever the
// creator already published.
func initHeader(r *region, headerOffset int64) {
	*r.ptr64(offN) = uint64(headerOffset)
	*r.ptr64(offW) = uint64(headerOffset)
	*r.ptr64Signed(offF) = sealedSentinel
}
