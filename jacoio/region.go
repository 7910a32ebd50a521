package jacoio

import (
	"encoding/binary"
	"fmt"
	"os"
	"unsafe"

	"golang.org/x/sys/unix"
)

// is64Bit is true if the architecture has 64-bit pointers. Required for
// lock-free atomic 64-bit operations over a mapped region: on 32-bit
// platforms the atomic ops may not be available, or may require alignment
// guarantees mmap can't promise.
const is64Bit = unsafe.Sizeof(uintptr(0)) == 8

// isLittleEndian is true if the CPU uses little-endian byte order.
// Computed once at package init.
var isLittleEndian = func() bool {
	var buf [2]byte
	buf[0] = 0x01

	return binary.NativeEndian.Uint16(buf[:]) == 0x01
}()

// region is a fixed-size, mmap'd byte range backed by an open file.
//
// It exposes bulk byte writes, byte-order-aware 64-bit puts at an offset,
// and a small set of native-order atomic helpers used by sharedCounters to
// manipulate the shared header. region owns the OS mapping; it is released
// exactly once via close.
type region struct {
	data   []byte
	file   *os.File
	closed bool
}

// mapNewFile creates a file of exactly size bytes and maps it.
//
// If fillWithZeros is true the file is explicitly zero-filled before
// mapping (some filesystems already guarantee zeroed extents from
// Truncate, but this is not universal). Returns ErrFileExists if a file
// already exists at path.
func mapNewFile(path string, size int64, fillWithZeros bool) (*region, error) {
	if !is64Bit || !isLittleEndian {
		return nil, ErrUnsupportedArch
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%s: %w", path, ErrFileExists)
		}

		return nil, fmt.Errorf("create file: %w", err)
	}

	if err := f.Truncate(size); err != nil {
		f.Close()

		return nil, fmt.Errorf("truncate file: %w", err)
	}

	if fillWithZeros {
		if err := zeroFill(f, size); err != nil {
			f.Close()

			return nil, fmt.Errorf("zero-fill file: %w", err)
		}
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("mmap: %w", err)
	}

	return &region{data: data, file: f}, nil
}

// mapExistingFile opens and maps an already-created file, using its
// current on-disk size as the mapped region's size.
func mapExistingFile(path string) (*region, error) {
	if !is64Bit || !isLittleEndian {
		return nil, ErrUnsupportedArch
	}

	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("stat file: %w", err)
	}

	size := info.Size()
	if size < headerSize {
		f.Close()

		return nil, ErrCorrupt
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()

		return nil, fmt.Errorf("mmap: %w", err)
	}

	return &region{data: data, file: f}, nil
}

func zeroFill(f *os.File, size int64) error {
	const chunkSize = 1 << 20

	zeros := make([]byte, chunkSize)

	var written int64
	for written < size {
		n := chunkSize
		if remaining := size - written; remaining < chunkSize {
			n = int(remaining)
		}

		wrote, err := f.WriteAt(zeros[:n], written)
		if err != nil {
			return err
		}

		written += int64(wrote)
	}

	return nil
}

// len returns the capacity of the mapped region in bytes.
func (r *region) len() int64 {
	return int64(len(r.data))
}

// writeAt copies p into the region starting at offset. The caller is
// responsible for ensuring [offset, offset+len(p)) is a range it
// exclusively owns (see appender.reserve).
func (r *region) writeAt(offset int64, p []byte) {
	copy(r.data[offset:], p)
}

// putUint64At writes v at offset using the given, explicit byte order.
// Used for payload writes (WriteLong and friends) — never for the
// reservation counters, which use native-order atomics (see ptr64/
// ptr64Signed below, consumed by counters.go's sharedCounters).
func (r *region) putUint64At(offset int64, v uint64, order binary.ByteOrder) {
	order.PutUint64(r.data[offset:offset+8], v)
}

// ptr64 returns a pointer to the 8-byte-aligned uint64 at byte offset.
// Callers must ensure offset is 8-byte aligned (true for every offset this
// package derives atomic pointers from: header fields 0/8/16).
func (r *region) ptr64(offset int64) *uint64 {
	return (*uint64)(unsafe.Pointer(&r.data[offset]))
}

func (r *region) ptr64Signed(offset int64) *int64 {
	return (*int64)(unsafe.Pointer(&r.data[offset]))
}

// sync flushes dirty pages to disk. jacoio imposes no durability policy of
// its own (see spec Non-goals); this is plumbing a caller may invoke.
func (r *region) sync() error {
	return unix.Msync(r.data, unix.MS_SYNC)
}

// truncate resizes the underlying file. Used on close of a sealed
// Appender to shrink the file down to its final size F.
func (r *region) truncate(size int64) error {
	return r.file.Truncate(size)
}

// close unmaps the region and closes the file handle. Idempotent.
func (r *region) close() error {
	if r.closed {
		return nil
	}

	r.closed = true

	if err := unix.Munmap(r.data); err != nil {
		return fmt.Errorf("munmap: %w", err)
	}

	if err := r.file.Close(); err != nil {
		return fmt.Errorf("close file: %w", err)
	}

	return nil
}
