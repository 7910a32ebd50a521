package jacoio

import (
	"context"
	"encoding/binary"
	"fmt"
)

// Appender is the uniform contract callers see regardless of whether
// writes land in a single bounded file or roll across many. boundedAppender
// wraps one appender directly; rollingAppender delegates to a
// RollingCoordinator and retries across rolls.
type Appender interface {
	Write(p []byte) (int64, error)
	WriteAt(p []byte, srcOffset, length int) (int64, error)
	WriteAscii(s string) (int64, error)
	WriteChars(s string, order binary.ByteOrder) (int64, error)
	WriteLong(v int64, order binary.ByteOrder) (int64, error)
	WriteLongs(order binary.ByteOrder, vs ...int64) (int64, error)
	WriteFunc(length int, fn func(region []byte, offset int64, length int) error) (int64, error)
	IsPending() bool
	IsFinished() bool
	Finish() error
	Close() error
	File() string
	Stats() Stats
}

var (
	_ Appender = (*boundedAppender)(nil)
	_ Appender = (*rollingAppender)(nil)
)

// boundedAppender wraps a single appender. Writes that don't fit return
// NullOffset, never an error — that's the caller's signal to stop or
// switch files.
type boundedAppender struct {
	a *appender
}

// newBoundedAppender wraps a freshly-mapped or reopened appender in the
// bounded Facade contract.
func newBoundedAppender(a *appender) *boundedAppender {
	return &boundedAppender{a: a}
}

// NewLocalAppender maps a fresh, local-variant file of the given capacity
// and wraps it in the bounded Facade. Shorthand for mapNewFile + bounded
// wrap.
func NewLocalAppender(path string, capacity int64, fillWithZeros bool) (Appender, error) {
	r, err := mapNewFile(path, capacity, fillWithZeros)
	if err != nil {
		return nil, err
	}

	a := newAppender(path, r, newLocalCounters(0), capacity, 0)

	return newBoundedAppender(a), nil
}

// OpenSharedAppender maps an existing shared-variant file (created by
// NewSharedAppender in this or another process) and wraps it in the
// bounded Facade.
func OpenSharedAppender(path string) (Appender, error) {
	r, err := mapExistingFile(path)
	if err != nil {
		return nil, err
	}

	capacity := r.len()
	a := newAppender(path, r, newSharedCounters(r), capacity, headerSize)

	return newBoundedAppender(a), nil
}

// NewSharedAppender creates a fresh shared-variant file: capacity usable
// payload bytes plus the 64-byte header, with the header initialized so
// other processes can immediately map and join.
func NewSharedAppender(path string, capacity int64, fillWithZeros bool) (Appender, error) {
	if !is64Bit || !isLittleEndian {
		return nil, ErrUnsupportedArch
	}

	r, err := mapNewFile(path, capacity+headerSize, fillWithZeros)
	if err != nil {
		return nil, err
	}

	initHeader(r, headerSize)

	a := newAppender(path, r, newSharedCounters(r), capacity+headerSize, headerSize)

	return newBoundedAppender(a), nil
}

func (b *boundedAppender) Write(p []byte) (int64, error) {
	if b.a.isClosed() {
		return NullOffset, ErrClosed
	}

	return b.a.writeBytes(p), nil
}

func (b *boundedAppender) WriteAt(p []byte, srcOffset, length int) (int64, error) {
	if b.a.isClosed() {
		return NullOffset, ErrClosed
	}

	return b.a.writeAt(p, srcOffset, length), nil
}

func (b *boundedAppender) WriteAscii(s string) (int64, error) {
	if b.a.isClosed() {
		return NullOffset, ErrClosed
	}

	return b.a.writeAscii(s), nil
}

func (b *boundedAppender) WriteChars(s string, order binary.ByteOrder) (int64, error) {
	if b.a.isClosed() {
		return NullOffset, ErrClosed
	}

	return b.a.writeChars(s, order), nil
}

func (b *boundedAppender) WriteLong(v int64, order binary.ByteOrder) (int64, error) {
	if b.a.isClosed() {
		return NullOffset, ErrClosed
	}

	return b.a.writeLong(v, order), nil
}

func (b *boundedAppender) WriteLongs(order binary.ByteOrder, vs ...int64) (int64, error) {
	if b.a.isClosed() {
		return NullOffset, ErrClosed
	}

	return b.a.writeLongs(order, vs...), nil
}

func (b *boundedAppender) WriteFunc(length int, fn func(region []byte, offset int64, length int) error) (int64, error) {
	if b.a.isClosed() {
		return NullOffset, ErrClosed
	}

	return b.a.writeFunc(int64(length), func(region []byte, offset, length int64) error {
		return fn(region, offset, int(length))
	})
}

func (b *boundedAppender) IsPending() bool  { return b.a.isPending() }
func (b *boundedAppender) IsFinished() bool { return b.a.isFinished() }
func (b *boundedAppender) File() string     { return b.a.file() }

func (b *boundedAppender) Finish() error {
	b.a.finish()
	return nil
}

func (b *boundedAppender) Close() error {
	return b.a.close()
}

func (b *boundedAppender) Stats() Stats {
	return Stats{
		CurrentFile:  b.a.file(),
		BytesWritten: b.a.c.loadW(),
		Capacity:     b.a.capacity,
	}
}

// rollingAppender delegates to a RollingCoordinator, retrying across rolls.
// A single record larger than one file's usable capacity is rejected
// synchronously with ErrRecordTooLarge — no record may ever span two
// files. IsFinished always returns false: a rolling appender has no
// terminal state short of the process giving up on it.
type rollingAppender struct {
	rc        *RollingCoordinator
	usableCap int64 // C - H, the largest a single record may ever be
}

// NewRollingAppender creates a RollingCoordinator backed by provider and
// wraps it in the rolling Facade.
func NewRollingAppender(ctx context.Context, provider *FileProvider, opts RollOptions) (Appender, error) {
	rc, err := NewRollingCoordinator(ctx, provider, opts)
	if err != nil {
		return nil, err
	}

	first := rc.current.Load()

	return &rollingAppender{
		rc:        rc,
		usableCap: first.capacity - first.headerOffset,
	}, nil
}

func (rr *rollingAppender) checkFits(length int64) error {
	if length > rr.usableCap {
		return fmt.Errorf("%w: %d bytes exceeds per-file capacity %d", ErrRecordTooLarge, length, rr.usableCap)
	}

	return nil
}

// retry loops fileForWrite/attempt until a non-NullOffset grant is
// returned. Each NullOffset means the current file just sealed; the next
// fileForWrite call observes capacity in the successor or triggers the
// roll itself — so the loop always makes forward progress.
func (rr *rollingAppender) retry(attempt func(a *appender) int64) int64 {
	for {
		a := rr.rc.fileForWrite()

		offset := attempt(a)
		if offset != NullOffset {
			return offset
		}
	}
}

func (rr *rollingAppender) Write(p []byte) (int64, error) {
	if err := rr.checkFits(int64(len(p))); err != nil {
		return NullOffset, err
	}

	return rr.retry(func(a *appender) int64 { return a.writeBytes(p) }), nil
}

func (rr *rollingAppender) WriteAt(p []byte, srcOffset, length int) (int64, error) {
	if err := rr.checkFits(int64(length)); err != nil {
		return NullOffset, err
	}

	return rr.retry(func(a *appender) int64 { return a.writeAt(p, srcOffset, length) }), nil
}

func (rr *rollingAppender) WriteAscii(s string) (int64, error) {
	if err := rr.checkFits(int64(len([]rune(s)))); err != nil {
		return NullOffset, err
	}

	return rr.retry(func(a *appender) int64 { return a.writeAscii(s) }), nil
}

func (rr *rollingAppender) WriteChars(s string, order binary.ByteOrder) (int64, error) {
	if err := rr.checkFits(int64(len([]rune(s)) * 2)); err != nil {
		return NullOffset, err
	}

	return rr.retry(func(a *appender) int64 { return a.writeChars(s, order) }), nil
}

func (rr *rollingAppender) WriteLong(v int64, order binary.ByteOrder) (int64, error) {
	if err := rr.checkFits(8); err != nil {
		return NullOffset, err
	}

	return rr.retry(func(a *appender) int64 { return a.writeLong(v, order) }), nil
}

func (rr *rollingAppender) WriteLongs(order binary.ByteOrder, vs ...int64) (int64, error) {
	if err := rr.checkFits(int64(len(vs) * 8)); err != nil {
		return NullOffset, err
	}

	return rr.retry(func(a *appender) int64 { return a.writeLongs(order, vs...) }), nil
}

// WriteFunc retries across rolls like the other write variants, but a
// caller-function error must stop the retry immediately rather than be
// mistaken for "didn't fit" and retried against a fresh file (the
// reservation was already consumed and committed by the time fn errors;
// retrying would silently burn capacity in file after file).
func (rr *rollingAppender) WriteFunc(length int, fn func(region []byte, offset int64, length int) error) (int64, error) {
	if err := rr.checkFits(int64(length)); err != nil {
		return NullOffset, err
	}

	for {
		a := rr.rc.fileForWrite()

		offset, err := a.writeFunc(int64(length), func(region []byte, offset, length int64) error {
			return fn(region, offset, int(length))
		})
		if err != nil {
			return NullOffset, err
		}

		if offset != NullOffset {
			return offset, nil
		}
	}
}

func (rr *rollingAppender) IsPending() bool {
	return rr.rc.current.Load().isPending()
}

// IsFinished always returns false for the rolling facade: the stream is
// logically unbounded as long as the provider can mint files.
func (rr *rollingAppender) IsFinished() bool { return false }

// Finish forces the current file to seal, causing the next write to roll.
func (rr *rollingAppender) Finish() error {
	rr.rc.Finish()
	return nil
}

// Close closes the currently-active file only. A rolling appender has no
// single terminal file; callers that want every rolled file drained and
// closed should stop writing and let listeners observe each roll's close.
func (rr *rollingAppender) Close() error {
	return rr.rc.current.Load().close()
}

func (rr *rollingAppender) File() string {
	return rr.rc.current.Load().file()
}

func (rr *rollingAppender) Stats() Stats {
	return rr.rc.Stats()
}
