package jacoio

import (
	"context"
	"runtime"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

// Locking architecture
//
//  1. current — an atomic.Pointer[appender] swapped exactly once per roll.
//     Readers of fileForWrite load it without any lock.
//
//  2. allocating — a non-blocking mutex (CAS bool) guarding the swap
//     itself. At most one goroutine performs a roll; losers spin until
//     they observe the new current, then return it.
//
// Neither protects the appender's own reservation protocol, which is
// lock-free by construction (see appender.go) — this file only coordinates
// *which* appender is current, never payload writes into it.
//
// Lock ordering: there is only one lock (allocating); current is read
// without it and written only by the goroutine holding it.

// Listeners are fired by the RollingCoordinator at the points named below.
// A listener that panics is recovered, logged at Warn, and otherwise
// ignored — one bad listener must never wedge rolling.
type Listeners struct {
	// FileCreated fires after Next() returns a new appender, before it is
	// published as current.
	FileCreated func(file string)
	// FileMapped fires immediately after the new appender is published as
	// current.
	FileMapped func(file string)
	// FileComplete fires once the exhausted appender's pending writes have
	// drained (W = N), before it is closed.
	FileComplete func(file string)
	// FileClosed fires after the exhausted appender's close() returns.
	FileClosed func(file string, closeErr error)
}

// RollOptions configures a RollingCoordinator.
type RollOptions struct {
	// AsyncClose, if true, closes the exhausted appender on a background
	// goroutine instead of blocking the roller.
	AsyncClose bool
	// YieldOnAllocateContention controls whether a losing goroutine calls
	// runtime.Gosched while spinning on the allocating flag and the close
	// drain wait, instead of pure busy-spinning.
	YieldOnAllocateContention bool
	Listeners                Listeners
	// Logger receives Warn-level records for recovered listener panics.
	// Defaults to logrus.StandardLogger().
	Logger *logrus.Logger
}

// Stats is a snapshot of a RollingCoordinator's state, for introspection
// (the CLI's info/stats command).
type Stats struct {
	CurrentFile  string
	BytesWritten uint64
	Capacity     int64
	Rolls        uint64
}

// RollingCoordinator owns the current appender and transparently swaps in
// a fresh one from the Provider when it fills.
type RollingCoordinator struct {
	provider *FileProvider
	opts     RollOptions

	current    atomic.Pointer[appender]
	allocating atomic.Bool
	rolls      atomic.Uint64
}

// NewRollingCoordinator creates a coordinator with its first appender
// already mapped and published as current. ctx bounds only this first
// mapping; later rolls triggered by fileForWrite run without a caller
// context, since they happen inline inside a write call.
func NewRollingCoordinator(ctx context.Context, provider *FileProvider, opts RollOptions) (*RollingCoordinator, error) {
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}

	first, err := provider.Next(ctx)
	if err != nil {
		return nil, err
	}

	rc := &RollingCoordinator{provider: provider, opts: opts}
	rc.current.Store(first)
	rc.fireListener("fileCreated", first.file(), opts.Listeners.FileCreated)
	rc.fireListener("fileMapped", first.file(), opts.Listeners.FileMapped)

	return rc, nil
}

// fileForWrite returns the appender writers should currently target,
// rolling to a fresh one if the current one is exhausted.
func (rc *RollingCoordinator) fileForWrite() *appender {
	for {
		cur := rc.current.Load()
		if cur.hasAvailableCapacity() {
			return cur
		}

		if !rc.allocating.CompareAndSwap(false, true) {
			rc.maybeYield()
			continue
		}

		// Won the right to roll. Re-check: another goroutine may have
		// rolled between our load above and winning the CAS.
		if latest := rc.current.Load(); latest != cur {
			rc.allocating.Store(false)
			return latest
		}

		next, err := rc.provider.Next(context.Background())
		if err != nil {
			// Can't roll; release the flag and let the caller's retry
			// loop observe NullOffset again. The underlying I/O error is
			// not surfaced here by design — reserve/write never return
			// errors in the bounded contract, only NullOffset.
			rc.allocating.Store(false)

			return cur
		}

		rc.fireListener("fileCreated", next.file(), rc.opts.Listeners.FileCreated)
		rc.current.Store(next)
		rc.rolls.Add(1)
		rc.fireListener("fileMapped", next.file(), rc.opts.Listeners.FileMapped)

		rc.closeExhausted(cur)

		rc.allocating.Store(false)

		return next
	}
}

// closeExhausted drains and closes cur, synchronously or on a background
// goroutine per AsyncClose.
func (rc *RollingCoordinator) closeExhausted(cur *appender) {
	task := func() {
		for cur.isPending() {
			rc.maybeYield()
		}

		rc.fireListener("fileComplete", cur.file(), rc.opts.Listeners.FileComplete)

		err := cur.close()

		rc.fireCloseListener(cur.file(), err)
	}

	if rc.opts.AsyncClose {
		go task()
	} else {
		task()
	}
}

func (rc *RollingCoordinator) maybeYield() {
	if rc.opts.YieldOnAllocateContention {
		runtime.Gosched()
	}
}

func (rc *RollingCoordinator) fireListener(name, file string, fn func(file string)) {
	if fn == nil {
		return
	}

	defer rc.recoverListener(name, file)

	fn(file)
}

func (rc *RollingCoordinator) fireCloseListener(file string, closeErr error) {
	fn := rc.opts.Listeners.FileClosed
	if fn == nil {
		return
	}

	defer rc.recoverListener("fileClosed", file)

	fn(file, closeErr)
}

func (rc *RollingCoordinator) recoverListener(name, file string) {
	if r := recover(); r != nil {
		rc.opts.Logger.WithFields(logrus.Fields{
			"file":     file,
			"listener": name,
			"error":    r,
		}).Warn("jacoio: listener panicked, recovered")
	}
}

// Finish forces the current appender to seal, causing the next write to
// roll.
func (rc *RollingCoordinator) Finish() {
	rc.current.Load().finish()
}

// Stats returns a snapshot of the coordinator's current state.
func (rc *RollingCoordinator) Stats() Stats {
	cur := rc.current.Load()

	return Stats{
		CurrentFile:  cur.file(),
		BytesWritten: cur.c.loadW(),
		Capacity:     cur.capacity,
		Rolls:        rc.rolls.Load(),
	}
}
