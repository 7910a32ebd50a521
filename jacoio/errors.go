package jacoio

import "errors"

// Sentinel errors returned by jacoio. All are safe to compare with
// errors.Is; wrapped errors carry additional context via fmt.Errorf("%w").
var (
	// ErrRecordTooLarge is returned by a rolling Appender when a single
	// write is larger than a file's usable capacity and could never fit,
	// regardless of rolling.
	ErrRecordTooLarge = errors.New("jacoio: record length exceeds per-file capacity")

	// ErrPending is returned by Close when writes are still in flight.
	ErrPending = errors.New("jacoio: close called while writes are pending")

	// ErrFileExists is returned when a new file is to be created at a path
	// that already exists (NewLocalAppender, NewSharedAppender, Open);
	// jacoio never overwrites an existing file. FileProvider.Next does not
	// return it: it retries with a fresh name instead.
	ErrFileExists = errors.New("jacoio: file already exists")

	// ErrClosed is returned by the write methods of a bounded Appender after
	// Close. Close itself is idempotent and returns nil again.
	ErrClosed = errors.New("jacoio: appender is closed")

	// ErrUnsupportedArch is returned when opening a shared-variant Appender
	// on an architecture that can't support native-order 64-bit atomics
	// over a mapped region (32-bit, or big-endian).
	ErrUnsupportedArch = errors.New("jacoio: requires 64-bit little-endian architecture")

	// ErrInvalidOptions is returned for malformed Options.
	ErrInvalidOptions = errors.New("jacoio: invalid options")

	// ErrCorrupt is returned when an existing shared file's header fails
	// basic sanity checks on open (e.g. file smaller than headerSize).
	ErrCorrupt = errors.New("jacoio: shared file header is corrupt")
)
