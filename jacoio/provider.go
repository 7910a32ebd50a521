package jacoio

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"
)

// providerMaxAttempts bounds the name-collision retry loop so a pathological
// clock or directory can't spin Next forever.
const providerMaxAttempts = 10000

// nameTiebreak disambiguates files created within the same timestamp tick.
// Mirrors pkg/fs/atomic_write.go's atomicWriteCounter: a package-level
// atomic counter appended to the generated name, retried on O_EXCL
// collision rather than on a temp-file rename collision.
var nameTiebreak atomic.Uint64

// ProviderOptions configures a FileProvider.
type ProviderOptions struct {
	// Dir is the directory new files are created in.
	Dir string
	// Prefix and Suffix bracket the generated, collision-avoiding name.
	Prefix string
	Suffix string
	// Capacity is the usable payload capacity C of each new file. The
	// shared variant allocates headerSize additional bytes on top of
	// this for the header.
	Capacity int64
	// FillWithZeros explicitly zero-fills each new file before mapping.
	FillWithZeros bool
	// MultiProcess selects the shared (header-resident counters)
	// variant instead of the local (process-memory counters) variant.
	MultiProcess bool
}

// FileProvider produces a stream of freshly-created appenders by name.
// Its consumer is the RollingCoordinator: Next returns the package's
// unexported appender type, so callers outside the package use a
// FileProvider by passing it to NewRollingAppender.
type FileProvider struct {
	opts ProviderOptions
}

// NewFileProvider validates opts and returns a FileProvider.
func NewFileProvider(opts ProviderOptions) (*FileProvider, error) {
	if opts.Dir == "" {
		return nil, fmt.Errorf("%w: dir is empty", ErrInvalidOptions)
	}

	if opts.Capacity <= 0 || opts.Capacity > math31Max {
		return nil, fmt.Errorf("%w: capacity must be in (0, 2^31-1]", ErrInvalidOptions)
	}

	if opts.MultiProcess && (!is64Bit || !isLittleEndian) {
		return nil, ErrUnsupportedArch
	}

	return &FileProvider{opts: opts}, nil
}

const math31Max = 1<<31 - 1

// Next creates and maps a fresh Appender, retrying on filename collision:
// each attempt picks a new candidate name and retries mapNewFile's
// ErrFileExists until one sticks or providerMaxAttempts is exhausted.
// Creating and zero-filling a large file can take long enough to be worth
// cancelling, so each retry iteration checks ctx first.
func (p *FileProvider) Next(ctx context.Context) (*appender, error) {
	headerOffset := int64(0)
	if p.opts.MultiProcess {
		headerOffset = headerSize
	}

	totalSize := p.opts.Capacity + headerOffset

	for range providerMaxAttempts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		path := p.nextPath()

		r, err := mapNewFile(path, totalSize, p.opts.FillWithZeros)
		if err != nil {
			if errors.Is(err, ErrFileExists) {
				continue
			}

			return nil, err
		}

		var c counters
		if p.opts.MultiProcess {
			initHeader(r, headerOffset)
			c = newSharedCounters(r)
		} else {
			c = newLocalCounters(headerOffset)
		}

		return newAppender(path, r, c, totalSize, headerOffset), nil
	}

	return nil, fmt.Errorf("jacoio: exhausted name attempts in %q", p.opts.Dir)
}

func (p *FileProvider) nextPath() string {
	seq := nameTiebreak.Add(1)
	name := fmt.Sprintf("%s%d-%d%s", p.opts.Prefix, time.Now().UnixNano(), seq, p.opts.Suffix)

	return filepath.Join(p.opts.Dir, name)
}
