package jacoio

import (
	"context"
	"fmt"
)

// Options is the builder-style configuration surface for Open. There is no
// fluent builder type of its own — Options is the plain-struct equivalent a
// caller assembles directly, or that cmd/jacioctl populates from a config
// file merged with CLI flags.
type Options struct {
	// Location is the file (bounded variants) or directory (rolling) new
	// data is written to.
	Location string
	// Capacity is the usable payload capacity of each file, in bytes.
	Capacity int64
	// FillWithZeros explicitly zero-fills new files before mapping.
	FillWithZeros bool
	// MultiProcess selects the shared (header-resident counters) variant.
	MultiProcess bool
	// Roll, if non-nil, enables the rolling Facade backed by a
	// RollingCoordinator over Location as a directory.
	Roll *RollConfig
}

// RollConfig is the roll sub-configuration of Options.
type RollConfig struct {
	FileNamePrefix            string
	FileNameSuffix            string
	AsyncClose                bool
	YieldOnAllocateContention bool
	Listeners                 Listeners
}

// Open builds an Appender from Options: a bounded appender over a single
// fresh file if Roll is nil, or a rolling appender backed by a
// RollingCoordinator otherwise. ctx bounds creation of the first file only.
func Open(ctx context.Context, opts Options) (Appender, error) {
	if opts.Location == "" {
		return nil, fmt.Errorf("%w: location is empty", ErrInvalidOptions)
	}

	if opts.Capacity <= 0 {
		return nil, fmt.Errorf("%w: capacity must be positive", ErrInvalidOptions)
	}

	if opts.Roll == nil {
		if opts.MultiProcess {
			return NewSharedAppender(opts.Location, opts.Capacity, opts.FillWithZeros)
		}

		return NewLocalAppender(opts.Location, opts.Capacity, opts.FillWithZeros)
	}

	provider, err := NewFileProvider(ProviderOptions{
		Dir:           opts.Location,
		Prefix:        opts.Roll.FileNamePrefix,
		Suffix:        opts.Roll.FileNameSuffix,
		Capacity:      opts.Capacity,
		FillWithZeros: opts.FillWithZeros,
		MultiProcess:  opts.MultiProcess,
	})
	if err != nil {
		return nil, err
	}

	return NewRollingAppender(ctx, provider, RollOptions{
		AsyncClose:                opts.Roll.AsyncClose,
		YieldOnAllocateContention: opts.Roll.YieldOnAllocateContention,
		Listeners:                 opts.Roll.Listeners,
	})
}
