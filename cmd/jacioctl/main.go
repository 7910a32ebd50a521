// jacioctl is a small interactive CLI for creating and appending to jacoio
// log files.
//
// Usage:
//
//	jacioctl <file>              Reopen an existing multi-process log
//	jacioctl new [opts] <file>   Create a new bounded or rolling log
//
// Bare `jacioctl <file>` always reopens via the shared (multi-process)
// variant: a local-variant file's N/W/F counters live only in the
// creating process's memory, so there is nothing on disk to resume from
// once that process exits. A file created with `new` but without
// --multi-process can only ever be appended to within that one session.
//
// Options for 'new':
//
//	-c, --capacity       Usable capacity in bytes (default: from config/1MiB)
//	-z, --zero-fill       Explicitly zero-fill the file before mapping
//	-m, --multi-process   Use the shared (multi-process) header variant
//	-r, --roll            Enable rolling into <file> as a directory
//	    --config          Path to a JSONC config file
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/calvinalkan/jacoio/jacoio"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if len(os.Args) < 2 {
		printUsage()
		return errors.New("missing command or file path")
	}

	if os.Args[1] == "new" {
		return runNew(os.Args[2:])
	}

	return runOpen(os.Args[1:])
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "Usage:")
	fmt.Fprintln(os.Stderr, "  jacioctl <file>              Open an existing log")
	fmt.Fprintln(os.Stderr, "  jacioctl new [opts] <file>   Create a new log")
	fmt.Fprintln(os.Stderr, "\nRun 'jacioctl new --help' for options.")
}

func runNew(args []string) error {
	fs := flag.NewFlagSet("new", flag.ExitOnError)

	capacity := fs.Int64P("capacity", "c", 0, "usable capacity in bytes")
	zeroFill := fs.BoolP("zero-fill", "z", false, "explicitly zero-fill the file before mapping")
	multiProcess := fs.BoolP("multi-process", "m", false, "use the shared multi-process header variant")
	roll := fs.BoolP("roll", "r", false, "enable rolling into <file> as a directory")
	configPath := fs.String("config", "", "path to a JSONC config file")

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: jacioctl new [options] <file>")
		fmt.Fprintln(os.Stderr)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return errors.New("missing file path")
	}

	path := fs.Arg(0)

	cfg, err := loadConfigFile(*configPath)
	if err != nil {
		return err
	}

	if *capacity <= 0 {
		*capacity = cfg.Capacity
	}

	fillWithZeros := cfg.FillWithZeros
	if fs.Changed("zero-fill") {
		fillWithZeros = *zeroFill
	}

	multi := cfg.MultiProcess
	if fs.Changed("multi-process") {
		multi = *multiProcess
	}

	opts := jacoio.Options{
		Location:      path,
		Capacity:      *capacity,
		FillWithZeros: fillWithZeros,
		MultiProcess:  multi,
	}

	if *roll {
		opts.Roll = &jacoio.RollConfig{
			FileNamePrefix: cfg.RollPrefix,
			FileNameSuffix: cfg.RollSuffix,
			AsyncClose:     cfg.AsyncClose,
		}
	}

	fmt.Printf("Creating %s with capacity=%d zero_fill=%v multi_process=%v roll=%v\n",
		path, opts.Capacity, opts.FillWithZeros, opts.MultiProcess, *roll)

	a, err := jacoio.Open(context.Background(), opts)
	if err != nil {
		return fmt.Errorf("creating appender: %w", err)
	}

	repl := &REPL{path: path, a: a}

	return repl.Run()
}

func runOpen(args []string) error {
	fs := flag.NewFlagSet("open", flag.ExitOnError)

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: jacioctl <file>")
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if fs.NArg() < 1 {
		fs.Usage()
		return errors.New("missing file path")
	}

	path := fs.Arg(0)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return fmt.Errorf("file does not exist: %s (use 'jacioctl new %s' to create it)", path, path)
	}

	a, err := jacoio.OpenSharedAppender(path)
	if err != nil {
		return fmt.Errorf("opening appender: %w", err)
	}

	repl := &REPL{path: path, a: a}

	return repl.Run()
}
