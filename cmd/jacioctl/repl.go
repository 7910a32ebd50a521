package main

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/peterh/liner"

	"github.com/calvinalkan/jacoio/jacoio"
)

// REPL drives an interactive session against one jacoio.Appender: a liner
// prompt with persisted history and a flat command switch.
type REPL struct {
	path     string
	a        jacoio.Appender
	liner    *liner.State
	sessions int
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(home, ".jacioctl_history")
}

func (r *REPL) completer(line string) []string {
	commands := []string{"write", "writeascii", "writelong", "finish", "info", "roll", "stats", "help", "exit"}

	var matches []string

	for _, c := range commands {
		if strings.HasPrefix(c, line) {
			matches = append(matches, c)
		}
	}

	return matches
}

// Run starts the REPL loop until the user exits or stdin closes.
func (r *REPL) Run() error {
	r.liner = liner.NewLiner()
	defer r.liner.Close()

	r.liner.SetCtrlCAborts(true)
	r.liner.SetCompleter(r.completer)

	if f, err := os.Open(historyFilePath()); err == nil {
		_, _ = r.liner.ReadHistory(f)
		f.Close()
	}

	prior := loadRunStats(r.path)
	r.sessions = prior.Sessions + 1

	fmt.Printf("jacioctl - %s\n", r.path)
	fmt.Println("Type 'help' for available commands.")
	fmt.Println()

	for {
		line, err := r.liner.Prompt("jacioctl> ")
		if err != nil {
			if err == liner.ErrPromptAborted || err == io.EOF {
				fmt.Println("\nBye!")
				break
			}

			return fmt.Errorf("reading input: %w", err)
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		r.liner.AppendHistory(line)

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])
		args := parts[1:]

		switch cmd {
		case "exit", "quit", "q":
			fmt.Println("Bye!")

			return r.shutdown()

		case "help", "?":
			r.printHelp()

		case "write":
			r.cmdWrite(args)

		case "writeascii":
			r.cmdWriteAscii(args)

		case "writelong":
			r.cmdWriteLong(args)

		case "finish":
			r.cmdFinish()

		case "info", "stats":
			r.cmdInfo()

		case "roll":
			r.cmdRoll()

		default:
			fmt.Printf("unknown command: %s (type 'help')\n", cmd)
		}
	}

	return r.shutdown()
}

func (r *REPL) shutdown() error {
	r.saveHistory()

	return saveRunStats(r.path, r.a.Stats(), r.sessions)
}

func (r *REPL) saveHistory() {
	path := historyFilePath()
	if path == "" {
		return
	}

	f, err := os.Create(path)
	if err != nil {
		return
	}
	defer f.Close()

	_, _ = r.liner.WriteHistory(f)
}

func (r *REPL) printHelp() {
	fmt.Println(`Commands:
  write <text>              append text as raw bytes
  writeascii <text>         append text, non-ASCII replaced with '?'
  writelong <int64>         append one 8-byte little-endian value
  finish                    force the current file to seal
  info                      show current file, capacity, bytes written, rolls
  roll                      force a roll on the next write (alias: finish)
  help                      show this help
  exit / quit / q           exit`)
}

func (r *REPL) cmdWrite(args []string) {
	if len(args) == 0 {
		fmt.Println("usage: write <text>")
		return
	}

	offset, err := r.a.Write([]byte(strings.Join(args, " ")))
	r.reportWrite(offset, err)
}

func (r *REPL) cmdWriteAscii(args []string) {
	if len(args) == 0 {
		fmt.Println("usage: writeascii <text>")
		return
	}

	offset, err := r.a.WriteAscii(strings.Join(args, " "))
	r.reportWrite(offset, err)
}

func (r *REPL) cmdWriteLong(args []string) {
	if len(args) != 1 {
		fmt.Println("usage: writelong <int64>")
		return
	}

	v, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		fmt.Printf("invalid integer: %s\n", args[0])
		return
	}

	offset, err := r.a.WriteLong(v, binary.LittleEndian)
	r.reportWrite(offset, err)
}

func (r *REPL) reportWrite(offset int64, err error) {
	if err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	if offset == jacoio.NullOffset {
		fmt.Println("did not fit (NullOffset)")
		return
	}

	fmt.Printf("offset: %d\n", offset)
}

func (r *REPL) cmdFinish() {
	if err := r.a.Finish(); err != nil {
		fmt.Printf("error: %v\n", err)
		return
	}

	fmt.Println("sealed")
}

func (r *REPL) cmdRoll() {
	r.cmdFinish()
}

func (r *REPL) cmdInfo() {
	s := r.a.Stats()

	fmt.Printf("file:          %s\n", s.CurrentFile)
	fmt.Printf("capacity:      %d\n", s.Capacity)
	fmt.Printf("bytes written: %d\n", s.BytesWritten)
	fmt.Printf("rolls:         %d\n", s.Rolls)
	fmt.Printf("pending:       %v\n", r.a.IsPending())
	fmt.Printf("finished:      %v\n", r.a.IsFinished())
	fmt.Printf("sessions:      %d\n", r.sessions)
}
