package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/natefinch/atomic"

	"github.com/calvinalkan/jacoio/jacoio"
)

// runStats is the durable sidecar jacioctl writes next to the log file on
// every REPL exit, so `jacioctl <file>` can report cumulative stats across
// sessions without re-scanning the mapped file.
type runStats struct {
	File         string `json:"file"`
	BytesWritten uint64 `json:"bytes_written"` //nolint:tagliatelle
	Rolls        uint64 `json:"rolls"`
	Sessions     int    `json:"sessions"`
}

func statsSidecarPath(logPath string) string {
	return logPath + ".jacioctl-stats.json"
}

// loadRunStats reads the sidecar if present, returning a zero-value on any
// read/parse failure — stats are diagnostic, never load-bearing.
func loadRunStats(logPath string) runStats {
	var s runStats

	data, err := os.ReadFile(statsSidecarPath(logPath))
	if err != nil || len(data) == 0 {
		return s
	}

	_ = json.Unmarshal(data, &s)

	return s
}

// saveRunStats durably persists the sidecar via rename-based atomic
// replace, so a crash mid-write never leaves a half-written stats file
// behind.
func saveRunStats(logPath string, stats Stats, sessions int) error {
	s := runStats{
		File:         logPath,
		BytesWritten: stats.BytesWritten,
		Rolls:        stats.Rolls,
		Sessions:     sessions,
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal run stats: %w", err)
	}

	if err := atomic.WriteFile(statsSidecarPath(logPath), bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write run stats sidecar: %w", err)
	}

	return nil
}

// Stats aliases jacoio.Stats so this file reads naturally without a
// package-qualified type at every call site.
type Stats = jacoio.Stats
