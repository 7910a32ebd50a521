// Package jacoio provides lock-free, multi-writer append logging into
// memory-mapped files.
//
// Multiple producer goroutines (and, with the shared variant, multiple OS
// processes) concurrently append variable-length records into a pre-sized,
// memory-mapped region. Each writer receives a distinct, non-overlapping
// byte offset via an atomic reservation protocol; no two successful writes
// ever overlap. When a file fills, an optional Rolling Coordinator
// transparently swaps in a fresh file so callers see an unbounded logical
// stream.
//
// The package has no opinion on record framing: records are opaque byte
// ranges, and the only metadata jacoio writes itself is the small, fixed
// 64-byte header used by the shared (multi-process) variant to publish its
// reservation counters.
package jacoio
