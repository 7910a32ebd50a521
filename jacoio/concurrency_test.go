package jacoio_test

import (
	"bytes"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/jacoio/jacoio"
)

// Test_ManyConcurrentWriters exercises spec scenario 6: T threads each
// perform M fixed-length writes into a bounded Appender sized to exactly
// fit all of them. Every granted offset must be distinct and form the set
// {0, l, 2l, ...}, and the bytes at each offset must match what that
// writer wrote.
func Test_ManyConcurrentWriters(t *testing.T) {
	t.Parallel()

	const (
		writers   = 32
		perWriter = 50
		recordLen = 8
		capacity  = writers * perWriter * recordLen
	)

	path := filepath.Join(t.TempDir(), "concurrent.log")

	a, err := jacoio.NewLocalAppender(path, int64(capacity), false)
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		allGrants = map[int64]byte{}
	)

	for w := 0; w < writers; w++ {
		wg.Add(1)

		go func(writerID int) {
			defer wg.Done()

			tag := byte(writerID)
			payload := make([]byte, recordLen)
			for i := range payload {
				payload[i] = tag
			}

			for m := 0; m < perWriter; m++ {
				offset, err := a.Write(payload)
				require.NoError(t, err)
				require.NotEqualValues(t, jacoio.NullOffset, offset)

				mu.Lock()
				allGrants[offset] = tag
				mu.Unlock()
			}
		}(w)
	}

	wg.Wait()

	require.Len(t, allGrants, writers*perWriter)
	require.False(t, a.IsPending())

	for offset := int64(0); offset < int64(capacity); offset += recordLen {
		_, ok := allGrants[offset]
		require.True(t, ok, "offset %d was never granted", offset)
	}

	require.NoError(t, a.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	for offset, tag := range allGrants {
		require.Equal(t, bytes.Repeat([]byte{tag}, recordLen), data[offset:offset+recordLen],
			"bytes at offset %d do not match writer %d", offset, tag)
	}
}

// Test_SharedAppender_TwoGoroutinesActLikeTwoProcesses exercises the
// shared-variant invariants with two independently-opened Appenders over
// the same file, standing in for two OS processes (spec scenario 7 /
// shared-variant concurrency claim): both must observe disjoint grants.
func Test_SharedAppender_TwoGoroutinesActLikeTwoProcesses(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "shared-concurrent.log")

	first, err := jacoio.NewSharedAppender(path, 800, false)
	require.NoError(t, err)

	second, err := jacoio.OpenSharedAppender(path)
	require.NoError(t, err)

	const perSide = 20

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)

	record := func(offset int64) {
		mu.Lock()
		defer mu.Unlock()

		require.False(t, seen[offset], "offset %d granted twice", offset)
		seen[offset] = true
	}

	for _, side := range []jacoio.Appender{first, second} {
		wg.Add(1)

		go func(a jacoio.Appender) {
			defer wg.Done()

			for i := 0; i < perSide; i++ {
				offset, err := a.Write([]byte{1, 2, 3, 4})
				require.NoError(t, err)
				require.NotEqualValues(t, jacoio.NullOffset, offset)

				record(offset)
			}
		}(side)
	}

	wg.Wait()

	require.Len(t, seen, perSide*2)
	require.NoError(t, first.Finish())
	require.NoError(t, first.Close())
	require.NoError(t, second.Close())
}
