package jacoio_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/calvinalkan/jacoio/jacoio"
)

func newRollingTestAppender(t *testing.T, capacity int64) jacoio.Appender {
	t.Helper()

	provider, err := jacoio.NewFileProvider(jacoio.ProviderOptions{
		Dir:      t.TempDir(),
		Prefix:   "roll-",
		Capacity: capacity,
	})
	require.NoError(t, err)

	a, err := jacoio.NewRollingAppender(context.Background(), provider, jacoio.RollOptions{})
	require.NoError(t, err)

	return a
}

func Test_RollingAppender_RollsOnExhaustion(t *testing.T) {
	t.Parallel()

	a := newRollingTestAppender(t, 20)

	firstFile := a.File()

	offset, err := a.Write([]byte("buffer1"))
	require.NoError(t, err)
	require.EqualValues(t, 0, offset)

	offset, err = a.Write([]byte("buffer2"))
	require.NoError(t, err)
	require.EqualValues(t, 7, offset)

	offset, err = a.Write([]byte("buffer3"))
	require.NoError(t, err)
	require.EqualValues(t, 0, offset)

	require.NotEqual(t, firstFile, a.File())
	require.EqualValues(t, 1, a.Stats().Rolls)
}

func Test_RollingAppender_IsFinished_AlwaysFalse(t *testing.T) {
	t.Parallel()

	a := newRollingTestAppender(t, 128)

	require.False(t, a.IsFinished())

	require.NoError(t, a.Finish())
	require.False(t, a.IsFinished())
}

func Test_RollingAppender_RejectsOversizedRecord(t *testing.T) {
	t.Parallel()

	a := newRollingTestAppender(t, 8)

	_, err := a.Write(make([]byte, 9))
	require.ErrorIs(t, err, jacoio.ErrRecordTooLarge)
}

func Test_RollingAppender_ConcurrentWritersSeeExactlyOneRollPerExhaustion(t *testing.T) {
	t.Parallel()

	const (
		writers  = 16
		perFile  = 7
		capacity = 20 // room for exactly two 7-byte records per file, plus slack
	)

	a := newRollingTestAppender(t, capacity)

	var wg sync.WaitGroup

	filesSeen := make(chan string, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := a.Write(make([]byte, perFile))
			require.NoError(t, err)

			filesSeen <- a.File()
		}()
	}

	wg.Wait()
	close(filesSeen)

	seen := map[string]struct{}{}
	for f := range filesSeen {
		seen[f] = struct{}{}
	}

	require.GreaterOrEqual(t, len(seen), 1)

	// Each file grants exactly two records (the third reservation seals
	// it), so 16 writes fill 8 files: one roll per exhausted file is 7.
	stats := a.Stats()
	require.EqualValues(t, writers/2-1, stats.Rolls)
}

func Test_RollingAppender_AsyncCloseFiresListeners(t *testing.T) {
	t.Parallel()

	var (
		mu      sync.Mutex
		closed  []string
		created []string
	)

	provider, err := jacoio.NewFileProvider(jacoio.ProviderOptions{
		Dir:      t.TempDir(),
		Capacity: 10,
	})
	require.NoError(t, err)

	a, err := jacoio.NewRollingAppender(context.Background(), provider, jacoio.RollOptions{
		AsyncClose: true,
		Listeners: jacoio.Listeners{
			FileCreated: func(file string) {
				mu.Lock()
				defer mu.Unlock()
				created = append(created, file)
			},
			FileClosed: func(file string, err error) {
				mu.Lock()
				defer mu.Unlock()
				closed = append(closed, file)
			},
		},
	})
	require.NoError(t, err)

	_, err = a.Write([]byte("12345"))
	require.NoError(t, err)

	_, err = a.Write([]byte("678901"))
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()

		return len(closed) >= 1
	}, 2*time.Second, 10*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	require.GreaterOrEqual(t, len(created), 2)
}

func Test_RollingAppender_PanickingListenerDoesNotWedgeRoll(t *testing.T) {
	t.Parallel()

	provider, err := jacoio.NewFileProvider(jacoio.ProviderOptions{
		Dir:      t.TempDir(),
		Capacity: 10,
	})
	require.NoError(t, err)

	a, err := jacoio.NewRollingAppender(context.Background(), provider, jacoio.RollOptions{
		Listeners: jacoio.Listeners{
			FileMapped: func(file string) {
				panic("boom")
			},
		},
	})
	require.NoError(t, err)

	_, err = a.Write([]byte("12345"))
	require.NoError(t, err)

	_, err = a.Write([]byte("678901"))
	require.NoError(t, err)

	require.EqualValues(t, 1, a.Stats().Rolls)
}
