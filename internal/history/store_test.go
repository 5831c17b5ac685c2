package history

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func openTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := Open(t.Context(), filepath.Join(t.TempDir(), "nested", "history.db"), testLogger(t))
	require.NoError(t, err)

	t.Cleanup(func() { assert.NoError(t, s.Close()) })

	return s
}

func TestOpen_CreatesParentDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")
	s, err := Open(t.Context(), filepath.Join(dir, "h.db"), testLogger(t))
	require.NoError(t, err)
	defer s.Close()

	_, statErr := os.Stat(filepath.Join(dir, "h.db"))
	assert.NoError(t, statErr)
}

func TestOpen_EmptyPath(t *testing.T) {
	_, err := Open(t.Context(), "", testLogger(t))
	require.Error(t, err)
}

func TestOpen_Reopen_MigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "h.db")

	s1, err := Open(t.Context(), path, testLogger(t))
	require.NoError(t, err)

	_, err = s1.Record(t.Context(), Run{StartedAt: time.Now(), Source: SourceCLI, Site: "root"})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(t.Context(), path, testLogger(t))
	require.NoError(t, err)
	defer s2.Close()

	runs, err := s2.Recent(t.Context(), 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestRecord_RoundTripsFields(t *testing.T) {
	s := openTestStore(t)

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	id, err := s.Record(t.Context(), Run{
		ID:        "run-1",
		StartedAt: started,
		Duration:  1500 * time.Millisecond,
		Source:    SourceHTTP,
		Site:      "contoso",
		Drives:    2,
		Folders:   7,
		Listings:  9,
		Files:     3,
		Outcome:   OutcomeError,
		Error:     "graph: failed to fetch",
	})
	require.NoError(t, err)
	assert.Equal(t, "run-1", id)

	runs, err := s.Recent(t.Context(), 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	got := runs[0]
	assert.Equal(t, "run-1", got.ID)
	assert.True(t, started.Equal(got.StartedAt))
	assert.Equal(t, 1500*time.Millisecond, got.Duration)
	assert.Equal(t, SourceHTTP, got.Source)
	assert.Equal(t, "contoso", got.Site)
	assert.Equal(t, 2, got.Drives)
	assert.Equal(t, 7, got.Folders)
	assert.Equal(t, 9, got.Listings)
	assert.Equal(t, 3, got.Files)
	assert.Equal(t, OutcomeError, got.Outcome)
	assert.Equal(t, "graph: failed to fetch", got.Error)
}

func TestRecord_FillsIDAndOutcome(t *testing.T) {
	s := openTestStore(t)

	id, err := s.Record(t.Context(), Run{StartedAt: time.Now(), Source: SourceWebSocket, Site: "root"})
	require.NoError(t, err)
	assert.Len(t, id, 36)

	runs, err := s.Recent(t.Context(), 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, OutcomeOK, runs[0].Outcome)
}

func TestRecent_NewestFirstAndLimited(t *testing.T) {
	s := openTestStore(t)
	base := time.Now()

	for i := range 5 {
		_, err := s.Record(t.Context(), Run{
			StartedAt: base.Add(time.Duration(i) * time.Minute),
			Source:    SourceCLI,
			Site:      "root",
			Files:     i,
		})
		require.NoError(t, err)
	}

	runs, err := s.Recent(t.Context(), 3)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, 4, runs[0].Files)
	assert.Equal(t, 3, runs[1].Files)
	assert.Equal(t, 2, runs[2].Files)
}

func TestRecent_Empty(t *testing.T) {
	s := openTestStore(t)

	runs, err := s.Recent(t.Context(), 5)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestClosedStore(t *testing.T) {
	s, err := Open(t.Context(), filepath.Join(t.TempDir(), "h.db"), testLogger(t))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	_, err = s.Record(t.Context(), Run{})
	assert.ErrorIs(t, err, ErrClosed)

	_, err = s.Recent(t.Context(), 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClose_WhileRecording(t *testing.T) {
	s, err := Open(t.Context(), filepath.Join(t.TempDir(), "h.db"), testLogger(t))
	require.NoError(t, err)

	var wg sync.WaitGroup

	for range 4 {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for {
				_, err := s.Record(t.Context(), Run{StartedAt: time.Now(), Source: SourceHTTP, Site: "root"})
				if errors.Is(err, ErrClosed) {
					return
				}

				if !assert.NoError(t, err) {
					return
				}
			}
		}()
	}

	time.Sleep(20 * time.Millisecond)
	require.NoError(t, s.Close())

	wg.Wait()
}
