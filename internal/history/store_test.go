package history

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/poptrans/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "data", "history.jsonl"), nil)
	require.NoError(t, err)
	return s
}

func entry(t *testing.T, text string, ts int64) *model.Entry {
	t.Helper()
	e, err := model.NewEntry(text, model.Result{Success: true, Text: "<" + text + ">"}, "EN", "ZH")
	require.NoError(t, err)
	if ts > 0 {
		e.Timestamp = ts
	}
	return e
}

func TestStore_LoadMissingFile(t *testing.T) {
	s := newTestStore(t)
	entries, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestStore_AppendAndLoad(t *testing.T) {
	s := newTestStore(t)

	first := entry(t, "hello", 0)
	second := entry(t, "world", 0)
	require.NoError(t, s.Append(first))
	require.NoError(t, s.Append(second))

	entries, err := s.Load()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, *first, entries[0])
	assert.Equal(t, *second, entries[1])

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 3)
	assert.Contains(t, lines[0], `"poptrans_schema_version":1`)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestStore_AppendRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	err := s.Append(&model.Entry{Timestamp: 1, SourceLang: "EN", TargetLang: "ZH"})
	assert.ErrorIs(t, err, model.ErrEmptyEntryID)
}

func TestStore_SkipsMalformedLines(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Append(entry(t, "good", 0)))

	f, err := os.OpenFile(s.Path(), os.O_APPEND|os.O_WRONLY, 0)
	require.NoError(t, err)
	_, err = f.WriteString("not json\n{\"id\":\"\"}\n\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, s.Append(entry(t, "also good", 0)))

	entries, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestStore_RejectsNewerSchema(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte(`{"poptrans_schema_version":99,"created_at":1}`+"\n"), 0o600))

	_, err := s.Load()
	assert.ErrorContains(t, err, "unsupported history schema version")
}

func TestStore_Query(t *testing.T) {
	s := newTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC).Unix()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.Append(entry(t, fmt.Sprintf("t%d", i), base+int64(i*60))))
	}

	all, err := s.Query(QueryOptions{})
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "t4", all[0].SourceText, "newest first")

	limited, err := s.Query(QueryOptions{Limit: 2})
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "t3", limited[1].SourceText)

	recent, err := s.Query(QueryOptions{Since: time.Unix(base+120, 0)})
	require.NoError(t, err)
	assert.Len(t, recent, 3)
}

func TestStore_Clear(t *testing.T) {
	s := newTestStore(t)
	require.NoError(t, s.Append(entry(t, "hello", 0)))
	require.NoError(t, s.Clear())

	entries, err := s.Load()
	require.NoError(t, err)
	assert.Empty(t, entries)

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "poptrans_schema_version")

	require.NoError(t, s.Append(entry(t, "after", 0)))
	entries, err = s.Load()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestStore_Prune(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 6; i++ {
		require.NoError(t, s.Append(entry(t, fmt.Sprintf("t%d", i), 0)))
	}

	removed, err := s.Prune(10)
	require.NoError(t, err)
	assert.Zero(t, removed)

	removed, err = s.Prune(4)
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	entries, err := s.Load()
	require.NoError(t, err)
	require.Len(t, entries, 4)
	assert.Equal(t, "t2", entries[0].SourceText, "oldest entries go first")

	removed, err = s.Prune(0)
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestStore_ConcurrentAppends(t *testing.T) {
	s := newTestStore(t)
	other, err := Open(s.Path(), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			target := s
			if i%2 == 1 {
				target = other
			}
			assert.NoError(t, target.Append(entry(t, fmt.Sprintf("n%d", i), 0)))
		}(i)
	}
	wg.Wait()

	entries, err := s.Load()
	require.NoError(t, err)
	assert.Len(t, entries, 20)
}

func TestStore_LockTimeout(t *testing.T) {
	s := newTestStore(t)
	s.lockTimeout = 100 * time.Millisecond

	holder := flock.New(s.Path() + ".lock")
	require.NoError(t, holder.Lock())
	defer holder.Unlock()

	assert.ErrorIs(t, s.Append(entry(t, "blocked", 0)), ErrLockTimeout)
}
