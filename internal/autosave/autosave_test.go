package autosave

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotas/ctxkeep/internal/browser"
	"github.com/lotas/ctxkeep/internal/browser/browsertest"
	"github.com/lotas/ctxkeep/internal/contexts"
	"github.com/lotas/ctxkeep/internal/storage"
	"github.com/lotas/ctxkeep/internal/types"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time { return c.t }

func setup(t *testing.T, enabled bool, urls ...string) (*Saver, *contexts.Store, *browsertest.Fake, *clock) {
	t.Helper()
	store := contexts.New(storage.NewMemoryKV())
	require.NoError(t, store.Init())
	prefs := types.DefaultPreferences()
	prefs.AutoSave = enabled
	prefs.AutoSaveIntervalMinutes = 5
	require.NoError(t, store.SetPreferences(prefs))

	fake := browsertest.New(urls...)
	c := &clock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := NewSaver(store, fake)
	s.now = c.now
	return s, store, fake, c
}

func TestMaybeSaveDisabled(t *testing.T) {
	s, store, _, _ := setup(t, false, "https://a.com")

	saved, err := s.MaybeSave(context.Background())
	require.NoError(t, err)
	assert.False(t, saved)
	list, _ := store.List()
	assert.Empty(t, list)
}

func TestMaybeSaveWritesAutoSave(t *testing.T) {
	s, store, _, _ := setup(t, true, "https://a.com", "https://b.com")

	saved, err := s.MaybeSave(context.Background())
	require.NoError(t, err)
	assert.True(t, saved)

	list, err := store.List()
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ContextName, list[0].Name)
	assert.Equal(t, []string{Tag}, list[0].Tags)
	assert.Equal(t, 2, list[0].TabCount)
}

func TestMaybeSaveRespectsInterval(t *testing.T) {
	s, _, fake, clk := setup(t, true, "https://a.com")
	ctx := context.Background()

	saved, _ := s.MaybeSave(ctx)
	require.True(t, saved)

	fake.CreateTab(ctx, browser.CreateProps{URL: "https://new.com"})
	clk.t = clk.t.Add(time.Minute)
	saved, err := s.MaybeSave(ctx)
	require.NoError(t, err)
	assert.False(t, saved, "saved again before the interval passed")

	clk.t = clk.t.Add(5 * time.Minute)
	saved, err = s.MaybeSave(ctx)
	require.NoError(t, err)
	assert.True(t, saved)
}

func TestMaybeSaveSkipsUnchanged(t *testing.T) {
	s, _, _, clk := setup(t, true, "https://a.com")
	ctx := context.Background()

	saved, _ := s.MaybeSave(ctx)
	require.True(t, saved)

	clk.t = clk.t.Add(time.Hour)
	saved, err := s.MaybeSave(ctx)
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestMaybeSaveNoTabs(t *testing.T) {
	s, _, _, _ := setup(t, true)
	saved, err := s.MaybeSave(context.Background())
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestWatcherTriggersSave(t *testing.T) {
	s, store, _, _ := setup(t, true, "https://a.com")
	dir := t.TempDir()

	w, err := NewWatcher(dir, []string{"recovery.jsonlz4"}, s)
	require.NoError(t, err)
	w.Debounce = 10 * time.Millisecond
	w.saved = make(chan bool, 1)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "recovery.jsonlz4"), []byte("x"), 0644))

	select {
	case saved := <-w.saved:
		assert.True(t, saved)
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for auto-save")
	}

	list, _ := store.List()
	require.Len(t, list, 1)
	assert.Equal(t, ContextName, list[0].Name)
}

func TestNewWatcherMissingDir(t *testing.T) {
	s, _, _, _ := setup(t, true)
	_, err := NewWatcher(filepath.Join(t.TempDir(), "nope"), nil, s)
	assert.Error(t, err)
}
