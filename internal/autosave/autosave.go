// Package autosave keeps an "Auto Save" context up to date while the user
// browses, when enabled in the preferences.
package autosave

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lotas/ctxkeep/internal/applog"
	"github.com/lotas/ctxkeep/internal/browser"
	"github.com/lotas/ctxkeep/internal/contexts"
	"github.com/lotas/ctxkeep/internal/snapshot"
	"github.com/lotas/ctxkeep/internal/types"
)

// ContextName is the name of the context auto-save maintains.
const ContextName = "Auto Save"

// Tag marks auto-saved contexts.
const Tag = "auto-save"

// Store is the subset of *contexts.Store auto-save needs.
type Store interface {
	Preferences() (types.Preferences, error)
	Save(c types.Context) (types.Context, error)
}

// Saver decides when to write the auto-save context.
type Saver struct {
	store  Store
	reader browser.Reader
	now    func() time.Time

	mu       sync.Mutex
	lastSave time.Time
	last     *types.Context
}

// NewSaver returns a Saver capturing tabs from reader.
func NewSaver(store Store, reader browser.Reader) *Saver {
	return &Saver{store: store, reader: reader, now: time.Now}
}

// MaybeSave captures the open tabs and saves them as ContextName when
// auto-save is enabled, the interval since the last save has passed and the
// set of URLs changed. It reports whether a context was written.
func (s *Saver) MaybeSave(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prefs, err := s.store.Preferences()
	if err != nil {
		return false, err
	}
	if !prefs.AutoSave {
		return false, nil
	}
	interval := time.Duration(prefs.AutoSaveIntervalMinutes) * time.Minute
	if !s.lastSave.IsZero() && s.now().Sub(s.lastSave) < interval {
		return false, nil
	}

	c, tabs, err := snapshot.Capture(ctx, s.reader, ContextName)
	if errors.Is(err, contexts.ErrNoTabs) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if s.last != nil && snapshot.Same(*s.last, tabs) {
		applog.Info("autosave.unchanged", "tabs", len(tabs))
		return false, nil
	}

	c.Category = types.CategoryOther
	c.Tags = []string{Tag}
	saved, err := s.store.Save(c)
	if err != nil {
		return false, fmt.Errorf("auto-save: %w", err)
	}
	s.lastSave = s.now()
	s.last = &saved
	applog.Info("autosave.saved", "id", saved.ID, "tabs", saved.TabCount)
	return true, nil
}

// Poll calls MaybeSave every interval until ctx is done. Failures are
// logged and polling continues.
func Poll(ctx context.Context, s *Saver, every time.Duration) error {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := s.MaybeSave(ctx); err != nil {
				applog.Error("autosave.poll", err)
			}
		}
	}
}
