// Package snapshot captures the open tabs and compares them with saved
// contexts.
package snapshot

import (
	"context"
	"fmt"

	"github.com/lotas/ctxkeep/internal/applog"
	"github.com/lotas/ctxkeep/internal/browser"
	"github.com/lotas/ctxkeep/internal/contexts"
	"github.com/lotas/ctxkeep/internal/types"
)

// Capture reads every open tab from r and returns an unsaved context named
// name holding them, together with the raw tabs. It fails with
// contexts.ErrNoTabs when nothing is open.
func Capture(ctx context.Context, r browser.Reader, name string) (types.Context, []types.Tab, error) {
	tabs, err := r.QueryTabs(ctx)
	if err != nil {
		return types.Context{}, nil, fmt.Errorf("query tabs: %w", err)
	}
	c := types.Context{
		Name: name,
		Tabs: types.SavedTabs(tabs),
	}
	c.Normalize()
	if c.TabCount == 0 {
		return types.Context{}, tabs, contexts.ErrNoTabs
	}
	applog.Info("snapshot.captured", "name", name, "tabs", c.TabCount)
	return c, tabs, nil
}

// Same reports whether c holds exactly the URLs open in current, ignoring
// order, duplicates and URL fragments.
func Same(c types.Context, current []types.Tab) bool {
	saved := make(map[string]bool, len(c.Tabs))
	for _, t := range c.Tabs {
		saved[NormalizeURL(t.URL)] = true
	}
	open := make(map[string]bool, len(current))
	for _, t := range current {
		if t.URL == "" {
			continue
		}
		open[NormalizeURL(t.URL)] = true
	}
	if len(saved) != len(open) {
		return false
	}
	for u := range open {
		if !saved[u] {
			return false
		}
	}
	return true
}
