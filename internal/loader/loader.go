// Package loader replays a saved context into a live browser.
package loader

import (
	"context"
	"errors"
	"fmt"

	"github.com/lotas/ctxkeep/internal/applog"
	"github.com/lotas/ctxkeep/internal/browser"
	"github.com/lotas/ctxkeep/internal/types"
)

// ErrUnknownMode is returned for a load mode outside types.LoadModes.
var ErrUnknownMode = errors.New("unknown load mode")

// Result reports what a load did. Per-tab failures are collected in Errors
// and never stop the remaining tabs.
type Result struct {
	Mode      types.LoadMode
	WindowID  int
	Opened    int
	Navigated int
	Closed    int
	Errors    []error
}

// Err joins the per-tab errors, or returns nil when there were none.
func (r Result) Err() error {
	return errors.Join(r.Errors...)
}

// Loader opens contexts through a browser.Browser.
type Loader struct {
	b browser.Browser
}

// New returns a Loader driving b.
func New(b browser.Browser) *Loader {
	return &Loader{b: b}
}

// Load opens the tabs of c using mode. Individual tab failures end up in
// Result.Errors and do not fail the load as long as at least one tab was
// opened or navigated. When every tab operation failed the joined tab
// errors are returned. Nothing is rolled back.
func (l *Loader) Load(ctx context.Context, c types.Context, mode types.LoadMode) (Result, error) {
	res := Result{Mode: mode}
	var err error
	switch mode {
	case types.LoadReplace:
		err = l.replace(ctx, c, &res)
	case types.LoadNewWindow:
		err = l.newWindow(ctx, c, &res)
	case types.LoadBackground:
		l.open(ctx, c.Tabs, browser.CreateProps{Active: browser.Bool(false)}, &res)
	case types.LoadMerge:
		l.open(ctx, c.Tabs, browser.CreateProps{}, &res)
	default:
		return res, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
	if err == nil && len(res.Errors) > 0 && res.Opened+res.Navigated == 0 {
		err = res.Err()
	}
	if err != nil {
		applog.Error("loader.failed", err, "context", c.Name, "mode", string(mode))
		return res, err
	}
	applog.Info("loader.done", "context", c.Name, "mode", string(mode),
		"opened", res.Opened, "navigated", res.Navigated, "closed", res.Closed, "errors", len(res.Errors))
	return res, nil
}

// replace closes every open tab but the first, points the survivor at the
// first saved URL and opens the rest.
func (l *Loader) replace(ctx context.Context, c types.Context, res *Result) error {
	current, err := l.b.QueryTabs(ctx)
	if err != nil {
		return fmt.Errorf("query tabs: %w", err)
	}
	if len(current) == 0 {
		l.open(ctx, c.Tabs, browser.CreateProps{}, res)
		return nil
	}

	for _, t := range current[1:] {
		if err := l.b.RemoveTab(ctx, t.ID); err != nil {
			res.tabError(fmt.Errorf("remove tab %d: %w", t.ID, err))
			continue
		}
		res.Closed++
	}
	if len(c.Tabs) == 0 {
		return nil
	}

	first := current[0]
	if err := l.b.UpdateTab(ctx, first.ID, c.Tabs[0].URL); err != nil {
		res.tabError(fmt.Errorf("navigate tab %d: %w", first.ID, err))
	} else {
		res.Navigated++
	}
	l.open(ctx, c.Tabs[1:], browser.CreateProps{}, res)
	return nil
}

// newWindow opens a window, reuses its blank tab for the first URL and adds
// the rest to that window.
func (l *Loader) newWindow(ctx context.Context, c types.Context, res *Result) error {
	w, err := l.b.CreateWindow(ctx)
	if err != nil {
		return fmt.Errorf("create window: %w", err)
	}
	res.WindowID = w.ID
	if len(c.Tabs) == 0 {
		return nil
	}

	rest := c.Tabs
	if len(w.Tabs) > 0 {
		blank := w.Tabs[0]
		if err := l.b.UpdateTab(ctx, blank.ID, c.Tabs[0].URL); err != nil {
			res.tabError(fmt.Errorf("navigate tab %d: %w", blank.ID, err))
		} else {
			res.Navigated++
		}
		rest = c.Tabs[1:]
	}
	l.open(ctx, rest, browser.CreateProps{WindowID: w.ID}, res)
	return nil
}

func (l *Loader) open(ctx context.Context, tabs []types.SavedTab, props browser.CreateProps, res *Result) {
	for _, t := range tabs {
		p := props
		p.URL = t.URL
		if _, err := l.b.CreateTab(ctx, p); err != nil {
			res.tabError(fmt.Errorf("open %s: %w", t.URL, err))
			continue
		}
		res.Opened++
	}
}

func (r *Result) tabError(err error) {
	applog.Error("loader.tab.error", err, "mode", string(r.Mode))
	r.Errors = append(r.Errors, err)
}
