// Package browsertest provides an in-memory browser.Browser for tests.
package browsertest

import (
	"context"
	"fmt"
	"sync"

	"github.com/lotas/ctxkeep/internal/browser"
	"github.com/lotas/ctxkeep/internal/types"
)

// Call records one mutating operation.
type Call struct {
	Op     string // create, update, remove, window
	TabID  int
	URL    string
	Window int
	Active *bool
}

// Fake keeps windows and tabs in memory. The first window has id 1.
type Fake struct {
	mu      sync.Mutex
	tabs    []types.Tab
	nextTab int
	nextWin int
	calls   []Call

	// Fail, when set, is consulted before every mutating call. A non-nil
	// result is returned instead of performing the call.
	Fail func(c Call) error
	// QueryErr is returned by QueryTabs when non-nil.
	QueryErr error
}

// New returns a Fake with one window holding a tab per URL. The first tab
// is active.
func New(urls ...string) *Fake {
	f := &Fake{nextTab: 1, nextWin: 2}
	for i, u := range urls {
		f.tabs = append(f.tabs, types.Tab{
			ID:       f.nextTab,
			WindowID: 1,
			Index:    i,
			URL:      u,
			Title:    u,
			Active:   i == 0,
		})
		f.nextTab++
	}
	return f
}

var _ browser.Browser = (*Fake)(nil)

// QueryTabs returns a copy of every open tab.
func (f *Fake) QueryTabs(context.Context) ([]types.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.QueryErr != nil {
		return nil, f.QueryErr
	}
	return append([]types.Tab(nil), f.tabs...), nil
}

func (f *Fake) CreateTab(_ context.Context, p browser.CreateProps) (types.Tab, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	call := Call{Op: "create", URL: p.URL, Window: p.WindowID, Active: p.Active}
	if err := f.record(call); err != nil {
		return types.Tab{}, err
	}
	win := p.WindowID
	if win == 0 {
		win = 1
	}
	t := types.Tab{
		ID:       f.nextTab,
		WindowID: win,
		Index:    f.countIn(win),
		URL:      p.URL,
		Title:    p.URL,
		Active:   p.Active == nil || *p.Active,
	}
	f.nextTab++
	f.tabs = append(f.tabs, t)
	return t, nil
}

func (f *Fake) UpdateTab(_ context.Context, id int, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "update", TabID: id, URL: url}); err != nil {
		return err
	}
	for i := range f.tabs {
		if f.tabs[i].ID == id {
			f.tabs[i].URL = url
			f.tabs[i].Title = url
			return nil
		}
	}
	return fmt.Errorf("no tab with id %d", id)
}

func (f *Fake) RemoveTab(_ context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "remove", TabID: id}); err != nil {
		return err
	}
	for i := range f.tabs {
		if f.tabs[i].ID == id {
			f.tabs = append(f.tabs[:i], f.tabs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("no tab with id %d", id)
}

// CreateWindow opens a window with one blank tab.
func (f *Fake) CreateWindow(context.Context) (types.Window, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.record(Call{Op: "window"}); err != nil {
		return types.Window{}, err
	}
	w := types.Window{ID: f.nextWin}
	f.nextWin++
	t := types.Tab{ID: f.nextTab, WindowID: w.ID, URL: "about:blank", Active: true}
	f.nextTab++
	f.tabs = append(f.tabs, t)
	w.Tabs = []types.Tab{t}
	return w, nil
}

// Calls returns the recorded mutating calls in order.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// URLs returns the URLs of the tabs in window win, in creation order.
func (f *Fake) URLs(win int) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, t := range f.tabs {
		if t.WindowID == win {
			out = append(out, t.URL)
		}
	}
	return out
}

func (f *Fake) record(c Call) error {
	f.calls = append(f.calls, c)
	if f.Fail != nil {
		return f.Fail(c)
	}
	return nil
}

func (f *Fake) countIn(win int) int {
	n := 0
	for _, t := range f.tabs {
		if t.WindowID == win {
			n++
		}
	}
	return n
}
