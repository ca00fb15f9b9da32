// Package browser defines the tab and window operations ctxkeep needs from a
// browser, independent of how they are reached.
package browser

import (
	"context"
	"errors"

	"github.com/lotas/ctxkeep/internal/types"
)

// ErrReadOnly is returned by mutating calls on a source that can only read
// tabs, such as an offline session file.
var ErrReadOnly = errors.New("tab source is read-only")

// CreateProps describes a new tab. Zero WindowID means the current window;
// nil Active means the browser default (active).
type CreateProps struct {
	URL      string `json:"url"`
	WindowID int    `json:"windowId,omitempty"`
	Active   *bool  `json:"active,omitempty"`
}

// Reader returns a snapshot of every open tab.
type Reader interface {
	QueryTabs(ctx context.Context) ([]types.Tab, error)
}

// Browser is a Reader that can also change tabs and windows.
type Browser interface {
	Reader
	CreateTab(ctx context.Context, props CreateProps) (types.Tab, error)
	UpdateTab(ctx context.Context, tabID int, url string) error
	RemoveTab(ctx context.Context, tabID int) error
	CreateWindow(ctx context.Context) (types.Window, error)
}

// Bool returns a pointer to b, for CreateProps.Active.
func Bool(b bool) *bool {
	return &b
}

// ReadOnly adapts a Reader to Browser. Every mutating call fails with
// ErrReadOnly.
func ReadOnly(r Reader) Browser {
	return readOnly{r}
}

type readOnly struct {
	Reader
}

func (readOnly) CreateTab(context.Context, CreateProps) (types.Tab, error) {
	return types.Tab{}, ErrReadOnly
}

func (readOnly) UpdateTab(context.Context, int, string) error {
	return ErrReadOnly
}

func (readOnly) RemoveTab(context.Context, int) error {
	return ErrReadOnly
}

func (readOnly) CreateWindow(context.Context) (types.Window, error) {
	return types.Window{}, ErrReadOnly
}
