package server

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/lotas/ctxkeep/internal/types"
)

type wireTab struct {
	ID           int     `json:"id"`
	URL          string  `json:"url"`
	Title        string  `json:"title"`
	LastAccessed float64 `json:"lastAccessed"`
	WindowID     int     `json:"windowId"`
	Index        int     `json:"index"`
	FavIconURL   string  `json:"favIconUrl"`
	Pinned       bool    `json:"pinned"`
	Active       bool    `json:"active"`
}

type wireWindow struct {
	ID   int       `json:"id"`
	Tabs []wireTab `json:"tabs"`
}

func (wt wireTab) tab() types.Tab {
	t := types.Tab{
		ID:         wt.ID,
		WindowID:   wt.WindowID,
		Index:      wt.Index,
		URL:        wt.URL,
		Title:      wt.Title,
		FavIconURL: wt.FavIconURL,
		Pinned:     wt.Pinned,
		Active:     wt.Active,
	}
	if wt.LastAccessed > 0 {
		t.LastAccessed = time.UnixMilli(int64(wt.LastAccessed))
	}
	return t
}

// ParseTabs converts a raw JSON tab list, as sent in "snapshot" messages and
// query-tabs responses.
func ParseTabs(raw json.RawMessage) ([]types.Tab, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var wire []wireTab
	if err := json.Unmarshal(raw, &wire); err != nil {
		return nil, fmt.Errorf("parse tabs: %w", err)
	}
	tabs := make([]types.Tab, len(wire))
	for i, wt := range wire {
		tabs[i] = wt.tab()
	}
	return tabs, nil
}

// ParseTab converts a raw JSON tab into a Tab.
func ParseTab(raw json.RawMessage) (types.Tab, error) {
	var wt wireTab
	if err := json.Unmarshal(raw, &wt); err != nil {
		return types.Tab{}, fmt.Errorf("parse tab: %w", err)
	}
	return wt.tab(), nil
}

// ParseWindow converts a raw JSON window with its tabs.
func ParseWindow(raw json.RawMessage) (types.Window, error) {
	var ww wireWindow
	if err := json.Unmarshal(raw, &ww); err != nil {
		return types.Window{}, fmt.Errorf("parse window: %w", err)
	}
	w := types.Window{ID: ww.ID}
	for _, wt := range ww.Tabs {
		t := wt.tab()
		if t.WindowID == 0 {
			t.WindowID = ww.ID
		}
		w.Tabs = append(w.Tabs, t)
	}
	return w, nil
}
