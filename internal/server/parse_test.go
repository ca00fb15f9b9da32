package server

import (
	"encoding/json"
	"testing"
)

func TestParseTabs(t *testing.T) {
	raw := json.RawMessage(`[
		{"id": 1, "url": "https://example.com", "title": "Example", "lastAccessed": 1700000000000, "windowId": 1, "index": 0, "pinned": true},
		{"id": 2, "url": "https://other.com", "title": "Other", "windowId": 1, "index": 1, "active": true, "favIconUrl": "https://other.com/f.ico"}
	]`)

	tabs, err := ParseTabs(raw)
	if err != nil {
		t.Fatal(err)
	}
	if len(tabs) != 2 {
		t.Fatalf("got %d tabs, want 2", len(tabs))
	}
	if tabs[0].ID != 1 || tabs[0].URL != "https://example.com" || !tabs[0].Pinned {
		t.Errorf("tab 0 = %+v", tabs[0])
	}
	if tabs[0].LastAccessed.IsZero() {
		t.Error("tab LastAccessed is zero")
	}
	if !tabs[1].Active || tabs[1].FavIconURL != "https://other.com/f.ico" {
		t.Errorf("tab 1 = %+v", tabs[1])
	}
	if !tabs[1].LastAccessed.IsZero() {
		t.Error("missing lastAccessed should stay zero")
	}
}

func TestParseTabsEmpty(t *testing.T) {
	tabs, err := ParseTabs(nil)
	if err != nil || tabs != nil {
		t.Errorf("ParseTabs(nil) = %v, %v", tabs, err)
	}
}

func TestParseTabsInvalid(t *testing.T) {
	if _, err := ParseTabs(json.RawMessage(`{"not":"a list"}`)); err == nil {
		t.Error("expected error")
	}
}
