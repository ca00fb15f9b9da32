package firefox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/lotas/ctxkeep/internal/types"
	"github.com/pierrec/lz4/v4"
)

func TestDecompressMozLz4(t *testing.T) {
	t.Run("valid mozlz4 payload", func(t *testing.T) {
		original := []byte(`{"windows":[{"tabs":[]}]}`)

		// Compress with lz4 block compression.
		dst := make([]byte, lz4.CompressBlockBound(len(original)))
		n, err := lz4.CompressBlock(original, dst, nil)
		if err != nil {
			t.Fatalf("lz4.CompressBlock failed: %v", err)
		}
		compressed := dst[:n]

		// Build mozlz4 payload: 8-byte magic + 4-byte LE uint32 size + compressed data.
		magic := []byte("mozLz40\x00")
		sizeBytes := make([]byte, 4)
		binary.LittleEndian.PutUint32(sizeBytes, uint32(len(original)))

		payload := make([]byte, 0, len(magic)+len(sizeBytes)+len(compressed))
		payload = append(payload, magic...)
		payload = append(payload, sizeBytes...)
		payload = append(payload, compressed...)

		result, err := DecompressMozLz4(payload)
		if err != nil {
			t.Fatalf("DecompressMozLz4 returned error: %v", err)
		}
		if string(result) != string(original) {
			t.Errorf("expected %q, got %q", string(original), string(result))
		}
	})

	t.Run("invalid header returns error", func(t *testing.T) {
		// Wrong magic bytes.
		bad := []byte("BADMAGIC\x00\x00\x00\x00some data here")
		_, err := DecompressMozLz4(bad)
		if err == nil {
			t.Fatal("expected error for invalid header, got nil")
		}
	})

	t.Run("too short data returns error", func(t *testing.T) {
		short := []byte("mozLz40")
		_, err := DecompressMozLz4(short)
		if err == nil {
			t.Fatal("expected error for too-short data, got nil")
		}
	})
}

func TestParseSession(t *testing.T) {
	// Window 1: two tabs, the second selected; the first pinned.
	// Window 2: one tab with history, index=2 (current page is entries[1]).
	session := map[string]interface{}{
		"windows": []map[string]interface{}{
			{
				"selected": 2,
				"tabs": []map[string]interface{}{
					{
						"entries": []map[string]interface{}{
							{"url": "https://example.com", "title": "Example"},
						},
						"index":        1,
						"lastAccessed": 1707654321000,
						"image":        "https://example.com/favicon.ico",
						"pinned":       true,
					},
					{
						"entries": []map[string]interface{}{
							{"url": "https://second.com", "title": "Second"},
						},
						"index": 1,
					},
					{
						"entries": []map[string]interface{}{},
					},
				},
			},
			{
				"selected": 1,
				"tabs": []map[string]interface{}{
					{
						"entries": []map[string]interface{}{
							{"url": "https://old.com", "title": "Old Page"},
							{"url": "https://current.com", "title": "Current Page"},
						},
						"index":        2,
						"lastAccessed": 1707654999000,
					},
				},
			},
		},
	}

	data, err := json.Marshal(session)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}

	tabs, err := ParseSession(data)
	if err != nil {
		t.Fatalf("ParseSession returned error: %v", err)
	}
	if len(tabs) != 3 {
		t.Fatalf("expected 3 tabs, got %d", len(tabs))
	}

	tab0 := tabs[0]
	if tab0.URL != "https://example.com" || tab0.Title != "Example" {
		t.Errorf("tab0 = %q %q", tab0.URL, tab0.Title)
	}
	if tab0.FavIconURL != "https://example.com/favicon.ico" {
		t.Errorf("tab0 FavIconURL: got %q", tab0.FavIconURL)
	}
	if !tab0.Pinned || tab0.Active {
		t.Errorf("tab0 pinned=%v active=%v, want pinned and inactive", tab0.Pinned, tab0.Active)
	}
	if tab0.LastAccessed.UnixMilli() != 1707654321000 {
		t.Errorf("tab0 LastAccessed: expected 1707654321000, got %d", tab0.LastAccessed.UnixMilli())
	}

	if !tabs[1].Active || tabs[1].ID != 2 || tabs[1].WindowID != 1 {
		t.Errorf("tab1 = %+v, want active tab 2 in window 1", tabs[1])
	}
	if !tabs[1].LastAccessed.IsZero() {
		t.Error("tab1 LastAccessed should be zero")
	}

	tab2 := tabs[2]
	if tab2.URL != "https://current.com" || tab2.Title != "Current Page" {
		t.Errorf("tab2 = %q %q, want current history entry", tab2.URL, tab2.Title)
	}
	if tab2.WindowID != 2 || !tab2.Active || tab2.ID != 3 {
		t.Errorf("tab2 = %+v, want active tab 3 in window 2", tab2)
	}
}

func TestSessionReader(t *testing.T) {
	profileDir := t.TempDir()
	os.MkdirAll(SessionDir(profileDir), 0755)

	payload, err := CompressMozLz4([]byte(`{"windows":[{"selected":1,"tabs":[
		{"entries":[{"url":"https://a.com","title":"A"}],"index":1},
		{"entries":[{"url":"https://b.com","title":"B"}],"index":1}
	]}]}`))
	if err != nil {
		t.Fatalf("CompressMozLz4: %v", err)
	}
	os.WriteFile(filepath.Join(SessionDir(profileDir), "previous.jsonlz4"), payload, 0644)

	r := SessionReader{Profile: types.Profile{Name: "test", Path: profileDir}}
	tabs, err := r.QueryTabs(context.Background())
	if err != nil {
		t.Fatalf("QueryTabs: %v", err)
	}
	if len(tabs) != 2 || tabs[1].URL != "https://b.com" {
		t.Errorf("tabs = %+v", tabs)
	}
}

func TestReadSessionFileMissing(t *testing.T) {
	if _, err := ReadSessionFile(t.TempDir()); err == nil {
		t.Fatal("expected error for profile without session files")
	}
}
