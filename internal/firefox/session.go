package firefox

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/lotas/ctxkeep/internal/browser"
	"github.com/lotas/ctxkeep/internal/types"
	"github.com/pierrec/lz4/v4"
)

// SessionFiles are the session recovery files, most recent first.
var SessionFiles = []string{"recovery.jsonlz4", "previous.jsonlz4"}

// mozlz4 header: 8-byte magic "mozLz40\x00"
var mozLz4Magic = []byte("mozLz40\x00")

// DecompressMozLz4 decompresses data in Mozilla's mozlz4 format.
// The format is: 8-byte magic "mozLz40\x00" + 4-byte LE uint32 uncompressed size + lz4 block data.
func DecompressMozLz4(data []byte) ([]byte, error) {
	const headerSize = 12 // 8 magic + 4 size

	if len(data) < headerSize {
		return nil, fmt.Errorf("mozlz4: data too short (%d bytes)", len(data))
	}

	for i := 0; i < len(mozLz4Magic); i++ {
		if data[i] != mozLz4Magic[i] {
			return nil, fmt.Errorf("mozlz4: invalid header magic")
		}
	}

	uncompressedSize := binary.LittleEndian.Uint32(data[8:12])

	dst := make([]byte, uncompressedSize)
	n, err := lz4.UncompressBlock(data[headerSize:], dst)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: decompress failed: %w", err)
	}

	return dst[:n], nil
}

// CompressMozLz4 encodes data in the mozlz4 format.
func CompressMozLz4(data []byte) ([]byte, error) {
	buf := make([]byte, lz4.CompressBlockBound(len(data)))
	n, err := lz4.CompressBlock(data, buf, nil)
	if err != nil {
		return nil, fmt.Errorf("mozlz4: compress failed: %w", err)
	}
	out := make([]byte, 0, 12+n)
	out = append(out, mozLz4Magic...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(data)))
	return append(out, buf[:n]...), nil
}

type rawEntry struct {
	URL   string `json:"url"`
	Title string `json:"title"`
}

type rawTab struct {
	Entries      []rawEntry `json:"entries"`
	Index        int        `json:"index"`
	LastAccessed int64      `json:"lastAccessed"`
	Image        string     `json:"image"`
	Pinned       bool       `json:"pinned"`
}

type rawWindow struct {
	Tabs     []rawTab `json:"tabs"`
	Selected int      `json:"selected"` // 1-based
}

type rawSession struct {
	Windows []rawWindow `json:"windows"`
}

// ParseSession parses raw session JSON into tabs. Session files carry no
// browser tab ids, so tabs are numbered from 1 in file order and windows
// from 1. A tab is active when it is the selected tab of its window.
func ParseSession(data []byte) ([]types.Tab, error) {
	var raw rawSession
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse session JSON: %w", err)
	}

	var tabs []types.Tab
	for winIdx, window := range raw.Windows {
		for tabIdx, rt := range window.Tabs {
			if len(rt.Entries) == 0 {
				continue
			}

			// index is 1-based; current page is entries[index-1].
			entryIdx := rt.Index - 1
			if entryIdx < 0 || entryIdx >= len(rt.Entries) {
				entryIdx = len(rt.Entries) - 1
			}
			entry := rt.Entries[entryIdx]

			tab := types.Tab{
				ID:         len(tabs) + 1,
				WindowID:   winIdx + 1,
				Index:      tabIdx,
				URL:        entry.URL,
				Title:      entry.Title,
				FavIconURL: rt.Image,
				Pinned:     rt.Pinned,
				Active:     tabIdx+1 == window.Selected,
			}
			if rt.LastAccessed > 0 {
				tab.LastAccessed = time.UnixMilli(rt.LastAccessed)
			}
			tabs = append(tabs, tab)
		}
	}
	return tabs, nil
}

// SessionDir returns the directory holding the session recovery files.
func SessionDir(profileDir string) string {
	return filepath.Join(profileDir, "sessionstore-backups")
}

// ReadSessionFile reads and parses a Firefox session recovery file from the given profile directory.
// It tries recovery.jsonlz4 first (active session), then previous.jsonlz4 (last closed session).
func ReadSessionFile(profileDir string) ([]types.Tab, error) {
	backupDir := SessionDir(profileDir)
	var data []byte
	var err error
	for _, name := range SessionFiles {
		data, err = os.ReadFile(filepath.Join(backupDir, name))
		if err == nil {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("no session file found in %s", backupDir)
	}

	decompressed, err := DecompressMozLz4(data)
	if err != nil {
		return nil, fmt.Errorf("decompress session file: %w", err)
	}

	return ParseSession(decompressed)
}

// SessionReader reads tabs from a profile's session file. It implements
// browser.Reader.
type SessionReader struct {
	Profile types.Profile
}

var _ browser.Reader = SessionReader{}

func (r SessionReader) QueryTabs(ctx context.Context) ([]types.Tab, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadSessionFile(r.Profile.Path)
}
