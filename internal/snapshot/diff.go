package snapshot

import (
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/lotas/ctxkeep/internal/types"
)

// NormalizeURL drops the fragment, sorts query values and trims a trailing
// slash from non-root paths.
func NormalizeURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}
	u.Fragment = ""
	params := u.Query()
	for k := range params {
		sort.Strings(params[k])
	}
	u.RawQuery = params.Encode()
	result := u.String()
	if strings.HasSuffix(result, "/") && result != u.Scheme+"://"+u.Host+"/" {
		result = strings.TrimRight(result, "/")
	}
	return result
}

// DiffEntry represents a single tab in a diff result.
type DiffEntry struct {
	URL   string
	Title string
}

// DiffResult holds the result of comparing a saved context against the
// open tabs.
type DiffResult struct {
	ContextName string
	Added       []DiffEntry // open but not in the context
	Removed     []DiffEntry // in the context but not open
}

// Diff compares a saved context against the open tabs by normalized URL.
// Entries keep the order in which they appear in their source.
func Diff(c types.Context, current []types.Tab) DiffResult {
	saved := make(map[string]bool, len(c.Tabs))
	for _, t := range c.Tabs {
		saved[NormalizeURL(t.URL)] = true
	}
	open := make(map[string]bool, len(current))
	for _, t := range current {
		if t.URL != "" {
			open[NormalizeURL(t.URL)] = true
		}
	}

	result := DiffResult{ContextName: c.Name}
	seen := make(map[string]bool)
	for _, t := range current {
		key := NormalizeURL(t.URL)
		if t.URL == "" || saved[key] || seen[key] {
			continue
		}
		seen[key] = true
		result.Added = append(result.Added, DiffEntry{URL: t.URL, Title: t.Title})
	}
	for _, t := range c.Tabs {
		key := NormalizeURL(t.URL)
		if open[key] || seen[key] {
			continue
		}
		seen[key] = true
		result.Removed = append(result.Removed, DiffEntry{URL: t.URL, Title: t.Title})
	}
	return result
}

// FormatDiff returns a human-readable string representation of a DiffResult.
func FormatDiff(d DiffResult) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Diff against context %q\n", d.ContextName)
	fmt.Fprintf(&sb, "Added: %d  Removed: %d\n", len(d.Added), len(d.Removed))

	if len(d.Added) > 0 {
		sb.WriteString("\n+ Added:\n")
		for _, e := range d.Added {
			fmt.Fprintf(&sb, "  + %s\n", e.URL)
		}
	}

	if len(d.Removed) > 0 {
		sb.WriteString("\n- Removed:\n")
		for _, e := range d.Removed {
			fmt.Fprintf(&sb, "  - %s\n", e.URL)
		}
	}

	if len(d.Added) == 0 && len(d.Removed) == 0 {
		sb.WriteString("\nNo changes.\n")
	}

	return sb.String()
}
