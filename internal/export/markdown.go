package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/lotas/ctxkeep/internal/types"
)

// Markdown formats a context as a markdown document.
func Markdown(c types.Context, now time.Time) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n", c.Name)

	var meta []string
	if c.Category != types.CategoryNone {
		meta = append(meta, string(c.Category))
	}
	for _, tag := range c.Tags {
		meta = append(meta, "#"+tag)
	}
	meta = append(meta, "saved "+Age(c.CreatedAt, now))
	fmt.Fprintf(&b, "> %s\n", strings.Join(meta, " · "))

	n := len(c.Tabs)
	noun := "tabs"
	if n == 1 {
		noun = "tab"
	}
	fmt.Fprintf(&b, "\n## %d %s\n\n", n, noun)

	for _, tab := range c.Tabs {
		title := tab.Title
		if title == "" {
			title = tab.URL
		}
		fmt.Fprintf(&b, "- [%s](%s) (%s)\n", title, tab.URL, extractDomain(tab.URL))
	}

	return b.String()
}

// Age describes how long ago t was, relative to now.
func Age(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Hour:
		return "just now"
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd ago", int(d.Hours()/24))
	default:
		return t.Local().Format("2006-01-02")
	}
}
