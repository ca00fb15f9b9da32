package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/ctxkeep/internal/export"
	"github.com/lotas/ctxkeep/internal/types"
)

// DetailModel shows the selected context in the right pane.
type DetailModel struct {
	Width      int
	Height     int
	Scroll     int // scroll offset
	ContentLen int // total lines in content
}

// ScrollUp adjusts the scroll offset upward.
func (m *DetailModel) ScrollUp() {
	if m.Scroll > 0 {
		m.Scroll--
	}
}

// ScrollDown adjusts the scroll offset downward.
func (m *DetailModel) ScrollDown() {
	if m.Scroll < m.ContentLen-m.Height {
		m.Scroll++
	}
	if m.Scroll < 0 {
		m.Scroll = 0
	}
}

// ResetScroll resets the scroll offset to 0.
func (m *DetailModel) ResetScroll() {
	m.Scroll = 0
}

func (m *DetailModel) ViewContext(c *types.Context, now time.Time) string {
	if c == nil {
		return ""
	}

	labelStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("245"))
	tagStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

	var b strings.Builder
	b.WriteString(labelStyle.Render("Context") + "\n")
	b.WriteString(truncate(c.Name, m.Width-2) + "\n\n")

	category := string(c.Category)
	if category == "" {
		category = "none"
	}
	b.WriteString(fmt.Sprintf("%s · %d tabs · saved %s\n", category, c.TabCount, export.Age(c.CreatedAt, now)))
	if len(c.Tags) > 0 {
		tags := make([]string, len(c.Tags))
		for i, t := range c.Tags {
			tags[i] = "#" + t
		}
		b.WriteString(tagStyle.Render(strings.Join(tags, " ")) + "\n")
	}
	b.WriteString("\n")

	b.WriteString(labelStyle.Render("Tabs") + "\n")
	for _, t := range c.Tabs {
		title := t.Title
		if title == "" {
			title = t.URL
		}
		b.WriteString(truncate(title, m.Width-4) + "\n")
		b.WriteString(dimStyle.Render("  "+truncate(t.URL, m.Width-6)) + "\n")
	}

	return m.ViewScrolled(b.String())
}

// ViewScrolled applies scroll offset and height truncation to the content string.
func (m *DetailModel) ViewScrolled(content string) string {
	if content == "" {
		return content
	}

	lines := strings.Split(content, "\n")
	m.ContentLen = len(lines)

	maxScroll := m.ContentLen - m.Height
	if maxScroll < 0 {
		maxScroll = 0
	}
	if m.Scroll > maxScroll {
		m.Scroll = maxScroll
	}
	if m.Scroll < 0 {
		m.Scroll = 0
	}

	end := m.Scroll + m.Height
	if end > len(lines) {
		end = len(lines)
	}
	if m.Height <= 0 {
		end = len(lines)
	}

	if m.Scroll >= len(lines) {
		return ""
	}

	return strings.Join(lines[m.Scroll:end], "\n")
}

func truncate(s string, max int) string {
	r := []rune(s)
	if max <= 1 || len(r) <= max {
		return s
	}
	return string(r[:max-1]) + "…"
}
