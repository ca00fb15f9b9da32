package tui

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/ctxkeep/internal/contexts"
	"github.com/lotas/ctxkeep/internal/export"
	"github.com/lotas/ctxkeep/internal/types"
)

// ContextsView lists saved contexts, newest first, with a detail pane.
type ContextsView struct {
	all      []types.Context
	shown    []types.Context
	term     string
	category types.Category
	cursor   int
	offset   int
	detail   DetailModel
	width    int
	height   int

	focusDetail bool
}

func (v *ContextsView) SetSize(w, h int) {
	v.width = w
	v.height = h
	v.detail.Width = w - (w * ListWidthPct / 100) - 3
	v.detail.Height = h
}

// SetContexts replaces the list, keeping the cursor on the same context
// when it still exists.
func (v *ContextsView) SetContexts(list []types.Context) {
	var keep string
	if c := v.Selected(); c != nil {
		keep = c.ID
	}
	v.all = list
	v.apply()
	for i, c := range v.shown {
		if c.ID == keep {
			v.cursor = i
		}
	}
	v.adjustOffset()
}

// SetFilter narrows the list by search term and category.
func (v *ContextsView) SetFilter(term string, category types.Category) {
	v.term = term
	v.category = category
	v.apply()
}

func (v *ContextsView) apply() {
	v.shown = contexts.Newest(contexts.Filter(v.all, v.term, v.category))
	if v.cursor >= len(v.shown) {
		v.cursor = max(0, len(v.shown)-1)
	}
	v.detail.ResetScroll()
	v.adjustOffset()
}

// Selected returns the context under the cursor, or nil.
func (v *ContextsView) Selected() *types.Context {
	if v.cursor < 0 || v.cursor >= len(v.shown) {
		return nil
	}
	c := v.shown[v.cursor]
	return &c
}

func (v *ContextsView) Len() int { return len(v.shown) }

func (v ContextsView) Update(msg tea.Msg) (ContextsView, tea.Cmd) {
	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return v, nil
	}
	if v.focusDetail {
		switch key.String() {
		case "esc", "h", "left":
			v.focusDetail = false
			v.detail.ResetScroll()
		case "j", "down":
			v.detail.ScrollDown()
		case "k", "up":
			v.detail.ScrollUp()
		}
		return v, nil
	}

	switch key.String() {
	case "j", "down":
		if v.cursor < len(v.shown)-1 {
			v.cursor++
			v.detail.ResetScroll()
			v.adjustOffset()
		}
	case "k", "up":
		if v.cursor > 0 {
			v.cursor--
			v.detail.ResetScroll()
			v.adjustOffset()
		}
	case "g", "home":
		v.cursor = 0
		v.adjustOffset()
	case "G", "end":
		v.cursor = max(0, len(v.shown)-1)
		v.adjustOffset()
	case "l", "right":
		if len(v.shown) > 0 {
			v.focusDetail = true
		}
	}
	return v, nil
}

func (v *ContextsView) adjustOffset() {
	if v.cursor < v.offset {
		v.offset = v.cursor
	}
	visible := v.height
	if visible < 1 {
		visible = 1
	}
	if v.cursor >= v.offset+visible {
		v.offset = v.cursor - visible + 1
	}
}

func (v ContextsView) ViewList(now time.Time) string {
	if len(v.all) == 0 {
		return "No saved contexts yet. Press s to save the open tabs."
	}
	if len(v.shown) == 0 {
		return fmt.Sprintf("No contexts match %q.", v.term)
	}

	cursorStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
	listWidth := v.width * ListWidthPct / 100

	var b strings.Builder
	end := v.offset + v.height
	if v.height <= 0 || end > len(v.shown) {
		end = len(v.shown)
	}

	for i := v.offset; i < end; i++ {
		c := v.shown[i]
		meta := fmt.Sprintf("(%d tabs) %s", c.TabCount, export.Age(c.CreatedAt, now))
		name := truncate(c.Name, listWidth-lipgloss.Width(meta)-4)
		line := "  " + name + " "

		if i == v.cursor {
			line += meta
			for lipgloss.Width(line) < listWidth {
				line += " "
			}
			line = cursorStyle.Render(line)
		} else {
			line += dimStyle.Render(meta)
		}

		b.WriteString(line)
		if i < end-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

func (v ContextsView) ViewDetail(now time.Time) string {
	return v.detail.ViewContext(v.Selected(), now)
}

func (v ContextsView) FocusDetail() bool { return v.focusDetail }
