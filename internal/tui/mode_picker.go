package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/ctxkeep/internal/types"
)

var modeLabels = map[types.LoadMode]string{
	types.LoadReplace:    "Replace open tabs",
	types.LoadNewWindow:  "Open in a new window",
	types.LoadBackground: "Open in background",
	types.LoadMerge:      "Add to current window",
}

// ModePicker is an overlay for choosing how a context is loaded.
type ModePicker struct {
	Context types.Context
	Cursor  int
}

func NewModePicker(c types.Context) ModePicker {
	return ModePicker{Context: c}
}

func (m *ModePicker) MoveUp() {
	if m.Cursor > 0 {
		m.Cursor--
	}
}

func (m *ModePicker) MoveDown() {
	if m.Cursor < len(types.LoadModes)-1 {
		m.Cursor++
	}
}

func (m ModePicker) Selected() types.LoadMode {
	return types.LoadModes[m.Cursor]
}

func (m ModePicker) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	selectedStyle := lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
	normalStyle := lipgloss.NewStyle().Padding(0, 1)
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Padding(1, 2)

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Load %q (%d tabs):", m.Context.Name, m.Context.TabCount)) + "\n\n")

	for i, mode := range types.LoadModes {
		label := modeLabels[mode]
		if i == m.Cursor {
			b.WriteString(selectedStyle.Render("> "+label) + "\n")
		} else {
			b.WriteString(normalStyle.Render("  "+label) + "\n")
		}
	}

	b.WriteString("\n" + normalStyle.Render("↑↓ navigate · enter load · esc cancel"))

	return boxStyle.Render(b.String())
}
