package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/lotas/ctxkeep/internal/command"
	"github.com/lotas/ctxkeep/internal/contexts"
	"github.com/lotas/ctxkeep/internal/types"
)

// --- Messages ---

type responseMsg struct {
	req  command.Request
	resp command.Response
}

type inputMode int

const (
	inputNone inputMode = iota
	inputFilter
	inputSave
	inputConfirmDelete
)

// --- Command helpers ---

func dispatch(d *command.Dispatcher, req command.Request) tea.Cmd {
	return func() tea.Msg {
		return responseMsg{req: req, resp: d.Dispatch(context.Background(), req)}
	}
}

func (m Model) refresh() tea.Cmd {
	return tea.Batch(
		dispatch(m.d, command.Request{Action: command.ListContexts}),
		dispatch(m.d, command.Request{Action: command.GetNotifications}),
		dispatch(m.d, command.Request{Action: command.GetSmartSuggestions}),
		dispatch(m.d, command.Request{Action: command.GetStats}),
	)
}

// --- Model ---

type Model struct {
	d      *command.Dispatcher
	source string
	now    func() time.Time

	view          ViewType
	contexts      ContextsView
	suggestions   []string
	suggestCursor int
	notifications []types.Notification
	stats         contexts.Stats

	picker     ModePicker
	showPicker bool
	input      textinput.Model
	inputMode  inputMode
	category   types.Category

	status    string
	statusErr bool
	width     int
	height    int
}

// NewModel builds the context browser. source names where tabs come from,
// for the top bar.
func NewModel(d *command.Dispatcher, source string) Model {
	ti := textinput.New()
	ti.CharLimit = 200
	return Model{
		d:      d,
		source: source,
		now:    time.Now,
		input:  ti,
		width:  120,
		height: 30,
	}
}

func (m Model) Init() tea.Cmd {
	return m.refresh()
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.contexts.SetSize(m.width, m.height-5) // top bar + bottom bar + borders
		return m, nil

	case responseMsg:
		return m.handleResponse(msg)

	case tea.KeyMsg:
		if m.showPicker {
			return m.updatePicker(msg)
		}
		if m.inputMode != inputNone {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) handleResponse(msg responseMsg) (tea.Model, tea.Cmd) {
	resp := msg.resp
	switch msg.req.Action {
	case command.ListContexts:
		if resp.Success {
			m.contexts.SetContexts(resp.Contexts)
		}
	case command.GetNotifications:
		if resp.Success {
			m.notifications = resp.Notifications
		}
	case command.GetSmartSuggestions:
		if resp.Success {
			m.suggestions = resp.Suggestions
			if m.suggestCursor >= len(m.suggestions) {
				m.suggestCursor = 0
			}
		}
	case command.GetStats:
		if resp.Success && resp.Stats != nil {
			m.stats = *resp.Stats
		}
	default:
		// Mutations: report and reload everything they may have touched.
		if !resp.Success {
			m.status, m.statusErr = resp.Error, true
			return m, nil
		}
		m.status, m.statusErr = resp.Message, false
		if resp.Load != nil && len(resp.Load.Errors) > 0 {
			m.status += fmt.Sprintf(" (%d tabs failed)", len(resp.Load.Errors))
			m.statusErr = true
		}
		return m, m.refresh()
	}
	if !resp.Success {
		m.status, m.statusErr = resp.Error, true
	}
	return m, nil
}

func (m Model) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "up", "k":
		m.picker.MoveUp()
	case "down", "j":
		m.picker.MoveDown()
	case "enter":
		m.showPicker = false
		return m, dispatch(m.d, command.Request{
			Action:    command.LoadContext,
			ContextID: m.picker.Context.ID,
			LoadMode:  string(m.picker.Selected()),
		})
	case "esc":
		m.showPicker = false
	case "ctrl+c":
		return m, tea.Quit
	}
	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inputMode == inputConfirmDelete {
		m.inputMode = inputNone
		sel := m.contexts.Selected()
		if msg.String() == "y" && sel != nil {
			return m, dispatch(m.d, command.Request{Action: command.DeleteContext, ContextID: sel.ID})
		}
		m.status, m.statusErr = "", false
		return m, nil
	}

	switch msg.String() {
	case "esc":
		if m.inputMode == inputFilter {
			m.input.SetValue("")
			m.contexts.SetFilter("", m.category)
		}
		m.input.Blur()
		m.inputMode = inputNone
		return m, nil
	case "enter":
		mode := m.inputMode
		value := strings.TrimSpace(m.input.Value())
		m.input.Blur()
		m.inputMode = inputNone
		if mode == inputSave {
			m.input.SetValue("")
			if value == "" {
				return m, nil
			}
			return m, dispatch(m.d, command.Request{Action: command.SaveContext, ContextName: value})
		}
		return m, nil
	case "ctrl+c":
		return m, tea.Quit
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.inputMode == inputFilter {
		m.contexts.SetFilter(m.input.Value(), m.category)
	}
	return m, cmd
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab":
		m.view = (m.view + 1) % ViewType(len(viewNames))
		return m, nil
	case "shift+tab":
		m.view = (m.view + ViewType(len(viewNames)) - 1) % ViewType(len(viewNames))
		return m, nil
	case "r":
		m.status = ""
		return m, m.refresh()
	case "s":
		m.startInput(inputSave, "context name", "")
		return m, textinput.Blink
	case "S":
		return m, dispatch(m.d, command.Request{Action: command.QuickSave})
	case "o":
		return m, dispatch(m.d, command.Request{Action: command.AutoOrganize})
	case "O":
		return m, dispatch(m.d, command.Request{Action: command.SmartOrganize})
	}

	switch m.view {
	case ViewContexts:
		return m.updateContexts(msg)
	case ViewSuggestions:
		return m.updateSuggestions(msg)
	case ViewNotifications:
		if msg.String() == "c" {
			return m, dispatch(m.d, command.Request{Action: command.ClearNotifications})
		}
	}
	return m, nil
}

func (m Model) updateContexts(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.contexts.FocusDetail() {
		var cmd tea.Cmd
		m.contexts, cmd = m.contexts.Update(msg)
		return m, cmd
	}
	switch msg.String() {
	case "/":
		m.startInput(inputFilter, "search name or tag", m.contexts.term)
		return m, textinput.Blink
	case "c":
		m.category = nextCategory(m.category)
		m.contexts.SetFilter(m.contexts.term, m.category)
		return m, nil
	case "enter":
		if sel := m.contexts.Selected(); sel != nil {
			m.picker = NewModePicker(*sel)
			m.showPicker = true
		}
		return m, nil
	case "L":
		return m, dispatch(m.d, command.Request{Action: command.LoadLastContext})
	case "x", "delete":
		if sel := m.contexts.Selected(); sel != nil {
			m.inputMode = inputConfirmDelete
			m.status, m.statusErr = fmt.Sprintf("Delete %q? y/n", sel.Name), true
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.contexts, cmd = m.contexts.Update(msg)
	return m, cmd
}

func (m Model) updateSuggestions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		if m.suggestCursor < len(m.suggestions)-1 {
			m.suggestCursor++
		}
	case "k", "up":
		if m.suggestCursor > 0 {
			m.suggestCursor--
		}
	case "enter":
		if len(m.suggestions) > 0 {
			m.startInput(inputSave, "context name", m.suggestions[m.suggestCursor])
			return m, textinput.Blink
		}
	}
	return m, nil
}

func (m *Model) startInput(mode inputMode, placeholder, value string) {
	m.inputMode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

// nextCategory cycles through no filter and every category.
func nextCategory(c types.Category) types.Category {
	if c == types.CategoryNone {
		return types.Categories[0]
	}
	for i, cat := range types.Categories {
		if cat == c && i+1 < len(types.Categories) {
			return types.Categories[i+1]
		}
	}
	return types.CategoryNone
}

func (m Model) View() string {
	if m.showPicker {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.picker.View())
	}

	now := m.now()
	counts := [3]int{m.contexts.Len(), len(m.suggestions), len(m.notifications)}
	stats := fmt.Sprintf("%d contexts · %d tabs saved", m.stats.TotalContexts, m.stats.TotalTabs)
	topBar := renderNavbar(m.view, m.source, counts, stats, m.width)

	listWidth := m.width * ListWidthPct / 100
	detailWidth := m.width - listWidth - 3
	paneHeight := m.height - 5

	listBorder := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("62")).
		Width(listWidth).
		Height(paneHeight)

	var body string
	switch m.view {
	case ViewContexts:
		detailBorder := lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Width(detailWidth).
			Height(paneHeight)
		if m.contexts.FocusDetail() {
			detailBorder = detailBorder.BorderForeground(lipgloss.Color("62"))
		}
		body = lipgloss.JoinHorizontal(lipgloss.Top,
			listBorder.Render(m.contexts.ViewList(now)),
			detailBorder.Render(m.contexts.ViewDetail(now)))
	case ViewSuggestions:
		body = listBorder.Width(m.width - 2).Render(m.viewSuggestions())
	case ViewNotifications:
		body = listBorder.Width(m.width - 2).Render(m.viewNotifications(now))
	}

	return lipgloss.JoinVertical(lipgloss.Left, topBar, body, m.bottomBar())
}

func (m Model) viewSuggestions() string {
	if len(m.suggestions) == 0 {
		return "No suggestions. Open some tabs and press r."
	}
	cursorStyle := lipgloss.NewStyle().Bold(true).Reverse(true)
	var b strings.Builder
	for i, s := range m.suggestions {
		line := "  " + s
		if i == m.suggestCursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) viewNotifications(now time.Time) string {
	if len(m.notifications) == 0 {
		return "No notifications."
	}
	styles := map[types.NotificationType]lipgloss.Style{
		types.NotifySuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		types.NotifyError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		types.NotifyInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
	var b strings.Builder
	for i := len(m.notifications) - 1; i >= 0; i-- {
		n := m.notifications[i]
		age := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Render(fmt.Sprintf("%-10s", ageShort(n.Timestamp, now)))
		b.WriteString("  " + age + " " + styles[n.Type].Render(n.Message) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func ageShort(t, now time.Time) string {
	d := now.Sub(t)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return t.Local().Format("Jan 2")
	}
}

func (m Model) bottomBar() string {
	bottomBarStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240")).Padding(0, 1)
	if m.inputMode == inputFilter || m.inputMode == inputSave {
		label := "Search: "
		if m.inputMode == inputSave {
			label = "Save as: "
		}
		return bottomBarStyle.Render(label) + m.input.View()
	}
	if m.status != "" {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Padding(0, 1)
		if m.statusErr {
			style = style.Foreground(lipgloss.Color("196"))
		}
		return style.Render(m.status)
	}

	var text string
	switch m.view {
	case ViewContexts:
		filter := "all"
		if m.category != types.CategoryNone {
			filter = string(m.category)
		}
		text = "↑↓/jk navigate · enter load · L load last · x delete · / search · c category · "
		text += fmt.Sprintf("[%s] · ", filter)
	case ViewSuggestions:
		text = "enter save as · "
	case ViewNotifications:
		text = "c clear · "
	}
	text += "s save · S quick save · o/O organize · tab view · r refresh · q quit"
	return bottomBarStyle.Render(text)
}
