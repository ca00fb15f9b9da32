package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/lotas/ctxkeep/internal/browser/browsertest"
	"github.com/lotas/ctxkeep/internal/command"
	"github.com/lotas/ctxkeep/internal/contexts"
	"github.com/lotas/ctxkeep/internal/storage"
	"github.com/lotas/ctxkeep/internal/types"
)

func newTestModel(t *testing.T, urls ...string) (Model, *contexts.Store, *browsertest.Fake) {
	t.Helper()
	store := contexts.New(storage.NewMemoryKV())
	if err := store.Init(); err != nil {
		t.Fatal(err)
	}
	f := browsertest.New(urls...)
	m := NewModel(command.New(command.Deps{Store: store, Browser: f}), "test")
	m.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
	updated, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	return updated.(Model), store, f
}

// run dispatches req synchronously and feeds the response back.
func run(t *testing.T, m Model, req command.Request) Model {
	t.Helper()
	updated, _ := m.Update(dispatch(m.d, req)())
	return updated.(Model)
}

func key(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m Model, keys ...string) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, k := range keys {
		var updated tea.Model
		updated, cmd = m.Update(key(k))
		m = updated.(Model)
	}
	return m, cmd
}

func seed(t *testing.T, store *contexts.Store, names ...string) {
	t.Helper()
	for _, n := range names {
		if _, err := store.Save(types.Context{Name: n, Tags: []string{"seed"}, Tabs: []types.SavedTab{{URL: "https://" + strings.ToLower(n) + ".com"}}}); err != nil {
			t.Fatal(err)
		}
	}
}

func TestContextsListed(t *testing.T) {
	m, store, _ := newTestModel(t)
	seed(t, store, "Alpha", "Beta")
	m = run(t, m, command.Request{Action: command.ListContexts})

	if m.contexts.Len() != 2 {
		t.Fatalf("got %d contexts, want 2", m.contexts.Len())
	}
	view := m.View()
	if !strings.Contains(view, "Alpha") || !strings.Contains(view, "Beta") {
		t.Errorf("view missing context names:\n%s", view)
	}
}

func TestSearchFiltersList(t *testing.T) {
	m, store, _ := newTestModel(t)
	seed(t, store, "Alpha", "Beta")
	m = run(t, m, command.Request{Action: command.ListContexts})

	m, _ = press(m, "/", "b", "e", "t")
	if m.contexts.Len() != 1 || m.contexts.Selected().Name != "Beta" {
		t.Fatalf("filter did not narrow to Beta: %d shown", m.contexts.Len())
	}

	m, _ = press(m, "esc")
	if m.contexts.Len() != 2 {
		t.Errorf("esc should clear the filter, got %d shown", m.contexts.Len())
	}
}

func TestSaveFromPrompt(t *testing.T) {
	m, store, _ := newTestModel(t, "https://a.com")

	m, cmd := press(m, "s", "W", "o", "r", "k", "enter")
	if cmd == nil {
		t.Fatal("expected a save command")
	}
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	list, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 1 || list[0].Name != "Work" {
		t.Fatalf("saved = %+v", list)
	}
	if m.statusErr || !strings.Contains(m.status, `"Work" saved with 1 tabs`) {
		t.Errorf("status = %q", m.status)
	}
}

func TestLoadThroughPicker(t *testing.T) {
	m, store, f := newTestModel(t, "https://old.com")
	seed(t, store, "Gamma")
	m = run(t, m, command.Request{Action: command.ListContexts})

	m, _ = press(m, "enter")
	if !m.showPicker {
		t.Fatal("enter should open the load mode picker")
	}
	m, cmd := press(m, "j", "j", "j", "enter") // merge
	if cmd == nil {
		t.Fatal("expected a load command")
	}
	updated, _ := m.Update(cmd())
	m = updated.(Model)

	got := f.URLs(1)
	if len(got) != 2 || got[1] != "https://gamma.com" {
		t.Errorf("tabs after merge = %v", got)
	}
}

func TestDeleteNeedsConfirmation(t *testing.T) {
	m, store, _ := newTestModel(t)
	seed(t, store, "Delta")
	m = run(t, m, command.Request{Action: command.ListContexts})

	m, cmd := press(m, "x", "n")
	if cmd != nil {
		t.Fatal("n should cancel the delete")
	}
	m, cmd = press(m, "x", "y")
	if cmd == nil {
		t.Fatal("y should delete")
	}
	m.Update(cmd())

	list, err := store.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 0 {
		t.Errorf("context not deleted: %+v", list)
	}
}

func TestFailureShowsError(t *testing.T) {
	m, _, _ := newTestModel(t)
	m = run(t, m, command.Request{Action: command.SaveContext, ContextName: "Nothing"})
	if !m.statusErr || m.status == "" {
		t.Errorf("expected an error status, got %q", m.status)
	}
}

func TestTabCyclesViews(t *testing.T) {
	m, _, _ := newTestModel(t, "https://github.com/a", "https://github.com/b")
	m = run(t, m, command.Request{Action: command.GetSmartSuggestions})

	m, _ = press(m, "tab")
	if m.view != ViewSuggestions {
		t.Fatalf("view = %d", m.view)
	}
	if !strings.Contains(m.View(), "github.com (2 tabs)") {
		t.Errorf("suggestions not rendered:\n%s", m.View())
	}
	m, _ = press(m, "tab", "tab")
	if m.view != ViewContexts {
		t.Errorf("view = %d, want contexts", m.view)
	}
}

func TestNextCategory(t *testing.T) {
	c := types.CategoryNone
	seen := 0
	for {
		c = nextCategory(c)
		if c == types.CategoryNone {
			break
		}
		seen++
	}
	if seen != len(types.Categories) {
		t.Errorf("cycled through %d categories, want %d", seen, len(types.Categories))
	}
}
