package contexts

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/lotas/ctxkeep/internal/storage"
	"github.com/lotas/ctxkeep/internal/types"
)

// testStore returns a Store over a temporary SQLite database with a
// deterministic clock and id sequence.
func testStore(t *testing.T) *Store {
	t.Helper()
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s := New(storage.NewKV(db))
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	var n int
	s.now = func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	var id int
	s.newID = func() string {
		id++
		return fmt.Sprintf("id-%d", id)
	}
	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	return s
}

func tabs(urls ...string) []types.SavedTab {
	out := make([]types.SavedTab, len(urls))
	for i, u := range urls {
		out[i] = types.SavedTab{URL: u, Title: u}
	}
	return out
}

func TestSaveRecomputesTabCount(t *testing.T) {
	s := testStore(t)

	c, err := s.Save(types.Context{
		Name:     "Research",
		TabCount: 99,
		Tabs:     append(tabs("https://a.com", "https://b.com"), types.SavedTab{URL: "", Title: "blank"}),
	})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if c.TabCount != 2 || len(c.Tabs) != 2 {
		t.Errorf("TabCount = %d, len(Tabs) = %d, want 2/2", c.TabCount, len(c.Tabs))
	}

	stored, err := s.Get(c.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if stored.TabCount != len(stored.Tabs) {
		t.Errorf("stored TabCount %d != len(Tabs) %d", stored.TabCount, len(stored.Tabs))
	}
}

func TestSaveSameNameReplacesInPlace(t *testing.T) {
	s := testStore(t)

	first, _ := s.Save(types.Context{Name: "A", Tabs: tabs("https://a.com")})
	s.Save(types.Context{Name: "B", Tabs: tabs("https://b.com")})
	s.Save(types.Context{Name: "C", Tabs: tabs("https://c.com")})

	again, err := s.Save(types.Context{Name: "A", Tabs: tabs("https://x.com", "https://y.com")})
	if err != nil {
		t.Fatalf("Save: %v", err)
	}

	list, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 contexts, got %d", len(list))
	}
	if list[0].Name != "A" {
		t.Fatalf("expected A to keep index 0, got %q", list[0].Name)
	}
	if list[0].ID == first.ID {
		t.Error("expected a new id after overwrite")
	}
	if !list[0].CreatedAt.After(first.CreatedAt) {
		t.Error("expected createdAt to be refreshed")
	}
	if list[0].ID != again.ID || list[0].TabCount != 2 {
		t.Errorf("got %+v, want replaced record", list[0])
	}
	if _, err := s.Get(first.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("old id should be gone, got %v", err)
	}
}

func TestSaveRejectsEmptyName(t *testing.T) {
	s := testStore(t)
	if _, err := s.Save(types.Context{Name: "   ", Tabs: tabs("https://a.com")}); !errors.Is(err, ErrEmptyName) {
		t.Errorf("err = %v, want ErrEmptyName", err)
	}
}

func TestSaveDeduplicatesTags(t *testing.T) {
	s := testStore(t)
	c, _ := s.Save(types.Context{Name: "T", Tags: []string{"go", "go", " ", "web", "go"}})
	if len(c.Tags) != 2 || c.Tags[0] != "go" || c.Tags[1] != "web" {
		t.Errorf("Tags = %v, want [go web]", c.Tags)
	}
}

func TestDelete(t *testing.T) {
	s := testStore(t)
	a, _ := s.Save(types.Context{Name: "A", Tabs: tabs("https://a.com")})
	s.Save(types.Context{Name: "B", Tabs: tabs("https://b.com")})

	deleted, err := s.Delete(a.ID)
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if deleted.Name != "A" {
		t.Errorf("deleted %q, want A", deleted.Name)
	}
	list, _ := s.List()
	if len(list) != 1 || list[0].Name != "B" {
		t.Errorf("remaining = %+v, want only B", list)
	}
}

func TestDeleteNotFoundLeavesCollection(t *testing.T) {
	s := testStore(t)
	s.Save(types.Context{Name: "A", Tabs: tabs("https://a.com")})
	before, _ := s.List()

	if _, err := s.Delete("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	after, _ := s.List()
	if len(after) != len(before) || after[0].ID != before[0].ID {
		t.Errorf("collection changed: before %+v after %+v", before, after)
	}
}

func TestGetNotFound(t *testing.T) {
	s := testStore(t)
	if _, err := s.Get("missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestLatestAndNewest(t *testing.T) {
	s := testStore(t)
	if _, err := s.Latest(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Latest on empty store: err = %v, want ErrNotFound", err)
	}

	s.Save(types.Context{Name: "old", Tabs: tabs("https://a.com")})
	s.Save(types.Context{Name: "new", Tabs: tabs("https://b.com")})

	latest, err := s.Latest()
	if err != nil {
		t.Fatalf("Latest: %v", err)
	}
	if latest.Name != "new" {
		t.Errorf("Latest = %q, want new", latest.Name)
	}

	list, _ := s.List()
	sorted := Newest(list)
	if sorted[0].Name != "new" || sorted[1].Name != "old" {
		t.Errorf("Newest order = %q, %q", sorted[0].Name, sorted[1].Name)
	}
	if list[0].Name != "old" {
		t.Error("Newest must not reorder its input")
	}
}

func TestFilter(t *testing.T) {
	list := []types.Context{
		{Name: "Go reading", Category: types.CategoryResearch, Tags: []string{"golang"}},
		{Name: "Groceries", Category: types.CategoryShopping, Tags: []string{"weekly"}},
		{Name: "Streams", Category: types.CategoryEntertainment, Tags: []string{"GoLang-talks"}},
	}

	tests := []struct {
		term     string
		category types.Category
		want     []string
	}{
		{"", "", []string{"Go reading", "Groceries", "Streams"}},
		{"golang", "", []string{"Go reading", "Streams"}},
		{"GRO", "", []string{"Groceries"}},
		{"go", types.CategoryResearch, []string{"Go reading"}},
		{"", types.CategoryShopping, []string{"Groceries"}},
		{"nothing", "", nil},
	}
	for _, tt := range tests {
		got := Filter(list, tt.term, tt.category)
		var names []string
		for _, c := range got {
			names = append(names, c.Name)
		}
		if fmt.Sprint(names) != fmt.Sprint(tt.want) {
			t.Errorf("Filter(%q, %q) = %v, want %v", tt.term, tt.category, names, tt.want)
		}
	}
}

func TestStats(t *testing.T) {
	s := testStore(t)
	s.Save(types.Context{Name: "A", Tabs: tabs("https://a.com", "https://b.com")})
	s.Save(types.Context{Name: "B", Tabs: tabs("https://c.com")})

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalContexts != 2 || st.TotalTabs != 3 {
		t.Errorf("Stats = %+v, want 2 contexts / 3 tabs", st)
	}
}

func TestImport(t *testing.T) {
	s := testStore(t)

	c, err := s.Import([]byte(`{"id":"ignored","name":"Shared","category":"research","tabCount":7,
		"tabs":[{"url":"https://a.com","title":"A"},{"url":"https://b.com","title":"B"}]}`))
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if c.ID == "ignored" {
		t.Error("import must assign a new id")
	}
	if c.TabCount != 2 {
		t.Errorf("TabCount = %d, want 2", c.TabCount)
	}
	if c.Category != types.CategoryResearch {
		t.Errorf("Category = %q, want research", c.Category)
	}
}

func TestImportInvalid(t *testing.T) {
	s := testStore(t)
	for _, in := range []string{`not json`, `{"tabs":[]}`, `{"name":"x"}`, `{"name":"","tabs":[]}`} {
		if _, err := s.Import([]byte(in)); !errors.Is(err, ErrInvalidFormat) {
			t.Errorf("Import(%s) err = %v, want ErrInvalidFormat", in, err)
		}
	}
	list, _ := s.List()
	if len(list) != 0 {
		t.Errorf("invalid imports must not persist, got %d contexts", len(list))
	}
}

func TestStorageFailure(t *testing.T) {
	kv := storage.NewMemoryKV()
	s := New(kv)
	kv.FailSet = errors.New("disk full")

	_, err := s.Save(types.Context{Name: "A", Tabs: tabs("https://a.com")})
	if !errors.Is(err, ErrStorage) {
		t.Fatalf("err = %v, want ErrStorage", err)
	}
	if !errors.Is(err, kv.FailSet) {
		t.Errorf("underlying error should be wrapped, got %v", err)
	}
}

func TestInitKeepsExistingData(t *testing.T) {
	s := testStore(t)
	s.Save(types.Context{Name: "keep", Tabs: tabs("https://a.com")})
	prefs := types.DefaultPreferences()
	prefs.AutoSave = true
	s.SetPreferences(prefs)

	if err := s.Init(); err != nil {
		t.Fatalf("Init: %v", err)
	}
	list, _ := s.List()
	if len(list) != 1 {
		t.Errorf("Init wiped contexts: %d left", len(list))
	}
	got, _ := s.Preferences()
	if !got.AutoSave {
		t.Error("Init reset preferences")
	}
}
