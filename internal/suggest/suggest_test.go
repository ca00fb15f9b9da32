package suggest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotas/ctxkeep/internal/classify"
	"github.com/lotas/ctxkeep/internal/keywords"
	"github.com/lotas/ctxkeep/internal/types"
)

func engineAt(hour int) *Engine {
	at := time.Date(2026, 5, 4, hour, 30, 0, 0, time.Local)
	return New(classify.Default(), keywords.Default()).WithClock(func() time.Time { return at })
}

func TestTimeOfDay(t *testing.T) {
	tests := []struct {
		hour int
		want string
	}{
		{0, LateNight},
		{8, LateNight},
		{9, WorkSession},
		{17, WorkSession},
		{18, EveningBrowsing},
		{22, EveningBrowsing},
		{23, LateNight},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, TimeOfDay(tt.hour), "hour %d", tt.hour)
	}
}

func TestSuggestFullOrder(t *testing.T) {
	tabs := []types.Tab{
		{URL: "https://github.com/a", Title: "Golang generics proposal"},
		{URL: "https://github.com/b", Title: "Golang modules proposal"},
		{URL: "https://go.dev/doc", Title: "Golang release notes"},
	}

	got := engineAt(10).Suggest(tabs)
	assert.Equal(t, []string{
		"github.com (2 tabs)",
		"Golang",
		"Proposal",
		"Work Session",
		"Other Session",
	}, got)
}

func TestSuggestNoTabs(t *testing.T) {
	got := engineAt(20).Suggest(nil)
	assert.Equal(t, []string{EveningBrowsing}, got)
}

func TestSuggestNeverExceedsMaxAndKeepsTimeOfDay(t *testing.T) {
	var tabs []types.Tab
	for _, host := range []string{"a.com", "b.com", "c.com", "d.com", "e.com", "f.com"} {
		tabs = append(tabs,
			types.Tab{URL: "https://" + host + "/1", Title: "alpha bravo charlie"},
			types.Tab{URL: "https://" + host + "/2", Title: "alpha bravo charlie"},
		)
	}

	got := engineAt(3).Suggest(tabs)
	require.Len(t, got, MaxSuggestions)
	timeOfDay := 0
	for _, s := range got {
		if s == WorkSession || s == EveningBrowsing || s == LateNight {
			timeOfDay++
		}
	}
	assert.Equal(t, 1, timeOfDay)
	assert.Equal(t, LateNight, got[4])
	assert.Equal(t, "Other Session", got[5])
	assert.Equal(t, "a.com (2 tabs)", got[0])
}

func TestSuggestKeywordsNeedRepeats(t *testing.T) {
	tabs := []types.Tab{
		{URL: "https://one.com", Title: "unique words only"},
		{URL: "https://two.com", Title: "different title here"},
	}
	got := engineAt(12).Suggest(tabs)
	assert.Equal(t, []string{WorkSession, "Other Session"}, got)
}

func TestSuggestStopwordsAndShortTokens(t *testing.T) {
	tabs := []types.Tab{
		{URL: "https://x.org/1", Title: "This That with from Go"},
		{URL: "https://y.org/2", Title: "this that with from go"},
	}
	got := engineAt(12).Suggest(tabs)
	assert.Equal(t, []string{WorkSession, "Other Session"}, got)
}

func TestSuggestDominantCategory(t *testing.T) {
	tabs := []types.Tab{
		{URL: "https://www.youtube.com/watch?v=1"},
		{URL: "https://www.amazon.com/dp/1"},
		{URL: "https://www.netflix.com/title/2"},
		{URL: "about:blank"},
	}
	got := engineAt(12).Suggest(tabs)
	assert.Equal(t, []string{WorkSession, "Entertainment Session"}, got)
}

func TestSuggestCategoryTieKeepsFirstSeen(t *testing.T) {
	tabs := []types.Tab{
		{URL: "https://www.amazon.com/dp/1"},
		{URL: "https://www.reddit.com/r/golang"},
	}
	got := engineAt(12).Suggest(tabs)
	assert.Equal(t, "Shopping Session", got[len(got)-1])
}

func TestSuggestOnlyInvalidTabs(t *testing.T) {
	got := engineAt(12).Suggest([]types.Tab{{URL: "about:newtab", Title: "New Tab New Tab"}})
	assert.Equal(t, []string{WorkSession}, got)
}
