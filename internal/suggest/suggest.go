// Package suggest proposes names for the current set of open tabs.
package suggest

import (
	"fmt"
	"time"

	"github.com/lotas/ctxkeep/internal/classify"
	"github.com/lotas/ctxkeep/internal/keywords"
	"github.com/lotas/ctxkeep/internal/types"
)

// MaxSuggestions caps the length of a suggestion list.
const MaxSuggestions = 6

const (
	topKeywords     = 3
	minKeywordCount = 2
)

// Time-of-day suggestions.
const (
	WorkSession     = "Work Session"
	EveningBrowsing = "Evening Browsing"
	LateNight       = "Late Night Session"
)

// TimeOfDay maps a local clock hour (0-23) to its suggestion.
func TimeOfDay(hour int) string {
	switch {
	case hour >= 9 && hour <= 17:
		return WorkSession
	case hour >= 18 && hour <= 22:
		return EveningBrowsing
	default:
		return LateNight
	}
}

// Engine builds suggestions. It never persists anything.
type Engine struct {
	classifier *classify.Classifier
	keywords   *keywords.Extractor
	now        func() time.Time
}

// New returns an Engine reading the local clock.
func New(c *classify.Classifier, k *keywords.Extractor) *Engine {
	return &Engine{classifier: c, keywords: k, now: time.Now}
}

// WithClock returns a copy of e that reads time from now.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	cp := *e
	cp.now = now
	return &cp
}

// Suggest returns at most MaxSuggestions names: repeated hostnames, then
// frequent title keywords, then one time-of-day name and finally the
// dominant category. The time-of-day name and the category are never cut;
// truncation only shortens the hostname and keyword part.
func (e *Engine) Suggest(tabs []types.Tab) []string {
	var tail []string
	tail = append(tail, TimeOfDay(e.now().Hour()))
	if cat, ok := e.dominantCategory(tabs); ok {
		tail = append(tail, keywords.Title(string(cat))+" Session")
	}

	head := e.hostSuggestions(tabs)
	head = append(head, e.keywordSuggestions(tabs)...)
	if limit := MaxSuggestions - len(tail); len(head) > limit {
		head = head[:limit]
	}
	return append(head, tail...)
}

func (e *Engine) hostSuggestions(tabs []types.Tab) []string {
	index := make(map[string]int)
	type count struct {
		host string
		n    int
	}
	var counts []count
	for _, t := range tabs {
		host, err := e.classifier.Host(t.URL)
		if err != nil {
			continue
		}
		if i, ok := index[host]; ok {
			counts[i].n++
			continue
		}
		index[host] = len(counts)
		counts = append(counts, count{host: host, n: 1})
	}

	var out []string
	for _, c := range counts {
		if c.n >= 2 {
			out = append(out, fmt.Sprintf("%s (%d tabs)", c.host, c.n))
		}
	}
	return out
}

func (e *Engine) keywordSuggestions(tabs []types.Tab) []string {
	titles := make([]string, 0, len(tabs))
	for _, t := range tabs {
		if _, err := e.classifier.Host(t.URL); err != nil {
			continue
		}
		titles = append(titles, t.Title)
	}
	return e.keywords.Top(titles, topKeywords, minKeywordCount)
}

// dominantCategory returns the most common category among classifiable
// tabs. Ties go to the category seen first.
func (e *Engine) dominantCategory(tabs []types.Tab) (types.Category, bool) {
	counts := make(map[types.Category]int)
	var order []types.Category
	for _, t := range tabs {
		cat, err := e.classifier.Classify(t.URL)
		if err != nil {
			continue
		}
		if counts[cat] == 0 {
			order = append(order, cat)
		}
		counts[cat]++
	}
	if len(order) == 0 {
		return types.CategoryNone, false
	}
	best := order[0]
	for _, cat := range order[1:] {
		if counts[cat] > counts[best] {
			best = cat
		}
	}
	return best, true
}
