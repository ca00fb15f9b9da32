// Package keywords extracts ranked candidate keywords from tab titles and
// page text.
package keywords

import (
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultStopwords is the stopword list applied to tab titles.
var DefaultStopwords = []string{"the", "and", "for", "with", "this", "that", "have", "from", "they", "know"}

// minLen is the exclusive lower bound on keyword length, in runes.
const minLen = 3

// Keyword is a token with its frequency.
type Keyword struct {
	Word  string
	Count int
}

// Extractor tokenizes text and filters stopwords.
type Extractor struct {
	stop map[string]bool
}

// New returns an Extractor that drops the given stopwords.
func New(stopwords []string) *Extractor {
	stop := make(map[string]bool, len(stopwords))
	for _, w := range stopwords {
		stop[strings.ToLower(w)] = true
	}
	return &Extractor{stop: stop}
}

// Default returns an Extractor using DefaultStopwords.
func Default() *Extractor {
	return New(DefaultStopwords)
}

// Tokens splits text on whitespace, lower-cases it and keeps tokens longer
// than three characters that are not stopwords.
func (e *Extractor) Tokens(text string) []string {
	var out []string
	for _, w := range strings.Fields(strings.ToLower(text)) {
		if e.Keep(w) {
			out = append(out, w)
		}
	}
	return out
}

// Keep reports whether word is long enough and not a stopword.
func (e *Extractor) Keep(word string) bool {
	return utf8.RuneCountInString(word) > minLen && !e.stop[strings.ToLower(word)]
}

// Rank counts tokens across texts and returns them by descending count.
// Ties keep first-encountered order.
func (e *Extractor) Rank(texts []string) []Keyword {
	index := make(map[string]int)
	var ranked []Keyword
	for _, text := range texts {
		for _, w := range e.Tokens(text) {
			if i, ok := index[w]; ok {
				ranked[i].Count++
				continue
			}
			index[w] = len(ranked)
			ranked = append(ranked, Keyword{Word: w, Count: 1})
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})
	return ranked
}

// Top returns up to n title-cased keywords that occur at least minCount times.
func (e *Extractor) Top(texts []string, n, minCount int) []string {
	var out []string
	for _, k := range e.Rank(texts) {
		if len(out) == n {
			break
		}
		if k.Count < minCount {
			break
		}
		out = append(out, Title(k.Word))
	}
	return out
}

// Unique returns up to n distinct tokens in first-seen order.
func (e *Extractor) Unique(texts []string, n int) []string {
	seen := make(map[string]bool)
	var out []string
	for _, text := range texts {
		for _, w := range e.Tokens(text) {
			if seen[w] {
				continue
			}
			seen[w] = true
			out = append(out, w)
			if len(out) == n {
				return out
			}
		}
	}
	return out
}

// Title upper-cases the first letter of word and leaves the rest untouched.
func Title(word string) string {
	r, size := utf8.DecodeRuneInString(word)
	if r == utf8.RuneError {
		return word
	}
	// Casers are stateful, so one is built per call.
	return cases.Upper(language.Und).String(string(r)) + word[size:]
}
