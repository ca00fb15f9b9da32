// Package classify maps tab URLs to categories using static domain tables.
package classify

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
	"github.com/lotas/ctxkeep/internal/types"
)

// ErrInvalidURL is returned for URLs without a usable hostname. Callers
// skip the tab and continue with the rest of the batch.
var ErrInvalidURL = errors.New("invalid url")

// Rule assigns Category to every hostname containing one of Domains.
type Rule struct {
	Category types.Category `yaml:"category"`
	Domains  []string       `yaml:"domains"`
}

// Table is the policy data behind a Classifier. Rules are checked in order
// and the first match wins.
type Table struct {
	Rules     []Rule   `yaml:"rules"`
	Important []string `yaml:"important"`
	Skip      []string `yaml:"skip"`
}

// DefaultTable returns the built-in domain lists.
func DefaultTable() Table {
	return Table{
		Rules: []Rule{
			{Category: types.CategoryWork, Domains: []string{"gmail.com", "google.com", "slack.com", "zoom.us", "teams.microsoft.com", "outlook.com"}},
			{Category: types.CategoryShopping, Domains: []string{"amazon.com", "ebay.com", "etsy.com", "walmart.com", "target.com"}},
			{Category: types.CategorySocial, Domains: []string{"facebook.com", "twitter.com", "instagram.com", "linkedin.com", "reddit.com"}},
			{Category: types.CategoryEntertainment, Domains: []string{"youtube.com", "netflix.com", "spotify.com", "twitch.tv", "hulu.com"}},
			{Category: types.CategoryEducation, Domains: []string{"wikipedia.org", "khanacademy.org", "coursera.org", "udemy.com"}},
		},
		Important: []string{"gmail.com", "google.com", "slack.com", "zoom.us", "teams.microsoft.com"},
		Skip: []string{
			"about:*",
			"chrome://*",
			"chrome-extension://*",
			"moz-extension://*",
			"edge://*",
			"view-source:*",
		},
	}
}

// Classifier answers category and priority questions for URLs and hostnames.
type Classifier struct {
	table Table
	skip  []glob.Glob
}

// New compiles the skip patterns of t.
func New(t Table) (*Classifier, error) {
	c := &Classifier{table: t}
	for _, pattern := range t.Skip {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("compile skip pattern %q: %w", pattern, err)
		}
		c.skip = append(c.skip, g)
	}
	return c, nil
}

// Default returns a Classifier over DefaultTable.
func Default() *Classifier {
	c, err := New(DefaultTable())
	if err != nil {
		panic(err)
	}
	return c
}

// Table returns the policy table the classifier was built from.
func (c *Classifier) Table() Table {
	return c.table
}

// Hostname extracts the lower-cased hostname of rawURL.
func Hostname(rawURL string) (string, error) {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return "", fmt.Errorf("%w: %q: %v", ErrInvalidURL, rawURL, err)
	}
	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", fmt.Errorf("%w: %q has no hostname", ErrInvalidURL, rawURL)
	}
	return host, nil
}

// Host is Hostname, but URLs matching a skip pattern are rejected too.
func (c *Classifier) Host(rawURL string) (string, error) {
	for i, g := range c.skip {
		if g.Match(rawURL) {
			return "", fmt.Errorf("%w: %q matches skip pattern %q", ErrInvalidURL, rawURL, c.table.Skip[i])
		}
	}
	return Hostname(rawURL)
}

// Classify returns the category of rawURL.
func (c *Classifier) Classify(rawURL string) (types.Category, error) {
	host, err := c.Host(rawURL)
	if err != nil {
		return types.CategoryNone, err
	}
	return c.CategoryOf(host), nil
}

// CategoryOf returns the category of an already extracted hostname.
// Hostnames that match no rule are CategoryOther.
func (c *Classifier) CategoryOf(host string) types.Category {
	for _, r := range c.table.Rules {
		if containsAny(host, r.Domains) {
			return r.Category
		}
	}
	return types.CategoryOther
}

// IsImportant reports whether host belongs to an important domain.
func (c *Classifier) IsImportant(host string) bool {
	return containsAny(host, c.table.Important)
}

// IsPriority reports whether rawURL is on an important domain.
// Invalid URLs are never priority.
func (c *Classifier) IsPriority(rawURL string) bool {
	host, err := c.Host(rawURL)
	if err != nil {
		return false
	}
	return c.IsImportant(host)
}

func containsAny(host string, domains []string) bool {
	for _, d := range domains {
		if d != "" && strings.Contains(host, d) {
			return true
		}
	}
	return false
}
