// Package pageinfo fetches a page and derives the hints used to file it
// into a context: title, domain, keywords and a coarse content type.
package pageinfo

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-shiori/dom"
	readability "github.com/go-shiori/go-readability"
	"golang.org/x/net/html"

	"github.com/lotas/ctxkeep/internal/applog"
	"github.com/lotas/ctxkeep/internal/keywords"
)

// MaxKeywords caps Info.Keywords.
const MaxKeywords = 10

const (
	maxBody        = 4 << 20
	maxExcerpt     = 200
	minArticleText = 500
)

// ErrUnsupportedURL is returned for anything but http and https URLs.
var ErrUnsupportedURL = errors.New("unsupported url")

// Stopwords extends keywords.DefaultStopwords for page text.
var Stopwords = []string{
	"the", "and", "for", "with", "this", "that", "have", "will", "from", "they",
	"know", "want", "been", "good", "much", "some", "time", "very", "when",
	"come", "just", "into", "than", "more", "other", "about", "many", "then",
	"them", "these", "people", "said", "each", "which", "their",
}

// contentTypes are checked in order; the first selector that matches wins.
var contentTypes = []struct {
	name     string
	selector string
}{
	{"article", "article, .post, .blog-post"},
	{"product", ".product, .item"},
	{"form", "form, .login, .signup"},
	{"video", ".video, video"},
	{"gallery", ".gallery, .images"},
}

// Info describes a page.
type Info struct {
	URL         string   `json:"url"`
	Title       string   `json:"title"`
	Domain      string   `json:"domain"`
	Keywords    []string `json:"keywords"`
	ContentType string   `json:"contentType"`
	Excerpt     string   `json:"excerpt,omitempty"`
}

// Detector fetches pages over HTTP.
type Detector struct {
	client   *http.Client
	keywords *keywords.Extractor
}

// New returns a Detector. A nil client gets a 15 second timeout.
func New(client *http.Client) *Detector {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Detector{client: client, keywords: keywords.New(Stopwords)}
}

// Detect fetches rawURL and analyzes it.
func (d *Detector) Detect(ctx context.Context, rawURL string) (Info, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return Info{}, fmt.Errorf("%w: %s", ErrUnsupportedURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Info{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	resp, err := d.client.Do(req)
	if err != nil {
		return Info{}, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return Info{}, fmt.Errorf("fetch %s: HTTP %d", rawURL, resp.StatusCode)
	}

	info, err := d.Analyze(u, io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return Info{}, err
	}
	applog.Info("pageinfo.detected", "url", rawURL, "type", info.ContentType, "keywords", len(info.Keywords))
	return info, nil
}

// Analyze derives Info from an HTML document served at u.
func (d *Detector) Analyze(u *url.URL, body io.Reader) (Info, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return Info{}, fmt.Errorf("read %s: %w", u, err)
	}
	doc, err := html.Parse(bytes.NewReader(raw))
	if err != nil {
		return Info{}, fmt.Errorf("parse %s: %w", u, err)
	}

	info := Info{
		URL:         u.String(),
		Domain:      u.Hostname(),
		ContentType: contentType(doc),
	}

	if t := dom.QuerySelector(doc, "title"); t != nil {
		info.Title = strings.TrimSpace(dom.TextContent(t))
	}

	// Readability rewrites the tree, so it gets its own copy of the page.
	article, err := readability.FromReader(bytes.NewReader(raw), u)
	if err == nil {
		if info.Title == "" {
			info.Title = article.Title
		}
		text := strings.Join(strings.Fields(article.TextContent), " ")
		if info.ContentType == "general" && utf8.RuneCountInString(text) >= minArticleText {
			info.ContentType = "article"
		}
		info.Excerpt = excerpt(text)
	} else {
		applog.Warn("pageinfo.readability", "url", u.String(), "reason", err.Error())
	}

	info.Keywords = d.pageKeywords(doc, info.Title)
	return info, nil
}

// pageKeywords collects meta keywords, then title and heading words, and
// keeps the first MaxKeywords distinct ones.
func (d *Detector) pageKeywords(doc *html.Node, title string) []string {
	out := make([]string, 0, MaxKeywords)
	seen := make(map[string]bool)
	add := func(w string) {
		if len(out) == MaxKeywords || seen[w] {
			return
		}
		seen[w] = true
		out = append(out, w)
	}

	if meta := dom.QuerySelector(doc, `meta[name="keywords"]`); meta != nil {
		for _, k := range strings.Split(dom.GetAttribute(meta, "content"), ",") {
			if k = strings.ToLower(strings.TrimSpace(k)); d.keywords.Keep(k) {
				add(k)
			}
		}
	}

	texts := []string{title}
	for _, h := range dom.QuerySelectorAll(doc, "h1, h2, h3") {
		texts = append(texts, dom.TextContent(h))
	}
	for _, w := range d.keywords.Unique(texts, MaxKeywords) {
		add(w)
	}
	return out
}

func excerpt(text string) string {
	if utf8.RuneCountInString(text) <= maxExcerpt {
		return text
	}
	return string([]rune(text)[:maxExcerpt]) + "…"
}

func contentType(doc *html.Node) string {
	for _, ct := range contentTypes {
		if dom.QuerySelector(doc, ct.selector) != nil {
			return ct.name
		}
	}
	return "general"
}
