package types

import (
	"strings"
	"time"
)

// Tab represents a single open browser tab as reported by the host browser.
type Tab struct {
	ID           int // live browser tab ID; 0 in offline mode
	WindowID     int
	Index        int
	URL          string
	Title        string
	FavIconURL   string
	Pinned       bool
	Active       bool
	LastAccessed time.Time
}

// Window is a browser window together with its tabs.
type Window struct {
	ID   int
	Tabs []Tab
}

// SavedTab is a tab entry stored inside a Context.
type SavedTab struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	FavIconURL string `json:"favIconUrl,omitempty"`
}

// Category is the optional label attached to a Context.
type Category string

const (
	CategoryNone          Category = ""
	CategoryWork          Category = "work"
	CategoryPersonal      Category = "personal"
	CategoryShopping      Category = "shopping"
	CategoryResearch      Category = "research"
	CategoryEntertainment Category = "entertainment"
	CategoryEducation     Category = "education"
	CategorySocial        Category = "social"
	CategoryOther         Category = "other"
)

// Categories lists every non-empty category in display order.
var Categories = []Category{
	CategoryWork,
	CategoryPersonal,
	CategoryShopping,
	CategoryResearch,
	CategoryEntertainment,
	CategoryEducation,
	CategorySocial,
	CategoryOther,
}

// ParseCategory validates a category label. The empty string is valid.
func ParseCategory(s string) (Category, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return CategoryNone, true
	}
	for _, c := range Categories {
		if string(c) == s {
			return c, true
		}
	}
	return CategoryNone, false
}

// Context is a named, persisted snapshot of a set of browser tabs.
type Context struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Category  Category   `json:"category"`
	Tags      []string   `json:"tags"`
	Tabs      []SavedTab `json:"tabs"`
	CreatedAt time.Time  `json:"createdAt"`
	TabCount  int        `json:"tabCount"`
}

// AddTag appends tag unless it is blank or already present.
func (c *Context) AddTag(tag string) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return
	}
	for _, t := range c.Tags {
		if t == tag {
			return
		}
	}
	c.Tags = append(c.Tags, tag)
}

// Normalize drops tabs without a URL, de-duplicates tags and recomputes
// TabCount so that it always equals len(Tabs).
func (c *Context) Normalize() {
	tabs := make([]SavedTab, 0, len(c.Tabs))
	for _, t := range c.Tabs {
		if strings.TrimSpace(t.URL) == "" {
			continue
		}
		tabs = append(tabs, t)
	}
	c.Tabs = tabs

	tags := c.Tags
	c.Tags = make([]string, 0, len(tags))
	for _, t := range tags {
		c.AddTag(t)
	}

	c.TabCount = len(c.Tabs)
}

// SavedTabs converts live tabs into stored tab entries, skipping tabs
// without a URL.
func SavedTabs(tabs []Tab) []SavedTab {
	out := make([]SavedTab, 0, len(tabs))
	for _, t := range tabs {
		if t.URL == "" {
			continue
		}
		out = append(out, SavedTab{URL: t.URL, Title: t.Title, FavIconURL: t.FavIconURL})
	}
	return out
}

// NotificationType is the severity of a Notification.
type NotificationType string

const (
	NotifySuccess NotificationType = "success"
	NotifyError   NotificationType = "error"
	NotifyInfo    NotificationType = "info"
)

// ParseNotificationType maps a free-form type to a known one, defaulting to info.
func ParseNotificationType(s string) NotificationType {
	switch NotificationType(strings.ToLower(s)) {
	case NotifySuccess:
		return NotifySuccess
	case NotifyError:
		return NotifyError
	default:
		return NotifyInfo
	}
}

// Notification is an entry in the bounded notification log.
type Notification struct {
	ID        string           `json:"id"`
	Message   string           `json:"message"`
	Type      NotificationType `json:"type"`
	Timestamp time.Time        `json:"timestamp"`
}

// Preferences is the singleton user preferences record.
type Preferences struct {
	AutoSave                bool `json:"autoSave"`
	AutoSaveIntervalMinutes int  `json:"autoSaveInterval"`
	MaxContexts             int  `json:"maxContexts"`
	EnableNotifications     bool `json:"enableNotifications"`
}

// DefaultPreferences returns the preferences written at install time.
func DefaultPreferences() Preferences {
	return Preferences{
		AutoSave:                false,
		AutoSaveIntervalMinutes: 30,
		MaxContexts:             50,
		EnableNotifications:     true,
	}
}

// LoadMode controls how a Context is replayed into the browser.
type LoadMode string

const (
	LoadReplace    LoadMode = "replace"
	LoadNewWindow  LoadMode = "newWindow"
	LoadBackground LoadMode = "background"
	LoadMerge      LoadMode = "merge"
)

// LoadModes lists the supported load modes.
var LoadModes = []LoadMode{LoadReplace, LoadNewWindow, LoadBackground, LoadMerge}

// ParseLoadMode validates a load mode. The empty string means replace.
func ParseLoadMode(s string) (LoadMode, bool) {
	if s == "" {
		return LoadReplace, true
	}
	for _, m := range LoadModes {
		if strings.EqualFold(string(m), s) {
			return m, true
		}
	}
	return "", false
}

// Profile represents a Firefox profile.
type Profile struct {
	Name       string
	Path       string // absolute path to profile directory
	IsDefault  bool
	IsRelative bool
}
