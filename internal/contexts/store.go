// Package contexts is the Context Store: CRUD over the persisted context
// collection, the bounded notification log and the user preferences.
//
// Every mutation reads the whole collection, modifies it and writes it back.
// There is no locking; two concurrent mutations can interleave and one write
// can clobber the other. Callers must not run mutating operations in
// parallel against the same store.
package contexts

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lotas/ctxkeep/internal/applog"
	"github.com/lotas/ctxkeep/internal/storage"
	"github.com/lotas/ctxkeep/internal/types"
)

// Storage keys.
const (
	KeyContexts      = "contexts"
	KeyNotifications = "notifications"
	KeyPreferences   = "userPreferences"
)

// MaxNotifications bounds the notification log.
const MaxNotifications = 10

var (
	ErrNotFound      = errors.New("context not found")
	ErrStorage       = errors.New("storage failure")
	ErrEmptyName     = errors.New("context name is required")
	ErrNoTabs        = errors.New("no tabs to save")
	ErrInvalidFormat = errors.New("invalid context format")
)

// Store persists contexts in a storage.KV.
type Store struct {
	kv    storage.KV
	now   func() time.Time
	newID func() string
}

// New returns a Store backed by kv.
func New(kv storage.KV) *Store {
	return &Store{
		kv:    kv,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Init writes the install-time defaults for every key that is missing.
// Existing data is never touched.
func (s *Store) Init() error {
	existing, err := s.kv.Get(KeyContexts, KeyNotifications, KeyPreferences)
	if err != nil {
		return storageErr("read", err)
	}

	defaults := map[string]any{
		KeyContexts:      []types.Context{},
		KeyNotifications: []types.Notification{},
		KeyPreferences:   types.DefaultPreferences(),
	}
	missing := make(map[string][]byte)
	for key, value := range defaults {
		if _, ok := existing[key]; ok {
			continue
		}
		data, err := json.Marshal(value)
		if err != nil {
			return fmt.Errorf("encode %s: %w", key, err)
		}
		missing[key] = data
	}
	if len(missing) == 0 {
		return nil
	}
	if err := s.kv.Set(missing); err != nil {
		return storageErr("write", err)
	}
	applog.Info("contexts.init", "keys", len(missing))
	return nil
}

// Save stores c. When a stored context has the same name it is replaced in
// place, keeping its position; otherwise c is appended. The saved record
// always gets a fresh ID and CreatedAt.
func (s *Store) Save(c types.Context) (types.Context, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return types.Context{}, ErrEmptyName
	}
	c.ID = s.newID()
	c.CreatedAt = s.now()
	c.Normalize()

	all, err := s.readContexts()
	if err != nil {
		return types.Context{}, err
	}

	replaced := false
	for i := range all {
		if all[i].Name == c.Name {
			all[i] = c
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, c)
	}

	if err := s.writeContexts(all); err != nil {
		return types.Context{}, err
	}
	applog.Info("contexts.saved", "id", c.ID, "name", c.Name, "tabs", c.TabCount, "replaced", replaced)
	return c, nil
}

// Get returns the context with the given id.
func (s *Store) Get(id string) (types.Context, error) {
	all, err := s.readContexts()
	if err != nil {
		return types.Context{}, err
	}
	for _, c := range all {
		if c.ID == id {
			return c, nil
		}
	}
	return types.Context{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// Delete removes the context with the given id and returns it. The
// collection is left untouched when the id does not exist.
func (s *Store) Delete(id string) (types.Context, error) {
	all, err := s.readContexts()
	if err != nil {
		return types.Context{}, err
	}
	for i, c := range all {
		if c.ID != id {
			continue
		}
		rest := append(all[:i:i], all[i+1:]...)
		if err := s.writeContexts(rest); err != nil {
			return types.Context{}, err
		}
		applog.Info("contexts.deleted", "id", id, "name", c.Name)
		return c, nil
	}
	return types.Context{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

// List returns all contexts in storage order.
func (s *Store) List() ([]types.Context, error) {
	return s.readContexts()
}

// Latest returns the most recently created context.
func (s *Store) Latest() (types.Context, error) {
	all, err := s.readContexts()
	if err != nil {
		return types.Context{}, err
	}
	if len(all) == 0 {
		return types.Context{}, fmt.Errorf("%w: no saved contexts", ErrNotFound)
	}
	return Newest(all)[0], nil
}

// Newest returns a copy of list sorted by CreatedAt, newest first.
func Newest(list []types.Context) []types.Context {
	out := append([]types.Context(nil), list...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Filter keeps contexts whose name or any tag contains term
// (case-insensitive) and, when category is set, whose category matches.
func Filter(list []types.Context, term string, category types.Category) []types.Context {
	term = strings.ToLower(strings.TrimSpace(term))
	var out []types.Context
	for _, c := range list {
		if category != types.CategoryNone && c.Category != category {
			continue
		}
		if term != "" && !matches(c, term) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matches(c types.Context, term string) bool {
	if strings.Contains(strings.ToLower(c.Name), term) {
		return true
	}
	for _, tag := range c.Tags {
		if strings.Contains(strings.ToLower(tag), term) {
			return true
		}
	}
	return false
}

// Stats holds aggregate counts over the stored contexts.
type Stats struct {
	TotalContexts int `json:"totalContexts"`
	TotalTabs     int `json:"totalTabs"`
}

// Stats returns aggregate counts.
func (s *Store) Stats() (Stats, error) {
	all, err := s.readContexts()
	if err != nil {
		return Stats{}, err
	}
	st := Stats{TotalContexts: len(all)}
	for _, c := range all {
		st.TotalTabs += c.TabCount
	}
	return st, nil
}

// Import parses a JSON context (at least name and tabs) and saves it under a
// new id and timestamp.
func (s *Store) Import(data []byte) (types.Context, error) {
	var raw struct {
		Name     *string          `json:"name"`
		Category string           `json:"category"`
		Tags     []string         `json:"tags"`
		Tabs     []types.SavedTab `json:"tabs"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return types.Context{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}
	if raw.Name == nil || strings.TrimSpace(*raw.Name) == "" || raw.Tabs == nil {
		return types.Context{}, fmt.Errorf("%w: name and tabs are required", ErrInvalidFormat)
	}
	category, ok := types.ParseCategory(raw.Category)
	if !ok {
		category = types.CategoryOther
	}
	c, err := s.Save(types.Context{
		Name:     *raw.Name,
		Category: category,
		Tags:     raw.Tags,
		Tabs:     raw.Tabs,
	})
	if err != nil {
		return types.Context{}, err
	}
	applog.Info("contexts.imported", "id", c.ID, "tabs", c.TabCount)
	return c, nil
}

func (s *Store) readContexts() ([]types.Context, error) {
	values, err := s.kv.Get(KeyContexts)
	if err != nil {
		return nil, storageErr("read contexts", err)
	}
	var all []types.Context
	if data, ok := values[KeyContexts]; ok {
		if err := json.Unmarshal(data, &all); err != nil {
			return nil, storageErr("decode contexts", err)
		}
	}
	for i := range all {
		all[i].Normalize()
	}
	return all, nil
}

func (s *Store) writeContexts(all []types.Context) error {
	if all == nil {
		all = []types.Context{}
	}
	data, err := json.Marshal(all)
	if err != nil {
		return storageErr("encode contexts", err)
	}
	if err := s.kv.Set(map[string][]byte{KeyContexts: data}); err != nil {
		return storageErr("write contexts", err)
	}
	return nil
}

func storageErr(op string, err error) error {
	applog.Error("contexts.storage", err, "op", op)
	return fmt.Errorf("%w: %s: %w", ErrStorage, op, err)
}
