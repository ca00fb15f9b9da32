package command

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lotas/ctxkeep/internal/contexts"
	"github.com/lotas/ctxkeep/internal/snapshot"
	"github.com/lotas/ctxkeep/internal/types"
)

func (d *Dispatcher) getTabCount(ctx context.Context, _ Request) (Response, error) {
	tabs, err := d.browser.QueryTabs(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("query tabs: %w", err)
	}
	n := len(tabs)
	return Response{Count: &n}, nil
}

func (d *Dispatcher) saveContext(ctx context.Context, req Request) (Response, error) {
	return d.saveOpenTabs(ctx, req.ContextName, req.Category, req.Tags)
}

func (d *Dispatcher) saveAllTabs(ctx context.Context, _ Request) (Response, error) {
	name := "All Tabs - " + d.now().Format("2006-01-02 15:04:05")
	return d.saveOpenTabs(ctx, name, string(types.CategoryOther), []string{"all-tabs", "backup"})
}

func (d *Dispatcher) quickSave(ctx context.Context, req Request) (Response, error) {
	name := "Quick Save " + d.now().Format("15:04:05")
	return d.saveOpenTabs(ctx, name, req.Category, req.Tags)
}

// saveOpenTabs captures every open tab into a context called name.
func (d *Dispatcher) saveOpenTabs(ctx context.Context, name, category string, tags []string) (Response, error) {
	if strings.TrimSpace(name) == "" {
		return Response{}, contexts.ErrEmptyName
	}
	cat, ok := types.ParseCategory(category)
	if !ok {
		return Response{}, fmt.Errorf("%w: unknown category %q", errInvalid, category)
	}
	c, _, err := snapshot.Capture(ctx, d.browser, name)
	if err != nil {
		return Response{}, err
	}
	c.Category = cat
	c.Tags = tags
	saved, err := d.store.Save(c)
	if err != nil {
		return Response{}, err
	}
	msg := fmt.Sprintf("Context %q saved with %d tabs", saved.Name, saved.TabCount)
	d.notify(msg, types.NotifySuccess)
	return Response{Context: &saved, Message: msg}, nil
}

// saveCurrentTab saves req.Tab, or the active tab when none is given.
func (d *Dispatcher) saveCurrentTab(ctx context.Context, req Request) (Response, error) {
	var tab types.SavedTab
	if req.Tab != nil {
		tab = *req.Tab
	} else {
		tabs, err := d.browser.QueryTabs(ctx)
		if err != nil {
			return Response{}, fmt.Errorf("query tabs: %w", err)
		}
		active, ok := activeTab(tabs)
		if !ok {
			return Response{}, contexts.ErrNoTabs
		}
		tab = types.SavedTab{URL: active.URL, Title: active.Title, FavIconURL: active.FavIconURL}
	}
	if tab.URL == "" {
		return Response{}, contexts.ErrNoTabs
	}
	cat, err := d.classifier.Classify(tab.URL)
	if err != nil {
		return Response{}, err
	}
	title := tab.Title
	if title == "" {
		title = tab.URL
	}
	saved, err := d.store.Save(types.Context{
		Name:     "Single Tab - " + title,
		Category: cat,
		Tags:     []string{"single-tab", "quick-save"},
		Tabs:     []types.SavedTab{tab},
	})
	if err != nil {
		return Response{}, err
	}
	msg := fmt.Sprintf("Context %q saved with %d tabs", saved.Name, saved.TabCount)
	d.notify(msg, types.NotifySuccess)
	return Response{Context: &saved, Message: msg}, nil
}

func activeTab(tabs []types.Tab) (types.Tab, bool) {
	for _, t := range tabs {
		if t.Active && t.URL != "" {
			return t, true
		}
	}
	for _, t := range tabs {
		if t.URL != "" {
			return t, true
		}
	}
	return types.Tab{}, false
}

func (d *Dispatcher) loadContext(ctx context.Context, req Request) (Response, error) {
	c, err := d.store.Get(req.ContextID)
	if err != nil {
		return Response{}, err
	}
	return d.load(ctx, c, req.LoadMode)
}

// loadLastContext loads the newest context, in replace mode unless the
// request names another one.
func (d *Dispatcher) loadLastContext(ctx context.Context, req Request) (Response, error) {
	c, err := d.store.Latest()
	if err != nil {
		return Response{}, err
	}
	return d.load(ctx, c, req.LoadMode)
}

func (d *Dispatcher) load(ctx context.Context, c types.Context, rawMode string) (Response, error) {
	mode, ok := types.ParseLoadMode(rawMode)
	if !ok {
		return Response{}, fmt.Errorf("%w: unknown load mode %q", errInvalid, rawMode)
	}
	res, err := d.loader.Load(ctx, c, mode)
	if err != nil {
		return Response{}, err
	}
	summary := &LoadSummary{
		Mode:      res.Mode,
		Opened:    res.Opened,
		Navigated: res.Navigated,
		Closed:    res.Closed,
	}
	for _, e := range res.Errors {
		summary.Errors = append(summary.Errors, e.Error())
	}
	msg := fmt.Sprintf("Context %q loaded", c.Name)
	d.notify(msg, types.NotifySuccess)
	return Response{Context: &c, Load: summary, Message: msg}, nil
}

func (d *Dispatcher) deleteContext(_ context.Context, req Request) (Response, error) {
	c, err := d.store.Delete(req.ContextID)
	if err != nil {
		return Response{}, err
	}
	msg := fmt.Sprintf("Context %q deleted", c.Name)
	d.notify(msg, types.NotifyInfo)
	return Response{DeletedContext: &c, Message: msg}, nil
}

func (d *Dispatcher) listContexts(_ context.Context, req Request) (Response, error) {
	cat, ok := types.ParseCategory(req.Category)
	if !ok {
		return Response{}, fmt.Errorf("%w: unknown category %q", errInvalid, req.Category)
	}
	all, err := d.store.List()
	if err != nil {
		return Response{}, err
	}
	list := contexts.Newest(contexts.Filter(all, req.Search, cat))
	if list == nil {
		list = []types.Context{}
	}
	n := len(list)
	return Response{Contexts: list, Count: &n}, nil
}

func (d *Dispatcher) getContext(_ context.Context, req Request) (Response, error) {
	c, err := d.store.Get(req.ContextID)
	if err != nil {
		return Response{}, err
	}
	return Response{Context: &c}, nil
}

func (d *Dispatcher) autoOrganize(ctx context.Context, _ Request) (Response, error) {
	tabs, err := d.browser.QueryTabs(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("query tabs: %w", err)
	}
	created, err := d.organizer.Auto(tabs)
	if created == nil {
		created = []types.Context{}
	}
	if err != nil {
		return Response{CreatedContexts: created}, err
	}
	msg := fmt.Sprintf("Auto-organized %d contexts", len(created))
	d.notify(msg, types.NotifySuccess)
	return Response{CreatedContexts: created, Message: msg}, nil
}

func (d *Dispatcher) smartOrganize(ctx context.Context, _ Request) (Response, error) {
	tabs, err := d.browser.QueryTabs(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("query tabs: %w", err)
	}
	created, err := d.organizer.Smart(tabs)
	if created == nil {
		created = []types.Context{}
	}
	if err != nil {
		return Response{CreatedContexts: created}, err
	}
	msg := fmt.Sprintf("Smart organized %d contexts", len(created))
	d.notify(msg, types.NotifySuccess)
	return Response{CreatedContexts: created, Message: msg}, nil
}

func (d *Dispatcher) getSmartSuggestions(ctx context.Context, _ Request) (Response, error) {
	tabs, err := d.browser.QueryTabs(ctx)
	if err != nil {
		return Response{}, fmt.Errorf("query tabs: %w", err)
	}
	return Response{Suggestions: d.suggester.Suggest(tabs)}, nil
}

func (d *Dispatcher) addNotification(_ context.Context, req Request) (Response, error) {
	if strings.TrimSpace(req.Message) == "" {
		return Response{}, fmt.Errorf("%w: message is required", errInvalid)
	}
	n, err := d.store.Notify(req.Message, types.ParseNotificationType(req.Type))
	if err != nil {
		return Response{}, err
	}
	return Response{Notification: &n}, nil
}

func (d *Dispatcher) getNotifications(_ context.Context, _ Request) (Response, error) {
	list, err := d.store.Notifications()
	if err != nil {
		return Response{}, err
	}
	if list == nil {
		list = []types.Notification{}
	}
	return Response{Notifications: list}, nil
}

func (d *Dispatcher) clearNotifications(_ context.Context, _ Request) (Response, error) {
	if err := d.store.ClearNotifications(); err != nil {
		return Response{}, err
	}
	return Response{}, nil
}

func (d *Dispatcher) importContext(_ context.Context, req Request) (Response, error) {
	if len(req.Data) == 0 {
		return Response{}, fmt.Errorf("%w: data is required", contexts.ErrInvalidFormat)
	}
	data := []byte(req.Data)
	// The popup sends the file contents as a JSON string.
	var text string
	if err := json.Unmarshal(req.Data, &text); err == nil {
		data = []byte(text)
	}
	c, err := d.store.Import(data)
	if err != nil {
		return Response{}, err
	}
	msg := fmt.Sprintf("Context %q imported", c.Name)
	d.notify(msg, types.NotifySuccess)
	return Response{Context: &c, Message: msg}, nil
}

func (d *Dispatcher) getStats(_ context.Context, _ Request) (Response, error) {
	st, err := d.store.Stats()
	if err != nil {
		return Response{}, err
	}
	return Response{Stats: &st}, nil
}

func (d *Dispatcher) getPreferences(_ context.Context, _ Request) (Response, error) {
	p, err := d.store.Preferences()
	if err != nil {
		return Response{}, err
	}
	return Response{Preferences: &p}, nil
}

func (d *Dispatcher) setPreferences(_ context.Context, req Request) (Response, error) {
	if req.Preferences == nil {
		return Response{}, fmt.Errorf("%w: preferences are required", errInvalid)
	}
	if err := d.store.SetPreferences(*req.Preferences); err != nil {
		return Response{}, err
	}
	p, err := d.store.Preferences()
	if err != nil {
		return Response{}, err
	}
	return Response{Preferences: &p}, nil
}

// detectPageContext analyzes req.URL, or the active tab when it is empty.
func (d *Dispatcher) detectPageContext(ctx context.Context, req Request) (Response, error) {
	if d.pages == nil {
		return Response{}, fmt.Errorf("%w: page detection is disabled", errInvalid)
	}
	target := req.URL
	if target == "" {
		tabs, err := d.browser.QueryTabs(ctx)
		if err != nil {
			return Response{}, fmt.Errorf("query tabs: %w", err)
		}
		active, ok := activeTab(tabs)
		if !ok {
			return Response{}, contexts.ErrNoTabs
		}
		target = active.URL
	}
	info, err := d.pages.Detect(ctx, target)
	if err != nil {
		return Response{}, err
	}
	return Response{PageInfo: &info}, nil
}
