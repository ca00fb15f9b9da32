// Package command routes typed requests to the core operations. It is the
// boundary shared by the CLI, the HTTP API and the extension popup: every
// request yields a Response, failures included, and nothing panics past it.
package command

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lotas/ctxkeep/internal/applog"
	"github.com/lotas/ctxkeep/internal/browser"
	"github.com/lotas/ctxkeep/internal/classify"
	"github.com/lotas/ctxkeep/internal/contexts"
	"github.com/lotas/ctxkeep/internal/keywords"
	"github.com/lotas/ctxkeep/internal/loader"
	"github.com/lotas/ctxkeep/internal/organize"
	"github.com/lotas/ctxkeep/internal/pageinfo"
	"github.com/lotas/ctxkeep/internal/server"
	"github.com/lotas/ctxkeep/internal/suggest"
	"github.com/lotas/ctxkeep/internal/types"
)

// Actions.
const (
	GetTabCount         = "getTabCount"
	SaveContext         = "saveContext"
	SaveCurrentTab      = "saveCurrentTab"
	SaveAllTabs         = "saveAllTabs"
	QuickSave           = "quickSave"
	LoadContext         = "loadContext"
	LoadLastContext     = "loadLastContext"
	DeleteContext       = "deleteContext"
	ListContexts        = "listContexts"
	GetContext          = "getContext"
	AutoOrganize        = "autoOrganize"
	SmartOrganize       = "smartOrganize"
	GetSmartSuggestions = "getSmartSuggestions"
	AddNotification     = "addNotification"
	GetNotifications    = "getNotifications"
	ClearNotifications  = "clearNotifications"
	ImportContext       = "importContext"
	GetStats            = "getStats"
	GetPreferences      = "getPreferences"
	SetPreferences      = "setPreferences"
	DetectPageContext   = "detectPageContext"
)

// Failure codes.
const (
	CodeNotFound      = "not_found"
	CodeInvalid       = "invalid_request"
	CodeNoTabs        = "no_tabs"
	CodeStorage       = "storage"
	CodeReadOnly      = "read_only"
	CodeUnavailable   = "unavailable"
	CodeUnknownAction = "unknown_action"
	CodeInternal      = "internal"
	CodeFailed        = "failed"
)

var (
	errUnknownAction = errors.New("Unknown action")
	errInvalid       = errors.New("invalid request")
)

// Request is a single command. Only the fields the action uses are read.
type Request struct {
	Action      string             `json:"action"`
	ContextID   string             `json:"contextId,omitempty"`
	ContextName string             `json:"contextName,omitempty"`
	Category    string             `json:"category,omitempty"`
	Tags        []string           `json:"tags,omitempty"`
	LoadMode    string             `json:"loadMode,omitempty"`
	Message     string             `json:"message,omitempty"`
	Type        string             `json:"type,omitempty"`
	Search      string             `json:"search,omitempty"`
	URL         string             `json:"url,omitempty"`
	Tab         *types.SavedTab    `json:"tab,omitempty"`
	Data        json.RawMessage    `json:"data,omitempty"`
	Preferences *types.Preferences `json:"preferences,omitempty"`
}

// LoadSummary reports a load.
type LoadSummary struct {
	Mode      types.LoadMode `json:"mode"`
	Opened    int            `json:"opened"`
	Navigated int            `json:"navigated"`
	Closed    int            `json:"closed"`
	Errors    []string       `json:"errors,omitempty"`
}

// Response is the result of a Request. On failure only Success, Error and
// Code are set, plus any partial results (CreatedContexts). List fields are
// never omitted; the handlers that fill them send [] for an empty list.
type Response struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	Count           *int                 `json:"count,omitempty"`
	Context         *types.Context       `json:"context,omitempty"`
	DeletedContext  *types.Context       `json:"deletedContext,omitempty"`
	Contexts        []types.Context      `json:"contexts"`
	CreatedContexts []types.Context      `json:"createdContexts"`
	Suggestions     []string             `json:"suggestions"`
	Notification    *types.Notification  `json:"notification,omitempty"`
	Notifications   []types.Notification `json:"notifications"`
	Stats           *contexts.Stats      `json:"stats,omitempty"`
	Preferences     *types.Preferences   `json:"preferences,omitempty"`
	PageInfo        *pageinfo.Info       `json:"pageInfo,omitempty"`
	Load            *LoadSummary         `json:"load,omitempty"`
}

// Deps are the collaborators of a Dispatcher. Browser may be read-only;
// Pages may be nil, which disables detectPageContext.
type Deps struct {
	Store      *contexts.Store
	Browser    browser.Browser
	Classifier *classify.Classifier
	Keywords   *keywords.Extractor
	Organize   organize.Options
	Pages      *pageinfo.Detector
}

type handler func(ctx context.Context, req Request) (Response, error)

// Dispatcher executes Requests.
type Dispatcher struct {
	store      *contexts.Store
	browser    browser.Browser
	classifier *classify.Classifier
	organizer  *organize.Organizer
	suggester  *suggest.Engine
	loader     *loader.Loader
	pages      *pageinfo.Detector
	now        func() time.Time

	handlers map[string]handler
}

// New builds a Dispatcher. Nil Classifier and Keywords fall back to the
// built-in tables.
func New(deps Deps) *Dispatcher {
	if deps.Classifier == nil {
		deps.Classifier = classify.Default()
	}
	if deps.Keywords == nil {
		deps.Keywords = keywords.Default()
	}
	d := &Dispatcher{
		store:      deps.Store,
		browser:    deps.Browser,
		classifier: deps.Classifier,
		organizer:  organize.New(deps.Classifier, deps.Store, deps.Organize),
		suggester:  suggest.New(deps.Classifier, deps.Keywords),
		loader:     loader.New(deps.Browser),
		pages:      deps.Pages,
		now:        time.Now,
	}
	d.handlers = map[string]handler{
		GetTabCount:         d.getTabCount,
		SaveContext:         d.saveContext,
		SaveCurrentTab:      d.saveCurrentTab,
		SaveAllTabs:         d.saveAllTabs,
		QuickSave:           d.quickSave,
		LoadContext:         d.loadContext,
		LoadLastContext:     d.loadLastContext,
		DeleteContext:       d.deleteContext,
		ListContexts:        d.listContexts,
		GetContext:          d.getContext,
		AutoOrganize:        d.autoOrganize,
		SmartOrganize:       d.smartOrganize,
		GetSmartSuggestions: d.getSmartSuggestions,
		AddNotification:     d.addNotification,
		GetNotifications:    d.getNotifications,
		ClearNotifications:  d.clearNotifications,
		ImportContext:       d.importContext,
		GetStats:            d.getStats,
		GetPreferences:      d.getPreferences,
		SetPreferences:      d.setPreferences,
		DetectPageContext:   d.detectPageContext,
	}
	return d
}

// Dispatch runs req. It never panics and never returns a Response with
// Success=true and a non-empty Error.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) (resp Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("panic in %s: %v", req.Action, r)
			applog.Error("command.panic", err, "action", req.Action)
			resp = Response{Error: err.Error(), Code: CodeInternal}
		}
		applog.Info("command", "action", req.Action, "ok", resp.Success, "code", resp.Code,
			"duration_ms", time.Since(start).Milliseconds())
	}()

	h, ok := d.handlers[req.Action]
	if !ok {
		return failure(fmt.Errorf("%w: %q", errUnknownAction, req.Action))
	}
	resp, err := h(ctx, req)
	if err != nil {
		partial := resp.CreatedContexts
		resp = failure(err)
		resp.CreatedContexts = partial
		return resp
	}
	resp.Success = true
	return resp
}

// HandleRaw decodes a JSON request and dispatches it. It matches
// server.CommandHandler.
func (d *Dispatcher) HandleRaw(ctx context.Context, raw json.RawMessage) any {
	var req Request
	if err := json.Unmarshal(raw, &req); err != nil {
		return failure(fmt.Errorf("%w: %v", errInvalid, err))
	}
	return d.Dispatch(ctx, req)
}

func failure(err error) Response {
	return Response{Error: err.Error(), Code: Code(err)}
}

// Code classifies err into one of the failure codes.
func Code(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errUnknownAction):
		return CodeUnknownAction
	case errors.Is(err, contexts.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, contexts.ErrNoTabs):
		return CodeNoTabs
	case errors.Is(err, contexts.ErrStorage):
		return CodeStorage
	case errors.Is(err, browser.ErrReadOnly):
		return CodeReadOnly
	case errors.Is(err, server.ErrNotConnected):
		return CodeUnavailable
	case errors.Is(err, errInvalid),
		errors.Is(err, contexts.ErrEmptyName),
		errors.Is(err, contexts.ErrInvalidFormat),
		errors.Is(err, classify.ErrInvalidURL),
		errors.Is(err, loader.ErrUnknownMode),
		errors.Is(err, pageinfo.ErrUnsupportedURL):
		return CodeInvalid
	default:
		return CodeFailed
	}
}

// notify adds a notification unless the user turned them off. Failures are
// logged; they never fail the operation that triggered them.
func (d *Dispatcher) notify(message string, typ types.NotificationType) {
	prefs, err := d.store.Preferences()
	if err != nil {
		applog.Error("command.notify", err)
		return
	}
	if !prefs.EnableNotifications {
		return
	}
	if _, err := d.store.Notify(message, typ); err != nil {
		applog.Error("command.notify", err)
	}
}
