// Package api exposes the command dispatcher over local HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/lotas/ctxkeep/internal/applog"
	"github.com/lotas/ctxkeep/internal/command"
)

// DefaultPort is the local port of the HTTP API.
const DefaultPort = 19293

// Handler serves the HTTP API on top of a command.Dispatcher.
type Handler struct {
	d       *command.Dispatcher
	limiter *Limiter
}

// NewHandler creates a Handler. A nil limiter disables rate limiting.
func NewHandler(d *command.Dispatcher, limiter *Limiter) *Handler {
	return &Handler{d: d, limiter: limiter}
}

// Router builds the route table.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	v1 := r.PathPrefix("/v1").Subrouter()
	if h.limiter != nil {
		v1.Use(RateLimitMiddleware(h.limiter))
	}

	v1.HandleFunc("/command", h.Command).Methods("POST")
	v1.HandleFunc("/contexts", h.ListContexts).Methods("GET")
	v1.HandleFunc("/contexts", h.SaveContext).Methods("POST")
	v1.HandleFunc("/contexts/import", h.ImportContext).Methods("POST")
	v1.HandleFunc("/contexts/{id}", h.GetContext).Methods("GET")
	v1.HandleFunc("/contexts/{id}", h.DeleteContext).Methods("DELETE")
	v1.HandleFunc("/contexts/{id}/load", h.LoadContext).Methods("POST")
	v1.HandleFunc("/notifications", h.simple(command.GetNotifications)).Methods("GET")
	v1.HandleFunc("/notifications", h.simple(command.ClearNotifications)).Methods("DELETE")
	v1.HandleFunc("/suggestions", h.simple(command.GetSmartSuggestions)).Methods("GET")
	v1.HandleFunc("/stats", h.simple(command.GetStats)).Methods("GET")
	v1.HandleFunc("/preferences", h.simple(command.GetPreferences)).Methods("GET")

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("GET")
	return r
}

// Command handles POST /v1/command with a raw command.Request body.
func (h *Handler) Command(w http.ResponseWriter, r *http.Request) {
	var req command.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, command.Response{
			Error: "invalid request body: " + err.Error(),
			Code:  command.CodeInvalid,
		})
		return
	}
	h.dispatch(w, r, req)
}

// ListContexts handles GET /v1/contexts?search=&category=
func (h *Handler) ListContexts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	h.dispatch(w, r, command.Request{
		Action:   command.ListContexts,
		Search:   q.Get("search"),
		Category: q.Get("category"),
	})
}

// SaveContext handles POST /v1/contexts with {contextName, category, tags}.
func (h *Handler) SaveContext(w http.ResponseWriter, r *http.Request) {
	var req command.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, command.Response{
			Error: "invalid request body: " + err.Error(),
			Code:  command.CodeInvalid,
		})
		return
	}
	req.Action = command.SaveContext
	h.dispatch(w, r, req)
}

// ImportContext handles POST /v1/contexts/import; the body is the exported
// context JSON.
func (h *Handler) ImportContext(w http.ResponseWriter, r *http.Request) {
	var data json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeJSON(w, http.StatusBadRequest, command.Response{
			Error: "invalid request body: " + err.Error(),
			Code:  command.CodeInvalid,
		})
		return
	}
	h.dispatch(w, r, command.Request{Action: command.ImportContext, Data: data})
}

// GetContext handles GET /v1/contexts/{id}
func (h *Handler) GetContext(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, command.Request{Action: command.GetContext, ContextID: mux.Vars(r)["id"]})
}

// DeleteContext handles DELETE /v1/contexts/{id}
func (h *Handler) DeleteContext(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, command.Request{Action: command.DeleteContext, ContextID: mux.Vars(r)["id"]})
}

// LoadContext handles POST /v1/contexts/{id}/load?mode=
func (h *Handler) LoadContext(w http.ResponseWriter, r *http.Request) {
	h.dispatch(w, r, command.Request{
		Action:    command.LoadContext,
		ContextID: mux.Vars(r)["id"],
		LoadMode:  r.URL.Query().Get("mode"),
	})
}

func (h *Handler) simple(action string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.dispatch(w, r, command.Request{Action: action})
	}
}

func (h *Handler) dispatch(w http.ResponseWriter, r *http.Request, req command.Request) {
	resp := h.d.Dispatch(r.Context(), req)
	writeJSON(w, StatusOf(resp), resp)
}

// StatusOf maps a Response to an HTTP status code.
func StatusOf(resp command.Response) int {
	if resp.Success {
		return http.StatusOK
	}
	switch resp.Code {
	case command.CodeNotFound:
		return http.StatusNotFound
	case command.CodeInvalid, command.CodeUnknownAction:
		return http.StatusBadRequest
	case command.CodeNoTabs:
		return http.StatusUnprocessableEntity
	case command.CodeReadOnly:
		return http.StatusConflict
	case command.CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		applog.Error("api.encode", err)
	}
}

// ListenAndServe serves h on 127.0.0.1:port until ctx is cancelled.
func ListenAndServe(ctx context.Context, port int, h http.Handler) error {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	applog.Info("api.start", "addr", addr)
	srv := &http.Server{Addr: addr, Handler: h}

	go func() {
		<-ctx.Done()
		srv.Close()
	}()

	err := srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}
