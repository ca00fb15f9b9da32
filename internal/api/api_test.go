package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lotas/ctxkeep/internal/browser/browsertest"
	"github.com/lotas/ctxkeep/internal/command"
	"github.com/lotas/ctxkeep/internal/contexts"
	"github.com/lotas/ctxkeep/internal/server"
	"github.com/lotas/ctxkeep/internal/storage"
	"github.com/lotas/ctxkeep/internal/types"
)

func newTestServer(t *testing.T, limiter *Limiter, urls ...string) (*httptest.Server, *contexts.Store, *browsertest.Fake) {
	t.Helper()
	store := contexts.New(storage.NewMemoryKV())
	require.NoError(t, store.Init())
	f := browsertest.New(urls...)
	d := command.New(command.Deps{Store: store, Browser: f})
	srv := httptest.NewServer(NewHandler(d, limiter).Router())
	t.Cleanup(srv.Close)
	return srv, store, f
}

func do(t *testing.T, method, url, body string) (int, command.Response) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	var resp command.Response
	require.NoError(t, json.NewDecoder(res.Body).Decode(&resp))
	assert.Equal(t, "application/json", res.Header.Get("Content-Type"))
	return res.StatusCode, resp
}

func TestCommandEndpoint(t *testing.T) {
	srv, _, _ := newTestServer(t, nil, "https://a.com", "https://b.com")

	status, resp := do(t, "POST", srv.URL+"/v1/command", `{"action":"getTabCount"}`)
	assert.Equal(t, http.StatusOK, status)
	require.True(t, resp.Success)
	assert.Equal(t, 2, *resp.Count)

	status, resp = do(t, "POST", srv.URL+"/v1/command", `{"action":"teleport"}`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, command.CodeUnknownAction, resp.Code)

	status, resp = do(t, "POST", srv.URL+"/v1/command", `{`)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, command.CodeInvalid, resp.Code)
}

func TestContextRoutes(t *testing.T) {
	srv, store, f := newTestServer(t, nil, "https://old.com")

	status, resp := do(t, "POST", srv.URL+"/v1/contexts", `{"contextName":"Docs","category":"research","tags":["go"]}`)
	require.Equal(t, http.StatusOK, status, resp.Error)
	id := resp.Context.ID

	status, resp = do(t, "GET", srv.URL+"/v1/contexts?search=doc", "")
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, resp.Contexts, 1)

	status, resp = do(t, "GET", srv.URL+"/v1/contexts/"+id, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Docs", resp.Context.Name)

	_, err := store.Save(types.Context{Name: "Other", Tabs: []types.SavedTab{{URL: "https://new.com"}}})
	require.NoError(t, err)
	list, err := store.List()
	require.NoError(t, err)

	status, resp = do(t, "POST", srv.URL+"/v1/contexts/"+list[1].ID+"/load?mode=merge", "")
	assert.Equal(t, http.StatusOK, status, resp.Error)
	assert.Equal(t, []string{"https://old.com", "https://new.com"}, f.URLs(1))

	status, resp = do(t, "POST", srv.URL+"/v1/contexts/"+id+"/load?mode=upside-down", "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = do(t, "DELETE", srv.URL+"/v1/contexts/"+id, "")
	assert.Equal(t, http.StatusOK, status)

	status, resp = do(t, "GET", srv.URL+"/v1/contexts/"+id, "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, command.CodeNotFound, resp.Code)
}

func TestImportRoute(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)

	status, resp := do(t, "POST", srv.URL+"/v1/contexts/import", `{"name":"In","tabs":[{"url":"https://a.com"}]}`)
	require.Equal(t, http.StatusOK, status, resp.Error)
	assert.Equal(t, 1, resp.Context.TabCount)

	status, _ = do(t, "POST", srv.URL+"/v1/contexts/import", `{"tabs":[]}`)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestNoTabsIsUnprocessable(t *testing.T) {
	srv, _, _ := newTestServer(t, nil)
	status, resp := do(t, "POST", srv.URL+"/v1/contexts", `{"contextName":"Empty"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, status)
	assert.Equal(t, command.CodeNoTabs, resp.Code)
}

func TestLoadWithoutBridgeIsUnavailable(t *testing.T) {
	srv, store, f := newTestServer(t, nil, "https://old.com")
	f.Fail = func(browsertest.Call) error { return server.ErrNotConnected }
	c, err := store.Save(types.Context{Name: "One", Tabs: []types.SavedTab{{URL: "https://a.com"}}})
	require.NoError(t, err)

	status, resp := do(t, "POST", srv.URL+"/v1/contexts/"+c.ID+"/load?mode=merge", "")
	assert.Equal(t, http.StatusServiceUnavailable, status)
	assert.Equal(t, command.CodeUnavailable, resp.Code)
	assert.Equal(t, []string{"https://old.com"}, f.URLs(1))
}

func TestNotificationRoutes(t *testing.T) {
	srv, store, _ := newTestServer(t, nil)
	_, err := store.Notify("hi", types.NotifyInfo)
	require.NoError(t, err)

	_, resp := do(t, "GET", srv.URL+"/v1/notifications", "")
	require.Len(t, resp.Notifications, 1)

	status, _ := do(t, "DELETE", srv.URL+"/v1/notifications", "")
	assert.Equal(t, http.StatusOK, status)
	list, err := store.Notifications()
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSuggestionsAndStats(t *testing.T) {
	srv, _, _ := newTestServer(t, nil, "https://github.com/a", "https://github.com/b")

	_, resp := do(t, "GET", srv.URL+"/v1/suggestions", "")
	require.True(t, resp.Success)
	assert.Contains(t, resp.Suggestions, "github.com (2 tabs)")

	_, resp = do(t, "GET", srv.URL+"/v1/stats", "")
	require.NotNil(t, resp.Stats)
	assert.Equal(t, 0, resp.Stats.TotalContexts)
}

func TestRateLimit(t *testing.T) {
	srv, _, _ := newTestServer(t, NewLimiter(0.001, 2))

	for i := 0; i < 2; i++ {
		status, _ := do(t, "GET", srv.URL+"/v1/stats", "")
		assert.Equal(t, http.StatusOK, status)
	}
	status, resp := do(t, "GET", srv.URL+"/v1/stats", "")
	assert.Equal(t, http.StatusTooManyRequests, status)
	assert.Equal(t, CodeRateLimited, resp.Code)
}

func TestStatusOf(t *testing.T) {
	tests := []struct {
		resp command.Response
		want int
	}{
		{command.Response{Success: true}, http.StatusOK},
		{command.Response{Code: command.CodeNotFound}, http.StatusNotFound},
		{command.Response{Code: command.CodeReadOnly}, http.StatusConflict},
		{command.Response{Code: command.CodeUnavailable}, http.StatusServiceUnavailable},
		{command.Response{Code: command.CodeStorage}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := StatusOf(tt.resp); got != tt.want {
			t.Errorf("StatusOf(%q) = %d, want %d", tt.resp.Code, got, tt.want)
		}
	}
}
