package server

import (
	"context"

	"github.com/lotas/ctxkeep/internal/browser"
	"github.com/lotas/ctxkeep/internal/types"
)

// Browser returns a browser.Browser that drives the connected extension.
func (s *Server) Browser() browser.Browser {
	return liveBrowser{s}
}

type liveBrowser struct {
	s *Server
}

func (b liveBrowser) QueryTabs(ctx context.Context) ([]types.Tab, error) {
	resp, err := b.s.Call(ctx, OutgoingMsg{Action: "query-tabs"})
	if err != nil {
		return nil, err
	}
	return ParseTabs(resp.Tabs)
}

func (b liveBrowser) CreateTab(ctx context.Context, p browser.CreateProps) (types.Tab, error) {
	resp, err := b.s.Call(ctx, OutgoingMsg{
		Action:   "create-tab",
		URL:      p.URL,
		WindowID: p.WindowID,
		Active:   p.Active,
	})
	if err != nil {
		return types.Tab{}, err
	}
	if len(resp.Tab) == 0 {
		return types.Tab{URL: p.URL, WindowID: p.WindowID}, nil
	}
	return ParseTab(resp.Tab)
}

func (b liveBrowser) UpdateTab(ctx context.Context, tabID int, url string) error {
	_, err := b.s.Call(ctx, OutgoingMsg{Action: "update-tab", TabID: tabID, URL: url})
	return err
}

func (b liveBrowser) RemoveTab(ctx context.Context, tabID int) error {
	_, err := b.s.Call(ctx, OutgoingMsg{Action: "remove-tab", TabID: tabID})
	return err
}

func (b liveBrowser) CreateWindow(ctx context.Context) (types.Window, error) {
	resp, err := b.s.Call(ctx, OutgoingMsg{Action: "create-window"})
	if err != nil {
		return types.Window{}, err
	}
	return ParseWindow(resp.Window)
}
