package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lotas/ctxkeep/internal/api"
	"github.com/lotas/ctxkeep/internal/applog"
	"github.com/lotas/ctxkeep/internal/autosave"
	"github.com/lotas/ctxkeep/internal/firefox"
	"github.com/lotas/ctxkeep/internal/server"
)

func runServe(args []string) {
	a := setup()
	defer a.close()

	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	port := fs.Int("port", a.cfg.Port, "WebSocket port for the extension")
	apiPort := fs.Int("api-port", a.cfg.APIPort, "HTTP API port (0 disables)")
	profileName := fs.String("profile", "", "Firefox profile to watch for auto-save")
	rps := fs.Float64("rate", 20, "HTTP API requests per second")
	fs.Parse(args)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(*port)
	d := a.dispatcher(srv.Browser())
	srv.HandleCommands(d.HandleRaw)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.ListenAndServe(ctx)
	})
	g.Go(func() error {
		logBridgeEvents(ctx, srv)
		return nil
	})
	if *apiPort != 0 {
		h := api.NewHandler(d, api.NewLimiter(*rps, int(*rps*2)+1))
		g.Go(func() error {
			return api.ListenAndServe(ctx, *apiPort, h.Router())
		})
	}

	// Auto-save follows the session file when a profile is available,
	// otherwise it polls the live extension.
	b, label, err := a.offline(*profileName)
	if err == nil {
		w, err := newSessionWatcher(a, *profileName, autosave.NewSaver(a.store, b))
		if err != nil {
			fatal("Error: %v", err)
		}
		g.Go(func() error { return w.Run(ctx) })
	} else {
		applog.Warn("serve.autosave.poll", "reason", err.Error())
		label = "live extension"
		saver := autosave.NewSaver(a.store, srv.Browser())
		g.Go(func() error { return autosave.Poll(ctx, saver, time.Minute) })
	}

	fmt.Fprintf(os.Stderr, "Extension bridge on ws://127.0.0.1:%d\n", *port)
	if *apiPort != 0 {
		fmt.Fprintf(os.Stderr, "HTTP API on http://127.0.0.1:%d/v1\n", *apiPort)
	}
	fmt.Fprintf(os.Stderr, "Auto-save source: %s\n", label)

	if err := g.Wait(); err != nil {
		fatal("Error: %v", err)
	}
}

func runWatch(args []string) {
	a := setup()
	defer a.close()

	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	profileName := fs.String("profile", "", "Firefox profile name")
	fs.Parse(args)

	b, label, err := a.offline(*profileName)
	if err != nil {
		fatal("Error: %v", err)
	}
	prefs, err := a.store.Preferences()
	if err != nil {
		fatal("Error: %v", err)
	}
	if !prefs.AutoSave {
		fmt.Fprintln(os.Stderr, "Auto-save is off; enable it with: ctxkeep prefs --autosave on")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	saver := autosave.NewSaver(a.store, b)
	if _, err := saver.MaybeSave(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
	}
	w, err := newSessionWatcher(a, *profileName, saver)
	if err != nil {
		fatal("Error: %v", err)
	}
	fmt.Fprintf(os.Stderr, "Watching %s (Ctrl+C to stop)\n", label)
	if err := w.Run(ctx); err != nil {
		fatal("Error: %v", err)
	}
}

func newSessionWatcher(a *app, profileName string, saver *autosave.Saver) (*autosave.Watcher, error) {
	if profileName == "" {
		profileName = a.cfg.Profile
	}
	profile, err := firefox.ResolveProfile(profileName)
	if err != nil {
		return nil, err
	}
	return autosave.NewWatcher(firefox.SessionDir(profile.Path), firefox.SessionFiles, saver)
}

// logBridgeEvents records unsolicited extension messages (tab events).
func logBridgeEvents(ctx context.Context, srv *server.Server) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-srv.Messages():
			applog.Info("bridge.event", "type", msg.Type)
		}
	}
}
