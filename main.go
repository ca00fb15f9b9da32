package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"

	"github.com/lotas/ctxkeep/internal/applog"
	"github.com/lotas/ctxkeep/internal/browser"
	"github.com/lotas/ctxkeep/internal/command"
	"github.com/lotas/ctxkeep/internal/config"
	"github.com/lotas/ctxkeep/internal/contexts"
	"github.com/lotas/ctxkeep/internal/firefox"
	"github.com/lotas/ctxkeep/internal/pageinfo"
	"github.com/lotas/ctxkeep/internal/server"
	"github.com/lotas/ctxkeep/internal/storage"
	"github.com/lotas/ctxkeep/internal/tui"
	"github.com/lotas/ctxkeep/internal/types"
)

func main() {
	// .env is optional.
	_ = godotenv.Load()

	if len(os.Args) > 1 {
		args := os.Args[2:]
		switch os.Args[1] {
		case "save":
			runSave(args)
			return
		case "list", "ls":
			runList(args)
			return
		case "show":
			runShow(args)
			return
		case "load":
			runLoad(args)
			return
		case "delete", "rm":
			runDelete(args)
			return
		case "organize":
			runOrganize(args)
			return
		case "suggest":
			runSuggest(args)
			return
		case "notifications":
			runNotifications(args)
			return
		case "import":
			runImport(args)
			return
		case "export":
			runExport(args)
			return
		case "diff":
			runDiff(args)
			return
		case "page":
			runPage(args)
			return
		case "stats":
			runStats()
			return
		case "prefs":
			runPrefs(args)
			return
		case "serve":
			runServe(args)
			return
		case "watch":
			runWatch(args)
			return
		case "profiles":
			runProfiles()
			return
		case "help", "--help", "-h":
			printHelp()
			return
		}
	}

	runTUI(os.Args[1:])
}

func printHelp() {
	fmt.Print(`ctxkeep — save and restore browser tab contexts

Usage:
  ctxkeep                                       Start the TUI (default)
    --profile <name>       Firefox profile to read tabs from
    --live                 Use the live extension instead of the session file
    --port <n>             WebSocket port for live mode (default: 19292)

  ctxkeep save <name> [--category c] [--tag t]...   Save the open tabs
  ctxkeep list [--search s] [--category c] [--json]  List saved contexts
  ctxkeep show <id>                                 Show a context as markdown
  ctxkeep load <id>|--last [--mode m]               Open a context (needs the extension)
                           modes: replace, newWindow, background, merge
  ctxkeep delete <id>                               Delete a context
  ctxkeep organize [--smart] [--dry-run]            Group open tabs by domain
  ctxkeep suggest                                   Suggest context names
  ctxkeep notifications [clear]                     Show or clear notifications
  ctxkeep import <file>                             Import a context from JSON
  ctxkeep export <id> [--json] [--out f] [--copy]   Export a context
  ctxkeep diff <id>                                 Compare a context with the open tabs
  ctxkeep page [url]                                Detect the context of a page
  ctxkeep stats                                     Count saved contexts and tabs
  ctxkeep prefs [--autosave on|off] [--interval m] [--notifications on|off]
  ctxkeep serve [--port n] [--api-port n]           Run the extension bridge and HTTP API
  ctxkeep watch                                     Auto-save on session file changes
  ctxkeep profiles                                  List Firefox profiles

  Commands reading open tabs accept --profile <name>, or --live [--port n].
  IDs may be abbreviated to any unique prefix.

Environment:
  CTXKEEP_DB        Database path (default: ~/.local/share/ctxkeep/ctxkeep.db)
  CTXKEEP_PROFILE   Default Firefox profile (overridden by --profile)
  CTXKEEP_PORT      WebSocket port (overridden by --port)
  CTXKEEP_CONFIG    Config file (default: ~/.config/ctxkeep/config.yaml)
  CTXKEEP_LOG_DIR   Log directory (default: ~/.local/share/ctxkeep)
  CTXKEEP_FIREFOX_DIR  Directory holding profiles.ini
`)
}

// app holds what every subcommand needs.
type app struct {
	cfg   *config.Config
	db    *sql.DB
	store *contexts.Store
}

func setup() *app {
	cfg, err := config.Load(config.DefaultPath())
	if err != nil {
		fatal("Error loading config: %v", err)
	}
	if err := cfg.ApplyEnv(); err != nil {
		fatal("Error: %v", err)
	}
	if err := applog.Init(applog.DefaultDir()); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: logging disabled: %v\n", err)
	}

	dbPath := cfg.DB
	if dbPath == "" {
		dbPath, err = storage.DefaultDBPath()
		if err != nil {
			fatal("Error: %v", err)
		}
	}
	db, err := storage.OpenDB(dbPath)
	if err != nil {
		fatal("Error opening database: %v", err)
	}
	store := contexts.New(storage.NewKV(db))
	if err := store.Init(); err != nil {
		db.Close()
		fatal("Error initializing storage: %v", err)
	}
	return &app{cfg: cfg, db: db, store: store}
}

func (a *app) close() {
	a.db.Close()
	applog.Close()
}

// errNoSource is returned by commands that need open tabs when the
// subcommand has no tab source.
var errNoSource = errors.New("no tab source")

type noSource struct{}

func (noSource) QueryTabs(context.Context) ([]types.Tab, error) {
	return nil, errNoSource
}

// dispatcher builds a dispatcher over b. A nil b means no tab source.
func (a *app) dispatcher(b browser.Browser) *command.Dispatcher {
	if b == nil {
		b = browser.ReadOnly(noSource{})
	}
	classifier, err := a.cfg.Classifier()
	if err != nil {
		fatal("Error: %v", err)
	}
	return command.New(command.Deps{
		Store:      a.store,
		Browser:    b,
		Classifier: classifier,
		Keywords:   a.cfg.Keywords(),
		Organize:   a.cfg.OrganizeOptions(),
		Pages:      pageinfo.New(nil),
	})
}

// sourceFlags are the flags selecting where open tabs are read from.
type sourceFlags struct {
	profile *string
	live    *bool
	port    *int
}

func addSourceFlags(fs *flag.FlagSet, cfg *config.Config) sourceFlags {
	return sourceFlags{
		profile: fs.String("profile", "", "Firefox profile name"),
		live:    fs.Bool("live", false, "Use the live extension instead of the session file"),
		port:    fs.Int("port", cfg.Port, "WebSocket port for live mode"),
	}
}

// open returns the tab source: the live extension when --live is set,
// otherwise a read-only view of the profile's session file. label describes
// it for humans.
func (a *app) open(ctx context.Context, sf sourceFlags) (browser.Browser, string, error) {
	if *sf.live {
		srv, err := connect(ctx, *sf.port)
		if err != nil {
			return nil, "", err
		}
		return srv.Browser(), fmt.Sprintf("live :%d", *sf.port), nil
	}
	return a.offline(*sf.profile)
}

func (a *app) offline(profileName string) (browser.Browser, string, error) {
	if profileName == "" {
		profileName = a.cfg.Profile
	}
	profile, err := firefox.ResolveProfile(profileName)
	if err != nil {
		return nil, "", err
	}
	return browser.ReadOnly(firefox.SessionReader{Profile: profile}),
		fmt.Sprintf("%s (offline)", profile.Name), nil
}

// connect starts the bridge on port and waits for the extension.
func connect(ctx context.Context, port int) (*server.Server, error) {
	srv := server.New(port)
	go func() {
		if err := srv.ListenAndServe(ctx); err != nil {
			applog.Error("server.listen", err, "port", port)
		}
	}()

	fmt.Fprintf(os.Stderr, "Waiting for Firefox extension on port %d...\n", port)
	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.WaitConnected(waitCtx); err != nil {
		return nil, fmt.Errorf("timed out waiting for extension (10s): %w", err)
	}
	return srv, nil
}

// do runs req and exits on failure.
func do(d *command.Dispatcher, req command.Request) command.Response {
	resp := d.Dispatch(context.Background(), req)
	if !resp.Success {
		fatal("Error: %s", resp.Error)
	}
	return resp
}

// resolveID expands a unique id prefix.
func (a *app) resolveID(prefix string) string {
	list, err := a.store.List()
	if err != nil {
		fatal("Error: %v", err)
	}
	var matches []string
	for _, c := range list {
		if c.ID == prefix {
			return c.ID
		}
		if strings.HasPrefix(c.ID, prefix) {
			matches = append(matches, c.ID)
		}
	}
	switch len(matches) {
	case 0:
		fatal("Error: %v", fmt.Errorf("%w: %s", contexts.ErrNotFound, prefix))
	case 1:
		return matches[0]
	}
	fatal("Error: id prefix %q is ambiguous (%d matches)", prefix, len(matches))
	return ""
}

// reorderArgs moves flag arguments before positional arguments so that
// flag.Parse handles them correctly (it stops at the first non-flag arg).
// Boolean flags must not be followed by a separate value.
func reorderArgs(args []string, bools ...string) []string {
	isBool := make(map[string]bool, len(bools))
	for _, b := range bools {
		isBool["-"+b] = true
		isBool["--"+b] = true
	}
	var flags, positional []string
	for i := 0; i < len(args); i++ {
		if strings.HasPrefix(args[i], "-") {
			flags = append(flags, args[i])
			if !isBool[args[i]] && !strings.Contains(args[i], "=") &&
				i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				flags = append(flags, args[i+1])
				i++
			}
		} else {
			positional = append(positional, args[i])
		}
	}
	return append(flags, positional...)
}

// stringList is a repeatable string flag.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

func printJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatal("Error: %v", err)
	}
}

func fatal(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func runTUI(args []string) {
	a := setup()
	defer a.close()

	fs := flag.NewFlagSet("ctxkeep", flag.ExitOnError)
	sf := addSourceFlags(fs, a.cfg)
	fs.Parse(args)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b, label, err := a.open(ctx, sf)
	if err != nil {
		fatal("Error: %v", err)
	}

	p := tea.NewProgram(tui.NewModel(a.dispatcher(b), label), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fatal("Error: %v", err)
	}
}

func runProfiles() {
	profiles, err := firefox.DiscoverProfiles()
	if err != nil {
		fatal("Error discovering Firefox profiles: %v", err)
	}
	if len(profiles) == 0 {
		fatal("No Firefox profiles found.")
	}

	for _, p := range profiles {
		suffix := ""
		if p.IsDefault {
			suffix = " [default]"
		}
		fmt.Printf("%s (%s)%s\n", p.Name, p.Path, suffix)
	}
}

// onOff parses on/off style booleans for prefs.
func onOff(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "on", "true", "yes", "1":
		return true, nil
	case "off", "false", "no", "0":
		return false, nil
	}
	return false, errors.New("expected on or off")
}
