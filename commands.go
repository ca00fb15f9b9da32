package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/atotto/clipboard"

	"github.com/lotas/ctxkeep/internal/command"
	"github.com/lotas/ctxkeep/internal/export"
	"github.com/lotas/ctxkeep/internal/organize"
	"github.com/lotas/ctxkeep/internal/snapshot"
	"github.com/lotas/ctxkeep/internal/types"
)

func runSave(args []string) {
	a := setup()
	defer a.close()

	fs := flag.NewFlagSet("save", flag.ExitOnError)
	category := fs.String("category", "", "Category: "+categoryNames())
	var tags stringList
	fs.Var(&tags, "tag", "Tag (repeatable)")
	sf := addSourceFlags(fs, a.cfg)
	fs.Parse(reorderArgs(args, "live"))

	name := strings.Join(fs.Args(), " ")
	if name == "" {
		fatal("Usage: ctxkeep save <name> [--category c] [--tag t]...")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b, _, err := a.open(ctx, sf)
	if err != nil {
		fatal("Error: %v", err)
	}
	resp := do(a.dispatcher(b), command.Request{
		Action:      command.SaveContext,
		ContextName: name,
		Category:    *category,
		Tags:        tags,
	})
	fmt.Printf("%s (id %s)\n", resp.Message, shortID(resp.Context.ID))
}

func runList(args []string) {
	a := setup()
	defer a.close()

	fs := flag.NewFlagSet("list", flag.ExitOnError)
	search := fs.String("search", "", "Match name or tag (case-insensitive)")
	category := fs.String("category", "", "Only this category")
	jsonFlag := fs.Bool("json", false, "Print JSON")
	fs.Parse(args)

	resp := do(a.dispatcher(nil), command.Request{
		Action:   command.ListContexts,
		Search:   *search,
		Category: *category,
	})
	if *jsonFlag {
		printJSON(resp.Contexts)
		return
	}
	if len(resp.Contexts) == 0 {
		fmt.Println("No contexts.")
		return
	}

	now := time.Now()
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tTABS\tCATEGORY\tSAVED")
	for _, c := range resp.Contexts {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n", shortID(c.ID), c.Name, c.TabCount, c.Category, export.Age(c.CreatedAt, now))
	}
	w.Flush()
}

func runShow(args []string) {
	if len(args) != 1 {
		fatal("Usage: ctxkeep show <id>")
	}
	a := setup()
	defer a.close()

	resp := do(a.dispatcher(nil), command.Request{Action: command.GetContext, ContextID: a.resolveID(args[0])})
	fmt.Print(export.Markdown(*resp.Context, time.Now()))
}

func runLoad(args []string) {
	a := setup()
	defer a.close()

	fs := flag.NewFlagSet("load", flag.ExitOnError)
	mode := fs.String("mode", string(types.LoadReplace), "Load mode: replace, newWindow, background or merge")
	last := fs.Bool("last", false, "Load the most recently saved context")
	port := fs.Int("port", a.cfg.Port, "WebSocket port")
	fs.Parse(reorderArgs(args, "last"))

	req := command.Request{Action: command.LoadContext, LoadMode: *mode}
	switch {
	case *last:
		req = command.Request{Action: command.LoadLastContext, LoadMode: *mode}
	case fs.NArg() == 1:
		req.ContextID = a.resolveID(fs.Arg(0))
	default:
		fatal("Usage: ctxkeep load <id>|--last [--mode m]")
	}
	if _, ok := types.ParseLoadMode(*mode); !ok {
		fatal("Error: unknown load mode %q", *mode)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv, err := connect(ctx, *port)
	if err != nil {
		fatal("Error: %v", err)
	}

	resp := do(a.dispatcher(srv.Browser()), req)
	fmt.Printf("%s: %d opened, %d navigated, %d closed\n",
		resp.Message, resp.Load.Opened, resp.Load.Navigated, resp.Load.Closed)
	for _, e := range resp.Load.Errors {
		fmt.Fprintf(os.Stderr, "  ! %s\n", e)
	}
}

func runDelete(args []string) {
	if len(args) != 1 {
		fatal("Usage: ctxkeep delete <id>")
	}
	a := setup()
	defer a.close()

	resp := do(a.dispatcher(nil), command.Request{Action: command.DeleteContext, ContextID: a.resolveID(args[0])})
	fmt.Println(resp.Message)
}

func runOrganize(args []string) {
	a := setup()
	defer a.close()

	fs := flag.NewFlagSet("organize", flag.ExitOnError)
	smart := fs.Bool("smart", false, "Split priority tabs out first")
	dryRun := fs.Bool("dry-run", false, "Print the contexts without saving")
	sf := addSourceFlags(fs, a.cfg)
	fs.Parse(args)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b, _, err := a.open(ctx, sf)
	if err != nil {
		fatal("Error: %v", err)
	}

	if *dryRun {
		tabs, err := b.QueryTabs(ctx)
		if err != nil {
			fatal("Error: %v", err)
		}
		classifier, err := a.cfg.Classifier()
		if err != nil {
			fatal("Error: %v", err)
		}
		o := organize.New(classifier, a.store, a.cfg.OrganizeOptions())
		plans := o.PlanAuto(tabs)
		if *smart {
			plans = o.PlanSmart(tabs)
		}
		for _, c := range plans {
			fmt.Printf("%s [%s] %s\n", c.Name, c.Category, strings.Join(c.Tags, ", "))
		}
		return
	}

	action := command.AutoOrganize
	if *smart {
		action = command.SmartOrganize
	}
	resp := do(a.dispatcher(b), command.Request{Action: action})
	fmt.Println(resp.Message)
	for _, c := range resp.CreatedContexts {
		fmt.Printf("  %s  %s\n", shortID(c.ID), c.Name)
	}
}

func runSuggest(args []string) {
	a := setup()
	defer a.close()

	fs := flag.NewFlagSet("suggest", flag.ExitOnError)
	sf := addSourceFlags(fs, a.cfg)
	fs.Parse(args)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b, _, err := a.open(ctx, sf)
	if err != nil {
		fatal("Error: %v", err)
	}
	resp := do(a.dispatcher(b), command.Request{Action: command.GetSmartSuggestions})
	for _, s := range resp.Suggestions {
		fmt.Println(s)
	}
}

func runNotifications(args []string) {
	a := setup()
	defer a.close()
	d := a.dispatcher(nil)

	if len(args) > 0 {
		if args[0] != "clear" {
			fatal("Unknown notifications command %q. Use clear.", args[0])
		}
		do(d, command.Request{Action: command.ClearNotifications})
		fmt.Println("Notifications cleared.")
		return
	}

	resp := do(d, command.Request{Action: command.GetNotifications})
	if len(resp.Notifications) == 0 {
		fmt.Println("No notifications.")
		return
	}
	for _, n := range resp.Notifications {
		fmt.Printf("%s  %-7s  %s\n", n.Timestamp.Local().Format("2006-01-02 15:04"), n.Type, n.Message)
	}
}

func runImport(args []string) {
	if len(args) != 1 {
		fatal("Usage: ctxkeep import <file>")
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		fatal("Error reading file: %v", err)
	}
	a := setup()
	defer a.close()

	resp := do(a.dispatcher(nil), command.Request{Action: command.ImportContext, Data: data})
	fmt.Printf("%s (id %s, %d tabs)\n", resp.Message, shortID(resp.Context.ID), resp.Context.TabCount)
}

func runExport(args []string) {
	a := setup()
	defer a.close()

	fs := flag.NewFlagSet("export", flag.ExitOnError)
	jsonFlag := fs.Bool("json", false, "Export as JSON instead of markdown")
	outFile := fs.String("out", "", "Output file path (default: stdout)")
	copyFlag := fs.Bool("copy", false, "Copy to the clipboard")
	fs.Parse(reorderArgs(args, "json", "copy"))

	if fs.NArg() != 1 {
		fatal("Usage: ctxkeep export <id> [--json] [--out f] [--copy]")
	}
	resp := do(a.dispatcher(nil), command.Request{Action: command.GetContext, ContextID: a.resolveID(fs.Arg(0))})

	var output string
	var err error
	if *jsonFlag {
		output, err = export.JSON(*resp.Context)
		if err != nil {
			fatal("Error generating JSON: %v", err)
		}
	} else {
		output = export.Markdown(*resp.Context, time.Now())
	}

	switch {
	case *copyFlag:
		if err := clipboard.WriteAll(output); err != nil {
			fatal("Error copying to clipboard: %v", err)
		}
		fmt.Fprintf(os.Stderr, "Copied %q to the clipboard.\n", resp.Context.Name)
	case *outFile != "":
		if err := os.WriteFile(*outFile, []byte(output), 0644); err != nil {
			fatal("Error writing file: %v", err)
		}
	default:
		fmt.Print(output)
	}
}

func runDiff(args []string) {
	a := setup()
	defer a.close()

	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	sf := addSourceFlags(fs, a.cfg)
	fs.Parse(reorderArgs(args, "live"))
	if fs.NArg() != 1 {
		fatal("Usage: ctxkeep diff <id>")
	}

	c, err := a.store.Get(a.resolveID(fs.Arg(0)))
	if err != nil {
		fatal("Error: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	b, _, err := a.open(ctx, sf)
	if err != nil {
		fatal("Error: %v", err)
	}
	tabs, err := b.QueryTabs(ctx)
	if err != nil {
		fatal("Error: %v", err)
	}
	fmt.Print(snapshot.FormatDiff(snapshot.Diff(c, tabs)))
}

func runPage(args []string) {
	a := setup()
	defer a.close()

	fs := flag.NewFlagSet("page", flag.ExitOnError)
	sf := addSourceFlags(fs, a.cfg)
	fs.Parse(reorderArgs(args, "live"))

	req := command.Request{Action: command.DetectPageContext, URL: fs.Arg(0)}
	var d *command.Dispatcher
	if req.URL == "" {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		b, _, err := a.open(ctx, sf)
		if err != nil {
			fatal("Error: %v", err)
		}
		d = a.dispatcher(b)
	} else {
		d = a.dispatcher(nil)
	}

	info := do(d, req).PageInfo
	fmt.Printf("Title:    %s\n", info.Title)
	fmt.Printf("Domain:   %s\n", info.Domain)
	fmt.Printf("Type:     %s\n", info.ContentType)
	fmt.Printf("Keywords: %s\n", strings.Join(info.Keywords, ", "))
	if info.Excerpt != "" {
		fmt.Printf("\n%s\n", info.Excerpt)
	}
}

func runStats() {
	a := setup()
	defer a.close()

	st := do(a.dispatcher(nil), command.Request{Action: command.GetStats}).Stats
	fmt.Printf("%d contexts, %d saved tabs\n", st.TotalContexts, st.TotalTabs)
}

func runPrefs(args []string) {
	a := setup()
	defer a.close()

	fs := flag.NewFlagSet("prefs", flag.ExitOnError)
	autoSave := fs.String("autosave", "", "Auto-save on or off")
	interval := fs.Int("interval", 0, "Minutes between auto-saves")
	notify := fs.String("notifications", "", "Notifications on or off")
	maxContexts := fs.Int("max-contexts", 0, "Advisory limit on saved contexts")
	fs.Parse(args)

	d := a.dispatcher(nil)
	prefs := *do(d, command.Request{Action: command.GetPreferences}).Preferences

	changed := false
	fs.Visit(func(f *flag.Flag) {
		changed = true
		var err error
		switch f.Name {
		case "autosave":
			prefs.AutoSave, err = onOff(*autoSave)
		case "notifications":
			prefs.EnableNotifications, err = onOff(*notify)
		case "interval":
			prefs.AutoSaveIntervalMinutes = *interval
		case "max-contexts":
			prefs.MaxContexts = *maxContexts
		}
		if err != nil {
			fatal("Error: --%s: %v", f.Name, err)
		}
	})
	if changed {
		prefs = *do(d, command.Request{Action: command.SetPreferences, Preferences: &prefs}).Preferences
	}

	fmt.Printf("autosave:      %t (every %d min)\n", prefs.AutoSave, prefs.AutoSaveIntervalMinutes)
	fmt.Printf("notifications: %t\n", prefs.EnableNotifications)
	fmt.Printf("max contexts:  %d\n", prefs.MaxContexts)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func categoryNames() string {
	names := make([]string, len(types.Categories))
	for i, c := range types.Categories {
		names[i] = string(c)
	}
	return strings.Join(names, ", ")
}
