package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/atotto/clipboard"
	"github.com/goccy/go-json"

	"github.com/vanderheijden86/quizflow/internal/datasource"
	"github.com/vanderheijden86/quizflow/pkg/config"
	"github.com/vanderheijden86/quizflow/pkg/debug"
	"github.com/vanderheijden86/quizflow/pkg/engine"
	"github.com/vanderheijden86/quizflow/pkg/export"
	"github.com/vanderheijden86/quizflow/pkg/layout"
	"github.com/vanderheijden86/quizflow/pkg/metrics"
	"github.com/vanderheijden86/quizflow/pkg/version"
	"github.com/vanderheijden86/quizflow/pkg/watcher"
)

const usage = `Usage: qf <command> [options] <flow-file>

A flow graph tool for branching questionnaires.

Commands:
  check      Validate a flow and report orphaned nodes and handles
  paths      Print the hierarchical path identifiers of every node
  organize   Run the auto-layout engine and write positions back
  export     Render the flow as json, dot, or mermaid
  snapshot   Render a static SVG/PNG image of the flow
  copy       Copy a set of nodes to the system clipboard
  paste      Paste a previously copied fragment into the flow
  flows      List the flows inside a SQLite database
  watch      Re-check the flow whenever the file changes

Flow files are JSON documents, or SQLite databases addressed as
"flows.db#name". Run 'qf <command> -h' for command options.
`

func main() {
	flag.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	versionFlag := flag.Bool("version", false, "Show version")
	flag.Parse()

	if *versionFlag {
		fmt.Printf("qf %s\n", version.Version)
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		// Non-fatal: continue with defaults
		cfg = config.DefaultConfig()
	}

	cmd, rest := args[0], args[1:]
	switch cmd {
	case "check":
		err = cmdCheck(cfg, rest)
	case "paths":
		err = cmdPaths(cfg, rest)
	case "organize":
		err = cmdOrganize(cfg, rest)
	case "export":
		err = cmdExport(cfg, rest)
	case "snapshot":
		err = cmdSnapshot(cfg, rest)
	case "copy":
		err = cmdCopy(cfg, rest)
	case "paste":
		err = cmdPaste(cfg, rest)
	case "flows":
		err = cmdFlows(rest)
	case "watch":
		err = cmdWatch(cfg, rest)
	case "version":
		fmt.Printf("qf %s\n", version.Version)
	case "help", "-h", "--help":
		flag.Usage()
	default:
		fmt.Fprintf(os.Stderr, "qf: unknown command %q\n\n", cmd)
		flag.Usage()
		os.Exit(2)
	}

	if debug.Enabled() {
		for _, s := range metrics.AllTimingStats() {
			debug.Log("%s: n=%d avg=%.2fms max=%.2fms", s.Name, s.Count, s.AvgMs, s.MaxMs)
		}
	}

	if err != nil {
		// The check report has already been printed; the sentinel only
		// carries the exit code.
		if !errors.Is(err, errCheckFailed) {
			fmt.Fprintf(os.Stderr, "qf %s: %v\n", cmd, err)
		}
		os.Exit(1)
	}
}

// errCheckFailed signals that a check found orphaned nodes, orphaned
// handles, or unresolved references. Returned instead of exiting so main
// still runs its deferred cleanup and debug reporting.
var errCheckFailed = errors.New("check found issues")

// openFlow loads a flow file into a fresh engine. The returned source is
// reused for writing the flow back.
func openFlow(cfg config.Config, path string) (datasource.DataSource, *engine.Engine, export.ImportReport, error) {
	start := time.Now()

	src, err := datasource.Detect(path)
	if err != nil {
		return datasource.DataSource{}, nil, export.ImportReport{}, err
	}

	doc, err := datasource.Load(src)
	if err != nil {
		return src, nil, export.ImportReport{}, err
	}

	snap, report, err := export.ResolveDocument(doc, nil)
	if err != nil {
		return src, nil, report, err
	}

	eng := engine.New(engine.Options{HistoryCapacity: cfg.History.Capacity})
	if res := eng.ReplaceAll(snap); !res.OK {
		return src, nil, report, fmt.Errorf("loading flow: %s", res.Reason)
	}

	debug.LogTiming("openFlow "+src.String(), time.Since(start))
	return src, eng, report, nil
}

// saveFlow serializes the engine state back to the flow's source.
func saveFlow(src datasource.DataSource, eng *engine.Engine) error {
	doc := export.BuildDocument(eng.Snapshot())
	return datasource.Save(src, doc)
}

func layoutOptions(cfg config.Config, preset string) layout.Options {
	if preset == "" {
		preset = cfg.Layout.Preset
	}
	opts := layout.DefaultOptions()
	if preset == "roomy" {
		opts = layout.RoomyOptions()
	}
	if cfg.Layout.HSpacing > 0 {
		opts.HSpacing = cfg.Layout.HSpacing
	}
	if cfg.Layout.VSpacing > 0 {
		opts.VSpacing = cfg.Layout.VSpacing
	}
	if cfg.Layout.ComponentGap > 0 {
		opts.CompGap = cfg.Layout.ComponentGap
	}
	return opts
}

func cmdCheck(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("check", flag.ExitOnError)
	quiet := fs.Bool("quiet", false, "Suppress per-node detail, print the summary only")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("expected one flow file")
	}

	_, eng, report, err := openFlow(cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	rep := buildCheckReport(eng, report)
	printCheckReport(os.Stdout, rep, *quiet)

	if rep.OrphanedNodes > 0 || rep.OrphanedHandles > 0 || len(report.Unresolved) > 0 {
		return errCheckFailed
	}
	return nil
}

func cmdPaths(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("paths", flag.ExitOnError)
	rebuild := fs.Bool("rebuild", false, "Re-derive all path identifiers before printing")
	write := fs.Bool("write", false, "Write the (re-derived) flow back to its source")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("expected one flow file")
	}

	src, eng, _, err := openFlow(cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	if *rebuild {
		res := eng.PropagateAll()
		for _, sh := range res.StaleHandles {
			fmt.Fprintf(os.Stderr, "warning: node %s handle %s references a missing variant\n",
				sh.NodeID, sh.Handle)
		}
	}

	nodes := eng.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID < nodes[j].ID })
	for _, n := range nodes {
		paths := "-"
		if len(n.PathIDs) > 0 {
			paths = strings.Join(n.PathIDs, ", ")
		}
		fmt.Printf("%-24s %s\n", n.ID, paths)
	}

	if *write {
		return saveFlow(src, eng)
	}
	return nil
}

func cmdOrganize(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("organize", flag.ExitOnError)
	preset := fs.String("preset", "", "Layout preset: default or roomy")
	dryRun := fs.Bool("dry-run", false, "Compute positions without writing them back")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("expected one flow file")
	}

	src, eng, _, err := openFlow(cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	if res := eng.Organize(layoutOptions(cfg, *preset)); !res.OK {
		return fmt.Errorf("layout failed: %s", res.Reason)
	}

	nodeCount, _ := eng.Len()
	fmt.Printf("Arranged %d nodes\n", nodeCount)

	if *dryRun {
		return nil
	}
	return saveFlow(src, eng)
}

func cmdExport(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	format := fs.String("format", "", "Output format: json, dot, or mermaid")
	output := fs.String("o", "", "Output file (default stdout)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("expected one flow file")
	}

	f := *format
	if f == "" {
		f = cfg.Export.Format
	}

	_, eng, _, err := openFlow(cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	text, err := export.Text(eng.Snapshot(), export.Format(f))
	if err != nil {
		return err
	}

	if *output == "" {
		fmt.Print(text)
		return nil
	}
	return os.WriteFile(*output, []byte(text), 0o644)
}

func cmdSnapshot(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("snapshot", flag.ExitOnError)
	output := fs.String("o", "", "Output image path (.svg or .png; required)")
	format := fs.String("format", "", "Image format: svg, png, or both")
	title := fs.String("title", "", "Title rendered in the snapshot header")
	preset := fs.String("preset", "", "Layout preset: default or roomy")
	useExisting := fs.Bool("use-existing", false, "Keep stored node positions instead of re-running layout")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("expected one flow file")
	}
	if *output == "" {
		return fmt.Errorf("-o is required")
	}

	_, eng, _, err := openFlow(cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	snap := eng.Snapshot()
	raw, err := export.MarshalDocument(export.BuildDocument(snap))
	if err != nil {
		return err
	}

	layoutPreset := *preset
	if layoutPreset == "" {
		layoutPreset = cfg.Layout.Preset
	}

	return export.SaveSnapshot(snap, export.SnapshotOptions{
		Path:        *output,
		Format:      *format,
		Title:       *title,
		Preset:      layoutPreset,
		DataHash:    export.DataHash(raw),
		UseExisting: *useExisting,
	})
}

func cmdCopy(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("copy", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("expected a flow file and at least one node id")
	}

	_, eng, _, err := openFlow(cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	frag := eng.Copy(fs.Args()[1:])
	if len(frag.Nodes) == 0 {
		return fmt.Errorf("no matching nodes")
	}

	data, err := json.MarshalIndent(frag, "", "  ")
	if err != nil {
		return err
	}
	if err := clipboard.WriteAll(string(data)); err != nil {
		return fmt.Errorf("writing clipboard: %w", err)
	}

	fmt.Printf("Copied %d nodes, %d edges\n", len(frag.Nodes), len(frag.Edges))
	return nil
}

func cmdPaste(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("paste", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("expected one flow file")
	}

	text, err := clipboard.ReadAll()
	if err != nil {
		return fmt.Errorf("reading clipboard: %w", err)
	}

	var frag engine.Fragment
	if err := json.Unmarshal([]byte(text), &frag); err != nil {
		return fmt.Errorf("clipboard does not hold a flow fragment: %w", err)
	}

	src, eng, _, err := openFlow(cfg, fs.Arg(0))
	if err != nil {
		return err
	}

	res, renamed := eng.Paste(frag)
	if !res.OK {
		return fmt.Errorf("paste rejected: %s", res.Reason)
	}

	for old, now := range renamed {
		fmt.Printf("renamed %s -> %s\n", old, now)
	}
	fmt.Printf("Pasted %d nodes\n", len(frag.Nodes))

	return saveFlow(src, eng)
}

func cmdFlows(args []string) error {
	fs := flag.NewFlagSet("flows", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("expected one database file")
	}

	src, err := datasource.Detect(fs.Arg(0))
	if err != nil {
		return err
	}
	if src.Type != datasource.SourceTypeSQLite {
		return fmt.Errorf("%s is not a SQLite database", src.Path)
	}

	db, err := datasource.OpenSQLite(src)
	if err != nil {
		return err
	}
	defer db.Close()

	names, err := db.ListFlows()
	if err != nil {
		return err
	}
	for _, name := range names {
		fmt.Println(name)
	}
	return nil
}

func cmdWatch(cfg config.Config, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("expected one flow file")
	}
	path := fs.Arg(0)

	check := func() {
		_, eng, report, err := openFlow(cfg, path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s  %v\n", time.Now().Format("15:04:05"), err)
			return
		}
		rep := buildCheckReport(eng, report)
		fmt.Printf("%s  ", time.Now().Format("15:04:05"))
		printCheckReport(os.Stdout, rep, true)
	}

	wopts := watcher.Options{
		OnChange: check,
		OnError: func(err error) {
			fmt.Fprintf(os.Stderr, "watch: %v\n", err)
		},
		ForcePoll: cfg.Watch.ForcePoll,
	}
	if cfg.Watch.PollInterval != "" {
		if d, err := time.ParseDuration(cfg.Watch.PollInterval); err == nil && d > 0 {
			wopts.PollInterval = d
		}
	}

	w, err := watcher.Watch(path, wopts)
	if err != nil {
		return err
	}
	defer w.Stop()

	mode := "fsnotify"
	if w.IsPolling() {
		mode = fmt.Sprintf("polling every %s", w.PollInterval())
	}
	fmt.Printf("Watching %s (%s). Ctrl-C to stop.\n", path, mode)
	check()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
	return nil
}
