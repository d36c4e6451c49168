package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/vanderheijden86/quizflow/pkg/engine"
	"github.com/vanderheijden86/quizflow/pkg/export"
)

var (
	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.AdaptiveColor{Light: "#1A7F37", Dark: "#3FB950"}).
		Bold(true)
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#9A6700", Dark: "#D29922"}).
			Bold(true)
	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#CF222E", Dark: "#F85149"}).
			Bold(true)
	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#656D76", Dark: "#8B949E"})
)

type checkFinding struct {
	NodeID   string
	PathID   string
	Detail   string
	Severity string // "warn" or "error"
}

type checkReport struct {
	NodeCount       int
	EdgeCount       int
	OrphanedNodes   int
	OrphanedHandles int
	MissingHandles  int
	Unresolved      []string
	Findings        []checkFinding
}

func buildCheckReport(eng *engine.Engine, imp export.ImportReport) checkReport {
	var rep checkReport
	rep.NodeCount, rep.EdgeCount = eng.Len()
	rep.Unresolved = imp.Unresolved

	flags := eng.Flags()
	ids := make([]string, 0, len(flags))
	for id := range flags {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		f := flags[id]
		n, ok := eng.Node(id)
		if !ok {
			continue
		}
		path := n.PrimaryPathID()

		if f.IsOrphaned {
			rep.OrphanedNodes++
			rep.Findings = append(rep.Findings, checkFinding{
				NodeID: id, PathID: path, Severity: "error",
				Detail: "orphaned: not reachable from a root question",
			})
		}
		for _, h := range f.OrphanedHandles {
			rep.OrphanedHandles++
			rep.Findings = append(rep.Findings, checkFinding{
				NodeID: id, PathID: path, Severity: "error",
				Detail: fmt.Sprintf("handle %s references a missing variant", h),
			})
		}
		for _, h := range f.MissingHandles {
			rep.MissingHandles++
			rep.Findings = append(rep.Findings, checkFinding{
				NodeID: id, PathID: path, Severity: "warn",
				Detail: fmt.Sprintf("handle %s has no connection", h),
			})
		}
	}

	return rep
}

func printCheckReport(w io.Writer, rep checkReport, quiet bool) {
	width := terminalWidth()

	if !quiet {
		for _, f := range rep.Findings {
			badge := warnStyle.Render("WARN ")
			if f.Severity == "error" {
				badge = errStyle.Render("ERROR")
			}
			label := f.NodeID
			labelWidth := len(label)
			if f.PathID != "" {
				label += " " + dimStyle.Render("("+f.PathID+")")
				labelWidth += len(f.PathID) + 3
			}
			detail := truncatePlain(f.Detail, width-labelWidth-9)
			fmt.Fprintf(w, "%s  %s  %s\n", badge, label, detail)
		}
		for _, path := range rep.Unresolved {
			fmt.Fprintf(w, "%s  navigation target %s could not be resolved\n",
				errStyle.Render("ERROR"), path)
		}
		if len(rep.Findings) > 0 || len(rep.Unresolved) > 0 {
			fmt.Fprintln(w)
		}
	}

	summary := fmt.Sprintf("%d nodes, %d edges", rep.NodeCount, rep.EdgeCount)
	problems := rep.OrphanedNodes + rep.OrphanedHandles + len(rep.Unresolved)
	switch {
	case problems > 0:
		fmt.Fprintf(w, "%s  %s; %d problems, %d warnings\n",
			errStyle.Render("FAIL"), summary, problems, rep.MissingHandles)
	case rep.MissingHandles > 0:
		fmt.Fprintf(w, "%s  %s; %d unconnected handles\n",
			warnStyle.Render("WARN"), summary, rep.MissingHandles)
	default:
		fmt.Fprintf(w, "%s  %s\n", okStyle.Render("OK"), summary)
	}
}

func terminalWidth() int {
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 20 {
		return w
	}
	return 100
}

func truncatePlain(s string, max int) string {
	if max < 8 {
		max = 8
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return strings.TrimRight(string(runes[:max-1]), " ") + "…"
}
