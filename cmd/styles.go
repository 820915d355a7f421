package cmd

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"weeklyreport/types"

	"github.com/charmbracelet/lipgloss"
)

// Color palette
const (
	colorPrimary = "#7D56F4"
	colorSuccess = "#04B575"
	colorError   = "#FF0000"
	colorWarn    = "#FFB86C"
	colorInfo    = "#626262"
)

var (
	titleStyle = lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color(colorPrimary))

	stageStyle = lipgloss.NewStyle().
		Bold(true).
		Width(11)

	okStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color(colorSuccess))
	errStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color(colorError))
	warnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorWarn))
	infoStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(colorInfo))
)

// formatReport renders a run report for the terminal
func formatReport(r *types.RunReport) string {
	if r == nil {
		return ""
	}

	var b strings.Builder
	elapsed := r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond)
	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render("Run "+string(r.Stage)), infoStyle.Render(fmt.Sprintf("%s, %s", r.RunID, elapsed)))

	if f := r.Fetch; f != nil {
		line := fmt.Sprintf("%d saved from %d entries (%d duplicates, %d truncated", f.Saved, f.Entries, f.Duplicates, f.Truncated)
		if f.TooOld > 0 {
			line += fmt.Sprintf(", %d too old", f.TooOld)
		}
		if f.HistorySkipped > 0 {
			line += fmt.Sprintf(", %d already reported", f.HistorySkipped)
		}
		line += ")"
		fmt.Fprintf(&b, "%s%s  %s\n", stageStyle.Render("fetch"), okStyle.Render(line), infoStyle.Render(f.Path))

		names := make([]string, 0, len(f.SourceErrors))
		for name := range f.SourceErrors {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(&b, "%s%s\n", stageStyle.Render(""), warnStyle.Render(fmt.Sprintf("[warn] %s: %s", name, f.SourceErrors[name])))
		}
		for _, name := range f.Unsupported {
			fmt.Fprintf(&b, "%s%s\n", stageStyle.Render(""), warnStyle.Render(fmt.Sprintf("[skip] %s: unsupported source type", name)))
		}
	}

	if s := r.Summarize; s != nil {
		line := fmt.Sprintf("%d summaries via %s", s.Articles, s.Generator)
		style := okStyle
		if s.Fallbacks > 0 {
			line += fmt.Sprintf(" (%d kept original text)", s.Fallbacks)
			style = warnStyle
		}
		fmt.Fprintf(&b, "%s%s  %s\n", stageStyle.Render("summarize"), style.Render(line), infoStyle.Render(s.Path))
	}

	if rr := r.Render; rr != nil {
		line := fmt.Sprintf("week %s to %s, %d stories", rr.WeekStart, rr.WeekEnd, rr.Summaries)
		fmt.Fprintf(&b, "%s%s  %s\n", stageStyle.Render("render"), okStyle.Render(line), infoStyle.Render(rr.Path))
	}

	if r.Error != "" {
		fmt.Fprintf(&b, "%s%s\n", stageStyle.Render("error"), errStyle.Render(r.Error))
	}
	return strings.TrimRight(b.String(), "\n")
}
