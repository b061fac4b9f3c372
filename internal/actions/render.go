package actions

import (
	"fmt"
	"strings"

	"github.com/dustin/go-humanize/english"

	"gitmove.dev/gitmove/internal/conflict"
	"gitmove.dev/gitmove/internal/divergence"
	"gitmove.dev/gitmove/internal/output"
	"gitmove.dev/gitmove/internal/strategy"
	"gitmove.dev/gitmove/internal/sync"
)

func statusLines(s divergence.SyncStatus) []string {
	summary := s.Summary
	if s.IsSynced {
		summary = output.ColorGreen(summary)
	} else if s.Behind > 0 {
		summary = output.ColorYellow(summary)
	}
	lines := []string{
		summary,
		fmt.Sprintf("  ahead:      %d", s.Ahead),
		fmt.Sprintf("  behind:     %d", s.Behind),
	}
	if s.MergeBase != "" {
		lines = append(lines, fmt.Sprintf("  merge base: %s", output.ColorDim(shortID(s.MergeBase))))
	}
	return lines
}

func decisionLines(d strategy.Decision) []string {
	lines := []string{fmt.Sprintf("Recommended strategy: %s", output.ColorBold(d.Strategy.String()))}
	detail := fmt.Sprintf("  rule: %s", d.Rule)
	if d.MatchedPattern != "" {
		detail += fmt.Sprintf(" (pattern %q)", d.MatchedPattern)
	}
	if d.Overridden {
		detail += ", overridden by branch age"
	}
	lines = append(lines, output.ColorDim(detail))
	for _, r := range d.Rationale {
		lines = append(lines, "  - "+r)
	}
	return lines
}

func hunkRange(h conflict.Hunk) string {
	if h.Count == 0 {
		return fmt.Sprintf("%s: insert %s after line %d", h.Side, english.Plural(h.Added, "line", ""), h.Start)
	}
	return fmt.Sprintf("%s: lines %d-%d replaced by %s", h.Side, h.Start+1, h.End(), english.Plural(h.Added, "line", ""))
}

func reportLines(r *conflict.Report) []string {
	var lines []string
	title := fmt.Sprintf("%s %s into %s: %s", r.Strategy.Verb(), r.Target, r.Branch, r.Verdict)
	if r.HasConflicts() {
		lines = append(lines, output.ColorRed(title))
	} else {
		lines = append(lines, output.ColorGreen(title))
	}
	if len(r.Entries) == 0 {
		return append(lines, "  no path was changed on both sides")
	}

	for _, e := range r.Entries {
		label := output.ColorSeverity(fmt.Sprintf("%-8s", e.Severity), e.Severity.Blocking())
		lines = append(lines, fmt.Sprintf("  %s %s (%s)", label, e.Path, e.Kind))
		if e.Reason != "" {
			lines = append(lines, "           "+output.ColorDim(e.Reason))
		}
		for _, h := range e.Hunks {
			lines = append(lines, "           "+hunkRange(h))
		}
		if len(e.Commits) > 0 {
			short := make([]string, len(e.Commits))
			for i, c := range e.Commits {
				short[i] = shortID(c)
			}
			lines = append(lines, "           commits: "+strings.Join(short, ", "))
		}
	}

	if len(r.Suggestions) > 0 {
		lines = append(lines, "", "Suggestions:")
		for _, s := range r.Suggestions {
			lines = append(lines, "  - "+s)
		}
	}
	return lines
}

func resultHeadline(r *sync.Result) string {
	switch r.Status {
	case sync.StatusSynchronized:
		return output.ColorGreen("✓ " + r.Detail)
	case sync.StatusUpToDate:
		return output.ColorGreen(r.Detail)
	case sync.StatusConflictDetected:
		return output.ColorYellow(r.Detail)
	default:
		return output.ColorRed("✗ " + r.Detail)
	}
}

func printLines(splog *output.Splog, lines []string) {
	for _, line := range lines {
		splog.Info("%s", line)
	}
}
