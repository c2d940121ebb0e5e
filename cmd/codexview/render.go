package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/mattn/go-runewidth"
	"golang.org/x/term"

	"github.com/SawyerHood/codex/engine"
)

// defaultWidth is used when stdout is not a terminal.
const defaultWidth = 100

// styles holds the lipgloss styles shared by every subcommand. The zero
// value renders text unchanged, which is exactly what --plain wants.
type styles struct {
	Header    lipgloss.Style
	Dim       lipgloss.Style
	Reasoning lipgloss.Style
	Tool      lipgloss.Style
	Warn      lipgloss.Style
	Bad       lipgloss.Style
}

func defaultStyles() styles {
	return styles{
		Header:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		Dim:       lipgloss.NewStyle().Faint(true),
		Reasoning: lipgloss.NewStyle().Faint(true).Italic(true),
		Tool:      lipgloss.NewStyle().Foreground(lipgloss.Color("14")),
		Warn:      lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		Bad:       lipgloss.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

// renderer turns engine state into terminal text.
type renderer struct {
	width    int
	plain    bool
	st       styles
	markdown *glamour.TermRenderer
}

// newRenderer builds a renderer. A width of zero or less means detect
// from the terminal; plain disables color and markdown entirely.
func newRenderer(width int, plain bool) *renderer {
	if width <= 0 {
		width = detectWidth()
	}
	r := &renderer{width: width, plain: plain}
	if plain {
		return r
	}
	r.st = defaultStyles()
	md, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err == nil {
		r.markdown = md
	}
	return r
}

func detectWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return defaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return defaultWidth
	}
	return w
}

// renderMarkdown renders agent output as markdown, falling back to the
// raw text when markdown rendering is off or fails.
func (r *renderer) renderMarkdown(text string) string {
	if r.markdown == nil {
		return strings.TrimRight(text, "\n") + "\n"
	}
	out, err := r.markdown.Render(text)
	if err != nil {
		return strings.TrimRight(text, "\n") + "\n"
	}
	return strings.TrimRight(out, "\n") + "\n"
}

// renderTable lays rows out in runewidth-aligned columns with two-space
// gutters. When the natural layout overflows the render width, the
// widest column absorbs the cut.
func (r *renderer) renderTable(header []string, rows [][]string) string {
	widths := make([]int, len(header))
	for i, h := range header {
		widths[i] = runewidth.StringWidth(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if w := runewidth.StringWidth(cell); w > widths[i] {
				widths[i] = w
			}
		}
	}

	total := 2 * (len(widths) - 1)
	for _, w := range widths {
		total += w
	}
	if total > r.width {
		widest := 0
		for i := range widths {
			if widths[i] > widths[widest] {
				widest = i
			}
		}
		if cut := widths[widest] - (total - r.width); cut >= 8 {
			widths[widest] = cut
		}
	}

	var b strings.Builder
	b.WriteString(r.st.Dim.Render(tableLine(header, widths)) + "\n")
	for _, row := range rows {
		b.WriteString(tableLine(row, widths) + "\n")
	}
	return b.String()
}

func tableLine(cells []string, widths []int) string {
	parts := make([]string, len(cells))
	for i, cell := range cells {
		cell = truncate(cell, widths[i])
		if i < len(cells)-1 {
			cell = padRight(cell, widths[i])
		}
		parts[i] = cell
	}
	return strings.Join(parts, "  ")
}

// truncate shortens s to width display cells, marking the cut.
func truncate(s string, width int) string {
	return runewidth.Truncate(s, width, "…")
}

func padRight(s string, width int) string {
	return runewidth.FillRight(s, width)
}

// formatDuration renders a duration the way humans scan it: 420ms,
// 2.5s, 1m05s. Zero and negative collapse to a dash.
func formatDuration(d time.Duration) string {
	switch {
	case d <= 0:
		return "-"
	case d < time.Second:
		return fmt.Sprintf("%dms", d.Milliseconds())
	case d < time.Minute:
		return fmt.Sprintf("%.1fs", d.Seconds())
	default:
		return fmt.Sprintf("%dm%02ds", int(d.Minutes()), int(d.Seconds())%60)
	}
}

// formatTokens keeps large token counts scannable.
func formatTokens(n int64) string {
	if n >= 10000 {
		return fmt.Sprintf("%.1fk", float64(n)/1000)
	}
	return fmt.Sprintf("%d", n)
}

// firstLine returns the first non-blank line of s, trimmed.
func firstLine(s string) string {
	for _, line := range strings.Split(s, "\n") {
		if t := strings.TrimSpace(line); t != "" {
			return t
		}
	}
	return ""
}

// callTitle names a call by what it runs, without a kind marker.
func callTitle(c engine.PendingCall) string {
	switch c.Kind {
	case engine.CallKindExec:
		return strings.Join(c.Meta.Command, " ")
	case engine.CallKindMCPTool:
		return c.Meta.Invocation.Server + "/" + c.Meta.Invocation.Tool
	case engine.CallKindPatchApply:
		return fmt.Sprintf("%d file(s)", len(c.Meta.Changes))
	default:
		return c.CallID
	}
}

// callLabel is callTitle with a kind marker, for narrative lines.
func callLabel(c engine.PendingCall) string {
	switch c.Kind {
	case engine.CallKindExec:
		return "$ " + callTitle(c)
	case engine.CallKindMCPTool:
		return "tool " + callTitle(c)
	case engine.CallKindPatchApply:
		return "patch " + callTitle(c)
	default:
		return c.CallID
	}
}

// approvalLabel names what an approval request wants to do.
func approvalLabel(req engine.ApprovalRequest) string {
	switch req.Kind {
	case engine.ApprovalExec:
		return "$ " + strings.Join(req.Command, " ")
	case engine.ApprovalPatch:
		return fmt.Sprintf("patch %d file(s)", len(req.Changes))
	default:
		return req.CallID
	}
}
