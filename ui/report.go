package ui

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/narrator/internal/history"
	"github.com/dgnsrekt/narrator/tts/pipeline"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
)

// ReportMarkdown describes a finished job as markdown.
func ReportMarkdown(res *pipeline.Result) string {
	var b strings.Builder
	b.WriteString("# Done\n\n")

	if res.Output != "" {
		fmt.Fprintf(&b, "- **Output:** `%s`", res.Output)
		if st, err := os.Stat(res.Output); err == nil {
			fmt.Fprintf(&b, " (%s)", humanize.Bytes(uint64(st.Size()))) //nolint:gosec
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "- **Length:** %s", formatDuration(res.Duration))
	if res.Budget > 0 {
		fmt.Fprintf(&b, " of %s allowed", formatDuration(res.Budget))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "- **Speed:** %.1fx\n", res.Speed)

	unit := "chunks"
	if res.Mode == pipeline.ModeSubtitle {
		unit = "cues"
	}
	fmt.Fprintf(&b, "- **Skipped:** %d of %s %s\n", res.Skipped, humanize.Comma(int64(res.Total)), unit)
	if res.Elapsed > 0 {
		fmt.Fprintf(&b, "- **Took:** %s\n", res.Elapsed.Round(time.Second))
	}

	if len(res.Warnings) > 0 {
		b.WriteString("\n## Warnings\n\n")
		for _, w := range res.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}
	return b.String()
}

// RenderReport renders the job report with glamour. style is a glamour style
// name or path; "notty" produces plain text.
func RenderReport(res *pipeline.Result, style string, width int) (string, error) {
	return renderMarkdown(ReportMarkdown(res), style, width)
}

func renderMarkdown(md, style string, width int) (string, error) {
	if style == "" {
		style = styles.AutoStyle
	}
	if width <= 0 {
		width = 80
	}
	opts := []glamour.TermRendererOption{glamour.WithWordWrap(width)}
	if _, ok := styles.DefaultStyles[style]; ok || style == styles.AutoStyle {
		opts = append(opts, glamour.WithStandardStyle(style), glamour.WithColorProfile(lipgloss.ColorProfile()))
	} else {
		opts = append(opts, glamour.WithStylePath(style))
	}

	r, err := glamour.NewTermRenderer(opts...)
	if err != nil {
		return "", fmt.Errorf("unable to create renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("unable to render markdown: %w", err)
	}
	return out, nil
}

// RenderHistory lists history entries, newest first, numbered from 1.
func RenderHistory(entries []history.Entry, width int) string {
	if len(entries) == 0 {
		return grayStyle.Render("No outputs yet.") + "\n"
	}
	if width <= 0 {
		width = 80
	}

	const meta = 28 // "  1  subtitle  12:34  2 hours ago"
	pathWidth := max(width-meta, 16)

	var b strings.Builder
	for i, e := range entries {
		path := e.Path
		if runewidth.StringWidth(path) > pathWidth {
			// Keep the file name visible.
			path = ellipsis + reverse(truncate.String(reverse(path), uint(pathWidth-1))) //nolint:gosec
		}
		fmt.Fprintf(&b, "%2d  %-8s  %5s  %s\n     %s\n",
			i+1,
			e.Mode,
			formatDuration(e.Duration),
			grayStyle.Render(humanize.Time(e.CreatedAt)),
			path,
		)
	}
	return b.String()
}

func reverse(s string) string {
	r := []rune(s)
	for i, j := 0, len(r)-1; i < j; i, j = i+1, j-1 {
		r[i], r[j] = r[j], r[i]
	}
	return string(r)
}
