package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dgnsrekt/narrator/tts"
	"github.com/mattn/go-runewidth"
	"github.com/muesli/reflow/truncate"
)

// StatusDisplay renders the state of a narration job.
type StatusDisplay struct {
	state        tts.StateType
	progress     tts.Progress
	warnings     int
	errorMessage string
}

// NewStatusDisplay creates a new status display.
func NewStatusDisplay() *StatusDisplay {
	return &StatusDisplay{state: tts.StateIdle}
}

// Update records the latest state and progress.
func (s *StatusDisplay) Update(state tts.StateType, p tts.Progress) {
	s.state = state
	s.progress = p
}

// SetWarnings records how many warnings the job has raised.
func (s *StatusDisplay) SetWarnings(n int) { s.warnings = n }

// SetError records the error the job ended with.
func (s *StatusDisplay) SetError(err error) {
	if err == nil {
		s.errorMessage = ""
		return
	}
	s.errorMessage = err.Error()
}

// CompactStatus returns a one-line status, at most width cells wide.
func (s *StatusDisplay) CompactStatus(width int) string {
	if s.state == tts.StateIdle {
		return ""
	}

	status := lipgloss.NewStyle().
		Foreground(s.stateColor()).
		Render(fmt.Sprintf("%s %s", s.stateIcon(), s.state))

	if s.progress.Total > 0 && s.state.IsActive() {
		status += grayStyle.Render(fmt.Sprintf(" %d/%d", s.progress.Done, s.progress.Total))
		if s.progress.Skipped > 0 {
			status += warningStyle.Render(fmt.Sprintf(" %d skipped", s.progress.Skipped))
		}
	}
	if s.warnings > 0 {
		status += warningStyle.Render(fmt.Sprintf(" ⚠ %d", s.warnings))
	}
	if s.errorMessage != "" {
		status += " " + errorStyle.Render(s.errorMessage)
	}
	if width > 0 && lipgloss.Width(status) > width {
		status = truncate.StringWithTail(status, uint(width), ellipsis) //nolint:gosec
	}
	return status
}

// Label describes the current stage for the line above the progress bar.
func (s *StatusDisplay) Label(width int) string {
	var label string
	switch s.progress.Stage {
	case tts.StageSynthesize:
		label = "Synthesizing"
	case tts.StageFit:
		label = "Fitting to length"
	case tts.StageExport:
		label = "Writing " + s.progress.Message
	default:
		label = "Preparing"
	}
	if width > 0 && runewidth.StringWidth(label) > width {
		label = runewidth.Truncate(label, width, ellipsis)
	}
	return label
}

// Fraction is the progress as a value between 0 and 1.
func (s *StatusDisplay) Fraction() float64 {
	return min(max(s.progress.Percent/100, 0), 1)
}

func (s *StatusDisplay) stateColor() lipgloss.Color {
	switch s.state {
	case tts.StatePreparing:
		return lipgloss.Color("#00AAFF")
	case tts.StateSynthesizing, tts.StateFitting, tts.StateExporting:
		return lipgloss.Color("#00FF00")
	case tts.StateDone:
		return lipgloss.Color("#888888")
	case tts.StateFailed:
		return lipgloss.Color("#FF0000")
	case tts.StateAborted:
		return lipgloss.Color("#FF8800")
	default:
		return lipgloss.Color("#666666")
	}
}

func (s *StatusDisplay) stateIcon() string {
	switch s.state {
	case tts.StatePreparing:
		return "⟳"
	case tts.StateSynthesizing, tts.StateFitting, tts.StateExporting:
		return "▶"
	case tts.StateDone:
		return "■"
	case tts.StateFailed:
		return "✗"
	case tts.StateAborted:
		return "◼"
	default:
		return "○"
	}
}

// formatDuration formats a duration as m:ss.
func formatDuration(d time.Duration) string {
	if d < 0 {
		return "0:00"
	}
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d", minutes, seconds)
}

// indent prefixes every line of s with n spaces.
func indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}
