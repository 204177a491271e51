package ui

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/pipeline"
)

const maxBarWidth = 60

// jobController is the part of pipeline.Controller the view uses.
type jobController interface {
	State() tts.StateType
	Progress() tts.Progress
	Cancel()
	Wait() (*pipeline.Result, error)
}

type model struct {
	cfg        Config
	controller jobController
	bridge     *Bridge

	status   *StatusDisplay
	progress progress.Model
	spinner  spinner.Model
	width    int

	prompt     *promptMsg
	cancelling bool

	done   bool
	result *pipeline.Result
	err    error
}

func newModel(cfg Config, c jobController, bridge *Bridge) model {
	if cfg.Refresh <= 0 {
		cfg.Refresh = 100 * time.Millisecond
	}
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = maxBarWidth
	if cfg.Width > 0 {
		bar.Width = min(cfg.Width-4, maxBarWidth)
	}
	return model{
		cfg:        cfg,
		controller: c,
		bridge:     bridge,
		status:     NewStatusDisplay(),
		progress:   bar,
		spinner:    sp,
		width:      cfg.Width,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		tick(m.cfg.Refresh),
		m.bridge.waitForPrompt(),
		waitForJob(m.controller),
	)
}

func tick(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func waitForJob(c jobController) tea.Cmd {
	return func() tea.Msg {
		res, err := c.Wait()
		return jobDoneMsg{result: res, err: err}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(min(msg.Width-4, maxBarWidth), 10)
		return m, nil

	case tea.KeyMsg:
		if m.prompt != nil {
			switch strings.ToLower(msg.String()) {
			case "y", "д":
				return m.answer(true)
			case "n", "т", "enter", "esc":
				return m.answer(false)
			case "ctrl+c":
				m.controller.Cancel()
				m.cancelling = true
				return m.answer(false)
			}
			return m, nil
		}
		switch msg.String() {
		case "ctrl+c", "q", "esc":
			m.controller.Cancel()
			m.cancelling = true
		}
		return m, nil

	case tickMsg:
		m.refresh()
		return m, tea.Batch(m.progress.SetPercent(m.status.Fraction()), tick(m.cfg.Refresh))

	case promptMsg:
		m.prompt = &msg
		return m, nil

	case jobDoneMsg:
		m.done = true
		m.result, m.err = msg.result, msg.err
		m.refresh()
		if msg.err != nil && !errors.Is(msg.err, tts.ErrUserAbort) {
			m.status.SetError(msg.err)
		}
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		m.progress = pm.(progress.Model)
		return m, cmd
	}
	return m, nil
}

func (m model) answer(ok bool) (tea.Model, tea.Cmd) {
	m.prompt.reply <- ok
	m.prompt = nil
	return m, m.bridge.waitForPrompt()
}

func (m model) refresh() {
	m.status.Update(m.controller.State(), m.controller.Progress())
	m.status.SetWarnings(len(m.bridge.Warnings()))
}

func (m model) View() string {
	if m.done {
		if line := m.status.CompactStatus(m.width); line != "" {
			return indent(line, 2) + "\n"
		}
		return ""
	}

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(indent(m.spinner.View()+" "+m.status.Label(m.width-6), 2))
	b.WriteString("\n\n")
	b.WriteString(indent(m.progress.View(), 2))
	b.WriteString("\n\n")
	if line := m.status.CompactStatus(m.width - 2); line != "" {
		b.WriteString(indent(line, 2))
		b.WriteString("\n")
	}

	switch {
	case m.prompt != nil:
		b.WriteString("\n")
		b.WriteString(indent(promptStyle.Render(m.prompt.question)+" "+helpStyle.Render("[y/N]"), 2))
		b.WriteString("\n")
	case m.cancelling:
		b.WriteString(indent(helpStyle.Render("cancelling after the current fragment…"), 2))
		b.WriteString("\n")
	default:
		b.WriteString(indent(helpStyle.Render("q: cancel"), 2))
		b.WriteString("\n")
	}
	return b.String()
}
