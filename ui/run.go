// Package ui shows the progress of a narration job and asks the user at its
// checkpoints, either in a terminal view or on plain standard streams.
package ui

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/narrator/tts/pipeline"
	"golang.org/x/term"
)

// Interactive reports whether the terminal view can be used.
func Interactive(cfg Config) bool {
	return !cfg.Plain &&
		term.IsTerminal(int(os.Stdin.Fd())) &&
		term.IsTerminal(int(os.Stderr.Fd()))
}

// Run starts job on c and shows its progress until it ends. The controller
// must have been created with bridge as its observer and prompter.
func Run(ctx context.Context, cfg Config, c *pipeline.Controller, bridge *Bridge, job *pipeline.Job) (*pipeline.Result, error) {
	defer bridge.Close()
	if err := c.Start(ctx, job); err != nil {
		return nil, err
	}

	log.Debug("starting progress view", "job", job.ID, "refresh", cfg.Refresh)
	p := tea.NewProgram(newModel(cfg, c, bridge), tea.WithOutput(os.Stderr), tea.WithContext(ctx))
	final, err := p.Run()
	if err != nil {
		bridge.Close()
		c.Cancel()
		_, _ = c.Wait()
		return nil, fmt.Errorf("unable to run progress view: %w", err)
	}

	if m, ok := final.(model); ok && m.done {
		return m.result, m.err
	}
	return c.Wait()
}
