package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/pipeline"
	"github.com/dgnsrekt/narrator/ui"
	"github.com/spf13/cobra"
)

// runJob opens a session, runs job with the progress view or plain log
// lines, and prints the report.
func runJob(cmd *cobra.Command, cfg tts.Config, job *pipeline.Job) (*pipeline.Result, error) {
	uiCfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return nil, fmt.Errorf("error parsing config: %v", err)
	}
	uiCfg.Plain = uiCfg.Plain || plain
	if uiCfg.Width == 0 {
		uiCfg.Width = int(width) //nolint:gosec
	}
	if err := validateStyle(uiCfg.GlamourStyle); err != nil || uiCfg.GlamourStyle == "" {
		uiCfg.GlamourStyle = style
	}

	session, err := pipeline.OpenSession(cfg)
	if err != nil {
		return nil, err
	}
	defer session.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	if err := session.Watch(ctx); err != nil {
		log.Debug("dictionary not watched", "err", err)
	}

	var res *pipeline.Result
	interactive := ui.Interactive(uiCfg)
	log.Debug("running job", "job", job.ID, "engine", session.Engine().Name(), "interactive", interactive)
	if interactive {
		bridge := ui.NewBridge()
		c := pipeline.NewController(session, bridge, bridge)
		res, err = ui.Run(ctx, uiCfg, c, bridge, job)
	} else {
		observer := &ui.LogObserver{Step: 10, Logger: consoleLogger()}
		c := pipeline.NewController(session, observer, ui.NewStdinPrompter(os.Stdin, os.Stderr))
		res, err = c.Run(ctx, job)
	}
	if err != nil {
		return nil, err
	}

	out, err := ui.RenderReport(res, uiCfg.GlamourStyle, uiCfg.Width)
	if err != nil {
		return res, err
	}
	fmt.Fprint(cmd.OutOrStdout(), out) //nolint:errcheck
	return res, nil
}

// defaultOutput names the output after the input file.
func defaultOutput(input string) string {
	if input == "" || input == "-" {
		return "narration.wav"
	}
	base := filepath.Base(input)
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".wav"
}
