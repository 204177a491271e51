package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/dgnsrekt/narrator/internal/history"
	"github.com/dgnsrekt/narrator/tts/pipeline"
	"github.com/dgnsrekt/narrator/ui"
	"github.com/spf13/cobra"
)

var (
	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "List recent outputs",
		Long:  paragraph(fmt.Sprintf("\nThe %d most recent outputs, newest first.", history.Limit)),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cmd, func(s *history.Store) error {
				entries, err := s.List(cmd.Context())
				if err != nil {
					return err //nolint:wrapcheck
				}
				fmt.Print(ui.RenderHistory(entries, int(width))) //nolint:gosec
				return nil
			})
		},
	}

	historyOpenCmd = &cobra.Command{
		Use:     "open N",
		Short:   "Print the path of the Nth most recent output",
		Example: paragraph("mpv \"$(narrator history open 1)\""),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("%q is not a number", args[0])
			}
			return withHistory(cmd, func(s *history.Store) error {
				e, err := s.Get(cmd.Context(), n)
				if errors.Is(err, history.ErrNotFound) {
					return fmt.Errorf("no output #%d: history holds at most %d", n, history.Limit)
				}
				if err != nil {
					return err //nolint:wrapcheck
				}
				fmt.Println(e.Path)
				return nil
			})
		},
	}

	historyClearCmd = &cobra.Command{
		Use:   "clear",
		Short: "Forget all recent outputs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withHistory(cmd, func(s *history.Store) error {
				if err := s.Clear(cmd.Context()); err != nil {
					return err //nolint:wrapcheck
				}
				fmt.Println("History cleared.")
				return nil
			})
		},
	}
)

func withHistory(cmd *cobra.Command, fn func(*history.Store) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	s, err := history.Open(pipeline.HistoryPath(cfg))
	if err != nil {
		return err //nolint:wrapcheck
	}
	defer s.Close() //nolint:errcheck
	return fn(s)
}

func init() {
	historyCmd.AddCommand(historyOpenCmd, historyClearCmd)
}
