package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/x/editor"
	"github.com/dgnsrekt/narrator/tts/normalize"
	"github.com/dgnsrekt/narrator/tts/pipeline"
	"github.com/mattn/go-runewidth"
	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"
)

var (
	dictCmd = &cobra.Command{
		Use:   "dict",
		Short: "Maintain the pronunciation dictionary",
		Long: paragraph(fmt.Sprintf("\nThe %s replaces words before synthesis. Each line of the file reads "+
			"\"key: value\"; rules apply in file order.", keyword("pronunciation dictionary"))),
		Args: cobra.NoArgs,
	}

	dictListCmd = &cobra.Command{
		Use:   "list",
		Short: "List dictionary entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openDictionary(cmd)
			if err != nil {
				return err
			}
			entries := s.Dictionary().Entries()
			if len(entries) == 0 {
				fmt.Println(faint("The dictionary at " + s.DictionaryPath() + " is empty."))
				return nil
			}
			printEntries(entries)
			return nil
		},
	}

	dictSetCmd = &cobra.Command{
		Use:     "set KEY VALUE",
		Short:   "Add or replace an entry",
		Example: paragraph("narrator dict set ГОСТ \"гост\""),
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := strings.TrimSpace(args[0])
			if key == "" || strings.Contains(key, ":") {
				return fmt.Errorf("invalid key %q: must be non-empty and contain no colon", args[0])
			}
			s, err := openDictionary(cmd)
			if err != nil {
				return err
			}
			if err := s.SetEntry(key, strings.TrimSpace(args[1])); err != nil {
				return err //nolint:wrapcheck
			}
			fmt.Printf("%s → %s\n", keyword(key), strings.TrimSpace(args[1]))
			return nil
		},
	}

	dictDeleteCmd = &cobra.Command{
		Use:     "delete KEY",
		Aliases: []string{"rm"},
		Short:   "Remove an entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openDictionary(cmd)
			if err != nil {
				return err
			}
			ok, err := s.DeleteEntry(args[0])
			if err != nil {
				return err //nolint:wrapcheck
			}
			if !ok {
				return fmt.Errorf("no entry for %q", args[0])
			}
			fmt.Println("Removed", keyword(args[0]))
			return nil
		},
	}

	dictEditCmd = &cobra.Command{
		Use:   "edit",
		Short: "Open the dictionary in EDITOR",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openDictionary(cmd)
			if err != nil {
				return err
			}
			path := s.DictionaryPath()
			if _, err := os.Stat(path); os.IsNotExist(err) {
				if err := s.Dictionary().Save(path); err != nil {
					return err //nolint:wrapcheck
				}
			}

			c, err := editor.Cmd("Narrator", path)
			if err != nil {
				return fmt.Errorf("unable to set dictionary file: %w", err)
			}
			c.Stdin = os.Stdin
			c.Stdout = os.Stdout
			c.Stderr = os.Stderr
			if err := c.Run(); err != nil {
				return fmt.Errorf("unable to run command: %w", err)
			}

			if err := s.ReloadDictionary(); err != nil {
				return err //nolint:wrapcheck
			}
			fmt.Printf("Wrote %d entries to: %s\n", s.Dictionary().Len(), path)
			return nil
		},
	}

	dictFindCmd = &cobra.Command{
		Use:   "find QUERY",
		Short: "Fuzzy-search keys and values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openDictionary(cmd)
			if err != nil {
				return err
			}
			found := findEntries(s.Dictionary(), args[0])
			if len(found) == 0 {
				fmt.Println(faint("No matches."))
				return nil
			}
			printEntries(found)
			return nil
		},
	}
)

// openDictionary opens a session that can only maintain the dictionary, so
// no engine has to be available.
func openDictionary(cmd *cobra.Command) (*pipeline.Session, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	dict, err := normalize.LoadDictionary(pipeline.DictionaryPath(cfg))
	if err != nil {
		return nil, err //nolint:wrapcheck
	}
	return pipeline.NewSession(cfg, nil, dict, nil), nil
}

// entrySource lets fuzzy search "key: value" lines.
type entrySource []normalize.Entry

func (e entrySource) String(i int) string { return e[i].Key + ": " + e[i].Value }
func (e entrySource) Len() int            { return len(e) }

// findEntries returns entries matching query, best match first.
func findEntries(d *normalize.Dictionary, query string) []normalize.Entry {
	entries := entrySource(d.Entries())
	matches := fuzzy.FindFrom(query, entries)
	out := make([]normalize.Entry, len(matches))
	for i, m := range matches {
		out[i] = entries[m.Index]
	}
	return out
}

func printEntries(entries []normalize.Entry) {
	keyWidth := 0
	for _, e := range entries {
		keyWidth = max(keyWidth, runewidth.StringWidth(e.Key))
	}
	keyWidth = min(keyWidth, 32)
	for _, e := range entries {
		key := runewidth.FillRight(runewidth.Truncate(e.Key, keyWidth, "…"), keyWidth)
		fmt.Printf("  %s  %s\n", keyword(key), e.Value)
	}
}

func init() {
	dictCmd.AddCommand(dictListCmd, dictSetCmd, dictDeleteCmd, dictEditCmd, dictFindCmd)
}
