// Package main provides the entry point for the narrator CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/glamour/styles"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/narrator/tts"
	homedir "github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/muesli/termenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	style      string
	width      uint
	plain      bool

	engineName string
	voice      string
	speed      float64

	rootCmd = &cobra.Command{
		Use:   "narrator",
		Short: "Read text aloud and dub subtitles",
		Long: paragraph(
			fmt.Sprintf("\nTurn text into speech and subtitle tracks into %s.", keyword("timed voice-overs")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.NoArgs,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
	}
)

// validateStyle checks if the style is a default style, if not, checks that
// the custom style exists.
func validateStyle(style string) error {
	if style != styles.AutoStyle && styles.DefaultStyles[style] == nil {
		style = expandPath(style)
		if _, err := os.Stat(style); errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("specified style does not exist: %s", style)
		} else if err != nil {
			return fmt.Errorf("unable to stat file: %w", err)
		}
	}
	return nil
}

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(expandPath(configFile))
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file: %w", err)
		}
	}

	width = viper.GetUint("width")
	plain = viper.GetBool("plain")

	style = viper.GetString("style")
	if err := validateStyle(style); err != nil {
		return err
	}

	isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
	// Reports written to a pipe or file get the no-TTY style unless a
	// style was asked for explicitly.
	if !isTerminal && !cmd.Flags().Changed("style") {
		style = styles.NoTTYStyle
	}
	if style == styles.AutoStyle {
		if termenv.HasDarkBackground() {
			style = styles.DarkStyle
		} else {
			style = styles.LightStyle
		}
	}

	if !cmd.Flags().Changed("width") { //nolint:nestif
		if isTerminal && width == 0 {
			w, _, err := term.GetSize(int(os.Stdout.Fd()))
			if err == nil {
				width = uint(w) //nolint:gosec
			}
			if width > 120 {
				width = 120
			}
		}
		if width == 0 {
			width = 80
		}
	}
	return nil
}

// loadConfig resolves narration settings: defaults, then the config file,
// then NARRATOR_* variables, then command-line flags.
func loadConfig(cmd *cobra.Command) (tts.Config, error) {
	cfg, err := tts.LoadConfigFromViper()
	if err != nil {
		return cfg, err
	}
	if err := tts.ApplyEnv(&cfg); err != nil {
		return cfg, err
	}

	flags := cmd.Flags()
	if flags.Changed("engine") {
		cfg.Engine = engineName
	}
	if flags.Changed("voice") {
		cfg.Voice = voice
	}
	if flags.Changed("speed") {
		cfg.Speed = speed
	}

	if cfg.DataDir == "" {
		dir, err := gap.NewScope(gap.User, "narrator").DataPath("")
		if err != nil {
			return cfg, fmt.Errorf("unable to find data directory: %w", err)
		}
		cfg.DataDir = dir
	}
	cfg.DataDir = expandPath(cfg.DataDir)
	cfg.Dictionary = expandPath(cfg.Dictionary)
	cfg.Cache.Dir = expandPath(cfg.Cache.Dir)
	cfg.Piper.Model = expandPath(cfg.Piper.Model)

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	log.Debug("configuration loaded", "engine", cfg.Engine, "fallback", cfg.Fallback, "data", cfg.DataDir)
	return cfg, nil
}

// expandPath expands a leading ~ and environment variables.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if p, err := homedir.Expand(os.ExpandEnv(path)); err == nil {
		return p
	}
	return path
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err = rootCmd.ExecuteContext(ctx)
	stop()
	_ = closer()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	flags.StringVarP(&style, "style", "s", styles.AutoStyle, "report style name or JSON path")
	flags.UintVarP(&width, "width", "w", 0, "word-wrap reports at width")
	flags.BoolVar(&plain, "plain", false, "log progress instead of showing the progress view")
	flags.StringVarP(&engineName, "engine", "e", "", fmt.Sprintf("synthesis engine (%s)", strings.Join(tts.Engines, ", ")))
	flags.StringVar(&voice, "voice", "", "speaker id passed to the engine")
	flags.Float64Var(&speed, "speed", 0, "initial speech speed")

	_ = viper.BindPFlag("style", flags.Lookup("style"))
	_ = viper.BindPFlag("width", flags.Lookup("width"))
	_ = viper.BindPFlag("plain", flags.Lookup("plain"))

	viper.SetDefault("style", styles.AutoStyle)
	viper.SetDefault("width", 0)
	viper.SetDefault("plain", false)
	tts.SetDefaults()

	rootCmd.AddCommand(speakCmd, dubCmd, dictCmd, historyCmd, configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "narrator")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "narrator")}, dirs...)
	}

	if c := os.Getenv("NARRATOR_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("narrator")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("narrator")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "narrator.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
