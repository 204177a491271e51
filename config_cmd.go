package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/dgnsrekt/narrator/tts"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const defaultConfig = `# report style name or JSON path (default "auto")
style: "auto"
# word-wrap reports at width
width: 80
# log progress instead of showing the progress view
plain: false

tts:
  # engine: piper, remote, gtts or mock
  engine: "piper"
  # engine to switch to after repeated failures (optional)
  # fallback: "mock"
  # speaker id passed to the engine
  voice: "2"
  sample_rate: 22050
  # playback volume (0.0 to 2.0)
  volume: 1.0
  # used for every output format except .wav
  ffmpeg: "ffmpeg"
  bitrate: "192k"

  # initial speed and the caps the fitting search may reach
  speed: 1.0
  max_speed_text: 2.0
  max_speed_subtitle: 1.4
  speed_step: 0.1
  # ask before keeping a dub when more cues than this were silenced
  skip_ratio: 0.1
  # ask whether to keep going after this long (0 disables)
  prompt_after: "5m"

  # dictionary, history and cache live here (default: user data dir)
  # data_dir: "~/.local/share/narrator"
  # dictionary: "~/.local/share/narrator/dictionary.txt"

  segment:
    threshold: 1000
    max_chunk: 500

  cache:
    enabled: true
    memory_mb: 32
    disk_mb: 512
    ttl: "168h"

  piper:
    binary: "piper"
    model: "ru_RU-irina-medium"
    speaker_flag: "--speaker"
    # extra_args: ["--length_scale", "1.0"]
    timeout: "60s"

  remote:
    url: "http://localhost:8880/v1"
    # api_key: ""
    model: "tts-1"
    requests_per_minute: 60
    timeout: "60s"

  # Google Translate voices through gtts-cli (needs network and ffmpeg)
  gtts:
    binary: "gtts-cli"
    language: "ru"
    slow: false
    requests_per_minute: 50
    timeout: "30s"

  mock:
    words_per_minute: 150
    delay: "0s"
`

var configCmd = &cobra.Command{
	Use:     "config",
	Hidden:  false,
	Short:   "Edit the narrator config file",
	Long:    paragraph(fmt.Sprintf("\n%s the narrator config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
	Example: paragraph("narrator config\nnarrator config --config path/to/config.yml\nnarrator config check"),
	Args:    cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}

		c, err := editor.Cmd("Narrator", configFile)
		if err != nil {
			return fmt.Errorf("unable to set config file: %w", err)
		}
		c.Stdin = os.Stdin
		c.Stdout = os.Stdout
		c.Stderr = os.Stderr
		if err := c.Run(); err != nil {
			return fmt.Errorf("unable to run command: %w", err)
		}

		fmt.Println("Wrote config file to:", configFile)
		return nil
	},
}

var configCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the config file",
	Args:  cobra.NoArgs,
	RunE: func(*cobra.Command, []string) error {
		if err := ensureConfigFile(); err != nil {
			return err
		}
		cfg, err := tts.LoadConfigFile(configFile)
		if err != nil {
			return fmt.Errorf("%s: %w", configFile, err)
		}
		fmt.Printf("%s is valid (engine %s, voice %s)\n", configFile, keyword(cfg.Engine), cfg.Voice)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configCheckCmd)
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
