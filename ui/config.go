package ui

import "time"

// Config contains progress view settings read from the environment.
type Config struct {
	GlamourStyle string `env:"GLAMOUR_STYLE"`
	Width        int    `env:"NARRATOR_WIDTH"`

	// Plain forces log lines and stdin prompts even on a terminal.
	Plain bool `env:"NARRATOR_PLAIN"`

	// Refresh is how often the view polls job progress.
	Refresh time.Duration `env:"NARRATOR_UI_REFRESH" envDefault:"100ms"`
}
