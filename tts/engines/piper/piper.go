// Package piper runs a local command-line synthesizer (Piper or a compatible
// CLI) once per utterance.
package piper

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/audio"
	"github.com/google/uuid"
)

// ErrBinaryNotFound is returned when the synthesizer binary cannot be located.
var ErrBinaryNotFound = errors.New("piper binary not found")

// PiperEngine starts a fresh process for each request. The process reads the
// utterance on stdin and writes a WAV file.
type PiperEngine struct {
	binary string
	config tts.PiperConfig
}

// New creates an engine from configuration, resolving the binary path.
func New(config tts.PiperConfig) (*PiperEngine, error) {
	if config.Binary == "" {
		return nil, ErrBinaryNotFound
	}
	binary := findBinary(config.Binary)
	if binary == "" {
		return nil, fmt.Errorf("%w: %s", ErrBinaryNotFound, config.Binary)
	}
	return &PiperEngine{binary: binary, config: config}, nil
}

// Name implements tts.Engine.
func (e *PiperEngine) Name() string { return "piper" }

// Close implements tts.Engine. There is no long-running process to stop.
func (e *PiperEngine) Close() error { return nil }

// Synthesize implements tts.Engine.
func (e *PiperEngine) Synthesize(ctx context.Context, text, voice string) (*audio.Buffer, error) {
	out := filepath.Join(tts.TempDir(ctx), "piper-"+uuid.NewString()+".wav")
	defer os.Remove(out)

	if e.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.config.Timeout)
		defer cancel()
	}

	args := e.args(out, voice)
	log.Debug("running synthesizer", "binary", e.binary, "args", args, "chars", len(text))

	cmd := exec.CommandContext(ctx, e.binary, args...)
	cmd.Stdin = strings.NewReader(text + "\n")
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, fmt.Errorf("%w: piper: %s", tts.ErrSynthesis, msg)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("%w: piper wrote no output: %w", tts.ErrSynthesis, err)
	}
	buf, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("%w: piper: %w", tts.ErrSynthesis, err)
	}
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: piper: no audio generated", tts.ErrSynthesis)
	}
	return buf, nil
}

func (e *PiperEngine) args(out, voice string) []string {
	args := []string{"--model", e.config.Model, "--output_file", out}
	if voice != "" && e.config.SpeakerFlag != "" {
		args = append(args, e.config.SpeakerFlag, voice)
	}
	return append(args, e.config.ExtraArgs...)
}

// findBinary resolves name through PATH and the usual install locations.
func findBinary(name string) string {
	locations := []string{name}
	if !strings.ContainsRune(name, filepath.Separator) {
		locations = append(locations, filepath.Join("/usr/local/bin", name), filepath.Join("/usr/bin", name))
		if home, err := os.UserHomeDir(); err == nil {
			locations = append(locations,
				filepath.Join(home, ".local", "bin", name),
				filepath.Join(home, "bin", name),
			)
		}
	}

	for _, loc := range locations {
		if path, err := exec.LookPath(loc); err == nil {
			return path
		}
	}
	return ""
}
