package piper

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/audio"
)

// fakePiper writes a shell script standing in for the synthesizer. It copies
// a fixture WAV to the --output_file argument and records its arguments.
func fakePiper(t *testing.T, body string) (tts.PiperConfig, string) {
	t.Helper()
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	dir := t.TempDir()
	fixture := filepath.Join(dir, "fixture.wav")
	if err := audio.WriteWAV(fixture, audio.Silence(time.Second, audio.DefaultSampleRate)); err != nil {
		t.Fatal(err)
	}
	argsFile := filepath.Join(dir, "args.txt")

	script := "#!/bin/sh\n" +
		"echo \"$@\" > " + argsFile + "\n" +
		"cat > " + filepath.Join(dir, "stdin.txt") + "\n" +
		strings.ReplaceAll(body, "FIXTURE", fixture)
	bin := filepath.Join(dir, "fake-piper")
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatal(err)
	}

	cfg := tts.DefaultPiperConfig()
	cfg.Binary = bin
	cfg.Model = "ru.onnx"
	cfg.Timeout = 10 * time.Second
	return cfg, dir
}

const copyOutput = `while [ $# -gt 0 ]; do
  if [ "$1" = "--output_file" ]; then cp FIXTURE "$2"; fi
  shift
done
`

func TestSynthesize(t *testing.T) {
	cfg, dir := fakePiper(t, copyOutput)
	engine, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	scratch := t.TempDir()
	ctx := tts.WithTempDir(context.Background(), scratch)
	buf, err := engine.Synthesize(ctx, "привет", "2")
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if buf.Duration() != time.Second {
		t.Errorf("Duration() = %v, want 1s", buf.Duration())
	}

	args, _ := os.ReadFile(filepath.Join(dir, "args.txt"))
	if !strings.Contains(string(args), "--model ru.onnx") || !strings.Contains(string(args), "--speaker 2") {
		t.Errorf("args = %q", args)
	}
	stdin, _ := os.ReadFile(filepath.Join(dir, "stdin.txt"))
	if string(stdin) != "привет\n" {
		t.Errorf("stdin = %q", stdin)
	}

	// The per-call output file is removed afterwards.
	left, _ := os.ReadDir(scratch)
	if len(left) != 0 {
		t.Errorf("scratch dir not cleaned: %v", left)
	}
}

func TestSynthesizeWithoutSpeakerFlag(t *testing.T) {
	cfg, dir := fakePiper(t, copyOutput)
	cfg.SpeakerFlag = ""
	cfg.ExtraArgs = []string{"--length_scale", "1.1"}
	engine, err := New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := engine.Synthesize(context.Background(), "текст", "2"); err != nil {
		t.Fatal(err)
	}
	args, _ := os.ReadFile(filepath.Join(dir, "args.txt"))
	if strings.Contains(string(args), "--speaker") || !strings.HasSuffix(strings.TrimSpace(string(args)), "--length_scale 1.1") {
		t.Errorf("args = %q", args)
	}
}

func TestSynthesizeFailure(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"exit status", "echo 'model not found' >&2\nexit 1\n", "model not found"},
		{"no output", "exit 0\n", "no output"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, _ := fakePiper(t, tt.body)
			engine, err := New(cfg)
			if err != nil {
				t.Fatal(err)
			}
			_, err = engine.Synthesize(context.Background(), "текст", "2")
			if !errors.Is(err, tts.ErrSynthesis) {
				t.Fatalf("error = %v, want ErrSynthesis", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want it to mention %q", err, tt.want)
			}
		})
	}
}

func TestNewMissingBinary(t *testing.T) {
	cfg := tts.DefaultPiperConfig()
	cfg.Binary = filepath.Join(t.TempDir(), "no-such-piper")
	if _, err := New(cfg); !errors.Is(err, ErrBinaryNotFound) {
		t.Errorf("New() error = %v, want ErrBinaryNotFound", err)
	}
	cfg.Binary = ""
	if _, err := New(cfg); !errors.Is(err, ErrBinaryNotFound) {
		t.Errorf("New() error = %v, want ErrBinaryNotFound", err)
	}
}
