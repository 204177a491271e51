// Package gtts synthesizes speech with gtts-cli (Google Translate voices)
// and decodes its MP3 output with ffmpeg.
package gtts

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/audio"
	"golang.org/x/time/rate"
)

// maxTextSize is the longest utterance the service accepts.
const maxTextSize = 5000

// ErrBinaryNotFound is returned when gtts-cli or ffmpeg cannot be located.
var ErrBinaryNotFound = errors.New("binary not found")

// GTTSEngine runs gtts-cli once per utterance. Requests are rate limited to
// avoid being blocked by the service. The voice id is ignored: each
// language has a single voice.
type GTTSEngine struct {
	binary     string
	ffmpeg     string
	language   string
	slow       bool
	sampleRate int
	timeout    time.Duration

	limiter *rate.Limiter
}

// New creates an engine. RequestsPerMinute of zero disables rate limiting.
func New(config tts.GTTSConfig, ffmpeg string, sampleRate int) (*GTTSEngine, error) {
	binary, err := exec.LookPath(config.Binary)
	if err != nil {
		return nil, fmt.Errorf("%w: %s (install with: pip install gtts)", ErrBinaryNotFound, config.Binary)
	}
	ffmpegPath, err := exec.LookPath(ffmpeg)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is needed to decode gtts output", ErrBinaryNotFound, ffmpeg)
	}
	if sampleRate <= 0 {
		sampleRate = audio.DefaultSampleRate
	}

	limit := rate.Inf
	if config.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(config.RequestsPerMinute))
	}

	log.Debug("creating gtts synthesizer", "binary", binary, "language", config.Language, "rpm", config.RequestsPerMinute)
	return &GTTSEngine{
		binary:     binary,
		ffmpeg:     ffmpegPath,
		language:   config.Language,
		slow:       config.Slow,
		sampleRate: sampleRate,
		timeout:    config.Timeout,
		limiter:    rate.NewLimiter(limit, 1),
	}, nil
}

// Name implements tts.Engine.
func (e *GTTSEngine) Name() string { return "gtts:" + e.language }

// Close implements tts.Engine.
func (e *GTTSEngine) Close() error { return nil }

// Synthesize implements tts.Engine.
func (e *GTTSEngine) Synthesize(ctx context.Context, text, _ string) (*audio.Buffer, error) {
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("%w: gtts: text cannot be empty", tts.ErrSynthesis)
	}
	if len(text) > maxTextSize {
		return nil, fmt.Errorf("%w: gtts: text too long: %d bytes (max %d)", tts.ErrSynthesis, len(text), maxTextSize)
	}
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	mp3, err := e.synthesizeToMP3(ctx, text)
	if err != nil {
		return nil, err
	}
	return e.decodeMP3(ctx, mp3)
}

// synthesizeToMP3 runs gtts-cli with the MP3 written to stdout.
func (e *GTTSEngine) synthesizeToMP3(ctx context.Context, text string) ([]byte, error) {
	args := []string{text, "-l", e.language}
	if e.slow {
		args = append(args, "--slow")
	}
	args = append(args, "-o", "-")

	out, err := run(ctx, e.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("%w: gtts-cli: %w", tts.ErrSynthesis, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: gtts-cli produced no output", tts.ErrSynthesis)
	}
	return out, nil
}

// decodeMP3 converts MP3 to mono PCM at the engine rate through a temp file.
func (e *GTTSEngine) decodeMP3(ctx context.Context, mp3 []byte) (*audio.Buffer, error) {
	f, err := os.CreateTemp(tts.TempDir(ctx), "gtts-*.mp3")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp MP3 file: %w", err)
	}
	defer os.Remove(f.Name()) //nolint:errcheck

	_, err = f.Write(mp3)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write MP3 data: %w", err)
	}

	pcm, err := run(ctx, e.ffmpeg,
		"-hide_banner", "-loglevel", "error",
		"-i", f.Name(),
		"-f", "s16le",
		"-ar", strconv.Itoa(e.sampleRate),
		"-ac", "1",
		"-",
	)
	if err != nil {
		return nil, fmt.Errorf("%w: ffmpeg: %w", tts.ErrSynthesis, err)
	}
	buf := audio.FromBytes(pcm, e.sampleRate)
	if buf.Len() == 0 {
		return nil, fmt.Errorf("%w: ffmpeg produced no audio", tts.ErrSynthesis)
	}
	return buf, nil
}

// run executes a command and returns its stdout. The error carries stderr.
func run(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("timed out: %w", ctx.Err())
		}
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, errors.New(msg)
		}
		return nil, err //nolint:wrapcheck
	}
	return stdout.Bytes(), nil
}
