package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// FFmpegCommand is the default encoder binary for lossy containers.
const FFmpegCommand = "ffmpeg"

// ErrUnsupportedFormat is returned for an output extension with no encoder.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// codecArgs maps output extensions to ffmpeg encoder arguments.
var codecArgs = map[string][]string{
	".mp3":  {"-c:a", "libmp3lame"},
	".ogg":  {"-c:a", "libvorbis"},
	".opus": {"-c:a", "libopus"},
	".flac": {"-c:a", "flac"},
	".m4a":  {"-c:a", "aac"},
}

// Exporter writes buffers to disk, choosing the container by extension.
type Exporter struct {
	FFmpegBinary string
	Bitrate      string // e.g. "192k"; empty keeps the encoder default
	TempDir      string // scratch WAV location; empty uses the system temp dir
}

// Formats lists the extensions Export understands.
func Formats() []string {
	out := []string{".wav"}
	for ext := range codecArgs {
		out = append(out, ext)
	}
	return out
}

// Export writes b to path. WAV is written directly; other containers are
// encoded by ffmpeg from a temporary WAV that is always removed.
func (e Exporter) Export(ctx context.Context, b *Buffer, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".wav" {
		return writeWAVFile(path, b)
	}
	codec, ok := codecArgs[ext]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}

	tmp, err := os.CreateTemp(e.TempDir, "narrator-export-*.wav")
	if err != nil {
		return fmt.Errorf("create temp wav: %w", err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck

	if err := EncodeWAV(tmp, b); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp wav: %w", err)
	}

	bin := e.FFmpegBinary
	if bin == "" {
		bin = FFmpegCommand
	}
	args := []string{
		"-y",
		"-hide_banner",
		"-loglevel", "error",
		"-i", tmpPath,
		"-vn",
	}
	args = append(args, codec...)
	if e.Bitrate != "" && ext != ".flac" {
		args = append(args, "-b:a", e.Bitrate)
	}
	args = append(args, path)

	cmd := exec.CommandContext(ctx, bin, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("ffmpeg encode %s: %w: %s", ext, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// WriteWAV writes b to path as WAV.
func WriteWAV(path string, b *Buffer) error {
	return writeWAVFile(path, b)
}

func writeWAVFile(path string, b *Buffer) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := EncodeWAV(f, b); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
