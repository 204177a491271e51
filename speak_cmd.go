package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/narrator/tts/audio"
	"github.com/dgnsrekt/narrator/tts/pipeline"
	"github.com/spf13/cobra"
)

var (
	speakOutput    string
	speakMarkdown  bool
	speakClipboard bool
	speakPlay      bool
	speakFit       time.Duration

	speakCmd = &cobra.Command{
		Use:   "speak [FILE|-]",
		Short: "Narrate text",
		Long: paragraph(fmt.Sprintf("\n%s text from a file, standard input or the clipboard. "+
			"The output format follows the file extension; anything but .wav is encoded with ffmpeg.", keyword("Narrate"))),
		Example: paragraph("narrator speak notes.txt -o notes.mp3\n" +
			"cat README.md | narrator speak --markdown --play\n" +
			"narrator speak --clipboard --fit 30s -o clip.wav"),
		Args: cobra.MaximumNArgs(1),
		RunE: speak,
	}
)

func speak(cmd *cobra.Command, args []string) error {
	var input string
	if len(args) > 0 {
		input = args[0]
	}
	text, err := readText(input)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	output := expandPath(speakOutput)
	if output == "" && !speakPlay {
		output = defaultOutput(input)
	}

	job := pipeline.NewTextJob(text, output)
	job.Markdown = speakMarkdown || isMarkdownFile(input)
	job.Budget = speakFit

	res, err := runJob(cmd, cfg, job)
	if err != nil {
		return err
	}
	if !speakPlay {
		return nil
	}

	player, err := audio.NewPlayer()
	if err != nil {
		return fmt.Errorf("unable to open audio device: %w", err)
	}
	player.SetVolume(cfg.Volume)
	log.Debug("playing", "job", res.JobID, "duration", res.Duration, "volume", cfg.Volume)
	if err := player.Play(cmd.Context(), res.Audio); err != nil && !errors.Is(err, cmd.Context().Err()) {
		return fmt.Errorf("unable to play audio: %w", err)
	}
	return nil
}

// readText reads the narration input. Standard input is used for "-" and
// when it is a pipe.
func readText(input string) (string, error) {
	if speakClipboard {
		if input != "" {
			return "", errors.New("cannot read from both the clipboard and a file")
		}
		text, err := clipboard.ReadAll()
		if err != nil {
			return "", fmt.Errorf("unable to read clipboard: %w", err)
		}
		return text, nil
	}

	var r io.Reader
	switch {
	case input == "-":
		r = os.Stdin
	case input != "":
		f, err := os.Open(expandPath(input))
		if err != nil {
			return "", fmt.Errorf("unable to open file: %w", err)
		}
		defer f.Close() //nolint:errcheck
		r = f
	default:
		pipe, err := stdinIsPipe()
		if err != nil {
			return "", err
		}
		if !pipe {
			return "", errors.New("no input: pass a file, - for standard input, or --clipboard")
		}
		r = os.Stdin
	}

	b, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("unable to read from reader: %w", err)
	}
	return string(b), nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

var markdownExtensions = []string{".md", ".mdown", ".mkdn", ".mkd", ".markdown"}

func isMarkdownFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, v := range markdownExtensions {
		if ext == v {
			return true
		}
	}
	return false
}

func init() {
	flags := speakCmd.Flags()
	flags.StringVarP(&speakOutput, "output", "o", "", "output file (default: input name with .wav)")
	flags.BoolVarP(&speakMarkdown, "markdown", "m", false, "treat the input as markdown (implied for .md files)")
	flags.BoolVarP(&speakClipboard, "clipboard", "c", false, "read the text from the clipboard")
	flags.BoolVarP(&speakPlay, "play", "p", false, "play the result; nothing is written unless --output is set")
	flags.DurationVar(&speakFit, "fit", 0, "speed up the result to fit this length")
}
