package ui

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/narrator/tts"
)

// StdinPrompter asks checkpoint questions on a line-oriented terminal.
type StdinPrompter struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

// NewStdinPrompter reads answers from in and writes questions to out.
func NewStdinPrompter(in io.Reader, out io.Writer) *StdinPrompter {
	return &StdinPrompter{in: bufio.NewReader(in), out: out}
}

// ConfirmSkipped implements tts.Prompter.
func (p *StdinPrompter) ConfirmSkipped(skipped, total int) bool {
	return p.ask(skippedQuestion(skipped, total))
}

// ConfirmTimeout implements tts.Prompter.
func (p *StdinPrompter) ConfirmTimeout(elapsed time.Duration) bool {
	return p.ask(timeoutQuestion(elapsed))
}

// ask returns false on end of input.
func (p *StdinPrompter) ask(question string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	fmt.Fprintf(p.out, "%s [y/N] ", question) //nolint:errcheck
	line, err := p.in.ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return isYes(line)
}

func isYes(answer string) bool {
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes", "д", "да":
		return true
	}
	return false
}

// LogObserver reports progress as log lines, one per step of the given size
// in percent. A nil Logger uses the default logger.
type LogObserver struct {
	Step   float64
	Logger *log.Logger

	mu   sync.Mutex
	last float64
	seen tts.Stage
}

// OnProgress implements tts.ProgressObserver.
func (o *LogObserver) OnProgress(p tts.Progress) {
	o.mu.Lock()
	defer o.mu.Unlock()

	step := o.Step
	if step <= 0 {
		step = 10
	}
	if p.Stage != o.seen {
		o.seen = p.Stage
		o.last = -1
	}
	if o.last >= 0 && p.Percent-o.last < step && p.Percent < 100 {
		return
	}
	o.last = p.Percent
	o.logger().Info("progress", "stage", p.Stage, "percent", fmt.Sprintf("%.0f", p.Percent), "done", p.Done, "total", p.Total, "skipped", p.Skipped)
}

// OnWarning implements tts.ProgressObserver.
func (o *LogObserver) OnWarning(msg string) {
	o.logger().Warn(msg)
}

func (o *LogObserver) logger() *log.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return log.Default()
}
