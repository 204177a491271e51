package ui

import (
	"fmt"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dgnsrekt/narrator/tts"
)

// Bridge connects a running job to the progress view. It collects warnings
// and turns checkpoint questions into messages the view answers. Progress
// itself is polled from the controller, so OnProgress does nothing.
type Bridge struct {
	mu       sync.Mutex
	warnings []string

	requests chan promptMsg
	closed   chan struct{}
	once     sync.Once
}

// NewBridge creates a bridge.
func NewBridge() *Bridge {
	return &Bridge{
		requests: make(chan promptMsg),
		closed:   make(chan struct{}),
	}
}

// OnProgress implements tts.ProgressObserver.
func (b *Bridge) OnProgress(tts.Progress) {}

// OnWarning implements tts.ProgressObserver.
func (b *Bridge) OnWarning(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.warnings = append(b.warnings, msg)
}

// Warnings returns the warnings collected so far.
func (b *Bridge) Warnings() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.warnings))
	copy(out, b.warnings)
	return out
}

// ConfirmSkipped implements tts.Prompter.
func (b *Bridge) ConfirmSkipped(skipped, total int) bool {
	return b.ask(skippedQuestion(skipped, total))
}

// ConfirmTimeout implements tts.Prompter.
func (b *Bridge) ConfirmTimeout(elapsed time.Duration) bool {
	return b.ask(timeoutQuestion(elapsed))
}

// Close makes pending and future questions answer "no".
func (b *Bridge) Close() {
	b.once.Do(func() { close(b.closed) })
}

func (b *Bridge) ask(question string) bool {
	reply := make(chan bool, 1)
	select {
	case b.requests <- promptMsg{question: question, reply: reply}:
	case <-b.closed:
		return false
	}
	select {
	case ok := <-reply:
		return ok
	case <-b.closed:
		return false
	}
}

// waitForPrompt delivers the next question to the view.
func (b *Bridge) waitForPrompt() tea.Cmd {
	return func() tea.Msg {
		select {
		case msg := <-b.requests:
			return msg
		case <-b.closed:
			return nil
		}
	}
}

func skippedQuestion(skipped, total int) string {
	return fmt.Sprintf("%d of %d cues could not be voiced and were replaced by silence. Continue?", skipped, total)
}

func timeoutQuestion(elapsed time.Duration) string {
	return fmt.Sprintf("Processing has taken %s. Keep going?", formatDuration(elapsed))
}
