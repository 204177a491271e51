package ui

import (
	"time"

	"github.com/dgnsrekt/narrator/tts/pipeline"
)

// tickMsg asks the model to poll the controller.
type tickMsg time.Time

// promptMsg carries a checkpoint question; the answer goes back on reply.
type promptMsg struct {
	question string
	reply    chan<- bool
}

// jobDoneMsg is sent when the controller's job has ended.
type jobDoneMsg struct {
	result *pipeline.Result
	err    error
}
