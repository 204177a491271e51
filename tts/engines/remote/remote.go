// Package remote synthesizes speech through an OpenAI-compatible
// /audio/speech HTTP endpoint.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/narrator/tts"
	"github.com/dgnsrekt/narrator/tts/audio"
	"golang.org/x/time/rate"
)

// maxResponse bounds the audio accepted for one utterance.
const maxResponse = 256 << 20

// RemoteEngine posts each utterance to a speech server and decodes the WAV
// response.
type RemoteEngine struct {
	endpoint   string
	apiKey     string
	model      string
	limiter    *rate.Limiter
	httpClient *http.Client
}

type speechRequest struct {
	Model  string `json:"model"`
	Input  string `json:"input"`
	Voice  string `json:"voice"`
	Format string `json:"response_format"`
}

// New creates an HTTP engine. RequestsPerMinute of zero disables rate
// limiting.
func New(config tts.RemoteConfig) *RemoteEngine {
	limit := rate.Inf
	if config.RequestsPerMinute > 0 {
		limit = rate.Every(time.Minute / time.Duration(config.RequestsPerMinute))
	}
	timeout := config.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	log.Debug("creating remote synthesizer", "url", config.URL, "model", config.Model, "rpm", config.RequestsPerMinute)

	return &RemoteEngine{
		endpoint:   strings.TrimSuffix(config.URL, "/") + "/audio/speech",
		apiKey:     config.APIKey,
		model:      config.Model,
		limiter:    rate.NewLimiter(limit, 1),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Name implements tts.Engine.
func (e *RemoteEngine) Name() string { return "remote" }

// Close implements tts.Engine.
func (e *RemoteEngine) Close() error {
	e.httpClient.CloseIdleConnections()
	return nil
}

// Synthesize implements tts.Engine.
func (e *RemoteEngine) Synthesize(ctx context.Context, text, voice string) (*audio.Buffer, error) {
	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: remote: rate limit: %w", tts.ErrSynthesis, err)
	}

	body, err := json.Marshal(speechRequest{
		Model:  e.model,
		Input:  text,
		Voice:  voice,
		Format: "wav",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal speech request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: remote: %w", tts.ErrSynthesis, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponse))
	if err != nil {
		return nil, fmt.Errorf("%w: remote: read response: %w", tts.ErrSynthesis, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: remote: status %d: %s", tts.ErrSynthesis, resp.StatusCode, strings.TrimSpace(string(data)))
	}

	buf, err := audio.DecodeWAV(data)
	if err != nil {
		return nil, fmt.Errorf("%w: remote: %w", tts.ErrSynthesis, err)
	}
	log.Debug("speech synthesized", "chars", len(text), "bytes", len(data), "duration", buf.Duration())
	return buf, nil
}
