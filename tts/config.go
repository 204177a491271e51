package tts

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Engine names accepted in configuration.
const (
	EnginePiper  = "piper"
	EngineRemote = "remote"
	EngineGTTS   = "gtts"
	EngineMock   = "mock"
)

// Engines lists every engine name the configuration accepts.
var Engines = []string{EnginePiper, EngineRemote, EngineGTTS, EngineMock}

// Config contains all narration settings.
type Config struct {
	Engine   string `yaml:"engine" env:"NARRATOR_ENGINE"`
	Fallback string `yaml:"fallback" env:"NARRATOR_FALLBACK"`
	Voice    string `yaml:"voice" env:"NARRATOR_VOICE"`

	// Audio settings
	SampleRate int     `yaml:"sample_rate" env:"NARRATOR_SAMPLE_RATE"`
	Volume     float64 `yaml:"volume" env:"NARRATOR_VOLUME"`
	FFmpeg     string  `yaml:"ffmpeg" env:"NARRATOR_FFMPEG"`
	Bitrate    string  `yaml:"bitrate" env:"NARRATOR_BITRATE"`

	// Speed and synchronization
	Speed            float64       `yaml:"speed" env:"NARRATOR_SPEED"`
	MaxSpeedText     float64       `yaml:"max_speed_text" env:"NARRATOR_MAX_SPEED_TEXT"`
	MaxSpeedSubtitle float64       `yaml:"max_speed_subtitle" env:"NARRATOR_MAX_SPEED_SUBTITLE"`
	SpeedStep        float64       `yaml:"speed_step" env:"NARRATOR_SPEED_STEP"`
	SkipRatio        float64       `yaml:"skip_ratio" env:"NARRATOR_SKIP_RATIO"`
	PromptAfter      time.Duration `yaml:"prompt_after" env:"NARRATOR_PROMPT_AFTER"`

	// Files
	DataDir    string `yaml:"data_dir" env:"NARRATOR_DATA_DIR"`
	Dictionary string `yaml:"dictionary" env:"NARRATOR_DICTIONARY"`

	Segment SegmentConfig `yaml:"segment"`
	Cache   CacheConfig   `yaml:"cache"`
	Piper   PiperConfig   `yaml:"piper"`
	Remote  RemoteConfig  `yaml:"remote"`
	GTTS    GTTSConfig    `yaml:"gtts"`
	Mock    MockConfig    `yaml:"mock"`
}

// SegmentConfig controls how text is cut into synthesis chunks.
type SegmentConfig struct {
	Threshold int `yaml:"threshold" env:"NARRATOR_SEGMENT_THRESHOLD"`
	MaxChunk  int `yaml:"max_chunk" env:"NARRATOR_SEGMENT_MAX_CHUNK"`
}

// CacheConfig controls the synthesized fragment cache.
type CacheConfig struct {
	Enabled  bool          `yaml:"enabled" env:"NARRATOR_CACHE_ENABLED"`
	Dir      string        `yaml:"dir" env:"NARRATOR_CACHE_DIR"`
	MemoryMB int           `yaml:"memory_mb" env:"NARRATOR_CACHE_MEMORY_MB"`
	DiskMB   int           `yaml:"disk_mb" env:"NARRATOR_CACHE_DISK_MB"`
	TTL      time.Duration `yaml:"ttl" env:"NARRATOR_CACHE_TTL"`
}

// PiperConfig contains settings for the subprocess engine.
type PiperConfig struct {
	Binary      string        `yaml:"binary" env:"NARRATOR_PIPER_BINARY"`
	Model       string        `yaml:"model" env:"NARRATOR_PIPER_MODEL"`
	SpeakerFlag string        `yaml:"speaker_flag" env:"NARRATOR_PIPER_SPEAKER_FLAG"`
	ExtraArgs   []string      `yaml:"extra_args" env:"NARRATOR_PIPER_EXTRA_ARGS"`
	Timeout     time.Duration `yaml:"timeout" env:"NARRATOR_PIPER_TIMEOUT"`
}

// RemoteConfig contains settings for an OpenAI-compatible speech endpoint.
type RemoteConfig struct {
	URL               string        `yaml:"url" env:"NARRATOR_REMOTE_URL"`
	APIKey            string        `yaml:"api_key" env:"NARRATOR_REMOTE_API_KEY"`
	Model             string        `yaml:"model" env:"NARRATOR_REMOTE_MODEL"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"NARRATOR_REMOTE_RPM"`
	Timeout           time.Duration `yaml:"timeout" env:"NARRATOR_REMOTE_TIMEOUT"`
}

// GTTSConfig contains settings for the gtts-cli engine. Its MP3 output is
// decoded with the configured ffmpeg.
type GTTSConfig struct {
	Binary            string        `yaml:"binary" env:"NARRATOR_GTTS_BINARY"`
	Language          string        `yaml:"language" env:"NARRATOR_GTTS_LANGUAGE"`
	Slow              bool          `yaml:"slow" env:"NARRATOR_GTTS_SLOW"`
	RequestsPerMinute int           `yaml:"requests_per_minute" env:"NARRATOR_GTTS_RPM"`
	Timeout           time.Duration `yaml:"timeout" env:"NARRATOR_GTTS_TIMEOUT"`
}

// MockConfig contains settings for the mock engine.
type MockConfig struct {
	WordsPerMinute int           `yaml:"words_per_minute" env:"NARRATOR_MOCK_WORDS_PER_MINUTE"`
	Delay          time.Duration `yaml:"delay" env:"NARRATOR_MOCK_DELAY"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Engine:     EnginePiper,
		Voice:      "2",
		SampleRate: 22050,
		Volume:     1.0,
		FFmpeg:     "ffmpeg",
		Bitrate:    "192k",

		Speed:            1.0,
		MaxSpeedText:     2.0,
		MaxSpeedSubtitle: 1.4,
		SpeedStep:        0.1,
		SkipRatio:        0.1,
		PromptAfter:      5 * time.Minute,

		Segment: SegmentConfig{Threshold: 1000, MaxChunk: 500},
		Cache:   DefaultCacheConfig(),
		Piper:   DefaultPiperConfig(),
		Remote:  DefaultRemoteConfig(),
		GTTS:    DefaultGTTSConfig(),
		Mock:    DefaultMockConfig(),
	}
}

// DefaultCacheConfig returns default cache configuration.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:  true,
		MemoryMB: 32,
		DiskMB:   512,
		TTL:      7 * 24 * time.Hour,
	}
}

// DefaultPiperConfig returns default subprocess engine configuration.
func DefaultPiperConfig() PiperConfig {
	return PiperConfig{
		Binary:      "piper",
		Model:       "ru_RU-irina-medium",
		SpeakerFlag: "--speaker",
		Timeout:     60 * time.Second,
	}
}

// DefaultRemoteConfig returns default HTTP engine configuration.
func DefaultRemoteConfig() RemoteConfig {
	return RemoteConfig{
		URL:               "http://localhost:8880/v1",
		Model:             "tts-1",
		RequestsPerMinute: 60,
		Timeout:           60 * time.Second,
	}
}

// DefaultGTTSConfig returns default gtts-cli engine configuration.
func DefaultGTTSConfig() GTTSConfig {
	return GTTSConfig{
		Binary:            "gtts-cli",
		Language:          "ru",
		RequestsPerMinute: 50,
		Timeout:           30 * time.Second,
	}
}

// DefaultMockConfig returns default mock engine configuration.
func DefaultMockConfig() MockConfig {
	return MockConfig{WordsPerMinute: 150}
}

// MaxSpeed returns the speed cap for the given job mode.
func (c *Config) MaxSpeed(subtitles bool) float64 {
	if subtitles {
		return c.MaxSpeedSubtitle
	}
	return c.MaxSpeedText
}

// ClampSpeed limits an initial speed to [0.5, cap].
func (c *Config) ClampSpeed(speed float64, subtitles bool) float64 {
	return min(max(speed, MinSpeed), c.MaxSpeed(subtitles))
}

// MinSpeed is the slowest initial speed accepted.
const MinSpeed = 0.5

// Validate checks if the configuration is valid. Engine names are
// lower-cased in place.
func (c *Config) Validate() error {
	c.Engine = strings.ToLower(c.Engine)
	if !slices.Contains(Engines, c.Engine) {
		return fmt.Errorf("%w: engine %q: must be one of %v", ErrInvalidConfig, c.Engine, Engines)
	}
	c.Fallback = strings.ToLower(c.Fallback)
	if c.Fallback != "" {
		if !slices.Contains(Engines, c.Fallback) {
			return fmt.Errorf("%w: fallback %q: must be one of %v", ErrInvalidConfig, c.Fallback, Engines)
		}
		if c.Fallback == c.Engine {
			return fmt.Errorf("%w: fallback engine must differ from %q", ErrInvalidConfig, c.Engine)
		}
	}

	if c.Volume < 0.0 || c.Volume > 2.0 {
		return fmt.Errorf("%w: volume must be between 0.0 and 2.0, got %g", ErrInvalidConfig, c.Volume)
	}

	validSampleRates := []int{8000, 16000, 22050, 24000, 44100, 48000}
	if !slices.Contains(validSampleRates, c.SampleRate) {
		return fmt.Errorf("%w: sample rate %d: must be one of %v", ErrInvalidConfig, c.SampleRate, validSampleRates)
	}

	if c.MaxSpeedText < 1 || c.MaxSpeedSubtitle < 1 {
		return fmt.Errorf("%w: speed caps must be at least 1.0", ErrInvalidConfig)
	}
	if c.Speed <= 0 {
		return fmt.Errorf("%w: speed must be positive, got %g", ErrInvalidConfig, c.Speed)
	}
	if c.SpeedStep <= 0 {
		return fmt.Errorf("%w: speed_step must be positive, got %g", ErrInvalidConfig, c.SpeedStep)
	}
	if c.SkipRatio < 0 || c.SkipRatio > 1 {
		return fmt.Errorf("%w: skip_ratio must be between 0 and 1, got %g", ErrInvalidConfig, c.SkipRatio)
	}
	if c.PromptAfter < 0 {
		return fmt.Errorf("%w: prompt_after cannot be negative", ErrInvalidConfig)
	}
	if c.Segment.MaxChunk < 1 || c.Segment.Threshold < 0 {
		return fmt.Errorf("%w: segment sizes must be positive", ErrInvalidConfig)
	}

	for _, name := range []string{c.Engine, c.Fallback} {
		var err error
		switch name {
		case EnginePiper:
			err = c.Piper.Validate()
		case EngineRemote:
			err = c.Remote.Validate()
		case EngineGTTS:
			err = c.GTTS.Validate()
		case EngineMock:
			err = c.Mock.Validate()
		}
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, name, err)
		}
	}

	return nil
}

// Validate checks if the subprocess engine configuration is valid.
func (c *PiperConfig) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("binary path cannot be empty")
	}
	if c.Model == "" {
		return fmt.Errorf("model cannot be empty")
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	return nil
}

// Validate checks if the HTTP engine configuration is valid.
func (c *RemoteConfig) Validate() error {
	if !strings.HasPrefix(c.URL, "http://") && !strings.HasPrefix(c.URL, "https://") {
		return fmt.Errorf("url must start with http:// or https://, got %q", c.URL)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute cannot be negative")
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	return nil
}

// Validate checks if the gtts-cli configuration is valid.
func (c *GTTSConfig) Validate() error {
	if c.Binary == "" {
		return fmt.Errorf("binary must be set")
	}
	if len(c.Language) < 2 || len(c.Language) > 5 {
		return fmt.Errorf("language code must be 2-5 characters, got %q", c.Language)
	}
	if c.RequestsPerMinute < 0 {
		return fmt.Errorf("requests_per_minute cannot be negative")
	}
	if c.Timeout < time.Second {
		return fmt.Errorf("timeout must be at least 1 second, got %v", c.Timeout)
	}
	return nil
}

// Validate checks if the mock configuration is valid.
func (c *MockConfig) Validate() error {
	if c.WordsPerMinute < 50 || c.WordsPerMinute > 500 {
		return fmt.Errorf("words_per_minute must be between 50 and 500, got %d", c.WordsPerMinute)
	}
	return nil
}
