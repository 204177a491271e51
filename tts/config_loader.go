package tts

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// LoadConfigFromViper loads narration configuration from Viper.
func LoadConfigFromViper() (Config, error) {
	cfg := DefaultConfig()

	if viper.IsSet("tts.engine") {
		cfg.Engine = viper.GetString("tts.engine")
	}
	if viper.IsSet("tts.fallback") {
		cfg.Fallback = viper.GetString("tts.fallback")
	}
	if viper.IsSet("tts.voice") {
		cfg.Voice = viper.GetString("tts.voice")
	}

	// Audio settings
	if viper.IsSet("tts.sample_rate") {
		cfg.SampleRate = viper.GetInt("tts.sample_rate")
	}
	if viper.IsSet("tts.volume") {
		cfg.Volume = viper.GetFloat64("tts.volume")
	}
	if viper.IsSet("tts.ffmpeg") {
		cfg.FFmpeg = viper.GetString("tts.ffmpeg")
	}
	if viper.IsSet("tts.bitrate") {
		cfg.Bitrate = viper.GetString("tts.bitrate")
	}

	// Speed and synchronization
	if viper.IsSet("tts.speed") {
		cfg.Speed = viper.GetFloat64("tts.speed")
	}
	if viper.IsSet("tts.max_speed_text") {
		cfg.MaxSpeedText = viper.GetFloat64("tts.max_speed_text")
	}
	if viper.IsSet("tts.max_speed_subtitle") {
		cfg.MaxSpeedSubtitle = viper.GetFloat64("tts.max_speed_subtitle")
	}
	if viper.IsSet("tts.speed_step") {
		cfg.SpeedStep = viper.GetFloat64("tts.speed_step")
	}
	if viper.IsSet("tts.skip_ratio") {
		cfg.SkipRatio = viper.GetFloat64("tts.skip_ratio")
	}
	if viper.IsSet("tts.prompt_after") {
		if d, err := time.ParseDuration(viper.GetString("tts.prompt_after")); err == nil {
			cfg.PromptAfter = d
		}
	}

	// Files
	if viper.IsSet("tts.data_dir") {
		cfg.DataDir = viper.GetString("tts.data_dir")
	}
	if viper.IsSet("tts.dictionary") {
		cfg.Dictionary = viper.GetString("tts.dictionary")
	}

	if viper.IsSet("tts.segment.threshold") {
		cfg.Segment.Threshold = viper.GetInt("tts.segment.threshold")
	}
	if viper.IsSet("tts.segment.max_chunk") {
		cfg.Segment.MaxChunk = viper.GetInt("tts.segment.max_chunk")
	}

	cfg.Cache = loadCacheConfig()
	cfg.Piper = loadPiperConfig()
	cfg.Remote = loadRemoteConfig()
	cfg.GTTS = loadGTTSConfig()
	cfg.Mock = loadMockConfig()

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadCacheConfig() CacheConfig {
	cfg := DefaultCacheConfig()

	if viper.IsSet("tts.cache.enabled") {
		cfg.Enabled = viper.GetBool("tts.cache.enabled")
	}
	if viper.IsSet("tts.cache.dir") {
		cfg.Dir = viper.GetString("tts.cache.dir")
	}
	if viper.IsSet("tts.cache.memory_mb") {
		cfg.MemoryMB = viper.GetInt("tts.cache.memory_mb")
	}
	if viper.IsSet("tts.cache.disk_mb") {
		cfg.DiskMB = viper.GetInt("tts.cache.disk_mb")
	}
	if viper.IsSet("tts.cache.ttl") {
		if d, err := time.ParseDuration(viper.GetString("tts.cache.ttl")); err == nil {
			cfg.TTL = d
		}
	}

	return cfg
}

// loadPiperConfig loads subprocess engine configuration from Viper.
func loadPiperConfig() PiperConfig {
	cfg := DefaultPiperConfig()

	if viper.IsSet("tts.piper.binary") {
		cfg.Binary = viper.GetString("tts.piper.binary")
	}
	if viper.IsSet("tts.piper.model") {
		cfg.Model = viper.GetString("tts.piper.model")
	}
	if viper.IsSet("tts.piper.speaker_flag") {
		cfg.SpeakerFlag = viper.GetString("tts.piper.speaker_flag")
	}
	if viper.IsSet("tts.piper.extra_args") {
		cfg.ExtraArgs = viper.GetStringSlice("tts.piper.extra_args")
	}
	if viper.IsSet("tts.piper.timeout") {
		if d, err := time.ParseDuration(viper.GetString("tts.piper.timeout")); err == nil {
			cfg.Timeout = d
		}
	}

	return cfg
}

// loadRemoteConfig loads HTTP engine configuration from Viper.
func loadRemoteConfig() RemoteConfig {
	cfg := DefaultRemoteConfig()

	if viper.IsSet("tts.remote.url") {
		cfg.URL = viper.GetString("tts.remote.url")
	}
	if viper.IsSet("tts.remote.api_key") {
		cfg.APIKey = viper.GetString("tts.remote.api_key")
	}
	if viper.IsSet("tts.remote.model") {
		cfg.Model = viper.GetString("tts.remote.model")
	}
	if viper.IsSet("tts.remote.requests_per_minute") {
		cfg.RequestsPerMinute = viper.GetInt("tts.remote.requests_per_minute")
	}
	if viper.IsSet("tts.remote.timeout") {
		if d, err := time.ParseDuration(viper.GetString("tts.remote.timeout")); err == nil {
			cfg.Timeout = d
		}
	}

	return cfg
}

// loadGTTSConfig loads gtts-cli engine configuration from Viper.
func loadGTTSConfig() GTTSConfig {
	cfg := DefaultGTTSConfig()

	if viper.IsSet("tts.gtts.binary") {
		cfg.Binary = viper.GetString("tts.gtts.binary")
	}
	if viper.IsSet("tts.gtts.language") {
		cfg.Language = viper.GetString("tts.gtts.language")
	}
	if viper.IsSet("tts.gtts.slow") {
		cfg.Slow = viper.GetBool("tts.gtts.slow")
	}
	if viper.IsSet("tts.gtts.requests_per_minute") {
		cfg.RequestsPerMinute = viper.GetInt("tts.gtts.requests_per_minute")
	}
	if viper.IsSet("tts.gtts.timeout") {
		if d, err := time.ParseDuration(viper.GetString("tts.gtts.timeout")); err == nil {
			cfg.Timeout = d
		}
	}

	return cfg
}

func loadMockConfig() MockConfig {
	cfg := DefaultMockConfig()

	if viper.IsSet("tts.mock.words_per_minute") {
		cfg.WordsPerMinute = viper.GetInt("tts.mock.words_per_minute")
	}
	if viper.IsSet("tts.mock.delay") {
		if d, err := time.ParseDuration(viper.GetString("tts.mock.delay")); err == nil {
			cfg.Delay = d
		}
	}

	return cfg
}

// SetDefaults sets default values in Viper for narration configuration.
func SetDefaults() {
	defaults := DefaultConfig()

	viper.SetDefault("tts.engine", defaults.Engine)
	viper.SetDefault("tts.voice", defaults.Voice)
	viper.SetDefault("tts.sample_rate", defaults.SampleRate)
	viper.SetDefault("tts.volume", defaults.Volume)
	viper.SetDefault("tts.ffmpeg", defaults.FFmpeg)
	viper.SetDefault("tts.bitrate", defaults.Bitrate)

	viper.SetDefault("tts.speed", defaults.Speed)
	viper.SetDefault("tts.max_speed_text", defaults.MaxSpeedText)
	viper.SetDefault("tts.max_speed_subtitle", defaults.MaxSpeedSubtitle)
	viper.SetDefault("tts.speed_step", defaults.SpeedStep)
	viper.SetDefault("tts.skip_ratio", defaults.SkipRatio)
	viper.SetDefault("tts.prompt_after", defaults.PromptAfter.String())

	viper.SetDefault("tts.segment.threshold", defaults.Segment.Threshold)
	viper.SetDefault("tts.segment.max_chunk", defaults.Segment.MaxChunk)

	viper.SetDefault("tts.cache.enabled", defaults.Cache.Enabled)
	viper.SetDefault("tts.cache.memory_mb", defaults.Cache.MemoryMB)
	viper.SetDefault("tts.cache.disk_mb", defaults.Cache.DiskMB)
	viper.SetDefault("tts.cache.ttl", defaults.Cache.TTL.String())

	viper.SetDefault("tts.piper.binary", defaults.Piper.Binary)
	viper.SetDefault("tts.piper.model", defaults.Piper.Model)
	viper.SetDefault("tts.piper.speaker_flag", defaults.Piper.SpeakerFlag)
	viper.SetDefault("tts.piper.timeout", defaults.Piper.Timeout.String())

	viper.SetDefault("tts.remote.url", defaults.Remote.URL)
	viper.SetDefault("tts.remote.model", defaults.Remote.Model)
	viper.SetDefault("tts.remote.requests_per_minute", defaults.Remote.RequestsPerMinute)
	viper.SetDefault("tts.remote.timeout", defaults.Remote.Timeout.String())

	viper.SetDefault("tts.gtts.binary", defaults.GTTS.Binary)
	viper.SetDefault("tts.gtts.language", defaults.GTTS.Language)
	viper.SetDefault("tts.gtts.slow", defaults.GTTS.Slow)
	viper.SetDefault("tts.gtts.requests_per_minute", defaults.GTTS.RequestsPerMinute)
	viper.SetDefault("tts.gtts.timeout", defaults.GTTS.Timeout.String())

	viper.SetDefault("tts.mock.words_per_minute", defaults.Mock.WordsPerMinute)
	viper.SetDefault("tts.mock.delay", defaults.Mock.Delay.String())
}

// configFile is the on-disk layout; narration settings live under "tts".
type configFile struct {
	TTS Config `yaml:"tts"`
}

// DecodeConfig decodes a YAML config document over the defaults and
// validates the result.
func DecodeConfig(r io.Reader) (Config, error) {
	doc := configFile{TTS: DefaultConfig()}
	dec := yaml.NewDecoder(r)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return doc.TTS, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := doc.TTS.Validate(); err != nil {
		return doc.TTS, err
	}
	return doc.TTS, nil
}

// LoadConfigFile reads and validates the config file at path.
func LoadConfigFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return DefaultConfig(), fmt.Errorf("read config: %w", err)
	}
	return DecodeConfig(bytes.NewReader(data))
}

// ApplyEnv overlays the NARRATOR_* environment variables named in the
// Config tags and validates the result. Unset variables leave fields alone.
func ApplyEnv(cfg *Config) error {
	if err := env.Parse(cfg); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return cfg.Validate()
}
