// Package config provides the configuration structure for the
// narration-service.
package config

import (
	"fmt"
	"os"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// Environment variable names honored as overrides for secrets that should
// not live in the project TOML. The overlay happens exactly once, at load
// time; no other component performs its own environment lookup.
const (
	envMiniMaxAPIKey   = "MINIMAX_API_KEY"
	envMiniMaxGroupID  = "MINIMAX_GROUP_ID"
	envNarrationAPIKey = "NARRATION_API_KEY"
)

// NATSConfig holds the configuration for NATS.
type NATSConfig struct {
	URL                      string `toml:"url"`
	NarrationStreamName      string `toml:"narration_stream_name"`
	NarrationConsumerName    string `toml:"narration_consumer_name"`
	TextProcessedSubject     string `toml:"text_processed_subject"`
	AudioChunkCreatedSubject string `toml:"audio_chunk_created_subject"`
	AudioObjectStoreBucket   string `toml:"audio_object_store_bucket"`
}

// MiniMaxConfig holds the speech service endpoint and credential settings.
type MiniMaxConfig struct {
	BaseURL        string `toml:"base_url"`
	APIKey         string `toml:"api_key"`
	GroupID        string `toml:"group_id"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// VoiceConfig holds the default voice parameters for synthesis requests.
type VoiceConfig struct {
	VoiceID string  `toml:"voice_id"`
	Speed   float64 `toml:"speed"`
	Volume  float64 `toml:"volume"`
	Pitch   int     `toml:"pitch"`
}

// AudioConfig holds the output format parameters for synthesis requests.
type AudioConfig struct {
	SampleRate int    `toml:"sample_rate"`
	Bitrate    int    `toml:"bitrate"`
	Format     string `toml:"format"`
	Channel    int    `toml:"channel"`
}

// ModelConfig pairs one generation model with its retry budget.
type ModelConfig struct {
	Name        string `toml:"name"`
	MaxAttempts int    `toml:"max_attempts"`
}

// NarrationConfig holds the narration-generation endpoint settings and the
// fallback chain policy.
type NarrationConfig struct {
	BaseURL            string        `toml:"base_url"`
	APIKey             string        `toml:"api_key"`
	Models             []ModelConfig `toml:"models"`
	BackoffBaseSeconds int           `toml:"backoff_base_seconds"`
	BackoffStepSeconds int           `toml:"backoff_step_seconds"`
	MinScriptLength    int           `toml:"min_script_length"`
	FallbackText       string        `toml:"fallback_text"`
}

// CloneConfig holds the voice-cloning workflow settings.
type CloneConfig struct {
	SettleDelaySeconds int `toml:"settle_delay_seconds"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
	OutputDir   string `toml:"output_dir"`
}

// Config is the root configuration structure.
type Config struct {
	NATS      NATSConfig      `toml:"nats"`
	MiniMax   MiniMaxConfig   `toml:"minimax"`
	Voice     VoiceConfig     `toml:"voice"`
	Audio     AudioConfig     `toml:"audio"`
	Narration NarrationConfig `toml:"narration"`
	Clone     CloneConfig     `toml:"clone"`
	Paths     PathsConfig     `toml:"paths"`
}

// Load loads the configuration for the narration-service and overlays secret
// values from the environment. The resulting value is constructed once at
// process start and passed by reference into every component.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	applyEnvironmentOverrides(&cfg)

	return &cfg, nil
}

// applyEnvironmentOverrides fills credential fields left empty in the TOML
// from the process environment.
func applyEnvironmentOverrides(cfg *Config) {
	if cfg.MiniMax.APIKey == "" {
		cfg.MiniMax.APIKey = os.Getenv(envMiniMaxAPIKey)
	}

	if cfg.MiniMax.GroupID == "" {
		cfg.MiniMax.GroupID = os.Getenv(envMiniMaxGroupID)
	}

	if cfg.Narration.APIKey == "" {
		cfg.Narration.APIKey = os.Getenv(envNarrationAPIKey)
	}
}
