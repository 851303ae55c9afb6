// Package config provides the configuration structure for the tts-gateway.
package config

import (
	"fmt"

	"github.com/book-expert/configurator"
	"github.com/book-expert/logger"
)

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// EngineConfig holds the connection settings for the inference sidecar.
type EngineConfig struct {
	URL            string `toml:"url"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// CatalogConfig holds the weight catalog root directories, one per kind.
type CatalogConfig struct {
	GPTWeightsDir    string `toml:"gpt_weights_dir"`
	SovitsWeightsDir string `toml:"sovits_weights_dir"`
}

// NATSConfig holds the optional NATS settings. An empty URL disables the
// archive and worker paths entirely.
type NATSConfig struct {
	URL                      string `toml:"url"`
	SpeechRequestedSubject   string `toml:"speech_requested_subject"`
	SpeechSynthesizedSubject string `toml:"speech_synthesized_subject"`
	AudioObjectStoreBucket   string `toml:"audio_object_store_bucket"`
}

// PathsConfig holds the configuration for file paths.
type PathsConfig struct {
	BaseLogsDir string `toml:"base_logs_dir"`
	ArtifactDir string `toml:"artifact_dir"`
	PresetsFile string `toml:"presets_file"`
}

// Config is the root configuration structure.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Engine  EngineConfig  `toml:"engine"`
	Catalog CatalogConfig `toml:"catalog"`
	NATS    NATSConfig    `toml:"nats"`
	Paths   PathsConfig   `toml:"paths"`
}

// ListenAddress returns the host:port pair the HTTP server binds to.
func (c *Config) ListenAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Load loads the configuration for the tts-gateway.
func Load(log *logger.Logger) (*Config, error) {
	var cfg Config

	err := configurator.Load(&cfg, log)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from configurator: %w", err)
	}

	return &cfg, nil
}
