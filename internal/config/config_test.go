// Package config_test tests the configuration loading for the tts-gateway.
package config_test

import (
	"testing"

	"github.com/book-expert/tts-gateway/internal/config"
	"github.com/pelletier/go-toml/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Parallel()

	tomlData := `
[server]
host = "0.0.0.0"
port = 5000

[engine]
url = "http://127.0.0.1:9880"
timeout_seconds = 300

[catalog]
gpt_weights_dir = "pretrained_models/gpt_weights"
sovits_weights_dir = "pretrained_models/sovits_weights"

[nats]
url = "nats://127.0.0.1:4222"
speech_requested_subject = "speech.requested"
speech_synthesized_subject = "speech.synthesized"
audio_object_store_bucket = "SPEECH_AUDIO"

[paths]
base_logs_dir = "/var/log/tts-gateway"
artifact_dir = "/tmp/tts-gateway"
presets_file = "configs/characters.json"
`

	var cfg config.Config

	err := toml.Unmarshal([]byte(tomlData), &cfg)
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 5000, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:5000", cfg.ListenAddress())
	assert.Equal(t, "http://127.0.0.1:9880", cfg.Engine.URL)
	assert.Equal(t, 300, cfg.Engine.TimeoutSeconds)
	assert.Equal(t, "pretrained_models/gpt_weights", cfg.Catalog.GPTWeightsDir)
	assert.Equal(t, "pretrained_models/sovits_weights", cfg.Catalog.SovitsWeightsDir)
	assert.Equal(t, "nats://127.0.0.1:4222", cfg.NATS.URL)
	assert.Equal(t, "speech.requested", cfg.NATS.SpeechRequestedSubject)
	assert.Equal(t, "speech.synthesized", cfg.NATS.SpeechSynthesizedSubject)
	assert.Equal(t, "SPEECH_AUDIO", cfg.NATS.AudioObjectStoreBucket)
	assert.Equal(t, "/var/log/tts-gateway", cfg.Paths.BaseLogsDir)
	assert.Equal(t, "/tmp/tts-gateway", cfg.Paths.ArtifactDir)
	assert.Equal(t, "configs/characters.json", cfg.Paths.PresetsFile)
}
