package synth

import (
	"fmt"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/book-expert/tts-gateway/internal/core"
)

// WAV encoding parameters. The engine produces mono 16-bit PCM; clips are
// written out unscaled.
const (
	wavBitDepth    = 16
	wavNumChannels = 1
	wavAudioFormat = 1 // PCM
)

// writeClipWAV encodes a clip as a WAV file at path. The file must already
// exist (it is an artifact created by the manager) and is truncated.
func writeClipWAV(path string, clip *core.Clip) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to open artifact %s: %w", path, err)
	}

	encoder := wav.NewEncoder(
		file,
		clip.SampleRate,
		wavBitDepth,
		wavNumChannels,
		wavAudioFormat,
	)

	buffer := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: wavNumChannels,
			SampleRate:  clip.SampleRate,
		},
		Data:           clip.Samples,
		SourceBitDepth: 16,
	}

	writeErr := encoder.Write(buffer)
	if writeErr != nil {
		_ = encoder.Close()
		_ = file.Close()

		return fmt.Errorf("failed to encode WAV data: %w", writeErr)
	}

	closeErr := encoder.Close()
	if closeErr != nil {
		_ = file.Close()

		return fmt.Errorf("failed to finalize WAV file: %w", closeErr)
	}

	fileCloseErr := file.Close()
	if fileCloseErr != nil {
		return fmt.Errorf("failed to close artifact %s: %w", path, fileCloseErr)
	}

	return nil
}
