// Package core defines the domain types and contracts for the TTS gateway.
package core

import "context"

// WeightKind identifies which of the two model stacks a weight file belongs to.
type WeightKind string

const (
	// WeightGPT identifies the autoregressive text model weights.
	WeightGPT WeightKind = "gpt"
	// WeightSovits identifies the vocoder model weights.
	WeightSovits WeightKind = "sovits"
)

// Clip is one synthesized audio segment: mono PCM samples at SampleRate.
type Clip struct {
	SampleRate int
	Samples    []int
}

// ClipStream is a lazy sequence of clips produced by a single synthesis call.
// Next returns io.EOF (possibly wrapped) once the sequence is exhausted.
// Callers must Close the stream when done, whether or not they drained it.
type ClipStream interface {
	Next() (*Clip, error)
	Close() error
}

// SynthesisJob holds the fully resolved inputs for one engine invocation.
// Language fields carry engine tags (e.g. "all_zh"), not display names.
type SynthesisJob struct {
	RefAudioPath   string  `json:"ref_audio_path"`
	PromptText     string  `json:"prompt_text"`
	PromptLanguage string  `json:"prompt_language"`
	Text           string  `json:"text"`
	TextLanguage   string  `json:"text_language"`
	CutStrategy    string  `json:"cut_strategy"`
	TopK           int     `json:"top_k"`
	TopP           float64 `json:"top_p"`
	Temperature    float64 `json:"temperature"`
	RefFree        bool    `json:"ref_free"`
}

// SynthesisEngine is the contract of the external inference process.
// Implementations own exactly one loaded weight set per kind at a time.
type SynthesisEngine interface {
	SetActiveWeights(ctx context.Context, kind WeightKind, path string) error
	Synthesize(ctx context.Context, job SynthesisJob) (ClipStream, error)
}

// ArtifactStore is an optional durable archive for generated audio.
type ArtifactStore interface {
	Upload(ctx context.Context, key string, data []byte) error
}
