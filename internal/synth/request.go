// Package synth orchestrates synthesis requests: resolving character
// shorthands, driving the engine handle, and materializing results as
// temporary artifacts.
package synth

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/book-expert/tts-gateway/internal/core"
)

// Defaults applied to absent request fields, matching the public API contract.
const (
	DefaultCutStrategy = CutNone
	DefaultTopK        = 5
	DefaultTopP        = 0.7
	DefaultTemperature = 0.7
)

// Sampling parameter bounds.
const (
	maxTopK = 100
	maxTopP = 1.0
	maxTemp = 1.0
)

// Validation errors. All wrap core.ErrInvalidParameter so the HTTP layer can
// classify them as client errors.
var (
	// ErrTopKRange indicates top_k is out of [1, 100].
	ErrTopKRange = fmt.Errorf("%w: top_k must be between 1 and 100", core.ErrInvalidParameter)
	// ErrTopPRange indicates top_p is out of (0.0, 1.0].
	ErrTopPRange = fmt.Errorf("%w: top_p must be between 0.0 and 1.0", core.ErrInvalidParameter)
	// ErrTemperatureRange indicates temperature is out of (0.0, 1.0].
	ErrTemperatureRange = fmt.Errorf("%w: temperature must be between 0.0 and 1.0", core.ErrInvalidParameter)
)

// Request is the inference request accepted by the gateway. Either
// CharacterName is set, in which case the identity fields are overwritten
// from the preset table, or the identity fields (RefAudioPath, PromptText,
// PromptLanguage, GPTWeights, SovitsWeights) are all supplied explicitly.
type Request struct {
	CharacterName string  `json:"character_name,omitempty"`
	RefAudioPath  string  `json:"ref_audio_path,omitempty"`
	SovitsWeights string  `json:"sovits_weights,omitempty"`
	GPTWeights    string  `json:"gpt_weights,omitempty"`
	PromptText    string  `json:"prompt_text,omitempty"`
	PromptLang    string  `json:"prompt_language,omitempty"`
	Text          string  `json:"text"`
	TextLang      string  `json:"text_language"`
	HowToCut      string  `json:"how_to_cut,omitempty"`
	TopK          int     `json:"top_k,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	Temperature   float64 `json:"temperature,omitempty"`
	RefFree       bool    `json:"ref_free,omitempty"`
	ZipFilename   string  `json:"zip_filename,omitempty"`
}

// DecodeRequest parses a request body that is either a JSON object or a
// JSON-encoded string containing the object (both forms are accepted by the
// public API). Defaults are applied to absent fields.
func DecodeRequest(data []byte) (Request, error) {
	trimmed := bytes.TrimSpace(data)

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var inner string

		err := json.Unmarshal(trimmed, &inner)
		if err != nil {
			return Request{}, fmt.Errorf("failed to unwrap request string: %w", err)
		}

		trimmed = []byte(inner)
	}

	var req Request

	err := json.Unmarshal(trimmed, &req)
	if err != nil {
		return Request{}, fmt.Errorf("failed to unmarshal request: %w", err)
	}

	req.applyDefaults()

	return req, nil
}

func (r *Request) applyDefaults() {
	if r.HowToCut == "" {
		r.HowToCut = DefaultCutStrategy
	}

	if r.TopK == 0 {
		r.TopK = DefaultTopK
	}

	if r.TopP == 0 {
		r.TopP = DefaultTopP
	}

	if r.Temperature == 0 {
		r.Temperature = DefaultTemperature
	}
}

// validateSampling checks the sampling parameters against their valid ranges.
func (r *Request) validateSampling() error {
	if r.TopK < 1 || r.TopK > maxTopK {
		return ErrTopKRange
	}

	if r.TopP <= 0 || r.TopP > maxTopP {
		return ErrTopPRange
	}

	if r.Temperature <= 0 || r.Temperature > maxTemp {
		return ErrTemperatureRange
	}

	return nil
}

// requiredField checks one identity field, reporting the missing key in the
// client-error taxonomy.
func requiredField(key, value string) error {
	if value == "" {
		return core.NewMissingParameterError(key)
	}

	return nil
}
