// Package preset provides the character preset table for the TTS gateway.
//
// A preset bundles the reference audio, reference text, reference language,
// and the two weight identifiers that together define one voice. The table is
// read once at startup from a static JSON file and never mutated at runtime.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/book-expert/tts-gateway/internal/core"
)

// Preset field names used in validation errors.
const (
	fieldAudioPath     = "audio_path"
	fieldRefText       = "ref_text"
	fieldRefLanguage   = "ref_language"
	fieldGPTWeights    = "gpt_weights"
	fieldSovitsWeights = "sovits_weights"
)

// Error formats.
const (
	errFmtReadPresets    = "failed to read presets file %s: %w"
	errFmtParsePresets   = "failed to parse presets file %s: %w"
	errFmtIncompleteItem = "preset %q: field %s must not be empty"
)

// Preset maps a character name to its reference material and weight paths.
// The JSON field names match the static lookup table on disk.
type Preset struct {
	AudioPath     string `json:"audio_path"`
	RefText       string `json:"ref_text"`
	RefLanguage   string `json:"ref_language"`
	GPTWeights    string `json:"gpt_weights"`
	SovitsWeights string `json:"sovits_weights"`
}

// validate checks that every field of the preset is populated. The table
// fails fast at load time rather than at request time on missing fields.
func (p Preset) validate(name string) error {
	fields := map[string]string{
		fieldAudioPath:     p.AudioPath,
		fieldRefText:       p.RefText,
		fieldRefLanguage:   p.RefLanguage,
		fieldGPTWeights:    p.GPTWeights,
		fieldSovitsWeights: p.SovitsWeights,
	}

	// Deterministic order so startup failures are stable.
	names := make([]string, 0, len(fields))
	for field := range fields {
		names = append(names, field)
	}

	sort.Strings(names)

	for _, field := range names {
		if fields[field] == "" {
			return fmt.Errorf(errFmtIncompleteItem, name, field)
		}
	}

	return nil
}

// Table is an immutable character-to-preset mapping.
type Table struct {
	presets map[string]Preset
}

// LoadTable reads and validates the preset table from a JSON file.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf(errFmtReadPresets, path, err)
	}

	return ParseTable(data)
}

// ParseTable builds and validates a preset table from raw JSON data.
func ParseTable(data []byte) (*Table, error) {
	var presets map[string]Preset

	err := json.Unmarshal(data, &presets)
	if err != nil {
		return nil, fmt.Errorf(errFmtParsePresets, "presets", err)
	}

	for name, item := range presets {
		validateErr := item.validate(name)
		if validateErr != nil {
			return nil, validateErr
		}
	}

	return &Table{presets: presets}, nil
}

// Resolve returns the preset recorded for the given character name.
// An unknown name yields a MissingParameterError naming the character.
func (t *Table) Resolve(name string) (Preset, error) {
	item, found := t.presets[name]
	if !found {
		return Preset{}, core.NewMissingParameterError(name)
	}

	return item, nil
}

// Names returns the known character names in sorted order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.presets))
	for name := range t.presets {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
