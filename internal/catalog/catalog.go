// Package catalog discovers named model weights grouped by speaker.
//
// The on-disk layout is one directory per speaker, each containing weight
// files. A catalog instance covers a single weight kind (gpt or sovits) and
// can be refreshed on demand while requests are in flight.
package catalog

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Weight file extensions recognized during discovery.
const (
	extPTH         = ".pth"
	extCKPT        = ".ckpt"
	extBIN         = ".bin"
	extSafetensors = ".safetensors"
)

// Error messages.
const (
	errModelNotFoundMsg = "model not found"
	errFmtReadRoot      = "failed to read catalog root %s: %w"
	errFmtReadSpeaker   = "failed to read speaker directory %s: %w"
	errFmtModelNotFound = "%w: %s/%s"
)

// ErrModelNotFound is returned when a speaker/model pair is not in the catalog.
var ErrModelNotFound = errors.New(errModelNotFoundMsg)

// Catalog maps speaker names to named weight files under a root directory.
type Catalog struct {
	mu     sync.RWMutex
	root   string
	models map[string]map[string]string
}

// New creates a catalog over root and performs the initial scan.
func New(root string) (*Catalog, error) {
	catalog := &Catalog{
		mu:     sync.RWMutex{},
		root:   root,
		models: nil,
	}

	err := catalog.Refresh()
	if err != nil {
		return nil, err
	}

	return catalog, nil
}

// Refresh rescans the root directory, replacing the in-memory listing.
func (c *Catalog) Refresh() error {
	entries, err := os.ReadDir(c.root)
	if err != nil {
		return fmt.Errorf(errFmtReadRoot, c.root, err)
	}

	models := make(map[string]map[string]string)

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		speakerModels, scanErr := c.scanSpeaker(entry.Name())
		if scanErr != nil {
			return scanErr
		}

		if len(speakerModels) > 0 {
			models[entry.Name()] = speakerModels
		}
	}

	c.mu.Lock()
	c.models = models
	c.mu.Unlock()

	return nil
}

// scanSpeaker lists the weight files directly under one speaker directory.
func (c *Catalog) scanSpeaker(speaker string) (map[string]string, error) {
	speakerDir := filepath.Join(c.root, speaker)

	entries, err := os.ReadDir(speakerDir)
	if err != nil {
		return nil, fmt.Errorf(errFmtReadSpeaker, speakerDir, err)
	}

	speakerModels := make(map[string]string)

	for _, entry := range entries {
		if entry.IsDir() || !isWeightFile(entry.Name()) {
			continue
		}

		speakerModels[entry.Name()] = filepath.Join(speakerDir, entry.Name())
	}

	return speakerModels, nil
}

// ModelsBySpeaker returns a copy of the current speaker-to-models mapping.
func (c *Catalog) ModelsBySpeaker() map[string]map[string]string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	listing := make(map[string]map[string]string, len(c.models))

	for speaker, speakerModels := range c.models {
		copied := make(map[string]string, len(speakerModels))
		for model, path := range speakerModels {
			copied[model] = path
		}

		listing[speaker] = copied
	}

	return listing
}

// Resolve returns the weight path recorded for a speaker/model pair.
func (c *Catalog) Resolve(speaker, model string) (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	speakerModels, found := c.models[speaker]
	if !found {
		return "", fmt.Errorf(errFmtModelNotFound, ErrModelNotFound, speaker, model)
	}

	path, found := speakerModels[model]
	if !found {
		return "", fmt.Errorf(errFmtModelNotFound, ErrModelNotFound, speaker, model)
	}

	return path, nil
}

func isWeightFile(name string) bool {
	switch filepath.Ext(name) {
	case extPTH, extCKPT, extBIN, extSafetensors:
		return true
	default:
		return false
	}
}
