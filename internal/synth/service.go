package synth

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/logger"
	"github.com/google/uuid"

	"github.com/book-expert/tts-gateway/internal/artifact"
	"github.com/book-expert/tts-gateway/internal/core"
	"github.com/book-expert/tts-gateway/internal/engine"
	"github.com/book-expert/tts-gateway/internal/preset"
)

// Request parameter keys reported in missing-parameter errors.
const (
	keyRefAudioPath  = "ref_audio_path"
	keyPromptText    = "prompt_text"
	keyPromptLang    = "prompt_language"
	keyText          = "text"
	keyTextLang      = "text_language"
	keyGPTWeights    = "gpt_weights"
	keySovitsWeights = "sovits_weights"
)

// Artifact suffixes.
const (
	suffixWAV = ".wav"
	suffixZip = ".zip"
)

// Log formats.
const (
	logFmtSynthesized   = "Synthesized %d samples at %d Hz -> %s"
	logFmtBatchRow      = "Batch row %d/%d -> %s"
	logFmtArchiveFailed = "Failed to archive artifact '%s': %v"
	logFmtArchived      = "Archived artifact as '%s'"
	archiveKeyFormatWAV = "%s.wav"
)

// Service turns validated requests into audio artifacts. It owns none of the
// artifacts it creates: cleanup obligations transfer to the caller with the
// returned paths.
type Service struct {
	presets   *preset.Table
	handle    *engine.Handle
	artifacts *artifact.Manager
	store     core.ArtifactStore
	log       *logger.Logger
}

// NewService creates a synthesis service. The store may be nil, in which
// case generated audio is not archived.
func NewService(
	presets *preset.Table,
	handle *engine.Handle,
	artifacts *artifact.Manager,
	store core.ArtifactStore,
	log *logger.Logger,
) *Service {
	return &Service{
		presets:   presets,
		handle:    handle,
		artifacts: artifacts,
		store:     store,
		log:       log,
	}
}

// Artifacts exposes the artifact manager so callers can schedule cleanup of
// the paths this service returns.
func (s *Service) Artifacts() *artifact.Manager {
	return s.artifacts
}

// Characters lists the known character preset names.
func (s *Service) Characters() []string {
	return s.presets.Names()
}

// resolvedRequest is a request with its character shorthand expanded and its
// language fields mapped to engine tags.
type resolvedRequest struct {
	gptWeights    string
	sovitsWeights string
	job           core.SynthesisJob
}

// resolve expands the character shorthand, validates required fields and
// sampling parameters, and maps languages and the cut strategy.
func (s *Service) resolve(req Request) (resolvedRequest, error) {
	if req.CharacterName != "" {
		item, err := s.presets.Resolve(req.CharacterName)
		if err != nil {
			return resolvedRequest{}, err
		}

		req.RefAudioPath = item.AudioPath
		req.PromptText = item.RefText
		req.PromptLang = item.RefLanguage
		req.GPTWeights = item.GPTWeights
		req.SovitsWeights = item.SovitsWeights
	}

	err := validateIdentity(&req)
	if err != nil {
		return resolvedRequest{}, err
	}

	err = req.validateSampling()
	if err != nil {
		return resolvedRequest{}, err
	}

	textLang, err := ResolveLanguage(req.TextLang)
	if err != nil {
		return resolvedRequest{}, err
	}

	promptLang := ""
	if req.PromptLang != "" {
		promptLang, err = ResolveLanguage(req.PromptLang)
		if err != nil {
			return resolvedRequest{}, err
		}
	}

	cutStrategy, err := ResolveCutStrategy(req.HowToCut)
	if err != nil {
		return resolvedRequest{}, err
	}

	return resolvedRequest{
		gptWeights:    req.GPTWeights,
		sovitsWeights: req.SovitsWeights,
		job: core.SynthesisJob{
			RefAudioPath:   req.RefAudioPath,
			PromptText:     req.PromptText,
			PromptLanguage: promptLang,
			Text:           req.Text,
			TextLanguage:   textLang,
			CutStrategy:    cutStrategy,
			TopK:           req.TopK,
			TopP:           req.TopP,
			Temperature:    req.Temperature,
			RefFree:        req.RefFree,
		},
	}, nil
}

// validateIdentity checks the fields every synthesis needs. Prompt text and
// prompt language are only required in reference-guided mode.
func validateIdentity(req *Request) error {
	type requiredCheck struct {
		key   string
		value string
	}

	checks := []requiredCheck{
		{keyText, req.Text},
		{keyTextLang, req.TextLang},
		{keyRefAudioPath, req.RefAudioPath},
		{keyGPTWeights, req.GPTWeights},
		{keySovitsWeights, req.SovitsWeights},
	}

	if !req.RefFree {
		checks = append(checks,
			requiredCheck{keyPromptText, req.PromptText},
			requiredCheck{keyPromptLang, req.PromptLang},
		)
	}

	for _, check := range checks {
		err := requiredField(check.key, check.value)
		if err != nil {
			return err
		}
	}

	return nil
}

// Synthesize runs one synthesis request and returns the path of the WAV
// artifact holding the result. The cleanup obligation for the artifact
// transfers to the caller.
func (s *Service) Synthesize(ctx context.Context, req Request) (string, error) {
	resolved, err := s.resolve(req)
	if err != nil {
		return "", err
	}

	clip, err := s.handle.Synthesize(
		ctx,
		resolved.gptWeights,
		resolved.sovitsWeights,
		resolved.job,
	)
	if err != nil {
		return "", err
	}

	path, err := s.artifacts.Create(suffixWAV)
	if err != nil {
		return "", err
	}

	writeErr := writeClipWAV(path, clip)
	if writeErr != nil {
		_ = s.artifacts.Remove(path)

		return "", writeErr
	}

	s.log.Info(logFmtSynthesized, len(clip.Samples), clip.SampleRate, path)

	s.archive(ctx, path)

	return path, nil
}

// archive best-effort uploads the artifact to the configured store. Archive
// failures never fail the request; the caller already has its audio.
func (s *Service) archive(ctx context.Context, path string) {
	if s.store == nil {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		s.log.Warn(logFmtArchiveFailed, path, err)

		return
	}

	key := fmt.Sprintf(archiveKeyFormatWAV, uuid.NewString())

	err = s.store.Upload(ctx, key, data)
	if err != nil {
		s.log.Warn(logFmtArchiveFailed, path, err)

		return
	}

	s.log.Info(logFmtArchived, key)
}

// BatchResult carries the artifacts of a successful batch: the zip, the
// working directory holding the per-row WAVs, and the row paths in order.
// Cleanup of ZipPath and RowDir is the caller's obligation.
type BatchResult struct {
	ZipPath  string
	RowDir   string
	RowPaths []string
}

// SynthesizeBatch runs the rows of a batch strictly in order, producing one
// WAV per row plus one zip aggregating them all. The first failing row
// aborts the batch: artifacts created so far are removed and no partial zip
// is produced.
func (s *Service) SynthesizeBatch(
	ctx context.Context,
	req Request,
	rows []BatchRow,
) (*BatchResult, error) {
	resolved, err := s.resolve(req)
	if err != nil {
		return nil, err
	}

	rowDir, err := s.artifacts.CreateDir()
	if err != nil {
		return nil, err
	}

	rowPaths, err := s.synthesizeRows(ctx, resolved, rows, rowDir)
	if err != nil {
		_ = s.artifacts.Remove(rowDir)

		return nil, err
	}

	zipPath, err := s.buildZip(rowPaths, req.ZipFilename)
	if err != nil {
		_ = s.artifacts.Remove(rowDir)

		return nil, err
	}

	return &BatchResult{
		ZipPath:  zipPath,
		RowDir:   rowDir,
		RowPaths: rowPaths,
	}, nil
}

// synthesizeRows produces the per-row WAV artifacts, in row order.
func (s *Service) synthesizeRows(
	ctx context.Context,
	resolved resolvedRequest,
	rows []BatchRow,
	rowDir string,
) ([]string, error) {
	rowPaths := make([]string, 0, len(rows))

	for index, row := range rows {
		job := resolved.job
		job.Text = row.Text

		clip, err := s.handle.Synthesize(
			ctx,
			resolved.gptWeights,
			resolved.sovitsWeights,
			job,
		)
		if err != nil {
			return nil, fmt.Errorf("batch row %d: %w", index+1, err)
		}

		rowPath := filepath.Join(rowDir, artifact.SanitizeFilename(row.Filename))

		writeErr := writeClipWAV(rowPath, clip)
		if writeErr != nil {
			return nil, fmt.Errorf("batch row %d: %w", index+1, writeErr)
		}

		s.log.Info(logFmtBatchRow, index+1, len(rows), rowPath)

		rowPaths = append(rowPaths, rowPath)
	}

	return rowPaths, nil
}

// buildZip aggregates the row artifacts into one zip artifact. The zip is
// always created under a generated unique name first; a caller-supplied name
// only renames it afterwards, so the cleanup target is always valid.
func (s *Service) buildZip(rowPaths []string, zipFilename string) (string, error) {
	zipPath, err := s.artifacts.Create(suffixZip)
	if err != nil {
		return "", err
	}

	writeErr := writeZip(zipPath, rowPaths)
	if writeErr != nil {
		_ = s.artifacts.Remove(zipPath)

		return "", writeErr
	}

	if zipFilename == "" {
		return zipPath, nil
	}

	if !strings.HasSuffix(strings.ToLower(zipFilename), suffixZip) {
		zipFilename += suffixZip
	}

	renamed, renameErr := s.artifacts.Rename(zipPath, zipFilename)
	if renameErr != nil {
		_ = s.artifacts.Remove(zipPath)

		return "", renameErr
	}

	return renamed, nil
}
