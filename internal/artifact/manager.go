// Package artifact manages the lifetime of generated files.
//
// Every synthesized WAV and every batch zip is an artifact: a uniquely named
// file under the manager's directory with a deletion obligation attached. The
// obligation is discharged in the scope that streams the artifact to the
// caller (a deferred cleanup), never by a fire-and-forget background task.
package artifact

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/book-expert/logger"
)

// File naming and permissions.
const (
	filePattern           = "artifact-*"
	dirPattern            = "batch-*"
	defaultDirPermissions = 0o750

	invalidCharReplacement = "_"
)

// Error and log formats.
const (
	errFmtCreateDir       = "failed to create artifact directory %s: %w"
	errFmtCreateArtifact  = "failed to create artifact: %w"
	errFmtCreateBatchDir  = "failed to create batch directory: %w"
	errFmtRenameArtifact  = "failed to rename artifact %s: %w"
	errFmtRemoveArtifact  = "failed to remove artifact %s: %w"
	errFmtInspectArtifact = "failed to inspect artifact %s: %w"
	logFmtCleanupFailed   = "Failed to clean up artifact '%s': %v"
)

// Manager creates and destroys temporary artifacts under a single directory.
//
// Creation never collides: paths come from the operating system's unique
// tempfile naming. The manager does not track total disk usage; artifacts
// leak until their cleanup runs.
type Manager struct {
	dir string
	log *logger.Logger
}

// NewManager returns a manager rooted at dir, creating dir if needed.
func NewManager(dir string, log *logger.Logger) (*Manager, error) {
	err := ensureDir(dir)
	if err != nil {
		return nil, err
	}

	return &Manager{dir: dir, log: log}, nil
}

// Dir returns the directory artifacts are created under.
func (m *Manager) Dir() string {
	return m.dir
}

// Create returns the path of a new, empty, exclusively owned file with the
// given suffix (e.g. ".wav", ".zip").
func (m *Manager) Create(suffix string) (string, error) {
	file, err := os.CreateTemp(m.dir, filePattern+suffix)
	if err != nil {
		return "", fmt.Errorf(errFmtCreateArtifact, err)
	}

	closeErr := file.Close()
	if closeErr != nil {
		return "", fmt.Errorf(errFmtCreateArtifact, closeErr)
	}

	return file.Name(), nil
}

// CreateDir returns the path of a new, uniquely named working directory.
// Removing it tears down everything placed inside.
func (m *Manager) CreateDir() (string, error) {
	dir, err := os.MkdirTemp(m.dir, dirPattern)
	if err != nil {
		return "", fmt.Errorf(errFmtCreateBatchDir, err)
	}

	return dir, nil
}

// Rename moves an artifact to a caller-chosen name inside the same directory.
// The name is sanitized and reduced to its base so callers cannot escape the
// artifact directory. The new path is returned.
func (m *Manager) Rename(path, name string) (string, error) {
	target := filepath.Join(filepath.Dir(path), filepath.Base(SanitizeFilename(name)))
	if target == path {
		return path, nil
	}

	err := os.Rename(path, target)
	if err != nil {
		return "", fmt.Errorf(errFmtRenameArtifact, path, err)
	}

	return target, nil
}

// Remove deletes an artifact. A directory is removed recursively. Removal is
// idempotent: a path that no longer exists is not an error.
func (m *Manager) Remove(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}

		return fmt.Errorf(errFmtInspectArtifact, path, err)
	}

	if info.IsDir() {
		err = os.RemoveAll(path)
	} else {
		err = os.Remove(path)
	}

	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf(errFmtRemoveArtifact, path, err)
	}

	return nil
}

// CleanupFunc returns a closure suitable for defer: it removes the artifact
// and logs, rather than propagates, any failure. Transmission success or
// failure does not affect cleanup; it always runs.
func (m *Manager) CleanupFunc(path string) func() {
	return func() {
		err := m.Remove(path)
		if err != nil {
			m.log.Warn(logFmtCleanupFailed, path, err)
		}
	}
}

// SanitizeFilename removes or replaces characters that are invalid in most
// filesystems.
func SanitizeFilename(filename string) string {
	replacer := strings.NewReplacer(
		"<", invalidCharReplacement,
		">", invalidCharReplacement,
		":", invalidCharReplacement,
		"\"", invalidCharReplacement,
		"/", invalidCharReplacement,
		"\\", invalidCharReplacement,
		"|", invalidCharReplacement,
		"?", invalidCharReplacement,
		"*", invalidCharReplacement,
	)

	return replacer.Replace(filename)
}

// IsValidAudioFile checks if a filename has a common audio file extension.
func IsValidAudioFile(filename string) bool {
	switch filepath.Ext(filename) {
	case ".wav", ".mp3", ".flac", ".ogg", ".m4a", ".aac":
		return true
	default:
		return false
	}
}

// ensureDir ensures a directory exists at the given path.
func ensureDir(path string) error {
	_, statErr := os.Stat(path)
	if os.IsNotExist(statErr) {
		mkdirErr := os.MkdirAll(path, defaultDirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf(errFmtCreateDir, path, mkdirErr)
		}
	}

	return nil
}
