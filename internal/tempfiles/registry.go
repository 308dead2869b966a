package tempfiles

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ytget/mediaflow/internal/platform"
)

// Defaults for the on-disk scratch directory and the startup sweep
const (
	ScratchDirName = "mediaflow"
	StaleAge       = 24 * time.Hour
)

// Registry tracks every temporary file the pipeline creates so it can be
// removed on session end regardless of outcome. Files created through
// CreateFile live under a dedicated scratch directory, which lets a later
// process sweep entries that a crashed session left behind.
type Registry struct {
	logger zerolog.Logger

	mu    sync.Mutex
	dir   string
	paths map[string]struct{}
}

// NewRegistry creates a registry rooted in the system temp directory
func NewRegistry(logger zerolog.Logger) *Registry {
	return NewRegistryAt(filepath.Join(os.TempDir(), ScratchDirName), logger)
}

// NewRegistryAt creates a registry rooted at dir
func NewRegistryAt(dir string, logger zerolog.Logger) *Registry {
	return &Registry{
		logger: logger.With().Str("component", "tempfiles").Logger(),
		dir:    dir,
		paths:  make(map[string]struct{}),
	}
}

// Dir returns the scratch directory path
func (r *Registry) Dir() string {
	return r.dir
}

// CreateFile writes data to a freshly named file in the scratch directory
// with owner-only permissions and registers it for cleanup.
func (r *Registry) CreateFile(prefix, ext string, data []byte) (string, error) {
	if err := platform.CreateDirectoryIfNotExists(r.dir); err != nil {
		return "", fmt.Errorf("failed to create scratch directory: %w", err)
	}
	path := filepath.Join(r.dir, prefix+"-"+newFileToken()+ext)
	if err := os.WriteFile(path, data, platform.OwnerOnlyPermissions); err != nil {
		return "", fmt.Errorf("failed to write temp file: %w", err)
	}
	r.Register(path)
	return path, nil
}

// Register adds an externally created path to the cleanup set
func (r *Registry) Register(path string) {
	if path == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths[path] = struct{}{}
}

// Forget drops a path from the cleanup set without removing the file.
// Used once a staged output has been promoted to its final name.
func (r *Registry) Forget(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.paths, path)
}

// Remove deletes a single registered path from disk and from the set
func (r *Registry) Remove(path string) {
	r.mu.Lock()
	delete(r.paths, path)
	r.mu.Unlock()

	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		r.logger.Warn().Err(err).Str("path", path).Msg("failed to remove temp file")
	}
}

// Cleanup removes every registered path. Missing files are not errors.
func (r *Registry) Cleanup() {
	r.mu.Lock()
	paths := make([]string, 0, len(r.paths))
	for p := range r.paths {
		paths = append(paths, p)
	}
	r.paths = make(map[string]struct{})
	r.mu.Unlock()

	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			r.logger.Warn().Err(err).Str("path", p).Msg("failed to remove temp file")
		}
	}
}

// Len returns the number of tracked paths
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.paths)
}

// SweepStale removes files in the scratch directory older than maxAge.
// Intended to run at startup to collect leftovers from crashed sessions.
// Failures are cosmetic and only logged.
func (r *Registry) SweepStale(maxAge time.Duration) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if !os.IsNotExist(err) {
			r.logger.Warn().Err(err).Str("dir", r.dir).Msg("stale sweep skipped")
		}
		return
	}
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		path := filepath.Join(r.dir, entry.Name())
		if err := os.Remove(path); err != nil {
			r.logger.Warn().Err(err).Str("path", path).Msg("failed to sweep stale temp file")
			continue
		}
		r.logger.Debug().Str("path", path).Msg("swept stale temp file")
	}
}

// newFileToken returns a unique file name component
func newFileToken() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return id.String()
}
