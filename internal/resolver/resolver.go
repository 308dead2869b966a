package resolver

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sync"

	"github.com/lrstanley/go-ytdlp"
)

// ErrNotFound is returned when no executable could be resolved
var ErrNotFound = errors.New("executable not found")

// Resolver supplies the absolute path of an external tool. The pipeline
// only requires "give me an executable path or none"; how the path is
// found (configuration, PATH lookup, managed install) is up to the caller.
type Resolver interface {
	Resolve(ctx context.Context) (string, error)
}

// Static resolves to a fixed absolute path supplied by the configuration layer
type Static struct {
	Path string
}

// Resolve verifies the configured path exists and is a regular file
func (s Static) Resolve(_ context.Context) (string, error) {
	info, err := os.Stat(s.Path)
	if err != nil {
		return "", fmt.Errorf("%w: %s", ErrNotFound, s.Path)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrNotFound, s.Path)
	}
	return s.Path, nil
}

// PathLookup resolves a tool by name on the process PATH
type PathLookup struct {
	Name string
}

// Resolve performs the PATH lookup
func (p PathLookup) Resolve(_ context.Context) (string, error) {
	path, err := exec.LookPath(p.Name)
	if err != nil {
		return "", fmt.Errorf("%w: %s is not on PATH", ErrNotFound, p.Name)
	}
	return path, nil
}

// Installer resolves the fetcher by downloading and caching a managed
// yt-dlp binary. The install runs at most once per process; subsequent
// calls return the memoized result.
type Installer struct {
	once sync.Once
	path string
	err  error
}

// Resolve installs (or reuses) the managed fetcher binary
func (i *Installer) Resolve(ctx context.Context) (string, error) {
	i.once.Do(func() {
		res, err := ytdlp.Install(ctx, nil)
		if err != nil {
			i.err = fmt.Errorf("%w: install failed: %v", ErrNotFound, err)
			return
		}
		i.path = res.Executable
	})
	return i.path, i.err
}

// Chain tries each resolver in order and returns the first success
type Chain []Resolver

// Resolve walks the chain
func (c Chain) Resolve(ctx context.Context) (string, error) {
	var lastErr error
	for _, r := range c {
		path, err := r.Resolve(ctx)
		if err == nil {
			return path, nil
		}
		lastErr = err
	}
	if lastErr == nil {
		lastErr = ErrNotFound
	}
	return "", lastErr
}
