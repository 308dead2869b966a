package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// File permissions
const (
	DefaultDirPermissions  = 0755
	OwnerOnlyPermissions   = 0600
	StagedSuffixSeparator  = "_tmp-"
	DownloadsDirectoryName = "Downloads"
)

// GetHomeDownloadsDir returns the standard Downloads directory for the user
func GetHomeDownloadsDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, DownloadsDirectoryName), nil
}

// ExpandTilde replaces a leading ~ or ~/ with the user's home directory.
// Paths without a tilde are returned unchanged.
func ExpandTilde(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return homeDir
	}
	return filepath.Join(homeDir, path[2:])
}

// ValidateOutputDir expands and validates a user-supplied output directory.
// It rejects empty paths, relative paths, and any path still containing a
// parent-directory traversal after cleaning.
func ValidateOutputDir(dir string) (string, error) {
	dir = strings.TrimSpace(dir)
	if dir == "" {
		return "", fmt.Errorf("output directory is empty")
	}
	expanded := ExpandTilde(dir)
	// Checked before Clean, which would silently resolve the traversal.
	for _, part := range strings.Split(expanded, string(filepath.Separator)) {
		if part == ".." {
			return "", fmt.Errorf("output directory contains a traversal: %s", dir)
		}
	}
	expanded = filepath.Clean(expanded)
	if !filepath.IsAbs(expanded) {
		return "", fmt.Errorf("output directory is not absolute: %s", dir)
	}
	return expanded, nil
}

// CreateDirectoryIfNotExists creates directory if it doesn't exist
func CreateDirectoryIfNotExists(dirPath string) error {
	if _, err := os.Stat(dirPath); os.IsNotExist(err) {
		return os.MkdirAll(dirPath, DefaultDirPermissions)
	}
	return nil
}

// StagedPath returns a unique sibling path for finalPath used to stage a
// transcode output before the atomic swap. The staged file keeps the final
// extension so the transcoder infers the right container.
func StagedPath(finalPath string) string {
	ext := filepath.Ext(finalPath)
	stem := strings.TrimSuffix(finalPath, ext)
	return stem + StagedSuffixSeparator + uniqueToken() + ext
}

// ReplaceFile atomically moves src over dst, replacing any existing file.
// On platforms where rename cannot replace, the destination is removed first.
func ReplaceFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := os.Remove(dst); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear destination %s: %w", dst, err)
	}
	if err := os.Rename(src, dst); err != nil {
		return fmt.Errorf("failed to move %s to %s: %w", src, dst, err)
	}
	return nil
}

// uniqueToken returns a short unique path component
func uniqueToken() string {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Sprintf("%d", os.Getpid())
	}
	s := id.String()
	return s[len(s)-12:]
}
