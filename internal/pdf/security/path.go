// Package security confines template, definition and output paths to the
// configured working directory.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator resolves paths against a root directory and rejects any that
// escape it, including through symlinks
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at root. The directory does not
// have to exist yet; until it does every path is accepted.
func NewPathValidator(root string) (*PathValidator, error) {
	if root == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	return &PathValidator{root: root}, nil
}

// GetConfiguredDirectory returns the root directory
func (v *PathValidator) GetConfiguredDirectory() string {
	return v.root
}

// Resolve makes path absolute, relative paths being taken from the root, and
// checks it stays inside the root
func (v *PathValidator) Resolve(path string) (string, error) {
	path = strings.ReplaceAll(path, "\x00", "")
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}
	if err := v.ValidatePath(abs); err != nil {
		return "", err
	}
	return abs, nil
}

// ResolveOutput resolves a file that is about to be written. The file may not
// exist; its parent directory must resolve inside the root.
func (v *PathValidator) ResolveOutput(path string) (string, error) {
	abs, err := v.Resolve(path)
	if err != nil {
		return "", err
	}
	if info, err := os.Lstat(abs); err == nil && info.IsDir() {
		return "", fmt.Errorf("output path is a directory: %s", path)
	}
	if err := v.ValidatePath(filepath.Dir(abs)); err != nil {
		return "", err
	}
	return abs, nil
}

// ValidatePath checks that path is inside the root
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	within, err := v.IsPathWithinDirectory(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	if !within {
		return fmt.Errorf("path is outside configured directory: %s", path)
	}
	return nil
}

// ValidateDirectory checks that dirPath is inside the root and, if it exists,
// is a directory
func (v *PathValidator) ValidateDirectory(dirPath string) error {
	if err := v.ValidatePath(dirPath); err != nil {
		return err
	}

	info, err := os.Stat(dirPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dirPath)
	}
	return nil
}

// IsPathWithinDirectory reports whether path, both as written and with
// symlinks resolved, lies inside the root
func (v *PathValidator) IsPathWithinDirectory(path string) (bool, error) {
	if _, err := os.Stat(v.root); os.IsNotExist(err) {
		return true, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	absRoot, err := filepath.Abs(v.root)
	if err != nil {
		return false, fmt.Errorf("failed to resolve configured directory: %w", err)
	}

	roots := []string{filepath.Clean(absRoot)}
	if real, err := filepath.EvalSymlinks(absRoot); err == nil && real != roots[0] {
		roots = append(roots, real)
	}

	candidates := []string{filepath.Clean(absPath)}
	if real, ok := realPath(candidates[0]); ok {
		candidates = append(candidates, real)
	}

	for _, c := range candidates {
		if !underAny(c, roots) {
			return false, nil
		}
	}
	return true, nil
}

// realPath resolves symlinks in the longest existing prefix of path
func realPath(path string) (string, bool) {
	if real, err := filepath.EvalSymlinks(path); err == nil {
		return real, true
	}
	parent := filepath.Dir(path)
	if parent == path {
		return "", false
	}
	real, ok := realPath(parent)
	if !ok {
		return "", false
	}
	return filepath.Join(real, filepath.Base(path)), true
}

func underAny(path string, roots []string) bool {
	for _, root := range roots {
		if path == root || strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
