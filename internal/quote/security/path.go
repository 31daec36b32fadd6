// Package security guards user-supplied paths so tool calls cannot reach
// outside the configured upload directory.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator confines file operations to one directory tree.
type PathValidator struct {
	root string
}

// NewPathValidator creates a validator rooted at dir.
func NewPathValidator(dir string) (*PathValidator, error) {
	if dir == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve configured directory: %w", err)
	}
	return &PathValidator{root: abs}, nil
}

// Root returns the configured directory.
func (v *PathValidator) Root() string {
	return v.root
}

// ValidatePath checks that path resolves inside the configured directory,
// following symlinks so a link cannot smuggle a path out of the tree.
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	within, err := v.within(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	if !within {
		return fmt.Errorf("path is outside configured directory: %s", path)
	}
	return nil
}

// NormalizePath makes a relative path absolute under the configured
// directory and validates the result.
func (v *PathValidator) NormalizePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(v.root, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve path: %w", err)
	}
	if err := v.ValidatePath(abs); err != nil {
		return "", err
	}
	return abs, nil
}

func (v *PathValidator) within(path string) (bool, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return false, err
	}

	candidates := []string{filepath.Clean(abs)}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil && resolved != candidates[0] {
		candidates = append(candidates, resolved)
	}

	roots := []string{v.root}
	if resolved, err := filepath.EvalSymlinks(v.root); err == nil && resolved != v.root {
		roots = append(roots, resolved)
	}

	for _, c := range candidates {
		ok := false
		for _, root := range roots {
			if c == root || strings.HasPrefix(c, root+string(os.PathSeparator)) {
				ok = true
				break
			}
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}
