package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Canonicalize normalizes a candidate path into an absolute canonical form.
// Relative candidates resolve against base. The result has no "." or ".."
// segments and, to the extent the filesystem allows, symlinks resolved --
// symlink resolution is what stops an agent from planting a link inside its
// workspace that points outside it.
//
// Canonicalize never rejects a path for being outside base; containment is
// the evaluator's job.
func Canonicalize(base, candidate string) (string, error) {
	if candidate == "" {
		return "", fmt.Errorf("%w: empty path", ErrInvalidPath)
	}
	if strings.ContainsRune(candidate, 0) {
		return "", fmt.Errorf("%w: path contains null byte", ErrInvalidPath)
	}

	abs := candidate
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(base, abs)
	}
	abs = filepath.Clean(abs)

	resolved, err := resolveSymlinks(abs)
	if err != nil {
		return "", fmt.Errorf("%w: cannot resolve %q: %v", ErrInvalidPath, candidate, err)
	}
	return resolved, nil
}

// resolveSymlinks resolves abs through the filesystem. When the target does
// not exist yet (a Write creating a new file), the deepest existing ancestor
// is resolved and the non-existent suffix reattached, so a symlinked parent
// directory still cannot smuggle the path outside the allowed roots.
func resolveSymlinks(abs string) (string, error) {
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}

	dir := abs
	var suffix []string
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			// Hit the filesystem root without finding anything.
			return abs, nil
		}
		suffix = append([]string{filepath.Base(dir)}, suffix...)
		dir = parent

		resolved, err = filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(append([]string{resolved}, suffix...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
	}
}

// isContained reports whether path equals one of the roots or lies strictly
// beneath one. Both sides must already be canonical: prefix matching on raw
// input is exactly the bypass class Canonicalize exists to prevent.
func isContained(path string, roots []string) bool {
	for _, root := range roots {
		if root == "" {
			continue
		}
		if path == root {
			return true
		}
		if strings.HasPrefix(path, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}
