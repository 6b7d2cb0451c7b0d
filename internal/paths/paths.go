// Package paths provides sandbox path resolution and normalization.
// Every tool call resolves its request path through ResolveUnder so
// that no operation can read or write outside the configured root.
package paths

import (
	"os"
	"path/filepath"
	"strings"

	"reposcope/internal/errors"
)

// ExpandUser replaces a leading ~ with the current user's home directory.
func ExpandUser(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") || strings.HasPrefix(path, `~\`) {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}

// Canonicalize resolves symlinks and returns an absolute, cleaned path.
// Paths that do not exist yet resolve through their deepest existing
// ancestor, so a write target inside the sandbox canonicalizes correctly
// before the file is created.
func Canonicalize(path string) (string, error) {
	abs, err := filepath.Abs(ExpandUser(path))
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		return resolved, nil
	}
	if !os.IsNotExist(err) {
		return "", err
	}
	// Walk up to the nearest existing ancestor, resolve it, then re-attach
	// the missing suffix.
	dir := abs
	var suffix []string
	for {
		parent := filepath.Dir(dir)
		if parent == dir {
			return abs, nil
		}
		suffix = append([]string{filepath.Base(dir)}, suffix...)
		dir = parent
		resolved, err := filepath.EvalSymlinks(dir)
		if err == nil {
			return filepath.Join(append([]string{resolved}, suffix...)...), nil
		}
		if !os.IsNotExist(err) {
			return "", err
		}
	}
}

// ResolveUnder resolves input against root and confines the result to it.
// Relative inputs join the root; absolute inputs must already be
// descendants of it. The returned path is absolute with symlinks
// resolved. Escape attempts yield a PATH_ESCAPE error.
func ResolveUnder(root, input string) (string, error) {
	input = ExpandUser(strings.TrimSpace(input))

	var candidate string
	if input == "" || input == "." {
		candidate = root
	} else if filepath.IsAbs(input) {
		candidate = input
	} else {
		candidate = filepath.Join(root, filepath.FromSlash(input))
	}

	resolved, err := Canonicalize(candidate)
	if err != nil {
		return "", errors.Wrap(errors.PathEscape, "cannot resolve path", err)
	}
	if !IsWithin(resolved, root) {
		return "", errors.NewPathEscapeError(resolved, root)
	}
	return resolved, nil
}

// IsWithin reports whether path equals root or is a descendant of it.
// Both arguments must already be canonical absolute paths.
func IsWithin(path, root string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}

// RelPosix returns path relative to root with forward slashes.
// Returns "." when path equals root.
func RelPosix(root, path string) string {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// NormalizeRel normalizes a scope-relative path: trims whitespace,
// converts backslashes to forward slashes, and strips leading "./" and
// surrounding slashes. The empty string and "." both normalize to "".
func NormalizeRel(path string) string {
	p := strings.TrimSpace(path)
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	p = strings.Trim(p, "/")
	if p == "." {
		return ""
	}
	return p
}

// Join joins a root with a slash-separated relative path using the OS
// separator.
func Join(root, rel string) string {
	if rel == "" || rel == "." {
		return root
	}
	parts := strings.Split(strings.ReplaceAll(rel, "\\", "/"), "/")
	return filepath.Join(append([]string{root}, parts...)...)
}
