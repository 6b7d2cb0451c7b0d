// Package project manages the project registry and resolves each
// project's sandbox root. The root is re-resolved on every tool call so
// a directory that disappears or gets replaced by a symlink is caught
// at the next call, not at the next restart.
package project

import (
	"os"
	"strings"
	"time"

	"reposcope/internal/errors"
	"reposcope/internal/paths"
)

// Project is one registered document root.
type Project struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	DocPath     string `json:"docPath"`
	Theme       string `json:"theme"`
	CreatedAt   string `json:"createdAt"`
}

// NewProject creates an in-memory project with the creation timestamp set.
func NewProject(name, description, docPath, theme string) *Project {
	return &Project{
		Name:        strings.TrimSpace(name),
		Description: description,
		DocPath:     strings.TrimSpace(docPath),
		Theme:       theme,
		CreatedAt:   time.Now().UTC().Format(time.RFC3339),
	}
}

// ResolveRoot validates and canonicalizes the project's document root.
// An empty docPath yields ROOT_NOT_CONFIGURED; a path that is missing,
// unreadable, or not a directory yields ROOT_INVALID. The returned path
// is absolute with symlinks resolved.
func (p *Project) ResolveRoot() (string, error) {
	if strings.TrimSpace(p.DocPath) == "" {
		return "", errors.New(errors.RootNotConfigured,
			"project has no document root configured")
	}

	root, err := paths.Canonicalize(p.DocPath)
	if err != nil {
		return "", errors.Wrap(errors.RootInvalid, "cannot resolve document root", err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return "", errors.Wrap(errors.RootInvalid, "document root is not accessible", err)
	}
	if !info.IsDir() {
		return "", errors.New(errors.RootInvalid, "document root is not a directory")
	}

	return root, nil
}
