// SPDX-License-Identifier: MPL-2.0

// Package temparea manages the sandboxed scratch directory used for fetched
// artifacts. Creation is idempotent per instance tag, and cleanup refuses to
// delete anything that is not a strict descendant of the system temp root.
package temparea

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/oklog/ulid/v2"
)

// dirPrefix is the fixed prefix of every scratch directory name.
const dirPrefix = "chatops-anything"

// ErrUnsafeDeletion is the sentinel error wrapped by UnsafeDeletionError.
var ErrUnsafeDeletion = errors.New("unsafe deletion refused")

type (
	// Manager creates and removes one scratch directory per process instance.
	Manager struct {
		tag  string
		root string // system temp root, overridable for tests
	}

	// UnsafeDeletionError is returned when Cleanup is asked to delete a path
	// outside the system temp root. It wraps ErrUnsafeDeletion.
	UnsafeDeletionError struct {
		Path string
		Root string
	}
)

// Error implements the error interface.
func (e *UnsafeDeletionError) Error() string {
	return fmt.Sprintf("refusing to delete %q: not a descendant of temp root %q", e.Path, e.Root)
}

// Unwrap returns ErrUnsafeDeletion so callers can use errors.Is.
func (e *UnsafeDeletionError) Unwrap() error { return ErrUnsafeDeletion }

// NewManager creates a Manager with a collision-resistant per-process tag.
func NewManager() *Manager {
	return NewManagerWithTag(strings.ToLower(ulid.Make().String()))
}

// NewManagerWithTag creates a Manager with an explicit instance tag.
// Intended for tests and for callers that persist the tag across restarts.
func NewManagerWithTag(tag string) *Manager {
	return &Manager{tag: tag, root: os.TempDir()}
}

// Tag returns the instance tag baked into the scratch directory name.
func (m *Manager) Tag() string { return m.tag }

// Path returns the scratch directory path without creating it.
func (m *Manager) Path() string {
	return filepath.Join(m.root, fmt.Sprintf("%s-%s", dirPrefix, m.tag))
}

// Create builds the scratch directory, creating parents as needed. It is
// idempotent for a given tag: re-invoking returns the same path, recreating
// the directory if it has gone missing.
func (m *Manager) Create() (string, error) {
	path := m.Path()
	if err := os.MkdirAll(path, 0o700); err != nil {
		return "", fmt.Errorf("creating temp area %s: %w", path, err)
	}
	slog.Debug("temp area ready", "path", path)
	return path, nil
}

// Cleanup deletes the directory tree at path, but only when the system temp
// root is a strict ancestor of path. Anything else is refused with an
// UnsafeDeletionError and the filesystem is left untouched. The recursive
// delete itself is best-effort: per-file removal failures are logged, not
// returned.
func (m *Manager) Cleanup(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving cleanup path %s: %w", path, err)
	}
	root, err := filepath.Abs(m.root)
	if err != nil {
		return fmt.Errorf("resolving temp root %s: %w", m.root, err)
	}

	if !isStrictDescendant(root, abs) {
		return &UnsafeDeletionError{Path: abs, Root: root}
	}

	slog.Info("removing temp area", "path", abs)
	if err := os.RemoveAll(abs); err != nil {
		slog.Warn("partial temp area cleanup", "path", abs, "error", err)
	}
	return nil
}

// isStrictDescendant reports whether child is below root (not root itself).
func isStrictDescendant(root, child string) bool {
	rel, err := filepath.Rel(root, child)
	if err != nil {
		return false
	}
	if rel == "." || rel == ".." {
		return false
	}
	return rel != "" && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
