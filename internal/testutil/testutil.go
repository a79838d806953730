// SPDX-License-Identifier: MPL-2.0

// Package testutil provides fixture helpers for tests that exercise the
// command registry: writing executable scripts and config files into temp
// directories without per-test boilerplate.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteScript writes an executable shell script named name under dir and
// returns its path. body runs after the shebang line. The test fails
// immediately if the write fails.
func WriteScript(t testing.TB, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("failed to write script %s: %v", path, err)
	}
	return path
}

// WriteFile writes content to a file named name under dir with mode 0644 and
// returns its path. The test fails immediately if the write fails.
func WriteFile(t testing.TB, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write file %s: %v", path, err)
	}
	return path
}

// MustMkdirAll creates a directory along with any necessary parents.
// The test fails immediately if the operation fails.
func MustMkdirAll(t testing.TB, path string, perm os.FileMode) {
	t.Helper()
	if err := os.MkdirAll(path, perm); err != nil {
		t.Fatalf("failed to create directory %s: %v", path, err)
	}
}
