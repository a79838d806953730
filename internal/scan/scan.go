// SPDX-License-Identifier: MPL-2.0

// Package scan lists the plain executable files directly under a root
// directory. It is one of the two descriptor sources merged into the command
// registry, alongside the declarative config loader.
package scan

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
)

// anyExec matches the owner, group, or other execute permission bit.
const anyExec fs.FileMode = 0o111

// Executables returns the paths of all executable regular files that are
// direct children of root. Directories and symlinks resolving to directories
// are skipped; a symlink resolving to an executable regular file counts.
// The order of the returned slice is unspecified.
func Executables(root string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	var execs []string
	for _, entry := range entries {
		path := filepath.Join(root, entry.Name())

		// Stat follows symlinks, matching what execution itself will do.
		info, err := os.Stat(path)
		if err != nil {
			slog.Debug("skipping unstatable entry during scan", "path", path, "error", err)
			continue
		}
		if !info.Mode().IsRegular() {
			continue
		}
		if info.Mode().Perm()&anyExec == 0 {
			continue
		}
		execs = append(execs, path)
	}
	return execs, nil
}
