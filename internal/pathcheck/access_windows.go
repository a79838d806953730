// SPDX-License-Identifier: MPL-2.0

//go:build windows

package pathcheck

import (
	"os"
	"path/filepath"
)

// accessWriteable probes writability by creating and removing a scratch file.
// Windows has no faccessat equivalent that honors ACLs reliably.
func accessWriteable(path string) error {
	probe, err := os.CreateTemp(path, ".chatops-writecheck-*")
	if err != nil {
		return err
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(filepath.Clean(name))
}
