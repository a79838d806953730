// SPDX-License-Identifier: MPL-2.0

//go:build unix

package pathcheck

import "golang.org/x/sys/unix"

// accessWriteable reports whether the effective user can write into path.
func accessWriteable(path string) error {
	return unix.Access(path, unix.W_OK)
}
