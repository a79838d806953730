// SPDX-License-Identifier: MPL-2.0

// Package pathcheck validates directories used as configuration roots.
// A valid root is an existing, readable directory that is not a special
// file; an empty directory is valid.
package pathcheck

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
)

// ErrInvalidPath is the sentinel error wrapped by InvalidPathError.
var ErrInvalidPath = errors.New("invalid path")

type (
	// Reason identifies why a path failed validation.
	Reason string

	// InvalidPathError is returned when a path fails one of the root checks.
	// It wraps ErrInvalidPath for errors.Is() compatibility.
	InvalidPathError struct {
		Path   string
		Reason Reason
		Cause  error
	}
)

// Validation failure reasons.
const (
	ReasonNotExist    Reason = "does not exist"
	ReasonRegularFile Reason = "is a file, not a directory"
	ReasonFIFO        Reason = "is a FIFO"
	ReasonDevice      Reason = "is a block or character device"
	ReasonSocket      Reason = "is a socket"
	ReasonUnreadable  Reason = "is not readable"
	ReasonUnwriteable Reason = "is not writeable"
)

// Error implements the error interface.
func (e *InvalidPathError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("path %q %s: %v", e.Path, e.Reason, e.Cause)
	}
	return fmt.Sprintf("path %q %s", e.Path, e.Reason)
}

// Unwrap returns ErrInvalidPath so callers can use errors.Is.
func (e *InvalidPathError) Unwrap() error { return ErrInvalidPath }

// Check validates path as a usable root directory. When writeable is true it
// additionally verifies the effective user can write into the directory.
//
// The readability check reads a single directory entry; an empty directory
// (io.EOF) is valid, a permission failure is not.
func Check(path string, writeable bool) error {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &InvalidPathError{Path: path, Reason: ReasonNotExist}
		}
		return &InvalidPathError{Path: path, Reason: ReasonUnreadable, Cause: err}
	}

	if reason, special := specialFileReason(info.Mode()); special {
		return &InvalidPathError{Path: path, Reason: reason}
	}
	if !info.IsDir() {
		return &InvalidPathError{Path: path, Reason: ReasonRegularFile}
	}

	if err := checkReadable(path); err != nil {
		return err
	}

	if writeable {
		if err := accessWriteable(path); err != nil {
			return &InvalidPathError{Path: path, Reason: ReasonUnwriteable, Cause: err}
		}
	}
	return nil
}

// specialFileReason maps non-directory special mode bits to a failure reason.
func specialFileReason(mode fs.FileMode) (Reason, bool) {
	switch {
	case mode&fs.ModeNamedPipe != 0:
		return ReasonFIFO, true
	case mode&fs.ModeDevice != 0, mode&fs.ModeCharDevice != 0:
		return ReasonDevice, true
	case mode&fs.ModeSocket != 0:
		return ReasonSocket, true
	}
	return "", false
}

// checkReadable attempts to enumerate one entry of the directory. Absence of
// entries is valid; only enumeration permission failures invalidate the path.
func checkReadable(path string) error {
	dir, err := os.Open(path)
	if err != nil {
		return &InvalidPathError{Path: path, Reason: ReasonUnreadable, Cause: err}
	}
	defer dir.Close()

	if _, err := dir.ReadDir(1); err != nil && !errors.Is(err, io.EOF) {
		return &InvalidPathError{Path: path, Reason: ReasonUnreadable, Cause: err}
	}
	return nil
}
