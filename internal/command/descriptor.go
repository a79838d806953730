// SPDX-License-Identifier: MPL-2.0

// Package command defines the descriptor type for one exposed command and the
// canonical naming and merge rules applied when descriptors from multiple
// sources collide.
package command

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/exp/maps"
)

// ErrInvalidDescriptor is the sentinel error wrapped by InvalidDescriptorError.
var ErrInvalidDescriptor = errors.New("invalid command descriptor")

type (
	// Descriptor is the normalized record of one exposed command.
	//
	// Name is the canonical command identifier (see CanonicalName). BinPath is
	// the absolute path to the executable; it must exist by first invocation
	// but not necessarily at registration time (late-fetched binaries).
	Descriptor struct {
		// Name is the canonical, registry-unique command name.
		Name string
		// BinPath is the filesystem path of the executable to run.
		BinPath string
		// Help is human-readable usage text. Empty means "not yet computed";
		// the registry fills it lazily from the binary's own help output.
		Help string
		// Timeout overrides the global per-invocation timeout when > 0.
		Timeout time.Duration
		// EnvVars are extra environment variables set for each invocation.
		EnvVars map[string]string
		// Extra holds passthrough fields from config entries that the core
		// does not interpret. They survive merges with the same shallow
		// override semantics as the typed fields.
		Extra map[string]any
	}

	// InvalidDescriptorError is returned when a Descriptor fails validation.
	// It wraps ErrInvalidDescriptor for errors.Is() compatibility.
	InvalidDescriptorError struct {
		Name   string
		Reason string
	}
)

// Error implements the error interface.
func (e *InvalidDescriptorError) Error() string {
	return fmt.Sprintf("invalid command descriptor %q: %s", e.Name, e.Reason)
}

// Unwrap returns ErrInvalidDescriptor so callers can use errors.Is.
func (e *InvalidDescriptorError) Unwrap() error { return ErrInvalidDescriptor }

// CanonicalName normalizes a raw command name: lowercased, surrounding
// whitespace trimmed, internal spaces replaced with underscores.
func CanonicalName(raw string) string {
	name := strings.ToLower(strings.TrimSpace(raw))
	return strings.ReplaceAll(name, " ", "_")
}

// IsValid returns whether the Descriptor can be registered, and a list of
// validation errors if it cannot.
func (d *Descriptor) IsValid() (bool, []error) {
	var errs []error
	if d.Name == "" {
		errs = append(errs, &InvalidDescriptorError{Name: d.Name, Reason: "name is empty"})
	}
	if d.Name != CanonicalName(d.Name) {
		errs = append(errs, &InvalidDescriptorError{Name: d.Name, Reason: "name is not canonical"})
	}
	if d.BinPath == "" {
		errs = append(errs, &InvalidDescriptorError{Name: d.Name, Reason: "bin_path is empty"})
	}
	return len(errs) == 0, errs
}

// Merge applies other on top of d with field-level override semantics:
// non-zero incoming scalar fields replace the existing value, incoming
// EnvVars/Extra keys replace same-named keys, and keys unique to either side
// are kept. Nested values are never merged recursively.
func (d *Descriptor) Merge(other *Descriptor) {
	if other == nil {
		return
	}
	if other.BinPath != "" {
		d.BinPath = other.BinPath
	}
	if other.Help != "" {
		d.Help = other.Help
	}
	if other.Timeout > 0 {
		d.Timeout = other.Timeout
	}
	if len(other.EnvVars) > 0 {
		if d.EnvVars == nil {
			d.EnvVars = make(map[string]string, len(other.EnvVars))
		}
		maps.Copy(d.EnvVars, other.EnvVars)
	}
	if len(other.Extra) > 0 {
		if d.Extra == nil {
			d.Extra = make(map[string]any, len(other.Extra))
		}
		maps.Copy(d.Extra, other.Extra)
	}
}

// Clone returns a deep-enough copy of d: scalar fields plus fresh EnvVars and
// Extra maps. The registry hands out clones so the finalized table stays
// immutable.
func (d *Descriptor) Clone() *Descriptor {
	c := &Descriptor{
		Name:    d.Name,
		BinPath: d.BinPath,
		Help:    d.Help,
		Timeout: d.Timeout,
	}
	if d.EnvVars != nil {
		c.EnvVars = maps.Clone(d.EnvVars)
	}
	if d.Extra != nil {
		c.Extra = maps.Clone(d.Extra)
	}
	return c
}
