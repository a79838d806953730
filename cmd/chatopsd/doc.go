// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for chatopsd.
//
// This package implements the Cobra command hierarchy for the chatopsd CLI:
// the root command, the serve loop binding the command registry to a host,
// and the list/run/validate utilities.
package cmd
