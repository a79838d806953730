// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"chatops-anything/internal/config"
	"chatops-anything/internal/event"
	"chatops-anything/internal/executor"
	"chatops-anything/internal/host"
	"chatops-anything/internal/issue"
	"chatops-anything/internal/pathcheck"
	"chatops-anything/internal/registry"
)

// serveCmd builds the registry and serves it on the line-oriented console
// host: each stdin line is a command name plus raw argument text, replies go
// to stdout. A chat platform binding implements the same host interfaces.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve registered commands on the console host",
	Long: `Build the command registry and serve it on the console host.

Each input line is a command name followed by raw argument text:

  deploy prod --dry-run

Every invocation replies twice: an acknowledgment with the process ID as
soon as the subprocess spawns, then the captured output with the exit code
(or a timeout notice).`,
	RunE: func(cobraCmd *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		bus := event.NewBus()
		defer func() { _ = bus.Close() }()
		exec := executor.New(bus)

		reg := registry.New(cfg, exec)
		if err := reg.Activate(cobraCmd.Context()); err != nil {
			printActivationIssue(cfg, err)
			return &ExitError{Code: 1, Err: err}
		}
		defer reg.Deactivate()

		disp := host.NewDispatcher(reg, exec, bus, cfg.Timeout)
		console := host.NewConsole(os.Stdout)
		if err := disp.RegisterAll(console); err != nil {
			return err
		}

		fmt.Fprintln(os.Stderr, SuccessStyle.Render(
			fmt.Sprintf("Serving %d commands from %s. Type '<name> [args]' and press enter.",
				len(reg.Commands()), cfg.BinPath)))
		return console.Serve(cobraCmd.Context(), os.Stdin)
	},
}

// printActivationIssue reports an activation failure with remediation
// guidance when the failure maps to a known issue.
func printActivationIssue(cfg *config.Config, err error) {
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("Activation failed: ")+formatErrorForDisplay(err, verbose))

	var ipe *pathcheck.InvalidPathError
	if !errors.As(err, &ipe) {
		return
	}
	id := issue.InvalidBinPathId
	switch ipe.Path {
	case cfg.ConfigPath:
		id = issue.InvalidConfigPathId
	case cfg.TempPath:
		id = issue.InvalidTempPathId
	}
	if rendered, rerr := issue.Get(id).Render("dark"); rerr == nil {
		fmt.Fprintln(os.Stderr, rendered)
	}
}
