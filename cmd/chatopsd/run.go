// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"chatops-anything/internal/config"
	"chatops-anything/internal/event"
	"chatops-anything/internal/executor"
	"chatops-anything/internal/host"
	"chatops-anything/internal/registry"
)

var runCmd = &cobra.Command{
	Use:   "run <command> [args...]",
	Short: "Run one registered command and print its replies",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cobraCmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		bus := event.NewBus()
		defer func() { _ = bus.Close() }()
		exec := executor.New(bus)

		// No help probing for a one-shot run; it only slows startup down.
		reg := registry.New(cfg, nil)
		if err := reg.Activate(cobraCmd.Context()); err != nil {
			printActivationIssue(cfg, err)
			return &ExitError{Code: 1, Err: err}
		}
		defer reg.Deactivate()

		disp := host.NewDispatcher(reg, exec, bus, cfg.Timeout)
		disp.Invoke(cobraCmd.Context(), args[0], strings.Join(args[1:], " "), printReplier{})
		return nil
	},
}

// printReplier prints each reply as its own stdout block.
type printReplier struct{}

// Reply implements host.Replier.
func (printReplier) Reply(text string) {
	fmt.Println(text)
}
