// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"chatops-anything/internal/config"
	"chatops-anything/internal/event"
	"chatops-anything/internal/executor"
	"chatops-anything/internal/registry"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List all registered commands",
	Long: `Build the command registry and print every registered command with the
first line of its help text. Help texts missing from config are probed from
the binaries themselves.`,
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

		commands := reg.Commands()
		if len(commands) == 0 {
			fmt.Println(SubtitleStyle.Render("No commands registered."))
			return nil
		}

		fmt.Println(TitleStyle.Render("Registered commands:"))
		for _, desc := range commands {
			fmt.Fprintf(os.Stdout, "  %s  %s\n",
				CmdStyle.Render(desc.Name),
				SubtitleStyle.Render(firstLine(desc.Help)))
		}
		return nil
	},
}

// firstLine trims a help text down to its first non-empty line.
func firstLine(help string) string {
	for _, line := range strings.Split(help, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
