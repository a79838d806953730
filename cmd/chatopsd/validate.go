// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"chatops-anything/internal/config"
	"chatops-anything/internal/loader"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the configured paths and config files",
	Long: `Load the configuration, validate the bin, config, and temp paths, and
report which config files would contribute commands. Nothing is executed and
no registry is built.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		if err := cfg.Validate(); err != nil {
			printActivationIssue(cfg, err)
			return &ExitError{Code: 1, Err: err}
		}

		fmt.Println(SuccessStyle.Render("Configuration is valid."))
		fmt.Printf("  bin_path:    %s\n", cfg.BinPath)
		if cfg.ConfigPath != "" {
			files, err := loader.FindConfigFiles(cfg.ConfigPath)
			if err != nil {
				return err
			}
			fmt.Printf("  config_path: %s (%d config files)\n", cfg.ConfigPath, len(files))
		} else {
			fmt.Printf("  config_path: %s\n", SubtitleStyle.Render("(unset, declarative configs disabled)"))
		}
		if cfg.TempPath != "" {
			fmt.Printf("  temp_path:   %s\n", cfg.TempPath)
		} else {
			fmt.Printf("  temp_path:   %s\n", SubtitleStyle.Render("(unset, auto-created per run)"))
		}
		fmt.Printf("  timeout:     %s\n", cfg.Timeout)
		fmt.Printf("  max size:    %d bytes\n", cfg.MaxDownloadSize)
		if len(cfg.Exclusions) > 0 {
			fmt.Printf("  exclusions:  %v\n", cfg.Exclusions)
		}
		return nil
	},
}
