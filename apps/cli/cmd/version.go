package cmd

import (
	"fmt"

	"github.com/abdul-hamid-achik/gocurl/packages/backend"
	"github.com/abdul-hamid-achik/gocurl/packages/core/config"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "gocurl version %s\n", version)
		fmt.Fprintf(cmd.OutOrStdout(), "Built: %s\n", buildTime)

		name := backendFlag
		if name == "" {
			if cfg, err := config.LoadConfig(configFlag); err == nil {
				name = cfg.Backend
			}
		}
		if be, err := backend.Select(name); err == nil {
			fmt.Fprintf(cmd.OutOrStdout(), "Backend: %s (%s)\n", be.Name(), be.Version())
		}
	},
}
