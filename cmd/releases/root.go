package main

import (
	"github.com/spf13/cobra"

	"github.com/strapi/strapi-sub004/internal/infrastructure/logging"
)

type rootFlags struct {
	configPath string
	verbose    bool
	jsonOutput bool

	// boot buffers log entries until the configured logger exists.
	boot *logging.Bootstrap
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{boot: logging.NewBootstrap(0)}

	cmd := &cobra.Command{
		Use:           "releases",
		Short:         "Bundle content changes into releases and publish them atomically",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Path to configuration file (default releases.yaml)")
	cmd.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "Enable debug logging")
	cmd.PersistentFlags().BoolVar(&flags.jsonOutput, "json", false, "Output JSON instead of tables")

	cmd.AddCommand(newServeCmd(flags))
	cmd.AddCommand(newReleaseCmd(flags))
	cmd.AddCommand(newActionCmd(flags))
	cmd.AddCommand(newEntryCmd(flags))
	cmd.AddCommand(newSettingsCmd(flags))
	cmd.AddCommand(newVersionCmd(flags))

	return cmd
}
