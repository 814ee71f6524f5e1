package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/strapi/strapi-sub004/internal/application/releases"
)

func newSettingsCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Read or change release settings",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the settings record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			settings, err := app.Releases.GetSettings(commandContext(cmd))
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), settings)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default timezone: %s\n", valueOrFallback(settings.DefaultTimezone, "(none)"))
			return nil
		},
	})

	var timezone string
	set := &cobra.Command{
		Use:   "set",
		Short: "Replace the settings record",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := openApp(cmd, flags)
			if err != nil {
				return err
			}
			settings, err := app.Releases.UpdateSettings(commandContext(cmd), releases.SettingsInput{DefaultTimezone: timezone})
			if err != nil {
				return err
			}
			if flags.jsonOutput {
				return printJSON(cmd.OutOrStdout(), settings)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Default timezone: %s\n", valueOrFallback(settings.DefaultTimezone, "(none)"))
			return nil
		},
	}
	set.Flags().StringVar(&timezone, "default-timezone", "", "IANA zone used for new schedules (empty clears it)")
	cmd.AddCommand(set)

	return cmd
}
