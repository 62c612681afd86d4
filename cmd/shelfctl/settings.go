package main

import (
	"context"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/shelfwise/shelfwise-server/internal/service"
)

func newSettingsCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or reset the circulation policy",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the current policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, i do.Injector) error {
				policy, err := do.MustInvoke[*service.SettingsService](i).Get(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), policy)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the default policy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, i do.Injector) error {
				policy, err := do.MustInvoke[*service.SettingsService](i).Reset(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), policy)
			})
		},
	})

	return cmd
}
