package main

import (
	"context"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/shelfwise/shelfwise-server/internal/service"
)

func newInvalidCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "invalid",
		Short: "Inspect loans whose book or member no longer exists",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List invalid loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, i do.Injector) error {
				invalid, err := do.MustInvoke[*service.BorrowService](i).ListInvalid(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), invalid)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "purge",
		Short: "Delete every invalid loan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, i do.Injector) error {
				n, err := do.MustInvoke[*service.BorrowService](i).PurgeInvalid(ctx)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]int{"deleted": n})
			})
		},
	})

	return cmd
}
