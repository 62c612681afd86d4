package main

import (
	"context"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/shelfwise/shelfwise-server/internal/di/providers"
	"github.com/shelfwise/shelfwise-server/internal/service"
)

func newSweepCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Expire stale reservations, accrue overdue fines and send ready notices",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, i do.Injector) error {
				result, err := do.MustInvoke[*service.SweepService](i).Run(ctx)
				if err != nil {
					return err
				}

				// Deliver what the sweep queued before the process exits.
				dispatcher := do.MustInvoke[*providers.DispatcherHandle](i)
				if _, _, err := dispatcher.Flush(ctx); err != nil {
					cmd.PrintErrln("notification flush failed:", err)
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
}
