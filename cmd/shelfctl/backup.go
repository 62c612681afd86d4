package main

import (
	"context"
	"errors"
	"os"

	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/shelfwise/shelfwise-server/internal/backup"
)

func newBackupCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list and restore backup archives",
	}

	var output string
	export := &cobra.Command{
		Use:   "export",
		Short: "Write a backup archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, i do.Injector) error {
				result, err := do.MustInvoke[*backup.BackupService](i).Create(ctx, backup.BackupOptions{OutputPath: output})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	export.Flags().StringVarP(&output, "output", "o", "", "Archive path (default: <data-path>/backups/backup-<timestamp>.shelfwise.zip)")
	cmd.AddCommand(export)

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List archives in the backup directory",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return opts.run(cmd, func(ctx context.Context, i do.Injector) error {
				infos, err := do.MustInvoke[*backup.BackupService](i).List(ctx)
				if err != nil {
					return err
				}
				if infos == nil {
					infos = []backup.BackupInfo{}
				}
				return printJSON(cmd.OutOrStdout(), infos)
			})
		},
	})

	var dryRun bool
	restore := &cobra.Command{
		Use:   "restore <path|id>",
		Short: "Replace all state with an archive",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, func(ctx context.Context, i do.Injector) error {
				path := args[0]
				if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
					path = do.MustInvoke[*backup.BackupService](i).GetPath(args[0])
				}
				result, err := do.MustInvoke[*backup.RestoreService](i).RestoreFile(ctx, path, backup.RestoreOptions{DryRun: dryRun})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	}
	restore.Flags().BoolVar(&dryRun, "dry-run", false, "Validate the archive without writing")
	cmd.AddCommand(restore)

	return cmd
}
