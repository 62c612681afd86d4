package main

import (
	"context"
	"io"
	"os"

	jsoniter "github.com/json-iterator/go"
	"github.com/samber/do/v2"
	"github.com/spf13/cobra"

	"github.com/shelfwise/shelfwise-server/internal/config"
	"github.com/shelfwise/shelfwise-server/internal/di"
	"github.com/shelfwise/shelfwise-server/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	dataPath string
	logLevel string
	envFile  string
	logOut   io.Writer
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{logOut: os.Stderr}

	root := &cobra.Command{
		Use:           "shelfctl",
		Short:         "Maintenance commands for a Shelfwise library",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dataPath, "data-path", "", "Data directory (default: $DATA_PATH or ~/.shelfwise)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	root.PersistentFlags().StringVar(&opts.envFile, "env-file", ".env", "Path to .env file")

	root.AddCommand(
		newSweepCmd(opts),
		newInvalidCmd(opts),
		newBackupCmd(opts),
		newSettingsCmd(opts),
	)
	return root
}

// run builds the container for opts, hands it to fn and shuts it down.
// Services are created lazily, so only what fn invokes is opened.
func (o *globalOptions) run(cmd *cobra.Command, fn func(ctx context.Context, i do.Injector) error) error {
	args := []string{"-env-file", o.envFile}
	if o.dataPath != "" {
		args = append(args, "-data-path", o.dataPath)
	}
	if o.logLevel != "" {
		args = append(args, "-log-level", o.logLevel)
	}
	cfg, err := config.Load(args)
	if err != nil {
		return err
	}

	injector := di.NewContainer()
	do.OverrideValue(injector, cfg)
	do.OverrideValue(injector, logger.New(logger.Config{
		Writer:      o.logOut,
		Level:       logger.ParseLevel(cfg.Logger.Level),
		Environment: cfg.App.Environment,
	}))
	defer func() { _ = injector.Shutdown() }()

	return fn(cmd.Context(), injector)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')
	_, err = w.Write(data)
	return err
}
