package main

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/tldrapp/scan-summary-service/internal/app"
	"github.com/tldrapp/scan-summary-service/internal/models"
	"github.com/tldrapp/scan-summary-service/internal/scan"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Summarize every scan a scanner drops into a folder",
	Long: `Watch a hot folder. Each sub-directory a scanner writes becomes one scan,
as does any single image or PDF dropped into the folder. A scan is picked up
once nothing has been written to it for the settle period (scan.settle).

The directory defaults to scan.watch_dir from the config.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		dir := cfg.Scan.WatchDir
		if len(args) == 1 {
			dir = args[0]
		}
		if dir == "" {
			return errors.New("no directory to watch (pass one or set scan.watch_dir)")
		}

		pipe, err := app.Build(cfg, &writerPresenter{w: cmd.OutOrStdout()}, app.Options{Logger: logger})
		if err != nil {
			return err
		}
		defer pipe.Close()

		submit := func(ctx context.Context, doc *models.ScanDocument) error {
			_, err := pipe.Coordinator.Submit(ctx, doc)
			return err
		}
		watcher, err := scan.NewWatcher(dir, cfg.Scan.Settle, pipe.Loader, submit, logger)
		if err != nil {
			return err
		}
		return watcher.Run(ctx)
	},
}
