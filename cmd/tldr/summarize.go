package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/tldrapp/scan-summary-service/internal/app"
	"github.com/tldrapp/scan-summary-service/internal/config"
)

var (
	compression float64
	jsonOutput  bool
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize <page>...",
	Short: "Summarize one scan made of the given pages",
	Long: `Recognize the text of every page, in argument order, and print the scanned
text followed by its summary. PDFs contribute one page per PDF page.

Examples:
  tldr summarize page1.png page2.png
  tldr summarize minutes.pdf --compression 0.3
  tldr summarize receipt.jpg --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("compression") {
			cfg.Summary.Compression = compression
			if err := config.Validate(cfg); err != nil {
				return err
			}
		}

		var screen io.Writer = cmd.OutOrStdout()
		if jsonOutput {
			screen = io.Discard
		}
		pipe, err := app.Build(cfg, &writerPresenter{w: screen}, app.Options{Logger: logger})
		if err != nil {
			return err
		}
		defer pipe.Close()

		doc, err := pipe.Loader.FromFiles(ctx, "files", args)
		if err != nil {
			return err
		}

		run, err := pipe.Coordinator.Submit(ctx, doc)
		if err != nil {
			return err
		}
		result, runErr := run.Wait(ctx)
		if result == nil {
			return runErr
		}
		if runErr != nil {
			logger.Warn("scan finished with errors", "error", runErr)
		}

		if jsonOutput {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(result); err != nil {
				return err
			}
		}
		if result.SummaryError != "" {
			return errors.New(result.SummaryError)
		}
		if !jsonOutput {
			fmt.Fprintf(cmd.ErrOrStderr(), "%d page(s), %d phrase(s) in %s\n",
				result.PageCount, len(result.Phrases), result.Duration.Round(time.Millisecond))
		}
		return nil
	},
}

func init() {
	summarizeCmd.Flags().Float64Var(&compression, "compression", 0, "fraction of sentences to keep, 0..1 (default from config)")
	summarizeCmd.Flags().BoolVar(&jsonOutput, "json", false, "print the run result as JSON instead of text")
}
