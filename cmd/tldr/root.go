package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tldrapp/scan-summary-service/internal/config"
	"github.com/tldrapp/scan-summary-service/internal/models"
)

var (
	cfgFile  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:   "tldr",
	Short: "Scan documents and get a short summary",
	Long: `tldr reads scanned pages, recognizes their text and asks an AI provider
which sentences summarize the document best.

Pages can be images (png, jpeg, tiff, webp, bmp, gif) or PDFs. The summary is
extractive: every phrase is a sentence taken verbatim from the scan.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "config.yaml", "config file (missing file means defaults plus environment)",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "", "override log level: debug, info, warn or error",
	)

	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(tokenCmd)
}

// loadConfig reads the config named by --config and applies --log-level
func loadConfig(cmd *cobra.Command) (*models.Config, *slog.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	if logLevel != "" {
		cfg.Log.Level = logLevel
	}
	return cfg, config.NewLogger(cfg.Log, cmd.ErrOrStderr()), nil
}
