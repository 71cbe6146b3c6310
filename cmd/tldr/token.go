package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tldrapp/scan-summary-service/internal/auth"
)

var tokenRole string

var tokenCmd = &cobra.Command{
	Use:   "token <subject>",
	Short: "Mint a JWT for the HTTP API",
	Long: `Print a bearer token signed with auth.secret (or JWT_SECRET) that the
server accepts for POST /api/scans and GET /api/scans/current.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if err := auth.Init(cfg.Auth); err != nil {
			return err
		}
		token, err := auth.GenerateToken(args[0], tokenRole)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenRole, "role", "scanner", "role claim to embed")
}
