package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hawthorn-media/keyword-cli/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "keyword-cli",
	Short: "Keyword research and PPC campaign pipeline",
	Long:  "Discovers keyword candidates via DataForSEO Labs, enriches and scores them, and exports ready-to-upload Google Ads and Microsoft Ads campaign files.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
