package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gulfgate/valuer/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "valuer",
	Short: "Comparable-based property valuation engine",
	Long:  "Estimates property values from comparable listings: weighted similarity scoring, hedonic price adjustment, confidence intervals, and rental yield, for the Dubai market.",
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
