package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/xlubecx/mmbot/config"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "mmbot",
	Short: "Leveraged market-making strategy research tool",
	Long: `mmbot models a leveraged market-making strategy and replays it
against historical prices.

It provides tools for:
  - Backtesting the hyperbolic and linear strategies on price CSVs
  - Sweeping strategy parameters in parallel
  - Inspecting the loss band of a configuration
  - Journaling runs, ledgers and strategy state in SQLite or CSV`,
	SilenceUsage: true,
}

var (
	cfgFile string
	verbose bool
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML or JSON, defaults apply when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log every trade")
}

func newLogger() (*zap.Logger, error) {
	if verbose {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	cfg, err := config.LoadFromFile(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}
