package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/xlubecx/mmbot/journal"
	"github.com/xlubecx/mmbot/strategy"
)

var stateCmd = &cobra.Command{
	Use:   "state",
	Short: "Inspect persisted strategy state",
	Long: `Read strategy state saved by 'mmbot backtest --save-state'.

Examples:
  mmbot state show backtest:BTC/USD`,
}

var stateShowCmd = &cobra.Command{
	Use:   "show <key>",
	Short: "Print a saved state as seen by the configured strategy",
	Args:  cobra.ExactArgs(1),
	RunE:  runStateShow,
}

var stateDBPath string

func init() {
	rootCmd.AddCommand(stateCmd)
	stateCmd.AddCommand(stateShowCmd)

	stateCmd.PersistentFlags().StringVarP(&stateDBPath, "db", "d", "", "path to SQLite journal DB (default: config journal.db_path)")
}

func runStateShow(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	path := stateDBPath
	if path == "" {
		path = cfg.Journal.DBPath
	}

	j, err := journal.NewSQLite(path)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.LoadState(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	s, err := strategy.FromConfig(cfg.Strategy)
	if err != nil {
		return err
	}

	if rec.Fingerprint != s.Config().Fingerprint() {
		fmt.Println("Saved with different parameters, state re-derived.")
	}
	strategy.PrintSnapshot(os.Stdout, s.Import(rec).Snapshot())
	return nil
}
