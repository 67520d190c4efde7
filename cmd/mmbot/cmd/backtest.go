package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/xlubecx/mmbot/backtest"
	"github.com/xlubecx/mmbot/config"
	"github.com/xlubecx/mmbot/journal"
	"github.com/xlubecx/mmbot/market"
	"github.com/xlubecx/mmbot/pkg/id"
	"github.com/xlubecx/mmbot/strategy"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Replay a price CSV through the strategy",
	Long: `Backtest runs one strategy over historical prices and prints the
resulting statistics. The ledger is journaled as configured.

Price CSV rows are either time,price or time,instrument,bid,ask.

Example:
  mmbot backtest -c mmbot.yaml -p data/btcusd.csv --org run.org`,
	RunE: runBacktest,
}

var (
	btPricesPath string
	btFrom       string
	btTo         string
	btOrgPath    string
	btNoJournal  bool
	btSaveState  bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btPricesPath, "prices", "p", "", "path to price CSV (required)")
	backtestCmd.Flags().StringVar(&btFrom, "from", "", "skip prices before this RFC3339 time")
	backtestCmd.Flags().StringVar(&btTo, "to", "", "skip prices from this RFC3339 time on")
	backtestCmd.Flags().StringVar(&btOrgPath, "org", "", "write an Org-mode run report to this path")
	backtestCmd.Flags().BoolVar(&btNoJournal, "no-journal", false, "do not journal the run")
	backtestCmd.Flags().BoolVar(&btSaveState, "save-state", false, "store the final strategy state (SQLite journal only)")

	backtestCmd.MarkFlagRequired("prices")
}

func parseWindow(from, to string) (time.Time, time.Time, error) {
	var f, t time.Time
	var err error
	if from != "" {
		if f, err = time.Parse(time.RFC3339, from); err != nil {
			return f, t, fmt.Errorf("bad --from: %w", err)
		}
	}
	if to != "" {
		if t, err = time.Parse(time.RFC3339, to); err != nil {
			return f, t, fmt.Errorf("bad --to: %w", err)
		}
	}
	return f, t, nil
}

func pairName(m market.Info) string {
	if m.AssetSymbol == "" && m.CurrencySymbol == "" {
		return "default"
	}
	return m.AssetSymbol + "/" + m.CurrencySymbol
}

// stateKey is the strategy_state key for a pair.
func stateKey(m market.Info) string {
	return "backtest:" + pairName(m)
}

func openJournal(cfg config.JournalConfig) (journal.Journal, *journal.SQLite, error) {
	switch cfg.Type {
	case "csv":
		base := cfg.LedgerFile
		runs := base[:len(base)-len(filepath.Ext(base))] + ".runs.csv"
		j, err := journal.NewCSV(base, runs)
		return j, nil, err
	default:
		j, err := journal.NewSQLite(cfg.DBPath)
		return j, j, err
	}
}

func runBacktest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	m, err := cfg.Market.Resolve()
	if err != nil {
		return err
	}
	strat, err := strategy.FromConfig(cfg.Strategy)
	if err != nil {
		return err
	}
	from, to, err := parseWindow(btFrom, btTo)
	if err != nil {
		return err
	}
	feed, err := backtest.NewCSVPriceFeed(btPricesPath, from, to)
	if err != nil {
		return err
	}

	runID := id.New()
	logger = logger.With(zap.String("run_id", runID))
	logger.Info("starting backtest",
		zap.String("prices", btPricesPath),
		zap.String("calculus", strat.ID()),
		zap.String("pair", pairName(m)),
	)

	r := &backtest.Runner{
		Strategy: strat,
		Market:   m,
		Feed:     feed,
		Options:  backtest.OptionsFromConfig(cfg.Backtest),
		Logger:   logger,
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ledger, err := r.Run(ctx)
	if err != nil {
		return fmt.Errorf("backtest: %w", err)
	}

	res := backtest.Summarize(ledger)
	res.Strategy = strat.ID()
	backtest.PrintResult(os.Stdout, res)
	if final := r.Final(); final != nil && final.IsValid() {
		strategy.PrintSnapshot(os.Stdout, final.Snapshot())
	}

	run := journal.NewRun(runID, time.Now().UTC(), res)
	run.Pair = pairName(m)
	run.Dataset = filepath.Base(btPricesPath)
	if data, err := yaml.Marshal(cfg); err == nil {
		run.Config = data
	}

	if btOrgPath != "" {
		if err := run.WriteOrgFile(btOrgPath); err != nil {
			return err
		}
		fmt.Printf("\nOrg Report:    %s\n", btOrgPath)
	}

	if btNoJournal {
		return nil
	}
	j, store, err := openJournal(cfg.Journal)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer j.Close()

	if err := j.RecordRun(ctx, run); err != nil {
		return err
	}
	if err := j.RecordLedger(ctx, runID, ledger); err != nil {
		return err
	}
	if btSaveState && store != nil && r.Final() != nil && r.Final().IsValid() {
		if err := store.SaveState(ctx, stateKey(m), r.Final().Export()); err != nil {
			return err
		}
		logger.Info("strategy state saved", zap.String("key", stateKey(m)))
	}
	fmt.Printf("Run ID:        %s\n", runID)
	return nil
}
