package cmd

import (
	"fmt"
	"os"
	"runtime"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/xlubecx/mmbot/backtest"
	"github.com/xlubecx/mmbot/config"
	"github.com/xlubecx/mmbot/strategy"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Backtest a grid of power and asymmetry values in parallel",
	Long: `Sweep runs one backtest per combination of the given powers and
asymmetries over the same prices. Everything else comes from the config.

Example:
  mmbot sweep -p data/btcusd.csv --power 0.5,1,2 --asym -0.2,0,0.2 -w 4`,
	RunE: runSweep,
}

var (
	swPricesPath string
	swPowers     []float64
	swAsyms      []float64
	swWorkers    int
)

func init() {
	rootCmd.AddCommand(sweepCmd)

	sweepCmd.Flags().StringVarP(&swPricesPath, "prices", "p", "", "path to price CSV (required)")
	sweepCmd.Flags().Float64SliceVar(&swPowers, "power", nil, "power values (default: config value)")
	sweepCmd.Flags().Float64SliceVar(&swAsyms, "asym", nil, "asymmetry values (default: config value)")
	sweepCmd.Flags().IntVarP(&swWorkers, "workers", "w", runtime.NumCPU(), "parallel runs")

	sweepCmd.MarkFlagRequired("prices")
}

// sweepJobs builds the grid. An empty axis uses the configured value.
func sweepJobs(cfg *config.Config, samples []backtest.Sample, powers, asyms []float64) ([]backtest.SweepJob, error) {
	if len(powers) == 0 {
		powers = []float64{cfg.Strategy.Power}
	}
	if len(asyms) == 0 {
		asyms = []float64{cfg.Strategy.Asymmetry}
	}
	m, err := cfg.Market.Resolve()
	if err != nil {
		return nil, err
	}

	var jobs []backtest.SweepJob
	for _, p := range powers {
		for _, a := range asyms {
			sc := cfg.Strategy
			sc.Power = p
			sc.Asymmetry = a
			s, err := strategy.FromConfig(sc)
			if err != nil {
				return nil, fmt.Errorf("power=%g asym=%g: %w", p, a, err)
			}
			jobs = append(jobs, backtest.SweepJob{
				Name:     fmt.Sprintf("power=%g asym=%g", p, a),
				Strategy: s,
				Market:   m,
				Samples:  samples,
				Options:  backtest.OptionsFromConfig(cfg.Backtest),
			})
		}
	}
	return jobs, nil
}

func runSweep(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer logger.Sync()

	feed, err := backtest.NewCSVPriceFeed(swPricesPath, time.Time{}, time.Time{})
	if err != nil {
		return err
	}
	samples, err := backtest.ReadAll(feed)
	if err != nil {
		return fmt.Errorf("read prices: %w", err)
	}

	jobs, err := sweepJobs(cfg, samples, swPowers, swAsyms)
	if err != nil {
		return err
	}
	out, err := backtest.Sweep(cmd.Context(), jobs, swWorkers, logger)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tTRADES\tP/L\tMAX DD\tNORM PROFIT\tFINAL POS")
	for _, r := range out {
		fmt.Fprintf(w, "%s\t%d\t%.2f\t%.2f\t%.6g\t%.6g\n",
			r.Name, r.Result.Trades, r.Result.PL, r.Result.MaxDrawdown, r.Result.NormProfit, r.Result.FinalPos)
	}
	return w.Flush()
}
