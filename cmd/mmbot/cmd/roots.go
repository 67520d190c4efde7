package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/xlubecx/mmbot/calculus"
	"github.com/xlubecx/mmbot/config"
	"github.com/xlubecx/mmbot/market"
	"github.com/xlubecx/mmbot/strategy"
)

var rootsCmd = &cobra.Command{
	Use:   "roots",
	Short: "Print the loss band of a fresh strategy",
	Long: `Roots initializes the configured strategy at a price and prints the
range of prices where the modeled loss stays within budget.

Example:
  mmbot roots --price 30000 --assets 0 --currency 1000`,
	RunE: runRoots,
}

var (
	rtPrice    float64
	rtAssets   float64
	rtCurrency float64
)

func init() {
	rootCmd.AddCommand(rootsCmd)

	rootsCmd.Flags().Float64Var(&rtPrice, "price", 100, "initial price")
	rootsCmd.Flags().Float64Var(&rtAssets, "assets", 0, "asset balance")
	rootsCmd.Flags().Float64Var(&rtCurrency, "currency", 1000, "currency balance")
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

func printRoots(w io.Writer, cfg *config.Config, price, assets, currency float64) error {
	if price <= 0 {
		return fmt.Errorf("price must be positive")
	}
	m, err := cfg.Market.Resolve()
	if err != nil {
		return err
	}
	s, err := strategy.FromConfig(cfg.Strategy)
	if err != nil {
		return err
	}

	st := s.OnIdle(m, market.TickerAt(price, nowUTC()), assets, currency)
	band := st.CalcRoots()
	safe := st.CalcSafeRange(m, assets, currency)

	fmt.Fprintf(w, "Calculus:      %s (available: %v)\n", st.ID(), calculus.Names())
	fmt.Fprintf(w, "Loss band:     %.8g - %.8g\n", band.Min, band.Max)
	fmt.Fprintf(w, "Safe range:    %.8g - %.8g\n", safe.Min, safe.Max)
	fmt.Fprintf(w, "Equilibrium:   %.8g\n", st.GetEquilibrium(assets))
	strategy.PrintSnapshot(w, st.Snapshot())
	return nil
}

func runRoots(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return printRoots(os.Stdout, cfg, rtPrice, rtAssets, rtCurrency)
}
