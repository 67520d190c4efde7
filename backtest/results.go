package backtest

import (
	"fmt"
	"io"
	"math"
	"time"
)

// Result is a lightweight summary of a backtest run.
type Result struct {
	Strategy string

	Trades int
	Buys   int
	Sells  int

	PL          float64
	MaxDrawdown float64 // largest drop of PL from a running peak
	NormProfit  float64
	NormAccum   float64
	FinalPos    float64

	MinPrice float64
	MaxPrice float64

	Start time.Time
	End   time.Time
}

// Summarize computes aggregate statistics of a ledger.
func Summarize(l Ledger) Result {
	var r Result
	if len(l) == 0 {
		return r
	}

	r.Start = l[0].Time
	r.End = l[len(l)-1].Time
	r.MinPrice = math.Inf(1)
	r.MaxPrice = math.Inf(-1)

	peak := 0.0
	for i, x := range l {
		r.MinPrice = math.Min(r.MinPrice, x.Price)
		r.MaxPrice = math.Max(r.MaxPrice, x.Price)
		peak = math.Max(peak, x.PL)
		r.MaxDrawdown = math.Max(r.MaxDrawdown, peak-x.PL)
		if i == 0 {
			continue
		}
		r.Trades++
		switch {
		case x.Size > 0:
			r.Buys++
		case x.Size < 0:
			r.Sells++
		}
	}

	last := l[len(l)-1]
	r.PL = last.PL
	r.NormProfit = last.NormProfit
	r.NormAccum = last.NormAccum
	r.FinalPos = last.Pos
	return r
}

func PrintResult(w io.Writer, r Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Backtest Result")
	fmt.Fprintln(w, "==================================================")

	if r.Strategy != "" {
		fmt.Fprintf(w, "Strategy:      %s\n", r.Strategy)
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Period")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format(time.RFC3339))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format(time.RFC3339))
	fmt.Fprintf(w, "Price range:   %.8g - %.8g\n", r.MinPrice, r.MaxPrice)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", r.Trades)
	fmt.Fprintf(w, "Buys:          %d\n", r.Buys)
	fmt.Fprintf(w, "Sells:         %d\n", r.Sells)
	fmt.Fprintf(w, "Final pos:     %.8g\n", r.FinalPos)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Net P/L:       %.2f\n", r.PL)
	fmt.Fprintf(w, "Max Drawdown:  %.2f\n", r.MaxDrawdown)
	fmt.Fprintf(w, "Norm. profit:  %.8g\n", r.NormProfit)
	if r.NormAccum != 0 {
		fmt.Fprintf(w, "Norm. accum:   %.8g\n", r.NormAccum)
	}

	fmt.Fprintln(w)
}
