package journal

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/xlubecx/mmbot/backtest"
)

var (
	ledgerHeader = []string{"run_id", "seq", "time", "price", "size", "pos", "pl", "neutral_price", "norm_accum", "norm_profit"}
	runsHeader   = []string{"run_id", "created", "strategy", "pair", "dataset", "start", "end", "trades", "buys", "sells", "pl", "max_drawdown", "norm_profit", "final_pos"}
)

// CSV appends runs and ledgers to two files.
type CSV struct {
	ledger *csv.Writer
	runs   *csv.Writer
	lf, rf *os.File
}

var _ Journal = (*CSV)(nil)

// NewCSV creates the ledger file and, when runsPath is not empty, a run
// summary file next to it.
func NewCSV(ledgerPath, runsPath string) (*CSV, error) {
	lf, err := os.Create(ledgerPath)
	if err != nil {
		return nil, fmt.Errorf("journal: create %s: %w", ledgerPath, err)
	}
	j := &CSV{ledger: csv.NewWriter(lf), lf: lf}

	if runsPath != "" {
		rf, err := os.Create(runsPath)
		if err != nil {
			_ = lf.Close()
			return nil, fmt.Errorf("journal: create %s: %w", runsPath, err)
		}
		j.rf = rf
		j.runs = csv.NewWriter(rf)
		if err := j.runs.Write(runsHeader); err != nil {
			_ = j.Close()
			return nil, err
		}
	}

	if err := j.ledger.Write(ledgerHeader); err != nil {
		_ = j.Close()
		return nil, err
	}
	if err := j.flush(); err != nil {
		_ = j.Close()
		return nil, err
	}
	return j, nil
}

func (j *CSV) flush() error {
	j.ledger.Flush()
	if err := j.ledger.Error(); err != nil {
		return err
	}
	if j.runs != nil {
		j.runs.Flush()
		return j.runs.Error()
	}
	return nil
}

func (j *CSV) RecordRun(_ context.Context, r Run) error {
	if j.runs == nil {
		return nil
	}
	err := j.runs.Write([]string{
		r.RunID,
		r.Created.UTC().Format(time.RFC3339),
		r.Strategy,
		r.Pair,
		r.Dataset,
		r.Start.UTC().Format(time.RFC3339),
		r.End.UTC().Format(time.RFC3339),
		strconv.Itoa(r.Trades),
		strconv.Itoa(r.Buys),
		strconv.Itoa(r.Sells),
		f(r.PL),
		f(r.MaxDrawdown),
		f(r.NormProfit),
		f(r.FinalPos),
	})
	if err != nil {
		return err
	}
	return j.flush()
}

func (j *CSV) RecordLedger(ctx context.Context, runID string, l backtest.Ledger) error {
	for i, x := range l {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := j.ledger.Write([]string{
			runID,
			strconv.Itoa(i),
			x.Time.UTC().Format(time.RFC3339Nano),
			f(x.Price),
			f(x.Size),
			f(x.Pos),
			f(x.PL),
			f(x.NeutralPrice),
			f(x.NormAccum),
			f(x.NormProfit),
		})
		if err != nil {
			return err
		}
	}
	return j.flush()
}

func (j *CSV) Close() error {
	if err := j.flush(); err != nil {
		return err
	}
	if err := j.lf.Close(); err != nil {
		return err
	}
	if j.rf != nil {
		if err := j.rf.Close(); err != nil {
			return err
		}
	}
	return nil
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'g', -1, 64)
}
