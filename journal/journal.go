package journal

import (
	"context"
	"errors"
	"time"

	"github.com/xlubecx/mmbot/backtest"
	"github.com/xlubecx/mmbot/strategy"
)

var ErrNotFound = errors.New("journal: not found")

// Run describes one backtest run. Results mirror backtest.Result.
type Run struct {
	RunID   string
	Created time.Time

	Strategy string // calculus id
	Pair     string // asset/currency
	Dataset  string
	Config   []byte // config used for the run, YAML

	Start time.Time
	End   time.Time

	Trades      int
	Buys        int
	Sells       int
	PL          float64
	MaxDrawdown float64
	NormProfit  float64
	FinalPos    float64
}

// NewRun builds a run record from a backtest summary.
func NewRun(id string, created time.Time, r backtest.Result) Run {
	return Run{
		RunID:       id,
		Created:     created,
		Strategy:    r.Strategy,
		Start:       r.Start,
		End:         r.End,
		Trades:      r.Trades,
		Buys:        r.Buys,
		Sells:       r.Sells,
		PL:          r.PL,
		MaxDrawdown: r.MaxDrawdown,
		NormProfit:  r.NormProfit,
		FinalPos:    r.FinalPos,
	}
}

// Journal stores backtest runs and their ledgers.
type Journal interface {
	RecordRun(ctx context.Context, r Run) error
	RecordLedger(ctx context.Context, runID string, l backtest.Ledger) error
	Close() error
}

// StateStore persists exported strategy state keyed by trading pair.
type StateStore interface {
	SaveState(ctx context.Context, key string, r strategy.Record) error
	LoadState(ctx context.Context, key string) (strategy.Record, error)
}
