package backtest

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/xlubecx/mmbot/config"
	"github.com/xlubecx/mmbot/market"
	"github.com/xlubecx/mmbot/strategy"
	"go.uber.org/zap"
)

// Sample is one observed price.
type Sample struct {
	Price float64
	Time  time.Time
}

// PriceSource yields samples one at a time. Implementations should be
// deterministic and return (ok=false, err=nil) at EOF.
type PriceSource interface {
	Next() (s Sample, ok bool, err error)
	Close() error
}

// Options controls the order policy of a run.
type Options struct {
	InitPos  float64 // assets held before the first sample
	Balance  float64 // currency held before the first sample
	BuyMult  float64 // 0 means 1
	SellMult float64 // 0 means 1
	MinSize  float64 // raised to the market minimum when lower
	// DustOrders replaces orders pointing against the price move with a
	// minimum sized order in the move's direction instead of skipping.
	DustOrders bool
}

func OptionsFromConfig(c config.BacktestConfig) Options {
	return Options{
		InitPos:    c.InitPos,
		Balance:    c.Balance,
		BuyMult:    c.BuyMult,
		SellMult:   c.SellMult,
		MinSize:    c.MinSize,
		DustOrders: c.DustOrders,
	}
}

func (o Options) mult(dir float64) float64 {
	m := o.SellMult
	if dir > 0 {
		m = o.BuyMult
	}
	if m == 0 {
		return 1
	}
	return m
}

// Record is one ledger row. The first row of a ledger is the initial
// sample and carries no trade.
type Record struct {
	Price        float64   `json:"price"`
	Time         time.Time `json:"time"`
	Size         float64   `json:"size"`
	Pos          float64   `json:"pos"`
	PL           float64   `json:"pl"`
	NeutralPrice float64   `json:"neutral_price"`
	NormAccum    float64   `json:"norm_accum"` // cumulative
	NormProfit   float64   `json:"norm_profit"`
}

type Ledger []Record

// Runner replays a feed through a single strategy.
type Runner struct {
	Strategy strategy.Strategy
	Market   market.Info
	Feed     PriceSource
	Options  Options
	Logger   *zap.Logger

	final strategy.Strategy
}

func sgn(x float64) float64 {
	switch {
	case x > 0:
		return 1
	case x < 0:
		return -1
	}
	return 0
}

// Run executes the backtest loop:
//  1. read the first sample and initialize the strategy
//  2. for every following sample, size an order and apply it
//  3. invert the ledger for inverse quoted markets
//
// The caller's Strategy is never modified; Final returns the state the
// run ended with.
func (r *Runner) Run(ctx context.Context) (Ledger, error) {
	if r.Strategy == nil {
		return nil, fmt.Errorf("backtest: Strategy is required")
	}
	if r.Feed == nil {
		return nil, fmt.Errorf("backtest: Feed is required")
	}
	defer r.Feed.Close()

	log := r.Logger
	if log == nil {
		log = zap.NewNop()
	}
	m := r.Market
	opt := r.Options

	first, ok, err := r.Feed.Next()
	if err != nil {
		return nil, fmt.Errorf("backtest: read feed: %w", err)
	}
	if !ok {
		r.final = r.Strategy
		return Ledger{}, nil
	}

	pos := opt.InitPos
	s := r.Strategy.OnIdle(m, market.TickerAt(first.Price, first.Time), pos, opt.Balance)

	bt := Record{
		Price:        first.Price,
		Time:         first.Time,
		Pos:          pos,
		NeutralPrice: s.Snapshot().NeutralPrice,
	}
	ledger := Ledger{bt}

	minSize := math.Max(m.MinSize, opt.MinSize)
	pl := 0.0
	prev := first.Price
	skipped := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		smp, ok, err := r.Feed.Next()
		if err != nil {
			return nil, fmt.Errorf("backtest: read feed: %w", err)
		}
		if !ok {
			break
		}

		// marked against the previous sample, not the last recorded trade
		pl += pos * (smp.Price - prev)
		prev = smp.Price

		dir := sgn(bt.Price - smp.Price)
		order := s.GetNewOrder(m, bt.Price, smp.Price, dir, pos, opt.Balance+pl)
		if order.Alert == strategy.AlertStopLoss {
			log.Warn("stop-loss",
				zap.Stringer("alert", order.Alert),
				zap.Time("time", smp.Time),
				zap.Float64("price", smp.Price),
				zap.Float64("size", order.Size),
			)
		}

		size := order.Size
		if size*dir < 0 {
			if !opt.DustOrders {
				skipped++
				continue
			}
			size = dir * minSize
		}
		size *= opt.mult(dir)
		if m.AssetStep > 0 || m.MinVolume > 0 {
			size = m.Normalize(size, smp.Price)
		}
		if size == 0 || math.Abs(size) < minSize {
			skipped++
			continue
		}

		pos += m.AddFees(size, smp.Price)
		var eff strategy.TradeEffect
		eff, s = s.OnTrade(m, smp.Price, size, pos, opt.Balance+pl)

		bt = Record{
			Price:        smp.Price,
			Time:         smp.Time,
			Size:         size,
			Pos:          pos,
			PL:           pl,
			NeutralPrice: eff.NeutralPrice,
			NormAccum:    bt.NormAccum + eff.NormAccum,
			NormProfit:   bt.NormProfit + eff.NormProfit,
		}
		ledger = append(ledger, bt)

		log.Debug("trade",
			zap.Time("time", smp.Time),
			zap.Float64("price", smp.Price),
			zap.Float64("size", size),
			zap.Float64("pos", pos),
			zap.Float64("pl", pl),
		)
	}

	if m.InvertPrice {
		for i := range ledger {
			x := &ledger[i]
			x.Price = 1 / x.Price
			if x.NeutralPrice != 0 {
				x.NeutralPrice = 1 / x.NeutralPrice
			}
			x.Pos = -x.Pos
			x.Size = -x.Size
		}
	}

	r.final = s
	log.Info("backtest finished",
		zap.String("strategy", s.ID()),
		zap.Int("records", len(ledger)),
		zap.Int("skipped", skipped),
		zap.Float64("pl", pl),
	)
	return ledger, nil
}

// Final returns the strategy state after the last Run.
func (r *Runner) Final() strategy.Strategy {
	return r.final
}
