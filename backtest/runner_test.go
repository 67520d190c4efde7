package backtest

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xlubecx/mmbot/calculus"
	"github.com/xlubecx/mmbot/config"
	"github.com/xlubecx/mmbot/market"
	"github.com/xlubecx/mmbot/strategy"
	"go.uber.org/zap/zaptest"
)

var start = time.Date(2026, 1, 24, 9, 30, 0, 0, time.UTC)

// errorFeed returns an error on Next()
type errorFeed struct{ closed bool }

func (e *errorFeed) Next() (Sample, bool, error) {
	return Sample{}, false, errors.New("mock error")
}

func (e *errorFeed) Close() error {
	e.closed = true
	return nil
}

// orderLog wraps a strategy and keeps every order it was asked for.
type orderLog struct {
	strategy.Strategy
	orders *[]decision
}

type decision struct {
	dir   float64
	order strategy.OrderDecision
}

func (o orderLog) OnIdle(m market.Info, t market.Ticker, assets, currency float64) strategy.Strategy {
	return orderLog{o.Strategy.OnIdle(m, t, assets, currency), o.orders}
}

func (o orderLog) GetNewOrder(m market.Info, cur, price, dir, assets, currency float64) strategy.OrderDecision {
	d := o.Strategy.GetNewOrder(m, cur, price, dir, assets, currency)
	*o.orders = append(*o.orders, decision{dir: dir, order: d})
	return d
}

func (o orderLog) OnTrade(m market.Info, price, size, assets, currency float64) (strategy.TradeEffect, strategy.Strategy) {
	eff, s := o.Strategy.OnTrade(m, price, size, assets, currency)
	return eff, orderLog{s, o.orders}
}

// fixedOrder answers every tick with size·dir scaled by factor.
type fixedOrder struct {
	strategy.Strategy
	size float64
}

func (f fixedOrder) ID() string { return "fixed" }

func (f fixedOrder) OnIdle(market.Info, market.Ticker, float64, float64) strategy.Strategy {
	return f
}

func (f fixedOrder) GetNewOrder(_ market.Info, _, _, dir, _, _ float64) strategy.OrderDecision {
	return strategy.OrderDecision{Size: f.size * dir}
}

func (f fixedOrder) OnTrade(_ market.Info, price, _, _, _ float64) (strategy.TradeEffect, strategy.Strategy) {
	return strategy.TradeEffect{NormProfit: 1, NeutralPrice: price}, f
}

func (f fixedOrder) Snapshot() strategy.Snapshot { return strategy.Snapshot{} }

func newLinear(t *testing.T) *strategy.Leveraged {
	t.Helper()
	s, err := strategy.NewLeveraged(strategy.Config{Calculus: calculus.Linear{}, Power: 1})
	require.NoError(t, err)
	return s
}

func TestOptionsFromConfig(t *testing.T) {
	t.Parallel()

	opt := OptionsFromConfig(config.BacktestConfig{
		InitPos:    0.5,
		Balance:    1000,
		SellMult:   2,
		MinSize:    0.01,
		DustOrders: true,
	})
	assert.Equal(t, Options{InitPos: 0.5, Balance: 1000, SellMult: 2, MinSize: 0.01, DustOrders: true}, opt)
	assert.Equal(t, 1.0, opt.mult(1))
	assert.Equal(t, 2.0, opt.mult(-1))
}

func TestRunner_Run_Validation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()

	t.Run("missing strategy", func(t *testing.T) {
		t.Parallel()

		r := &Runner{Feed: Prices(start, 1)}
		_, err := r.Run(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Strategy is required")
	})

	t.Run("missing feed", func(t *testing.T) {
		t.Parallel()

		r := &Runner{Strategy: newLinear(t)}
		_, err := r.Run(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "Feed is required")
	})
}

func TestRunner_Run_EmptyFeed(t *testing.T) {
	t.Parallel()

	feed := Prices(start)
	s := newLinear(t)
	r := &Runner{Strategy: s, Feed: feed}

	l, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, l)
	assert.True(t, feed.closed)
	assert.Same(t, s, r.Final())
}

func TestRunner_Run_FeedError(t *testing.T) {
	t.Parallel()

	feed := &errorFeed{}
	r := &Runner{Strategy: newLinear(t), Feed: feed}

	_, err := r.Run(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mock error")
	assert.True(t, feed.closed)
}

func TestRunner_Run_Cancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := &Runner{Strategy: newLinear(t), Feed: Prices(start, 100, 101, 102)}
	_, err := r.Run(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func runScenario(t *testing.T, m market.Info) (Ledger, []decision) {
	t.Helper()

	var orders []decision
	r := &Runner{
		Strategy: orderLog{Strategy: newLinear(t), orders: &orders},
		Market:   m,
		Feed:     Prices(start, 100, 101, 99, 102),
		Options:  Options{InitPos: 1, Balance: 100, BuyMult: 1, SellMult: 1},
		Logger:   zaptest.NewLogger(t),
	}
	l, err := r.Run(context.Background())
	require.NoError(t, err)
	return l, orders
}

func TestRunner_Run_Scenario(t *testing.T) {
	t.Parallel()

	l, orders := runScenario(t, market.Info{})
	require.Len(t, orders, 3)

	traded := 0
	for _, d := range orders {
		if d.order.Size*d.dir >= 0 && d.order.Size != 0 {
			traded++
		}
	}
	require.Len(t, l, 1+traded)

	first := l[0]
	assert.Equal(t, 100.0, first.Price)
	assert.Equal(t, 1.0, first.Pos)
	assert.Equal(t, 0.0, first.PL)
	assert.Equal(t, 0.0, first.Size)
	assert.Equal(t, start, first.Time)

	second := l[1]
	assert.Equal(t, 101.0, second.Price)
	assert.InDelta(t, -0.02, second.Size, 1e-12)
	assert.InDelta(t, 0.98, second.Pos, 1e-12)
	assert.InDelta(t, 1, second.PL, 1e-12)
	assert.InDelta(t, 0.01, second.NormProfit, 1e-12)

	for i := 1; i < len(l); i++ {
		prev, cur := l[i-1], l[i]
		assert.InDelta(t, prev.Pos*(cur.Price-prev.Price)+prev.PL, cur.PL, 1e-9, "record %d", i)
		assert.InDelta(t, prev.Pos+cur.Size, cur.Pos, 1e-12, "record %d", i)
		assert.Equal(t, 0.0, cur.NormAccum)
		// buy after a drop, sell after a rise
		assert.Equal(t, math.Signbit(prev.Price-cur.Price), math.Signbit(cur.Size), "record %d", i)
	}
}

func TestRunner_Run_Inverted(t *testing.T) {
	t.Parallel()

	plain, _ := runScenario(t, market.Info{})
	inv, _ := runScenario(t, market.Info{InvertPrice: true})
	require.Len(t, inv, len(plain))

	for i := range plain {
		assert.InDelta(t, 1/plain[i].Price, inv[i].Price, 1e-12, "record %d", i)
		assert.InDelta(t, 1/plain[i].NeutralPrice, inv[i].NeutralPrice, 1e-12, "record %d", i)
		assert.InDelta(t, -plain[i].Pos, inv[i].Pos, 1e-12, "record %d", i)
		assert.InDelta(t, -plain[i].Size, inv[i].Size, 1e-12, "record %d", i)
		assert.Equal(t, plain[i].PL, inv[i].PL)
	}
}

func TestRunner_Run_DustPolicy(t *testing.T) {
	t.Parallel()

	prices := []float64{100, 99, 101, 98}

	t.Run("skip", func(t *testing.T) {
		t.Parallel()

		r := &Runner{
			Strategy: fixedOrder{size: -0.5},
			Feed:     Prices(start, prices...),
			Options:  Options{MinSize: 0.1},
		}
		l, err := r.Run(context.Background())
		require.NoError(t, err)
		assert.Len(t, l, 1)
	})

	t.Run("minimum order", func(t *testing.T) {
		t.Parallel()

		r := &Runner{
			Strategy: fixedOrder{size: -0.5},
			Market:   market.Info{MinSize: 0.2},
			Feed:     Prices(start, prices...),
			Options:  Options{MinSize: 0.1, DustOrders: true},
		}
		l, err := r.Run(context.Background())
		require.NoError(t, err)
		require.Len(t, l, 4)
		assert.InDelta(t, 0.2, l[1].Size, 1e-12)
		assert.InDelta(t, -0.2, l[2].Size, 1e-12)
		assert.InDelta(t, 0.2, l[3].Size, 1e-12)
		assert.InDelta(t, 3, l[3].NormProfit, 1e-12)
	})
}

func TestRunner_Run_Multipliers(t *testing.T) {
	t.Parallel()

	r := &Runner{
		Strategy: fixedOrder{size: 1},
		Feed:     Prices(start, 100, 99, 101),
		Options:  Options{BuyMult: 2, SellMult: 0.5},
	}
	l, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, l, 3)
	assert.Equal(t, 2.0, l[1].Size)
	assert.Equal(t, -0.5, l[2].Size)
	assert.Equal(t, 1.5, l[2].Pos)
}

func TestRunner_Run_MinimumSize(t *testing.T) {
	t.Parallel()

	r := &Runner{
		Strategy: fixedOrder{size: 0.05},
		Feed:     Prices(start, 100, 99, 101),
		Options:  Options{MinSize: 0.1},
	}
	l, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, l, 1)

	// flat prices give no direction and no order
	r = &Runner{Strategy: fixedOrder{size: 1}, Feed: Prices(start, 100, 100, 100)}
	l, err = r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, l, 1)
}

func TestRunner_Run_FeesAndLotSize(t *testing.T) {
	t.Parallel()

	m := market.Info{Fees: 0.01, AssetStep: 0.01}
	r := &Runner{
		Strategy: fixedOrder{size: 0.123},
		Market:   m,
		Feed:     Prices(start, 100, 99),
	}
	l, err := r.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, l, 2)
	assert.InDelta(t, 0.12, l[1].Size, 1e-12)
	assert.InDelta(t, 0.12*0.99, l[1].Pos, 1e-12)
}

func TestRunner_Final(t *testing.T) {
	t.Parallel()

	s := newLinear(t)
	r := &Runner{
		Strategy: s,
		Market:   market.Info{},
		Feed:     Prices(start, 100, 101, 99),
		Options:  Options{InitPos: 1, Balance: 100},
	}
	_, err := r.Run(context.Background())
	require.NoError(t, err)

	assert.False(t, s.IsValid())
	require.NotNil(t, r.Final())
	assert.True(t, r.Final().IsValid())
	assert.Equal(t, 99.0, r.Final().Snapshot().LastPrice)
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Result{}, Summarize(nil))

	l := Ledger{
		{Price: 100, Time: start, Pos: 1},
		{Price: 101, Time: start.Add(time.Minute), Size: -0.1, Pos: 0.9, PL: 1, NormProfit: 0.1},
		{Price: 97, Time: start.Add(2 * time.Minute), Size: 0.3, Pos: 1.2, PL: -2.6, NormProfit: 0.3},
		{Price: 99, Time: start.Add(3 * time.Minute), Size: -0.2, Pos: 1.0, PL: -0.2, NormProfit: 0.4},
	}
	r := Summarize(l)

	assert.Equal(t, 3, r.Trades)
	assert.Equal(t, 1, r.Buys)
	assert.Equal(t, 2, r.Sells)
	assert.Equal(t, -0.2, r.PL)
	assert.InDelta(t, 3.6, r.MaxDrawdown, 1e-12)
	assert.Equal(t, 0.4, r.NormProfit)
	assert.Equal(t, 1.0, r.FinalPos)
	assert.Equal(t, 97.0, r.MinPrice)
	assert.Equal(t, 101.0, r.MaxPrice)
	assert.Equal(t, start, r.Start)
	assert.Equal(t, start.Add(3*time.Minute), r.End)
}
