// Package strategy implements the leveraged market-making engine.
//
// A Strategy is a persistent value: operations that change the model
// return a new Strategy and leave the receiver untouched, so callers can
// evaluate speculative trades without copying state by hand. A single
// value is not safe for concurrent use; keep one per traded pair and
// access it from one goroutine.
package strategy

import (
	"github.com/xlubecx/mmbot/calculus"
	"github.com/xlubecx/mmbot/market"
)

// Alert tags an order decision.
type Alert int

const (
	AlertNone Alert = iota
	AlertStopLoss
)

func (a Alert) String() string {
	switch a {
	case AlertStopLoss:
		return "STOPLOSS"
	default:
		return "NONE"
	}
}

// OrderDecision is the per-tick sizing result. Price 0 means the order is
// placed relative to the market rather than at a fixed limit.
type OrderDecision struct {
	Price float64
	Size  float64
	Alert Alert
}

// TradeEffect reports what a fill did to the model.
type TradeEffect struct {
	// NormProfit is the value the model added beyond passive holding.
	NormProfit float64
	// NormAccum is the asset amount accumulated from profit. Leveraged
	// strategies never accumulate, it is always zero for them.
	NormAccum float64
	// NeutralPrice is the price at which the modeled position is zero.
	NeutralPrice float64
}

// Strategy is consumed by the backtest driver and the live trading loop.
type Strategy interface {
	ID() string
	IsValid() bool

	// OnIdle initializes the model when needed. It never fails.
	OnIdle(m market.Info, t market.Ticker, assets, currency float64) Strategy

	// GetNewOrder sizes the order for a move from curPrice to newPrice.
	// dir is +1 for buying and -1 for selling.
	GetNewOrder(m market.Info, curPrice, newPrice, dir, assets, currency float64) OrderDecision

	// OnTrade applies a fill of size at price. assetsLeft and
	// currencyLeft are the balances after the fill.
	OnTrade(m market.Info, price, size, assetsLeft, currencyLeft float64) (TradeEffect, Strategy)

	// CalcRoots returns the band of prices where the loss stays within
	// budget.
	CalcRoots() calculus.MinMax

	// CalcSafeRange is CalcRoots narrowed by what the balances can
	// actually reach on spot markets.
	CalcSafeRange(m market.Info, assets, currency float64) calculus.MinMax

	// GetEquilibrium returns the price at which assets matches the model.
	GetEquilibrium(assets float64) float64

	Export() Record
	Import(r Record) Strategy
	Reset() Strategy
	Snapshot() Snapshot
}
