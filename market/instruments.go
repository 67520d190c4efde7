// market/instruments.go
package market

import (
	"math"

	"github.com/shopspring/decimal"
)

// Info describes the traded pair as reported by the exchange.
type Info struct {
	AssetSymbol    string  `json:"asset_symbol" yaml:"asset_symbol"`
	CurrencySymbol string  `json:"currency_symbol" yaml:"currency_symbol"`
	MinSize        float64 `json:"min_size" yaml:"min_size"`
	MinVolume      float64 `json:"min_volume" yaml:"min_volume"`   // minimum notional
	AssetStep      float64 `json:"asset_step" yaml:"asset_step"`   // lot granularity, 0 disables rounding
	Fees           float64 `json:"fees" yaml:"fees"`               // 0.001 = 0.1%
	Leverage       float64 `json:"leverage" yaml:"leverage"`       // 0 for spot markets
	InvertPrice    bool    `json:"invert_price" yaml:"invert_price"`
}

// Leveraged reports whether the pair is a margin/futures market.
func (i Info) Leveraged() bool {
	return i.Leverage > 0
}

// AddFees returns the size that actually lands in the account once the
// fee is charged against the traded assets.
func (i Info) AddFees(size, price float64) float64 {
	if i.Fees == 0 || price <= 0 {
		return size
	}
	return size - math.Abs(size)*i.Fees
}

// Normalize rounds size toward zero to a multiple of AssetStep and
// returns 0 when the result falls below MinSize or MinVolume.
func (i Info) Normalize(size, price float64) float64 {
	if i.AssetStep > 0 {
		step := decimal.NewFromFloat(i.AssetStep)
		size = decimal.NewFromFloat(size).Div(step).Truncate(0).Mul(step).InexactFloat64()
	}
	if math.Abs(size) < i.MinSize {
		return 0
	}
	if i.MinVolume > 0 && math.Abs(size)*price < i.MinVolume {
		return 0
	}
	return size
}

// Presets holds a few common pair definitions for the CLI.
var Presets = map[string]Info{
	"BTC_USDT": {
		AssetSymbol:    "BTC",
		CurrencySymbol: "USDT",
		MinSize:        0.00001,
		MinVolume:      5,
		AssetStep:      0.00001,
		Fees:           0.001,
	},
	"ETH_USDT": {
		AssetSymbol:    "ETH",
		CurrencySymbol: "USDT",
		MinSize:        0.0001,
		MinVolume:      5,
		AssetStep:      0.0001,
		Fees:           0.001,
	},
	"BTC_USD_PERP": {
		AssetSymbol:    "BTC",
		CurrencySymbol: "USD",
		MinSize:        0.001,
		AssetStep:      0.001,
		Fees:           0.0005,
		Leverage:       10,
	},
	"XBTUSD_INVERSE": {
		AssetSymbol:    "USD",
		CurrencySymbol: "BTC",
		MinSize:        1,
		AssetStep:      1,
		Fees:           0.00075,
		Leverage:       100,
		InvertPrice:    true,
	},
}
