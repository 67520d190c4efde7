package calculus

import (
	"math"

	"github.com/xlubecx/mmbot/internal/search"
)

// Hyperbolic models position as power*(neutral/price - e^-asym).
type Hyperbolic struct{}

func (Hyperbolic) ID() string { return "hyperbolic" }

func (Hyperbolic) PositionValue(power, asym, neutral, price float64) float64 {
	return power * (math.Exp(-asym)*(price-neutral) - neutral*math.Log(price/neutral))
}

func (Hyperbolic) Position(power, asym, neutral, price float64) float64 {
	return (neutral/price - math.Exp(-asym)) * power
}

func (Hyperbolic) PriceAtZeroPosition(neutral, asym float64) float64 {
	return neutral * math.Exp(asym)
}

func (Hyperbolic) NeutralFromPriceAtZero(price0, asym float64) float64 {
	return price0 / math.Exp(asym)
}

func (Hyperbolic) Neutral(power, asym, position, price float64) float64 {
	return price * (math.Exp(-asym) + position/power)
}

func (Hyperbolic) PriceFromPosition(power, asym, neutral, position float64) float64 {
	ea := math.Exp(asym)
	return (ea * neutral * power) / (ea*position + power)
}

func (Hyperbolic) PowerFromBalance(neutral, balance, _ float64) float64 {
	return balance / neutral
}

// NeutralFromValue moves the zero position anchor along the price axis
// until the value at price matches. The anchor is searched below price
// when it currently sits below it, and above otherwise.
func (h Hyperbolic) NeutralFromValue(power, asym, neutral, value, price float64) float64 {
	m := h.PriceAtZeroPosition(neutral, asym)
	fn := func(x float64) float64 {
		n := h.NeutralFromPriceAtZero(x, asym)
		return h.PositionValue(power, asym, n, price) - value
	}

	// the curve minimum sits at price; nothing below it is reachable
	if fn(price) > 0 {
		return neutral
	}

	var res float64
	switch {
	case price > m:
		res = search.LowSide(price, fn)
	case price < m:
		res = search.HighSide(price, fn)
	default:
		res = m
	}
	return h.NeutralFromPriceAtZero(res, asym)
}

func (h Hyperbolic) Roots(power, asym, neutral, budget float64) MinMax {
	fn := func(x float64) float64 {
		return h.PositionValue(power, asym, neutral, x) - budget
	}
	m := h.PriceAtZeroPosition(neutral, asym)
	return MinMax{
		Min: search.LowSide(m, fn),
		Max: search.HighSide(m, fn),
	}
}
