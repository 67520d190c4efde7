package calculus

import "math"

// Linear models position as a straight line through
// neutral*(1+asym), which makes the value curve a parabola.
type Linear struct{}

func (Linear) ID() string { return "linear" }

func (Linear) PositionValue(power, asym, neutral, price float64) float64 {
	return power * (neutral - price) * (neutral + 2*asym*neutral - price) / (2 * neutral)
}

func (Linear) Position(power, asym, neutral, price float64) float64 {
	return -power * (price/neutral - 1 - asym)
}

func (Linear) PriceAtZeroPosition(neutral, asym float64) float64 {
	return neutral * (asym + 1)
}

func (Linear) NeutralFromPriceAtZero(price0, asym float64) float64 {
	return price0 / (asym + 1)
}

func (Linear) Neutral(power, asym, position, price float64) float64 {
	return price / (asym + 1 - position/power)
}

func (Linear) PriceFromPosition(power, asym, neutral, position float64) float64 {
	return neutral * (asym - position/power + 1)
}

func (Linear) PowerFromBalance(neutral, balance, _ float64) float64 {
	return balance / neutral
}

// NeutralFromValue solves the quadratic in neutral and keeps the solution
// closest to the current neutral price.
func (Linear) NeutralFromValue(power, asym, neutral, value, price float64) float64 {
	s := value / power
	a := asym
	p := price
	sq := math.Sqrt(a*a*p*p + 2*a*p*s + 2*p*s + s*s)
	if math.IsNaN(sq) || math.IsInf(sq, 0) {
		return neutral
	}
	cmn := a*p + p + s
	dnm := 2*a + 1
	x1 := (-sq + cmn) / dnm
	x2 := (sq + cmn) / dnm
	if math.Abs(neutral-x1) < math.Abs(neutral-x2) {
		return x1
	}
	return x2
}

func (Linear) Roots(power, asym, neutral, budget float64) MinMax {
	s := budget / power
	k := neutral
	a := asym
	sq := math.Sqrt(k) * math.Sqrt(a*a*k+2*s)
	rest := k * (1 + a)
	x1 := math.Max(0, -sq+rest)
	x2 := math.Max(0, sq+rest)
	return MinMax{Min: math.Min(x1, x2), Max: math.Max(x1, x2)}
}
