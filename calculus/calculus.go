// Package calculus provides the position and value curves behind the
// leveraged market-making strategy.
//
// A Calculus is a stateless family of pure functions over
// (power, asymmetry, neutral price, price). The value curve is convex in
// price with its minimum at the price of zero position; it measures the
// modeled loss accumulated by holding the modeled position from that
// anchor, and Position is its negated derivative.
package calculus

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrUnknown is returned by ByName for an unregistered calculus id.
var ErrUnknown = errors.New("unknown calculus")

// MinMax is a price band.
type MinMax struct {
	Min float64
	Max float64
}

// Contains reports whether price lies within the band, bounds included.
func (m MinMax) Contains(price float64) bool {
	return price >= m.Min && price <= m.Max
}

// Calculus is implemented by each curve variant.
type Calculus interface {
	// ID returns a stable identifier like "hyperbolic" or "linear".
	ID() string

	// PositionValue is the modeled value of the position curve at price.
	PositionValue(power, asym, neutral, price float64) float64

	// Position is the modeled position size at price.
	Position(power, asym, neutral, price float64) float64

	// PriceAtZeroPosition is the asymmetry shifted neutral price at which
	// the modeled position is exactly zero.
	PriceAtZeroPosition(neutral, asym float64) float64

	// NeutralFromPriceAtZero inverts PriceAtZeroPosition.
	NeutralFromPriceAtZero(price0, asym float64) float64

	// Neutral solves for the neutral price implied by an observed
	// (position, price) pair.
	Neutral(power, asym, position, price float64) float64

	// PriceFromPosition inverts Position.
	PriceFromPosition(power, asym, neutral, position float64) float64

	// PowerFromBalance scales the curve so the position at neutral
	// consumes balance.
	PowerFromBalance(neutral, balance, asym float64) float64

	// NeutralFromValue finds the neutral price for which PositionValue at
	// price equals value, searching outward from neutral. When there is
	// no solution neutral is returned unchanged.
	NeutralFromValue(power, asym, neutral, value, price float64) float64

	// Roots returns the prices on both sides of the zero position anchor
	// where PositionValue reaches budget.
	Roots(power, asym, neutral, budget float64) MinMax
}

var registry = map[string]Calculus{}

// Register makes a calculus available to ByName.
func Register(c Calculus) {
	registry[c.ID()] = c
}

// ByName looks up a registered calculus. Matching ignores case and
// surrounding spaces.
func ByName(name string) (Calculus, error) {
	c, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknown, name, strings.Join(Names(), ", "))
	}
	return c, nil
}

// Names lists the registered calculus ids in sorted order.
func Names() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func init() {
	Register(Hyperbolic{})
	Register(Linear{})
}
