// Package search locates the roots of a scalar price function on either
// side of a known anchor price using bisection.
//
// Both procedures expect fn to cross zero monotonically away from the
// anchor. They never fail: when the tolerance cannot be met the last
// midpoint is returned.
package search

import "math"

// Accuracy is the relative interval width at which bisection stops.
const Accuracy = 1e-5

// Func is evaluated at a price.
type Func func(price float64) float64

// side compares v against the reference value. Non-finite evaluations are
// treated as lying on the reference side.
func side(v, ref float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 1
	}
	return v * ref
}

// LowSide searches [0, middle] for the root nearest to middle.
func LowSide(middle float64, fn Func) float64 {
	min := 0.0
	max := middle
	ref := fn(middle)
	if ref == 0 || math.IsNaN(ref) {
		return middle
	}
	md := (min + max) / 2
	for md > Accuracy && (max-min)/md > Accuracy {
		ml := side(fn(md), ref)
		switch {
		case ml > 0:
			max = md
		case ml < 0:
			min = md
		default:
			return md
		}
		md = (min + max) / 2
	}
	return md
}

// HighSide searches [middle, +Inf) for the root nearest to middle. The
// search runs on u = 1/price over [0, 1/middle] so the unbounded side is
// covered by a bounded bisection.
func HighSide(middle float64, fn Func) float64 {
	min := 0.0
	max := 1.0 / middle
	ref := fn(middle)
	if ref == 0 || math.IsNaN(ref) {
		return middle
	}
	md := (min + max) / 2
	for md*(1.0/min-1.0/max) > Accuracy {
		ml := side(fn(1.0/md), ref)
		switch {
		case ml > 0:
			max = md
		case ml < 0:
			min = md
		default:
			return 1.0 / md
		}
		md = (min + max) / 2
	}
	return 1.0 / md
}
