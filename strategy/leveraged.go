package strategy

import (
	"math"

	"github.com/xlubecx/mmbot/calculus"
	"github.com/xlubecx/mmbot/market"
)

const (
	// trendDecay shrinks the trend counter by 0.1% on every counted fill.
	trendDecay = 0.999
	// trendScale maps the counter onto an asymmetry shift. The counter
	// saturates near 1000 so the shift stays below 1.
	trendScale = 0.001
)

// rootsCache memoizes the loss band for one set of inputs.
type rootsCache struct {
	key [4]float64
	val calculus.MinMax
	ok  bool
}

// Leveraged keeps the position near a calculus curve whose neutral price
// drifts with realized profit.
type Leveraged struct {
	cfg   Config
	st    State
	roots *rootsCache
}

var _ Strategy = (*Leveraged)(nil)

func NewLeveraged(cfg Config) (*Leveraged, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Leveraged{cfg: cfg, roots: &rootsCache{}}, nil
}

func (s *Leveraged) with(st State) *Leveraged {
	return &Leveraged{cfg: s.cfg, st: st, roots: &rootsCache{}}
}

func (s *Leveraged) ID() string { return s.cfg.Calculus.ID() }

func (s *Leveraged) Config() Config { return s.cfg }

func (s *Leveraged) State() State { return s.st }

func (s *Leveraged) IsValid() bool { return s.st.NeutralPrice > 0 }

func (s *Leveraged) asymFor(st State) float64 {
	if !s.cfg.DetectTrend {
		return s.cfg.Asymmetry
	}
	return s.cfg.Asymmetry - st.TrendCounter*trendScale
}

func (s *Leveraged) asym() float64 { return s.asymFor(s.st) }

func (s *Leveraged) budget() float64 {
	if s.cfg.MaxLoss > 0 {
		return s.cfg.MaxLoss
	}
	return s.st.Balance
}

// balanceBasis returns the capital used to size the curve and the part of
// the asset balance that only offsets currency holdings.
func (s *Leveraged) balanceBasis(m market.Info, price, assets, currency float64) (basis, offset float64) {
	if m.Leveraged() {
		return currency + s.cfg.ExternalBalance, 0
	}
	basis = assets*price + currency + s.cfg.ExternalBalance
	if basis <= 0 {
		return basis, 0
	}
	return basis, basis / (2 * price)
}

// recalc derives power, then neutral price, then value. Each step reads
// the result of the previous one.
func (s *Leveraged) recalc(st State) State {
	calc := s.cfg.Calculus
	asym := s.asymFor(st)

	if p := s.cfg.Power * calc.PowerFromBalance(st.NeutralPrice, st.Balance, asym); finite(p) {
		st.Power = p
	}
	if n := calc.Neutral(st.Power, asym, st.Position, st.LastPrice); finite(n) && n > 0 {
		st.NeutralPrice = n
	}
	st.Value = calc.PositionValue(st.Power, asym, st.NeutralPrice, st.LastPrice)
	return st
}

func (s *Leveraged) init(m market.Info, price, assets, currency float64) *Leveraged {
	basis, offset := s.balanceBasis(m, price, assets, currency)
	if basis <= 0 {
		// keeps the model finite, practically no trading until funds arrive
		basis = price
	}
	return s.with(s.recalc(State{
		NeutralPrice: price,
		LastPrice:    price,
		Position:     assets - offset,
		Balance:      basis,
		NeutralPos:   offset,
	}))
}

func (s *Leveraged) OnIdle(m market.Info, t market.Ticker, assets, currency float64) Strategy {
	if !s.IsValid() {
		price := t.Last
		if price <= 0 {
			price = t.Mid()
		}
		if price <= 0 {
			return s
		}
		return s.init(m, price, assets, currency)
	}
	if s.st.Power <= 0 {
		st := s.st
		price := st.LastPrice
		if t.Last > 0 {
			price = t.Last
		}
		basis, _ := s.balanceBasis(m, price, assets, currency)
		if basis <= 0 {
			basis = price
		}
		st.Balance = basis
		return s.with(s.recalc(st))
	}
	return s
}

func (s *Leveraged) CalcRoots() calculus.MinMax {
	asym := s.asym()
	budget := s.budget()
	key := [4]float64{s.st.Power, asym, s.st.NeutralPrice, budget}
	if s.roots.ok && s.roots.key == key {
		return s.roots.val
	}
	r := s.cfg.Calculus.Roots(s.st.Power, asym, s.st.NeutralPrice, budget)
	*s.roots = rootsCache{key: key, val: r, ok: true}
	return r
}

// driftNeutral moves the neutral price so the modeled value keeps
// crediting realized profit. Only a reduction-weighted share of the
// move is applied.
func (s *Leveraged) driftNeutral(profit, price float64) float64 {
	st := s.st
	calc := s.cfg.Calculus
	asym := s.asym()

	if profit == 0 || (st.LastPrice-st.NeutralPrice)*(price-st.NeutralPrice) <= 0 {
		return st.NeutralPrice
	}

	anchor := calc.PriceAtZeroPosition(st.NeutralPrice, asym)
	target := st.Value - profit
	if st.Value < 0 && (price-anchor)*(st.LastPrice-anchor) < 0 {
		// crossing the anchor switches curve branch, mirror around it
		cur := calc.PositionValue(st.Power, asym, st.NeutralPrice, price)
		target = 2*cur - target
	}
	cand := calc.NeutralFromValue(st.Power, asym, st.NeutralPrice, target, price)

	red := s.cfg.Reduction
	if st.Balance > 0 {
		red += s.cfg.DynReduction * math.Abs(st.Position*st.LastPrice/st.Balance)
	}
	nn := st.NeutralPrice + (cand-st.NeutralPrice)*2*red
	if !finite(nn) || nn <= 0 {
		return st.NeutralPrice
	}

	still := calc.Position(st.Power, asym, st.NeutralPrice, price) - st.Position
	moved := calc.Position(st.Power, asym, nn, price) - st.Position
	if still*moved < 0 {
		if n := calc.Neutral(st.Power, asym, st.Position, price); finite(n) && n > 0 {
			return n
		}
		return st.NeutralPrice
	}
	return nn
}

func (s *Leveraged) GetNewOrder(m market.Info, curPrice, newPrice, dir, assets, currency float64) OrderDecision {
	if !s.IsValid() {
		if curPrice <= 0 {
			return OrderDecision{}
		}
		return s.init(m, curPrice, assets, currency).GetNewOrder(m, curPrice, newPrice, dir, assets, currency)
	}

	r := s.CalcRoots()
	if !r.Contains(curPrice) {
		_, probe := s.onTrade(m, curPrice, 0, assets, currency)
		pr := probe.CalcRoots()
		if (curPrice > r.Max && curPrice > pr.Max) || (curPrice < r.Min && curPrice < pr.Min) {
			return OrderDecision{Size: -(assets - s.st.NeutralPos), Alert: AlertStopLoss}
		}
		return OrderDecision{Alert: AlertStopLoss}
	}

	st := s.st
	live := assets - st.NeutralPos
	profit := live * (newPrice - st.LastPrice)
	nn := s.driftNeutral(profit, newPrice)
	target := s.cfg.Calculus.Position(st.Power, s.asym(), nn, newPrice)

	ch1 := target - st.Position
	ch2 := target - live
	switch {
	case ch2*dir < 0:
		// live position already overshot the model
		ch2 = ch1 / 2
	case ch2*dir > 2*ch1*dir:
		ch2 = 2 * ch1
	}
	return OrderDecision{Price: 0, Size: ch2, Alert: AlertNone}
}

func nextTrend(counter, position, size float64) float64 {
	if position == 0 || size*position >= 0 {
		return counter
	}
	if (position+size)/position < -0.5 {
		return counter
	}
	step := 1.0
	if size < 0 {
		step = -1
	}
	return (counter + step) * trendDecay
}

func (s *Leveraged) OnTrade(m market.Info, price, size, assetsLeft, currencyLeft float64) (TradeEffect, Strategy) {
	eff, ns := s.onTrade(m, price, size, assetsLeft, currencyLeft)
	return eff, ns
}

func (s *Leveraged) onTrade(m market.Info, price, size, assetsLeft, currencyLeft float64) (TradeEffect, *Leveraged) {
	if price <= 0 {
		return TradeEffect{}, s
	}
	if !s.IsValid() {
		before := currencyLeft
		if !m.Leveraged() {
			before += size * price
		}
		return s.init(m, price, assetsLeft-size, before).onTrade(m, price, size, assetsLeft, currencyLeft)
	}

	calc := s.cfg.Calculus
	asym := s.asym()
	st := s.st

	st.TrendCounter = nextTrend(st.TrendCounter, st.Position, size)

	live := assetsLeft - st.NeutralPos
	profit := (live - size) * (price - st.LastPrice)

	nn := s.driftNeutral(profit, price)
	st.Position = calc.Position(st.Power, asym, nn, price)
	st.LastPrice = price
	if n := calc.Neutral(st.Power, asym, st.Position, st.LastPrice); finite(n) && n > 0 {
		st.NeutralPrice = n
	}

	basis, offset := s.balanceBasis(m, price, assetsLeft, currencyLeft)
	st.NeutralPos = offset

	val := calc.PositionValue(st.Power, asym, st.NeutralPrice, price)
	extra := (val - st.Value) + profit
	st.Value = val
	st.Balance = math.Max(0, val) + basis

	// damp power while the live position strays from the model
	gap := math.Abs(assetsLeft-offset-st.Position) * price
	corr := 1.0
	if st.Balance > 0 {
		corr = st.Balance / (st.Balance + gap)
	}
	if p := s.cfg.Power * calc.PowerFromBalance(st.NeutralPrice, st.Balance, asym) * corr; finite(p) && p > 0 {
		st.Power = p
		// keep the modeled position continuous under the new scale
		if n := calc.Neutral(st.Power, asym, st.Position, price); finite(n) && n > 0 {
			st.NeutralPrice = n
		}
		st.Value = calc.PositionValue(st.Power, asym, st.NeutralPrice, price)
	}

	ns := s.with(st)
	return TradeEffect{
		NormProfit:   extra,
		NeutralPrice: calc.PriceAtZeroPosition(st.NeutralPrice, asym),
	}, ns
}

func (s *Leveraged) CalcSafeRange(m market.Info, assets, currency float64) calculus.MinMax {
	r := s.CalcRoots()
	if m.Leveraged() || !s.IsValid() {
		return r
	}
	calc := s.cfg.Calculus
	asym := s.asym()
	st := s.st

	if p := calc.PriceFromPosition(st.Power, asym, st.NeutralPrice, -st.NeutralPos); finite(p) && p > 0 && p < r.Max {
		r.Max = p
	}
	cr := calc.Roots(st.Power, asym, st.NeutralPrice, math.Max(0, currency))
	if finite(cr.Min) && cr.Min > r.Min {
		r.Min = cr.Min
	}
	return r
}

func (s *Leveraged) GetEquilibrium(assets float64) float64 {
	return s.cfg.Calculus.PriceFromPosition(s.st.Power, s.asym(), s.st.NeutralPrice, assets-s.st.NeutralPos)
}

func (s *Leveraged) Export() Record {
	return Record{State: s.st, Fingerprint: s.cfg.Fingerprint()}
}

// Import restores exported state. State saved under different
// parameters is re-derived instead of trusted.
func (s *Leveraged) Import(r Record) Strategy {
	st := r.State
	if r.Fingerprint != s.cfg.Fingerprint() && st.NeutralPrice > 0 && st.LastPrice > 0 {
		st = s.recalc(st)
	}
	return s.with(st)
}

func (s *Leveraged) Reset() Strategy {
	return s.with(State{})
}

func (s *Leveraged) Snapshot() Snapshot {
	return Snapshot{
		Position:     s.st.Position,
		LastPrice:    s.st.LastPrice,
		NeutralPrice: s.st.NeutralPrice,
		Value:        s.st.Value,
		Balance:      s.st.Balance,
		Power:        s.st.Power,
		NeutralPos:   s.st.NeutralPos,
		TrendPct:     s.st.TrendCounter * trendScale * 100,
	}
}
