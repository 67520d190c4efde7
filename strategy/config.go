package strategy

import (
	"errors"
	"fmt"
	"math"

	"github.com/xlubecx/mmbot/calculus"
	"github.com/xlubecx/mmbot/config"
)

var ErrNoCalculus = errors.New("strategy: calculus is required")

// Config holds the immutable strategy parameters.
type Config struct {
	Calculus calculus.Calculus

	Asymmetry       float64
	ExternalBalance float64 // capital held outside the exchange
	Power           float64
	Reduction       float64 // static share of realized profit moved into neutral price
	DynReduction    float64 // share proportional to position size
	DetectTrend     bool
	MaxLoss         float64 // 0 uses the current balance as the loss budget
}

func finite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

func (c Config) Validate() error {
	if c.Calculus == nil {
		return ErrNoCalculus
	}
	if !finite(c.Power) || c.Power <= 0 {
		return fmt.Errorf("strategy: power must be positive, got %v", c.Power)
	}
	if !finite(c.Asymmetry) {
		return fmt.Errorf("strategy: asymmetry must be finite")
	}
	if c.Calculus.ID() == (calculus.Linear{}).ID() && (c.Asymmetry <= -1 || c.Asymmetry == -0.5) {
		// -1 puts the zero-position price at 0, -0.5 leaves the value quadratic degenerate
		return fmt.Errorf("strategy: linear asymmetry must be above -1 and not -0.5, got %v", c.Asymmetry)
	}
	if c.Reduction < 0 || c.DynReduction < 0 {
		return fmt.Errorf("strategy: reduction must not be negative")
	}
	if c.MaxLoss < 0 {
		return fmt.Errorf("strategy: max_loss must not be negative")
	}
	if c.ExternalBalance < 0 {
		return fmt.Errorf("strategy: external_balance must not be negative")
	}
	return nil
}

// Fingerprint identifies the parameters persisted state was built with.
type Fingerprint struct {
	Asymmetry       float64 `json:"asym" yaml:"asym"`
	ExternalBalance float64 `json:"ebal" yaml:"ebal"`
	Power           float64 `json:"power" yaml:"power"`
}

func trunc3(x float64) float64 {
	return math.Trunc(x*1000) / 1000
}

func (c Config) Fingerprint() Fingerprint {
	return Fingerprint{
		Asymmetry:       trunc3(c.Asymmetry),
		ExternalBalance: trunc3(c.ExternalBalance),
		Power:           trunc3(c.Power),
	}
}

// FromConfig builds a leveraged strategy from its file configuration.
func FromConfig(sc config.StrategyConfig) (*Leveraged, error) {
	calc, err := calculus.ByName(sc.Calculus)
	if err != nil {
		return nil, fmt.Errorf("strategy: %w", err)
	}
	return NewLeveraged(Config{
		Calculus:        calc,
		Asymmetry:       sc.Asymmetry,
		ExternalBalance: sc.ExternalBalance,
		Power:           sc.Power,
		Reduction:       sc.Reduction,
		DynReduction:    sc.DynReduction,
		DetectTrend:     sc.DetectTrend,
		MaxLoss:         sc.MaxLoss,
	})
}
