package strategy

import (
	"fmt"
	"io"
)

// State is the mutable part of the model. It is valid once NeutralPrice
// is positive.
type State struct {
	NeutralPrice float64 `json:"neutral_price" yaml:"neutral_price"`
	LastPrice    float64 `json:"last_price" yaml:"last_price"`
	Position     float64 `json:"position" yaml:"position"`
	Balance      float64 `json:"balance" yaml:"balance"`
	Value        float64 `json:"value" yaml:"value"`
	Power        float64 `json:"power" yaml:"power"`
	NeutralPos   float64 `json:"neutral_pos" yaml:"neutral_pos"` // 0 on leveraged markets
	TrendCounter float64 `json:"trend" yaml:"trend"`
}

// Record is the exported form of a strategy. The fingerprint guards
// against reusing numbers computed under different parameters.
type Record struct {
	State       State       `json:"state" yaml:"state"`
	Fingerprint Fingerprint `json:"fingerprint" yaml:"fingerprint"`
}

// Snapshot is a read-only view for operational display.
type Snapshot struct {
	Position     float64
	LastPrice    float64
	NeutralPrice float64
	Value        float64
	Balance      float64
	Power        float64
	NeutralPos   float64
	TrendPct     float64
}

func PrintSnapshot(w io.Writer, s Snapshot) {
	fmt.Fprintf(w, "Position:      %.8g\n", s.Position)
	fmt.Fprintf(w, "Last price:    %.8g\n", s.LastPrice)
	fmt.Fprintf(w, "Neutral price: %.8g\n", s.NeutralPrice)
	fmt.Fprintf(w, "Value:         %.8g\n", s.Value)
	fmt.Fprintf(w, "Balance:       %.8g\n", s.Balance)
	fmt.Fprintf(w, "Power:         %.8g\n", s.Power)
	fmt.Fprintf(w, "Neutral pos:   %.8g\n", s.NeutralPos)
	fmt.Fprintf(w, "Trend factor:  %.2f%%\n", s.TrendPct)
}
