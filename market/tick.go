package market

import "time"

// Ticker is the last known top of book.
type Ticker struct {
	Ask  float64
	Bid  float64
	Last float64
	Time time.Time
}

// Mid returns the middle of the spread, or Last when the book is empty.
func (t Ticker) Mid() float64 {
	if t.Ask <= 0 || t.Bid <= 0 {
		return t.Last
	}
	return (t.Ask + t.Bid) / 2
}

// TickerAt builds a ticker whose prices all equal price.
func TickerAt(price float64, ts time.Time) Ticker {
	return Ticker{Ask: price, Bid: price, Last: price, Time: ts}
}
