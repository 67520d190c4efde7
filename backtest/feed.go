package backtest

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"time"
)

// SliceSource replays samples held in memory.
type SliceSource struct {
	samples []Sample
	i       int
	closed  bool
}

func NewSliceSource(samples []Sample) *SliceSource {
	return &SliceSource{samples: samples}
}

// Prices builds a source from bare prices spaced one minute apart.
func Prices(start time.Time, prices ...float64) *SliceSource {
	out := make([]Sample, len(prices))
	for i, p := range prices {
		out[i] = Sample{Price: p, Time: start.Add(time.Duration(i) * time.Minute)}
	}
	return NewSliceSource(out)
}

func (s *SliceSource) Next() (Sample, bool, error) {
	if s.closed || s.i >= len(s.samples) {
		return Sample{}, false, nil
	}
	p := s.samples[s.i]
	s.i++
	return p, true, nil
}

func (s *SliceSource) Close() error {
	s.closed = true
	return nil
}

// CSVPriceFeed reads price rows in one of two layouts:
//
//	time,price
//	time,instrument,bid,ask
//
// where time is RFC3339, RFC3339Nano or unix milliseconds. The quote
// layout yields the mid price.
//
// It optionally filters rows to [From, To) if provided.
// Header row ("time,...") is allowed.
// Empty/short rows are skipped.
type CSVPriceFeed struct {
	f    *os.File
	r    *csv.Reader
	from time.Time
	to   time.Time

	sawFirst bool
	line     int
}

func NewCSVPriceFeed(path string, from, to time.Time) (*CSVPriceFeed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("backtest: open feed: %w", err)
	}

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	return &CSVPriceFeed{f: f, r: r, from: from, to: to}, nil
}

func (f *CSVPriceFeed) Close() error {
	if f.f != nil {
		err := f.f.Close()
		f.f = nil
		return err
	}
	return nil
}

func (f *CSVPriceFeed) Next() (Sample, bool, error) {
	for {
		row, err := f.r.Read()
		if err == io.EOF {
			return Sample{}, false, nil
		}
		if err != nil {
			return Sample{}, false, err
		}
		f.line++
		if len(row) == 0 {
			continue
		}

		// Allow a single header row
		if !f.sawFirst {
			f.sawFirst = true
			if strings.EqualFold(strings.TrimSpace(row[0]), "time") {
				continue
			}
		}

		s, ok, err := parsePriceRow(row)
		if err != nil {
			return Sample{}, false, fmt.Errorf("line %d: %w", f.line, err)
		}
		if !ok {
			continue
		}
		if !inRange(s.Time, f.from, f.to) {
			continue
		}
		return s, true, nil
	}
}

func parseTime(ts string) (time.Time, error) {
	if ms, err := strconv.ParseInt(ts, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		t2, err2 := time.Parse(time.RFC3339Nano, ts)
		if err2 != nil {
			return time.Time{}, fmt.Errorf("bad time %q: %w", ts, err)
		}
		t = t2
	}
	return t, nil
}

func parsePrice(s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("bad price %q: %w", s, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, fmt.Errorf("price must be positive and finite, got %v", v)
	}
	return v, nil
}

func parsePriceRow(row []string) (Sample, bool, error) {
	if len(row) < 2 {
		return Sample{}, false, nil
	}

	ts := strings.TrimSpace(row[0])
	if ts == "" {
		return Sample{}, false, nil
	}
	t, err := parseTime(ts)
	if err != nil {
		return Sample{}, false, err
	}

	if len(row) < 4 {
		p, err := parsePrice(row[1])
		if err != nil {
			return Sample{}, false, err
		}
		return Sample{Price: p, Time: t}, true, nil
	}

	bid, err := parsePrice(row[2])
	if err != nil {
		return Sample{}, false, err
	}
	ask, err := parsePrice(row[3])
	if err != nil {
		return Sample{}, false, err
	}
	return Sample{Price: (bid + ask) / 2, Time: t}, true, nil
}

func inRange(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

// ReadAll drains a source into memory and closes it.
func ReadAll(src PriceSource) ([]Sample, error) {
	defer src.Close()
	var out []Sample
	for {
		s, ok, err := src.Next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, s)
	}
}
