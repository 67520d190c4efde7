package journal

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xlubecx/mmbot/backtest"
	"github.com/xlubecx/mmbot/strategy"
)

var t0 = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })

	return j, path
}

func testLedger() backtest.Ledger {
	return backtest.Ledger{
		{Price: 100, Time: t0, Pos: 1, NeutralPrice: 100},
		{Price: 101, Time: t0.Add(time.Minute), Size: -0.02, Pos: 0.98, PL: 1, NeutralPrice: 100, NormProfit: 0.01},
		{Price: 99, Time: t0.Add(2 * time.Minute), Size: 0.03, Pos: 1.01, PL: -0.96, NeutralPrice: 100.1, NormProfit: 0.03},
	}
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	rows, err := db.Query(`SELECT name FROM sqlite_master WHERE type='table' AND name IN ('runs','ledger','strategy_state')`)
	require.NoError(t, err)
	defer rows.Close()

	found := map[string]bool{}
	for rows.Next() {
		var name string
		assert.NoError(t, rows.Scan(&name))
		found[name] = true
	}
	assert.NoError(t, rows.Err())

	assert.True(t, found["runs"])
	assert.True(t, found["ledger"])
	assert.True(t, found["strategy_state"])
}

func TestSQLiteRunRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	res := backtest.Summarize(testLedger())
	res.Strategy = "linear"
	run := NewRun("RUN1", t0, res)
	run.Pair = "BTC/USD"
	run.Dataset = "prices.csv"
	run.Config = []byte("strategy:\n  power: 1\n")

	require.NoError(t, j.RecordRun(ctx, run))

	got, err := j.GetRun(ctx, "RUN1")
	require.NoError(t, err)
	assert.Equal(t, "RUN1", got.RunID)
	assert.True(t, got.Created.Equal(t0))
	assert.Equal(t, "linear", got.Strategy)
	assert.Equal(t, "BTC/USD", got.Pair)
	assert.Equal(t, run.Config, got.Config)
	assert.True(t, got.Start.Equal(res.Start))
	assert.True(t, got.End.Equal(res.End))
	assert.Equal(t, 2, got.Trades)
	assert.Equal(t, 1, got.Buys)
	assert.Equal(t, 1, got.Sells)
	assert.InDelta(t, -0.96, got.PL, 1e-12)
	assert.InDelta(t, 1.96, got.MaxDrawdown, 1e-12)
	assert.InDelta(t, 0.03, got.NormProfit, 1e-12)

	_, err = j.GetRun(ctx, "missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	// duplicate IDs are rejected
	assert.Error(t, j.RecordRun(ctx, run))
}

func TestSQLiteListRuns(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	for i, id := range []string{"A", "B", "C"} {
		require.NoError(t, j.RecordRun(ctx, Run{RunID: id, Created: t0.Add(time.Duration(i) * time.Hour)}))
	}

	all, err := j.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "C", all[0].RunID)
	assert.Equal(t, "A", all[2].RunID)

	two, err := j.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, two, 2)
}

func TestSQLiteLedgerRoundTrip(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	l := testLedger()
	require.NoError(t, j.RecordLedger(ctx, "RUN1", l))
	require.NoError(t, j.RecordLedger(ctx, "RUN2", l[:1]))

	got, err := j.ListLedger(ctx, "RUN1")
	require.NoError(t, err)
	require.Len(t, got, len(l))
	for i := range l {
		assert.True(t, l[i].Time.Equal(got[i].Time), "row %d", i)
		got[i].Time = l[i].Time
	}
	assert.Equal(t, l, got)

	empty, err := j.ListLedger(ctx, "none")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSQLiteStateStore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	j, _ := newTestSQLite(t)

	_, err := j.LoadState(ctx, "BTC/USD")
	assert.True(t, errors.Is(err, ErrNotFound))

	rec := strategy.Record{
		State: strategy.State{
			NeutralPrice: 100.5,
			LastPrice:    101,
			Position:     -0.02,
			Balance:      200,
			Value:        0.01,
			Power:        2,
			NeutralPos:   0.99,
			TrendCounter: -0.999,
		},
		Fingerprint: strategy.Fingerprint{Asymmetry: 0.1, Power: 1},
	}
	require.NoError(t, j.SaveState(ctx, "BTC/USD", rec))

	got, err := j.LoadState(ctx, "BTC/USD")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	// saving again replaces the record
	rec.State.LastPrice = 102
	require.NoError(t, j.SaveState(ctx, "BTC/USD", rec))
	got, err = j.LoadState(ctx, "BTC/USD")
	require.NoError(t, err)
	assert.Equal(t, 102.0, got.State.LastPrice)
}
