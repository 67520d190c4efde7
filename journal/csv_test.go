package journal

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	rows, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVJournalHeaders(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	ledgerPath := filepath.Join(dir, "ledger.csv")
	runsPath := filepath.Join(dir, "runs.csv")

	j, err := NewCSV(ledgerPath, runsPath)
	require.NoError(t, err)
	require.NoError(t, j.Close())

	assert.Equal(t, [][]string{ledgerHeader}, readCSV(t, ledgerPath))
	assert.Equal(t, [][]string{runsHeader}, readCSV(t, runsPath))
}

func TestCSVJournalRecordLedger(t *testing.T) {
	t.Parallel()

	ledgerPath := filepath.Join(t.TempDir(), "ledger.csv")
	j, err := NewCSV(ledgerPath, "")
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, j.RecordLedger(ctx, "RUN1", testLedger()))
	// without a runs file summaries are dropped
	require.NoError(t, j.RecordRun(ctx, Run{RunID: "RUN1"}))
	require.NoError(t, j.Close())

	rows := readCSV(t, ledgerPath)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"RUN1", "1", "2024-01-02T03:05:05Z", "101", "-0.02", "0.98", "1", "100", "0", "0.01"}, rows[2])
}

func TestCSVJournalRecordRun(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	runsPath := filepath.Join(dir, "runs.csv")
	j, err := NewCSV(filepath.Join(dir, "ledger.csv"), runsPath)
	require.NoError(t, err)

	run := Run{RunID: "RUN1", Created: t0, Strategy: "hyperbolic", Pair: "BTC/USD", Trades: 3, PL: 1.5}
	require.NoError(t, j.RecordRun(context.Background(), run))
	require.NoError(t, j.Close())

	rows := readCSV(t, runsPath)
	require.Len(t, rows, 2)
	assert.Equal(t, "RUN1", rows[1][0])
	assert.Equal(t, "2024-01-02T03:04:05Z", rows[1][1])
	assert.Equal(t, "hyperbolic", rows[1][2])
	assert.Equal(t, "3", rows[1][7])
	assert.Equal(t, "1.5", rows[1][10])
}

func TestNewCSVBadPath(t *testing.T) {
	t.Parallel()

	_, err := NewCSV("/nonexistent/dir/ledger.csv", "")
	assert.Error(t, err)
}

func TestRunWriteOrg(t *testing.T) {
	t.Parallel()

	run := Run{
		RunID:    "01HZX3ABCDEFGHJKMNPQRSTVWX",
		Created:  t0,
		Strategy: "linear",
		Pair:     "BTC/USD",
		Start:    t0,
		End:      t0.AddDate(0, 0, 3),
		Trades:   12,
		PL:       42.5,
		Config:   []byte("power: 1\n"),
	}

	var buf bytes.Buffer
	require.NoError(t, run.WriteOrg(&buf))
	out := buf.String()

	assert.Contains(t, out, "* BACKTEST: linear BTC/USD (01HZX3AB)")
	assert.Contains(t, out, ":RUN_ID:      01HZX3ABCDEFGHJKMNPQRSTVWX")
	assert.Contains(t, out, ":START_DATE:  2024-01-02")
	assert.Contains(t, out, ":END_DATE:    2024-01-05")
	assert.Contains(t, out, ":NET_PL:      42.50")
	assert.Contains(t, out, ":TRADES:      12")
	assert.Contains(t, out, "#+begin_src yaml\npower: 1\n#+end_src")

	path := filepath.Join(t.TempDir(), "run.org")
	require.NoError(t, run.WriteOrgFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, out, string(data))
}

func TestShortID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "short", shortID("short"))
	assert.Equal(t, "01234567", shortID("0123456789"))
}
