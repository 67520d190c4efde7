package journal

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/xlubecx/mmbot/backtest"
)

const runColumns = `run_id, created, strategy, pair, dataset, config, start_time, end_time,
	trades, buys, sells, pl, max_drawdown, norm_profit, final_pos`

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (Run, error) {
	var r Run
	err := s.Scan(
		&r.RunID, &r.Created, &r.Strategy, &r.Pair, &r.Dataset, &r.Config,
		&r.Start, &r.End,
		&r.Trades, &r.Buys, &r.Sells, &r.PL, &r.MaxDrawdown, &r.NormProfit, &r.FinalPos,
	)
	return r, err
}

// GetRun returns a single run by ID.
func (j *SQLite) GetRun(ctx context.Context, runID string) (Run, error) {
	row := j.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE run_id = ?`, runID)
	r, err := scanRun(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return Run{}, fmt.Errorf("run %q: %w", runID, ErrNotFound)
		}
		return Run{}, err
	}
	return r, nil
}

// ListRuns returns the most recent runs first. limit <= 0 returns all.
func (j *SQLite) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	q := `SELECT ` + runColumns + ` FROM runs ORDER BY created DESC, run_id DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ListLedger returns the ledger of a run in its original order.
func (j *SQLite) ListLedger(ctx context.Context, runID string) (backtest.Ledger, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT time, price, size, pos, pl, neutral_price, norm_accum, norm_profit
		FROM ledger
		WHERE run_id = ?
		ORDER BY seq ASC`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out backtest.Ledger
	for rows.Next() {
		var x backtest.Record
		if err := rows.Scan(&x.Time, &x.Price, &x.Size, &x.Pos, &x.PL,
			&x.NeutralPrice, &x.NormAccum, &x.NormProfit); err != nil {
			return nil, err
		}
		out = append(out, x)
	}
	return out, rows.Err()
}
