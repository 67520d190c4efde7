package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xlubecx/mmbot/backtest"
	"github.com/xlubecx/mmbot/strategy"
)

type SQLite struct {
	db *sql.DB
}

var (
	_ Journal    = (*SQLite)(nil)
	_ StateStore = (*SQLite)(nil)
)

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("journal: create schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordRun(ctx context.Context, r Run) error {
	_, err := j.db.ExecContext(ctx, `
		INSERT INTO runs
		(run_id, created, strategy, pair, dataset, config, start_time, end_time,
		 trades, buys, sells, pl, max_drawdown, norm_profit, final_pos)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID, r.Created, r.Strategy, r.Pair, r.Dataset, r.Config, r.Start, r.End,
		r.Trades, r.Buys, r.Sells, r.PL, r.MaxDrawdown, r.NormProfit, r.FinalPos,
	)
	if err != nil {
		return fmt.Errorf("journal: record run %s: %w", r.RunID, err)
	}
	return nil
}

// RecordLedger stores all rows of a ledger in one transaction.
func (j *SQLite) RecordLedger(ctx context.Context, runID string, l backtest.Ledger) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO ledger
		(run_id, seq, time, price, size, pos, pl, neutral_price, norm_accum, norm_profit)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, x := range l {
		if _, err := stmt.ExecContext(ctx, runID, i, x.Time, x.Price, x.Size, x.Pos, x.PL,
			x.NeutralPrice, x.NormAccum, x.NormProfit); err != nil {
			return fmt.Errorf("journal: record ledger %s row %d: %w", runID, i, err)
		}
	}
	return tx.Commit()
}

// SaveState replaces the stored record for key.
func (j *SQLite) SaveState(ctx context.Context, key string, r strategy.Record) error {
	data, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("journal: encode state: %w", err)
	}
	_, err = j.db.ExecContext(ctx, `
		INSERT INTO strategy_state (key, updated, record) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET updated = excluded.updated, record = excluded.record`,
		key, time.Now().UTC(), string(data),
	)
	if err != nil {
		return fmt.Errorf("journal: save state %q: %w", key, err)
	}
	return nil
}

func (j *SQLite) LoadState(ctx context.Context, key string) (strategy.Record, error) {
	var data string
	err := j.db.QueryRowContext(ctx, `SELECT record FROM strategy_state WHERE key = ?`, key).Scan(&data)
	if err == sql.ErrNoRows {
		return strategy.Record{}, fmt.Errorf("state %q: %w", key, ErrNotFound)
	}
	if err != nil {
		return strategy.Record{}, err
	}

	var r strategy.Record
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return strategy.Record{}, fmt.Errorf("journal: decode state %q: %w", key, err)
	}
	return r, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
