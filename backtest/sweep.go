package backtest

import (
	"context"
	"fmt"

	"github.com/xlubecx/mmbot/market"
	"github.com/xlubecx/mmbot/strategy"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// SweepJob is one independent run of a parameter sweep. Samples are
// shared read-only between jobs.
type SweepJob struct {
	Name     string
	Strategy strategy.Strategy
	Market   market.Info
	Samples  []Sample
	Options  Options
}

type SweepResult struct {
	Name   string
	Result Result
	Ledger Ledger
}

// Sweep runs the jobs in parallel with at most workers concurrent runs.
// Results keep the order of jobs. The first failing job cancels the rest.
func Sweep(ctx context.Context, jobs []SweepJob, workers int, logger *zap.Logger) ([]SweepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if workers <= 0 {
		workers = 1
	}

	out := make([]SweepResult, len(jobs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, job := range jobs {
		g.Go(func() error {
			r := &Runner{
				Strategy: job.Strategy,
				Market:   job.Market,
				Feed:     NewSliceSource(job.Samples),
				Options:  job.Options,
				Logger:   logger.With(zap.String("job", job.Name)),
			}
			l, err := r.Run(gctx)
			if err != nil {
				return fmt.Errorf("backtest: sweep job %q: %w", job.Name, err)
			}
			res := Summarize(l)
			if job.Strategy != nil {
				res.Strategy = job.Strategy.ID()
			}
			out[i] = SweepResult{Name: job.Name, Result: res, Ledger: l}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
