package scenario

import (
	"context"
	"fmt"
	"log/slog"
	goruntime "runtime"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/errgroup"
)

// Report collects the results of a batch of scenarios.
type Report struct {
	Results []*Result `json:"results"`
	Stats   Stats     `json:"stats"`
}

// Stats summarizes a batch run.
type Stats struct {
	Scenarios  int              `json:"scenarios"`
	Failed     int              `json:"failed"`
	Steps      int64            `json:"steps"`
	ErrorKinds map[string]int64 `json:"error_kinds"`
	Duration   time.Duration    `json:"duration"`
}

// Failures returns the results that did not succeed, in input order.
func (r *Report) Failures() []*Result {
	var failed []*Result
	for _, res := range r.Results {
		if !res.Success {
			failed = append(failed, res)
		}
	}
	return failed
}

// BatchOptions configures RunAll.
type BatchOptions struct {
	RunOptions

	// Parallel limits how many scenarios run at once. Zero or less means runtime.NumCPU().
	Parallel int
}

// RunAll runs every scenario, each on its own array, and returns the results
// in input order. It stops scheduling new scenarios once ctx is done.
func RunAll(ctx context.Context, scenarios []*Scenario, opts BatchOptions) (*Report, error) {
	start := time.Now()
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	limit := opts.Parallel
	if limit <= 0 {
		limit = goruntime.NumCPU()
	}

	// Each goroutine writes only its own index.
	results := make([]*Result, len(scenarios))
	kinds := xsync.NewMap[string, *atomic.Int64]()
	var steps atomic.Int64

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for idx, sc := range scenarios {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res := Run(sc, opts.RunOptions)
			results[idx] = res

			steps.Add(int64(res.Steps))
			for kind, n := range res.ErrorKinds {
				counter, _ := kinds.LoadOrStore(kind, new(atomic.Int64))
				counter.Add(int64(n))
			}
			logger.Debug("scenario finished", "name", res.Name, "success", res.Success, "steps", res.Steps)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("run scenarios: %w", err)
	}

	report := &Report{
		Results: results,
		Stats: Stats{
			Scenarios:  len(results),
			Steps:      steps.Load(),
			ErrorKinds: make(map[string]int64),
			Duration:   time.Since(start),
		},
	}
	kinds.Range(func(kind string, counter *atomic.Int64) bool {
		report.Stats.ErrorKinds[kind] = counter.Load()
		return true
	})
	report.Stats.Failed = len(report.Failures())
	logger.Info("scenarios completed",
		"scenarios", report.Stats.Scenarios,
		"failed", report.Stats.Failed,
		"error_kinds", report.Stats.ErrorKinds,
		"dur", report.Stats.Duration)
	return report, nil
}
