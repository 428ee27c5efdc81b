package compensation

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// BATCH - Many representatives, one configuration
// =============================================================================

// BatchResult is one row of a batch run. Err is a per-representative
// failure (usually NoApplicableTier); Breakdown is zero when Err is set.
type BatchResult struct {
	RepID     string
	Breakdown PayoutBreakdown
	Err       error
}

// DefaultWorkers is used when Calculator.Workers is zero.
var DefaultWorkers = runtime.GOMAXPROCS(0)

// CalculateAll computes every representative in parallel against the same
// configuration. Results keep input order. A failing representative does
// not stop the batch; only context cancellation does, in which case the
// context error is returned with whatever rows completed.
func (c *Calculator) CalculateAll(ctx context.Context, cfg Configuration, reps []Context) ([]BatchResult, error) {
	results := make([]BatchResult, len(reps))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers())

	for i, rep := range reps {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			b, err := c.Calculate(rep, cfg)
			results[i] = BatchResult{RepID: rep.RepID, Breakdown: b, Err: err}
			if err != nil {
				c.logger().Debug("batch row failed", zap.String("rep_id", rep.RepID), zap.Error(err))
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// Failed returns the rows that carry an error.
func Failed(results []BatchResult) []BatchResult {
	var out []BatchResult
	for _, r := range results {
		if r.Err != nil {
			out = append(out, r)
		}
	}
	return out
}

func (c *Calculator) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	if DefaultWorkers < 1 {
		return 1
	}
	return DefaultWorkers
}
