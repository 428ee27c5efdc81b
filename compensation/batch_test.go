package compensation_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/compensation"
	"go.uber.org/zap"
)

func TestCalculateAll_KeepsOrderAndReportsFailuresPerRow(t *testing.T) {
	// GIVEN: 50 reps, every 10th with an unknown tier label
	// WHEN: Calculating in parallel with 4 workers
	// THEN: Rows come back in input order, failures stay on their row

	cfg := plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{})
	calc := compensation.NewCalculator(zap.NewNop())
	calc.Workers = 4

	var reps []compensation.Context
	for i := 0; i < 50; i++ {
		rep := executiveRep()
		rep.RepID = fmt.Sprintf("rep-%02d", i)
		if i%10 == 0 {
			rep.TierName = "Tier 9"
		}
		reps = append(reps, rep)
	}

	results, err := calc.CalculateAll(context.Background(), cfg, reps)
	require.NoError(t, err)
	require.Len(t, results, 50)

	for i, r := range results {
		assert.Equal(t, reps[i].RepID, r.RepID)
		if i%10 == 0 {
			assert.ErrorIs(t, r.Err, compensation.ErrNoApplicableTier)
		} else {
			require.NoError(t, r.Err)
			assertDec(t, "125000", r.Breakdown.TotalCommission)
		}
	}
	assert.Len(t, compensation.Failed(results), 5)
}

func TestCalculateAll_MatchesSequentialCalculation(t *testing.T) {
	cfg := plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{})
	calc := compensation.NewCalculator(nil)
	reps := twoReps()

	results, err := calc.CalculateAll(context.Background(), cfg, reps)
	require.NoError(t, err)

	for i, rep := range reps {
		want, err := calc.Calculate(rep, cfg)
		require.NoError(t, err)
		assert.Equal(t, want, results[i].Breakdown)
	}
}

func TestCalculateAll_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := compensation.NewCalculator(nil).CalculateAll(ctx, plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{}), twoReps())
	assert.ErrorIs(t, err, context.Canceled)
}
