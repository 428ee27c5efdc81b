package compensation_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/compensation"
)

func nd(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: d(s), Valid: true}
}

func twoReps() []compensation.Context {
	a := executiveRep()
	b := executiveRep()
	b.RepID = "rep-2"
	b.YTDRevenue = d("500000")
	return []compensation.Context{a, b}
}

// =============================================================================
// SIMULATION
// =============================================================================

func TestSimulate_NoModifiersMatchesPlainCalculation(t *testing.T) {
	cfg := plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{})
	calc := compensation.NewCalculator(nil)

	res, err := calc.Simulate(context.Background(), cfg, twoReps(), compensation.Scenario{ID: "base", Name: "Current plan"})
	require.NoError(t, err)

	assertDec(t, "165000", res.Snapshot.Total)
	spifPct, _ := res.Snapshot.Modifier(compensation.ModSPIFPercent)
	assertDec(t, "2", spifPct)
	rate, _ := res.Snapshot.Modifier(compensation.ModAcceleratorRate)
	assertDec(t, "1", rate)
}

func TestSimulate_AllModifiers(t *testing.T) {
	// GIVEN: SPIF 3%, accelerator 1.5x and bonus multiplier 2x for everyone
	// WHEN: rep-1 is above its trigger (125%) and rep-2 is not (50%)
	// THEN: rep-1 = 100,000 + 50,000 + 2 x 37,500 = 225,000
	//       rep-2 = 40,000 (no accelerator, no SPIF)

	cfg := plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{})
	calc := compensation.NewCalculator(nil)
	sc := compensation.Scenario{
		ID:              "push",
		Name:            "Q4 push",
		SPIFPercent:     nd("3"),
		AcceleratorRate: nd("1.5"),
		BonusMultiplier: nd("2"),
	}

	res, err := calc.Simulate(context.Background(), cfg, twoReps(), sc)
	require.NoError(t, err)

	require.Len(t, res.Rows, 2)
	assertDec(t, "225000", res.Rows[0].Breakdown.TotalCommission)
	assertDec(t, "50000", res.Rows[0].Breakdown.Accelerators)
	assertDec(t, "75000", res.Rows[0].Breakdown.SPIFBonus)
	assertDec(t, "40000", res.Rows[1].Breakdown.TotalCommission)
	assertDec(t, "265000", res.Snapshot.Total)

	affected, _ := res.Snapshot.Modifier(compensation.ModAffectedReps)
	assertDec(t, "2", affected)

	// The plan itself is untouched
	assertDec(t, "0.02", cfg.Settings().SPIFRate)
}

func TestSimulate_OnlyAffectedRepsChange(t *testing.T) {
	cfg := plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{})
	calc := compensation.NewCalculator(nil)
	sc := compensation.Scenario{
		ID:              "rep-2-only",
		SPIFPercent:     nd("10"),
		AcceleratorRate: nd("2"),
		AffectedReps:    []string{"rep-2"},
	}

	res, err := calc.Simulate(context.Background(), cfg, twoReps(), sc)
	require.NoError(t, err)

	assertDec(t, "125000", res.Rows[0].Breakdown.TotalCommission)
	assert.Equal(t, "rep-2", res.Rows[1].RepID)
	// rep-2 is below trigger: neither SPIF nor accelerator applies
	assertDec(t, "40000", res.Rows[1].Breakdown.TotalCommission)

	affected, _ := res.Snapshot.Modifier(compensation.ModAffectedReps)
	assertDec(t, "1", affected)
}

func TestSimulate_CompareAgainstBaseline(t *testing.T) {
	cfg := plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{})
	calc := compensation.NewCalculator(nil)
	ctx := context.Background()

	base, err := calc.Simulate(ctx, cfg, twoReps(), compensation.Scenario{ID: "base"})
	require.NoError(t, err)
	push, err := calc.Simulate(ctx, cfg, twoReps(), compensation.Scenario{
		ID: "push", SPIFPercent: nd("3"), AcceleratorRate: nd("1.5"), BonusMultiplier: nd("2"),
	})
	require.NoError(t, err)

	v := compensation.Compare(base.Snapshot, push.Snapshot).Variances[0]
	assertDec(t, "100000", v.PayoutDelta)
	assertDec(t, "60.61", v.PayoutDeltaPercent.Decimal.Round(2))
}

func TestSimulate_RejectsOutOfRangeModifiers(t *testing.T) {
	cfg := plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{})
	calc := compensation.NewCalculator(nil)

	for _, sc := range []compensation.Scenario{
		{ID: "spif", SPIFPercent: nd("120")},
		{ID: "accel", AcceleratorRate: nd("0")},
		{ID: "mult", BonusMultiplier: nd("-1")},
	} {
		_, err := calc.Simulate(context.Background(), cfg, twoReps(), sc)
		assert.ErrorIs(t, err, compensation.ErrRateOutOfRange, sc.ID)
	}
}

func TestSimulate_UnmatchedRepIsReportedNotSummed(t *testing.T) {
	cfg := plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{})
	reps := twoReps()
	reps[1].TierName = "Tier 9"

	res, err := compensation.NewCalculator(nil).Simulate(context.Background(), cfg, reps, compensation.Scenario{ID: "base"})
	require.NoError(t, err)

	assert.ErrorIs(t, res.Rows[1].Err, compensation.ErrNoApplicableTier)
	assertDec(t, "125000", res.Snapshot.Total)
}
