package compensation_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/compensation"
	"github.com/warp/commission-engine/rules"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func executiveTier() compensation.Tier {
	return compensation.Tier{
		ID:                 "tier-1",
		Name:               "Tier 1 - Executive",
		QuotaThreshold:     d("1000000"),
		BaseCommissionRate: d("0.08"),
		AcceleratorTrigger: d("0.9"),
		SPIFEligible:       true,
	}
}

func executiveRep() compensation.Context {
	return compensation.Context{
		RepID:       "rep-1",
		RepName:     "Alex Morgan",
		Territory:   "West Coast",
		TierName:    "Tier 1",
		AnnualQuota: d("1000000"),
		YTDRevenue:  d("1250000"),
	}
}

func plan(tiers []compensation.Tier, matrix compensation.RateMatrix, rs ...rules.CompiledRule) compensation.Configuration {
	return compensation.NewConfiguration(tiers, matrix, rs)
}

func assertDec(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, d(want).Equal(got), "want %s, got %s", want, got)
}

func calculate(t *testing.T, rep compensation.Context, cfg compensation.Configuration) compensation.PayoutBreakdown {
	t.Helper()
	b, err := compensation.NewCalculator(nil).Calculate(rep, cfg)
	require.NoError(t, err)
	return b
}

// =============================================================================
// CONCRETE SCENARIOS
// =============================================================================

func TestCalculate_BaseAndSPIF_NoMatrixNoRules(t *testing.T) {
	// GIVEN: 1.25M YTD against a 1M quota on an 8% SPIF-eligible tier
	// WHEN: Calculating with no matrix entries and no rules
	// THEN: Base 100,000 + SPIF 25,000 = 125,000 at a 10% effective rate

	b := calculate(t, executiveRep(), plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{}))

	assertDec(t, "1.25", b.QuotaAttainment.Decimal)
	assert.Equal(t, "125.0%", b.QuotaAttainmentPercent)
	assertDec(t, "100000", b.BaseCommission)
	assertDec(t, "0", b.Accelerators)
	assertDec(t, "0", b.RulesBonus)
	assertDec(t, "25000", b.SPIFBonus)
	assertDec(t, "125000", b.TotalCommission)
	require.True(t, b.EffectiveRate.Valid)
	assertDec(t, "0.1", b.EffectiveRate.Decimal)
	assert.Equal(t, "Tier 1 - Executive", b.AppliedTierName)
	assertDec(t, "0.08", b.AppliedBaseRate)
	assert.True(t, b.SPIFEligible)
	assert.Equal(t, 0, b.RulesAppliedCount)
}

func TestCalculate_Q4AcceleratorRule(t *testing.T) {
	// GIVEN: The same rep in Q4 with a 1.25x rule on Q4 at or above 100%
	// THEN: Accelerators 25,000 and total 150,000

	rule := rules.MustCompile(rules.Rule{
		ID:        "q4-accel",
		Name:      "Q4 Accelerator",
		Condition: "quarter = Q4 AND quota_attainment >= 100%",
		Action:    "multiply_commission(1.25)",
		Active:    true,
	})
	rep := executiveRep()
	rep.Quarter = "Q4"

	b := calculate(t, rep, plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{}, rule))

	assertDec(t, "25000", b.Accelerators)
	assertDec(t, "150000", b.TotalCommission)
	assert.Equal(t, 1, b.RulesAppliedCount)
	require.Len(t, b.RulesApplied, 1)
	assert.Equal(t, "q4-accel", b.RulesApplied[0].ID)
}

func TestCalculate_RateMatrixLookup(t *testing.T) {
	// GIVEN: West Coast / Enterprise configured at 8.5%
	// WHEN: The rep sold only Enterprise
	// THEN: Base commission is 450,000 x 0.085

	matrix := compensation.NewRateMatrix(compensation.RateEntry{
		Territory: "West Coast", Product: "Enterprise", Rate: d("0.085"),
	})
	rep := executiveRep()
	rep.YTDRevenue = d("450000")
	rep.ProductMix = map[string]decimal.Decimal{"Enterprise": d("450000")}

	b := calculate(t, rep, plan([]compensation.Tier{executiveTier()}, matrix))

	assertDec(t, "38250", b.BaseCommission)
	require.Len(t, b.Products, 1)
	assert.False(t, b.Products[0].Fallback)
	assertDec(t, "0.085", b.Products[0].Rate)
}

func TestCalculate_NoApplicableTier(t *testing.T) {
	// GIVEN: A rep labelled "Tier 9" and only "Tier 1 - Executive" configured
	// THEN: A typed configuration error and no partial breakdown

	rep := executiveRep()
	rep.TierName = "Tier 9"

	b, err := compensation.NewCalculator(nil).Calculate(rep, plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{}))

	require.ErrorIs(t, err, compensation.ErrNoApplicableTier)
	var ce *compensation.ConfigurationError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, compensation.CodeNoApplicableTier, ce.Code)
	assert.Equal(t, "Tier 9", ce.Label)
	assert.Equal(t, "rep-1", ce.RepID)
	assert.Equal(t, compensation.PayoutBreakdown{}, b)
}

// =============================================================================
// PROPERTIES
// =============================================================================

func TestCalculate_DeterministicAndDoesNotMutateConfiguration(t *testing.T) {
	matrix := compensation.NewRateMatrix(
		compensation.RateEntry{Territory: "West Coast", Product: "Enterprise", Rate: d("0.085")},
	)
	cfg := plan([]compensation.Tier{executiveTier()}, matrix,
		rules.MustCompile(rules.Rule{ID: "b", Condition: "territory = West Coast", Action: "add_bonus(5000)", Active: true, Priority: 1}),
		rules.MustCompile(rules.Rule{ID: "a", Condition: "quota_attainment >= 1.0", Action: "multiply_commission(1.1)", Active: true, Priority: 5}),
	)
	rep := executiveRep()
	rep.ProductMix = map[string]decimal.Decimal{"Enterprise": d("1000000"), "SMB": d("250000")}

	tiersBefore := cfg.Tiers()
	rulesBefore := cfg.Rules()

	first := calculate(t, rep, cfg)
	second := calculate(t, rep, cfg)

	assert.Equal(t, first, second)
	assert.Equal(t, tiersBefore, cfg.Tiers())
	assert.Equal(t, "b", cfg.Rules()[0].ID, "rule order in configuration is untouched")
	assert.Equal(t, len(rulesBefore), len(cfg.Rules()))
}

func TestCalculate_MissingMatrixEntryFallsBackToTierRate(t *testing.T) {
	matrix := compensation.NewRateMatrix(
		compensation.RateEntry{Territory: "West Coast", Product: "Enterprise", Rate: d("0.085")},
	)
	rep := executiveRep()
	rep.ProductMix = map[string]decimal.Decimal{"Enterprise": d("1000000"), "SMB": d("250000")}

	b := calculate(t, rep, plan([]compensation.Tier{executiveTier()}, matrix))

	require.Len(t, b.Products, 2)
	smb := b.Products[1]
	assert.Equal(t, "SMB", smb.Product)
	assert.True(t, smb.Fallback)
	assertDec(t, "0.08", smb.Rate)
	// 1,000,000 x 0.085 + 250,000 x 0.08
	assertDec(t, "105000", b.BaseCommission)
}

func TestCalculate_SPIFGating(t *testing.T) {
	tier := executiveTier()
	tier.SPIFEligible = false

	rep := executiveRep()
	rep.YTDRevenue = d("2000000")

	b := calculate(t, rep, plan([]compensation.Tier{tier}, compensation.RateMatrix{}))
	assertDec(t, "0", b.SPIFBonus)

	// Eligible but below the trigger
	rep.YTDRevenue = d("850000")
	b = calculate(t, rep, plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{}))
	assertDec(t, "0", b.SPIFBonus)

	// Exactly at the trigger qualifies
	rep.YTDRevenue = d("900000")
	b = calculate(t, rep, plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{}))
	assertDec(t, "18000", b.SPIFBonus)
}

func TestCalculate_SPIFRateFromSettings(t *testing.T) {
	cfg, err := plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{}).
		WithSettings(compensation.Settings{SPIFRate: d("0.03")})
	require.NoError(t, err)

	b := calculate(t, executiveRep(), cfg)
	assertDec(t, "37500", b.SPIFBonus)
}

func TestCalculate_InactiveRuleNeverCounts(t *testing.T) {
	rule := rules.MustCompile(rules.Rule{
		ID: "off", Condition: "quota_attainment >= 100%", Action: "add_bonus(10000)", Active: false,
	})
	b := calculate(t, executiveRep(), plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{}, rule))

	assert.Equal(t, 0, b.RulesAppliedCount)
	assertDec(t, "0", b.RulesBonus)
	require.Len(t, b.RulesSkipped, 1)
	assert.Equal(t, rules.SkipInactive, b.RulesSkipped[0].Reason)
}

// =============================================================================
// DEGENERATE INPUTS
// =============================================================================

func TestCalculate_ZeroQuotaIsNotFatal(t *testing.T) {
	// GIVEN: A quota of zero
	// THEN: Attainment is undefined, no SPIF, base still computed

	rep := executiveRep()
	rep.AnnualQuota = decimal.Zero

	b := calculate(t, rep, plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{}))

	assert.False(t, b.QuotaAttainment.Valid)
	assert.Equal(t, "n/a", b.QuotaAttainmentPercent)
	assertDec(t, "0", b.SPIFBonus)
	assertDec(t, "100000", b.BaseCommission)
}

func TestCalculate_ZeroRevenueHasUndefinedEffectiveRate(t *testing.T) {
	rep := executiveRep()
	rep.YTDRevenue = decimal.Zero

	b := calculate(t, rep, plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{}))

	assert.False(t, b.EffectiveRate.Valid)
	assertDec(t, "0", b.TotalCommission)
}

func TestCalculate_NegativeMatrixRateIsClampedToZero(t *testing.T) {
	matrix := compensation.NewRateMatrix(
		compensation.RateEntry{Territory: "West Coast", Product: "Enterprise", Rate: d("-0.02")},
	)
	rep := executiveRep()
	rep.ProductMix = map[string]decimal.Decimal{"Enterprise": d("1250000")}

	b := calculate(t, rep, plan([]compensation.Tier{executiveTier()}, matrix))
	assertDec(t, "0", b.BaseCommission)
}

// =============================================================================
// TIER RESOLUTION
// =============================================================================

func TestResolveTier_SubstringFirstMatchWins(t *testing.T) {
	tiers := []compensation.Tier{
		{ID: "exec", Name: "Tier 1 - Executive"},
		{ID: "senior", Name: "Tier 1 - Senior"},
		{ID: "t2", Name: "Tier 2 - Standard"},
	}

	got, err := compensation.ResolveTier("Tier 1", tiers)
	require.NoError(t, err)
	assert.Equal(t, "exec", got.ID)

	got, err = compensation.ResolveTier("Senior", tiers)
	require.NoError(t, err)
	assert.Equal(t, "senior", got.ID)

	_, err = compensation.ResolveTier("", tiers)
	assert.ErrorIs(t, err, compensation.ErrNoApplicableTier)
}

// =============================================================================
// RULE FACTS
// =============================================================================

func TestCalculate_QuarterDerivedFromAsOf(t *testing.T) {
	rule := rules.MustCompile(rules.Rule{
		ID: "q4", Condition: "quarter = Q4", Action: "add_bonus(1000)", Active: true,
	})
	rep := executiveRep()
	rep.AsOf = time.Date(2025, time.November, 15, 0, 0, 0, 0, time.UTC)

	cfg := plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{}, rule)
	b := calculate(t, rep, cfg)
	assert.Equal(t, "Q4", b.Quarter)
	assertDec(t, "1000", b.RulesBonus)

	// With a February fiscal year, November is Q4 too but October is Q3
	cfg, err := cfg.WithSettings(compensation.Settings{SPIFRate: d("0.02"), FiscalYearStartMonth: time.February})
	require.NoError(t, err)
	rep.AsOf = time.Date(2025, time.October, 15, 0, 0, 0, 0, time.UTC)
	b = calculate(t, rep, cfg)
	assert.Equal(t, "Q3", b.Quarter)
	assertDec(t, "0", b.RulesBonus)
}

func TestCalculate_SalesTierMatchesLabelOrTierName(t *testing.T) {
	cfg := plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{},
		rules.MustCompile(rules.Rule{ID: "label", Condition: "sales_tier = Tier 1", Action: "add_bonus(1)", Active: true}),
		rules.MustCompile(rules.Rule{ID: "name", Condition: "sales_tier = Tier 1 - Executive", Action: "add_bonus(10)", Active: true}),
	)
	b := calculate(t, executiveRep(), cfg)
	assert.Equal(t, 2, b.RulesAppliedCount)
	assertDec(t, "11", b.RulesBonus)
}

func TestCalculate_TeamAttainmentOnlyWhenProvided(t *testing.T) {
	cfg := plan([]compensation.Tier{executiveTier()}, compensation.RateMatrix{},
		rules.MustCompile(rules.Rule{ID: "team", Condition: "team_quota_attainment >= 90%", Action: "add_bonus(2500)", Active: true}),
	)
	rep := executiveRep()

	b := calculate(t, rep, cfg)
	assertDec(t, "0", b.RulesBonus)

	team := d("0.95")
	rep.TeamQuotaAttainment = &team
	b = calculate(t, rep, cfg)
	assertDec(t, "2500", b.RulesBonus)
}
