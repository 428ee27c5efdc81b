package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/compensation"
	"github.com/warp/commission-engine/rules"
)

// SamplePlanID identifies the demo plan.
const SamplePlanID = "fy25-field-sales"

// SamplePlanJSON returns JSON for the demo field-sales plan: three tiers,
// a two-by-three rate matrix and three bonus rules.
func SamplePlanJSON() string {
	dec := decimal.RequireFromString
	spif := dec("0.02")
	gap := dec("1000")

	pj := PlanJSON{
		ID:   SamplePlanID,
		Name: "FY25 Field Sales",
		Tiers: []compensation.Tier{
			{ID: "tier-1", Name: "Tier 1 - Executive", QuotaThreshold: dec("1000000"), BaseCommissionRate: dec("0.08"), AcceleratorTrigger: dec("0.9"), SPIFEligible: true},
			{ID: "tier-2", Name: "Tier 2 - Senior", QuotaThreshold: dec("500000"), BaseCommissionRate: dec("0.06"), AcceleratorTrigger: dec("1"), SPIFEligible: true},
			{ID: "tier-3", Name: "Tier 3 - Associate", QuotaThreshold: dec("250000"), BaseCommissionRate: dec("0.04"), AcceleratorTrigger: dec("1")},
		},
		RateMatrix: ptr(compensation.NewRateMatrix(
			compensation.RateEntry{Territory: "West Coast", Product: "Enterprise", Rate: dec("0.085")},
			compensation.RateEntry{Territory: "West Coast", Product: "Mid-Market", Rate: dec("0.07")},
			compensation.RateEntry{Territory: "West Coast", Product: "SMB", Rate: dec("0.05")},
			compensation.RateEntry{Territory: "East Coast", Product: "Enterprise", Rate: dec("0.08")},
			compensation.RateEntry{Territory: "East Coast", Product: "Mid-Market", Rate: dec("0.065")},
			compensation.RateEntry{Territory: "East Coast", Product: "SMB", Rate: dec("0.05")},
		)),
		Rules: []rules.Rule{
			{
				ID:        "q4-accelerator",
				Name:      "Q4 Accelerator",
				Condition: "quota_attainment > 100% AND quarter = Q4",
				Action:    "multiply_commission(1.25)",
				Active:    true,
				Priority:  10,
			},
			{
				ID:        "enterprise-bonus",
				Name:      "Enterprise Closer Bonus",
				Condition: "product_category = Enterprise AND quota_attainment >= 90%",
				Action:    "add_bonus(5000)",
				Active:    true,
				Priority:  5,
			},
			{
				ID:        "team-stretch",
				Name:      "Team Stretch",
				Condition: "team_quota_attainment >= 110%",
				Action:    "add_percentage_bonus(1)",
				Active:    false,
				Priority:  1,
			},
		},
		Settings: &SettingsJSON{SPIFRate: &spif, FiscalYearStartMonth: int(time.January), MinTierGap: &gap},
	}
	b, err := json.MarshalIndent(pj, "", "  ")
	if err != nil {
		panic(fmt.Sprintf("factory: encode sample plan: %v", err))
	}
	return string(b)
}

// SampleRepresentatives returns the demo representatives for SamplePlanJSON.
func SampleRepresentatives() []compensation.Context {
	dec := decimal.RequireFromString
	asOf := time.Date(2025, time.November, 14, 0, 0, 0, 0, time.UTC)
	team := dec("1.04")

	return []compensation.Context{
		{
			RepID: "rep-001", RepName: "Alex Morgan", Territory: "West Coast", TierName: "Tier 1",
			AnnualQuota: dec("1000000"), YTDRevenue: dec("1250000"),
			ProductMix: map[string]decimal.Decimal{"Enterprise": dec("800000"), "Mid-Market": dec("450000")},
			AsOf:       asOf, TeamQuotaAttainment: &team,
		},
		{
			RepID: "rep-002", RepName: "Jordan Lee", Territory: "East Coast", TierName: "Tier 2",
			AnnualQuota: dec("600000"), YTDRevenue: dec("540000"),
			ProductMix: map[string]decimal.Decimal{"Mid-Market": dec("340000"), "SMB": dec("200000")},
			AsOf:       asOf, TeamQuotaAttainment: &team,
		},
		{
			RepID: "rep-003", RepName: "Sam Patel", Territory: "West Coast", TierName: "Tier 3",
			AnnualQuota: dec("300000"), YTDRevenue: dec("180000"),
			ProductMix: map[string]decimal.Decimal{"SMB": dec("180000")},
			AsOf:       asOf, TeamQuotaAttainment: &team,
		},
		{
			RepID: "rep-004", RepName: "Riley Chen", Territory: "Central", TierName: "Tier 2",
			AnnualQuota: dec("500000"), YTDRevenue: dec("575000"),
			ProductMix: map[string]decimal.Decimal{"Enterprise": dec("575000")},
			AsOf:       asOf, TeamQuotaAttainment: &team,
		},
	}
}

// SampleScenarios returns the demo what-if scenarios.
func SampleScenarios() []compensation.Scenario {
	dec := func(s string) decimal.NullDecimal {
		return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
	}
	created := time.Date(2025, time.November, 1, 9, 0, 0, 0, time.UTC)

	return []compensation.Scenario{
		{ID: "current", Name: "Current Plan", Description: "Plan as configured", CreatedAt: created},
		{
			ID: "q4-push", Name: "Q4 Push", Description: "Higher SPIF and accelerator for the quarter close",
			SPIFPercent: dec("3"), AcceleratorRate: dec("1.5"), BonusMultiplier: dec("1.2"),
			CreatedAt: created.Add(time.Hour),
		},
		{
			ID: "senior-focus", Name: "Senior Focus", Description: "Accelerator for tier 2 only",
			AcceleratorRate: dec("1.3"), AffectedReps: []string{"rep-002", "rep-004"},
			CreatedAt: created.Add(2 * time.Hour),
		},
	}
}

func ptr[T any](v T) *T { return &v }
