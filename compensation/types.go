/*
Package compensation provides the commission calculation engine.

PURPOSE:
  Given a representative's sales snapshot and a plan configuration (tiers,
  a territory/product rate matrix and conditional bonus rules), compute a
  deterministic payout breakdown; compare breakdowns or saved scenarios
  against a baseline.

KEY CONCEPTS IN THIS FILE (types.go):
  - Tier:            A commission bracket (base rate, accelerator trigger, SPIF)
  - Context:         The representative snapshot the calculation runs on
  - PayoutBreakdown: The immutable result of one calculation

DESIGN PRINCIPLES:
  1. Pure: every operation is a function of its inputs, no hidden state
  2. Precision: money and ratios use decimal.Decimal
  3. Ratios internally: 0.08 is 8%; percentages exist only at the edges
  4. Immutable configuration: edits return a new Configuration

USAGE:
  calc := compensation.NewCalculator(nil)
  breakdown, err := calc.Calculate(ctx, cfg)
  if errors.Is(err, compensation.ErrNoApplicableTier) {
      // surface to the editor
  }

SEE ALSO:
  - calculator.go: The payout algorithm
  - config.go:     Configuration and copy-on-write edits
  - variance.go:   Scenario comparison
  - rules/:        Condition/action language
*/
package compensation

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/rules"
)

// =============================================================================
// TIER
// =============================================================================

// Tier is a named commission bracket.
type Tier struct {
	ID                 string          `json:"id"`
	Name               string          `json:"name"`
	QuotaThreshold     decimal.Decimal `json:"quota_threshold"`
	BaseCommissionRate decimal.Decimal `json:"base_commission_rate"`
	AcceleratorTrigger decimal.Decimal `json:"accelerator_trigger"`
	SPIFEligible       bool            `json:"spif_eligible"`
	Order              int             `json:"order"`
}

// =============================================================================
// CONTEXT - Representative snapshot
// =============================================================================

// Context is the input to one calculation.
type Context struct {
	RepID       string                     `json:"rep_id"`
	RepName     string                     `json:"rep_name,omitempty"`
	Territory   string                     `json:"territory"`
	TierName    string                     `json:"tier_name"`
	AnnualQuota decimal.Decimal            `json:"annual_quota"`
	YTDRevenue  decimal.Decimal            `json:"ytd_revenue"`
	ProductMix  map[string]decimal.Decimal `json:"product_mix,omitempty"`

	// Quarter is "Q1".."Q4". Empty means derive from AsOf.
	Quarter string `json:"quarter,omitempty"`

	// AsOf is the evaluation date for rule effective windows. A zero
	// AsOf is left out of the JSON form.
	AsOf time.Time `json:"as_of"`

	// TeamQuotaAttainment is optional; rules on it never match when nil.
	TeamQuotaAttainment *decimal.Decimal `json:"team_quota_attainment,omitempty"`
}

// MarshalJSON writes as_of only when it is set.
func (c Context) MarshalJSON() ([]byte, error) {
	type plain Context
	out := struct {
		plain
		AsOf *time.Time `json:"as_of,omitempty"`
	}{plain: plain(c)}
	if !c.AsOf.IsZero() {
		out.AsOf = &c.AsOf
	}
	return json.Marshal(out)
}

// QuotaAttainment is YTDRevenue / AnnualQuota, invalid when the quota is not positive.
func (c Context) QuotaAttainment() decimal.NullDecimal {
	if !c.AnnualQuota.IsPositive() {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: c.YTDRevenue.Div(c.AnnualQuota), Valid: true}
}

// Products returns the product names in the mix, sorted.
// Sorting keeps accumulation order (and thus output) deterministic.
func (c Context) Products() []string {
	return sortedKeys(c.ProductMix)
}

// =============================================================================
// PAYOUT BREAKDOWN - Calculator output
// =============================================================================

// ProductCommission is the per-product line of a breakdown.
type ProductCommission struct {
	Product    string          `json:"product"`
	Revenue    decimal.Decimal `json:"revenue"`
	Rate       decimal.Decimal `json:"rate"`
	Commission decimal.Decimal `json:"commission"`
	// Fallback is true when the tier base rate was used (no matrix entry).
	Fallback bool `json:"fallback"`
}

// PayoutBreakdown is the full result of one calculation. It is a plain value:
// no references back into the configuration.
type PayoutBreakdown struct {
	RepID          string          `json:"rep_id"`
	YTDRevenue     decimal.Decimal `json:"ytd_revenue"`
	BaseCommission decimal.Decimal `json:"base_commission"`
	Accelerators   decimal.Decimal `json:"accelerators"`
	RulesBonus     decimal.Decimal `json:"rules_bonus"`
	SPIFBonus      decimal.Decimal `json:"spif_bonus"`

	TotalCommission decimal.Decimal `json:"total_commission"`

	// EffectiveRate is TotalCommission / YTDRevenue; invalid when revenue is zero.
	EffectiveRate decimal.NullDecimal `json:"effective_rate"`

	QuotaAttainment        decimal.NullDecimal `json:"quota_attainment"`
	QuotaAttainmentPercent string              `json:"quota_attainment_percent"`

	AppliedTierName string          `json:"applied_tier_name"`
	AppliedBaseRate decimal.Decimal `json:"applied_base_rate"`
	SPIFEligible    bool            `json:"spif_eligible"`

	RulesAppliedCount int                 `json:"rules_applied_count"`
	RulesApplied      []rules.AppliedRule `json:"rules_applied,omitempty"`
	RulesSkipped      []rules.SkippedRule `json:"rules_skipped,omitempty"`

	Products []ProductCommission `json:"products,omitempty"`
	Quarter  string              `json:"quarter,omitempty"`
}

// FormatPercent renders a ratio as a percentage with one decimal ("125.0%").
// Invalid ratios render as "n/a".
func FormatPercent(r decimal.NullDecimal) string {
	if !r.Valid {
		return "n/a"
	}
	return r.Decimal.Mul(hundred).StringFixed(1) + "%"
}

var hundred = decimal.NewFromInt(100)

func normalizeQuarter(q string) string {
	q = strings.ToUpper(strings.TrimSpace(q))
	if len(q) == 1 && q[0] >= '1' && q[0] <= '4' {
		return "Q" + q
	}
	return q
}

func (t Tier) String() string {
	return fmt.Sprintf("%s (base %s, trigger %s)", t.Name, t.BaseCommissionRate, t.AcceleratorTrigger)
}
