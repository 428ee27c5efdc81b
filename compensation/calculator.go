/*
calculator.go - Per-representative payout calculation

ALGORITHM:
  1. Resolve the tier from the representative's tier label (fatal if none)
  2. Base commission: for each product in the mix, revenue × matrix rate
     (tier base rate when the pair is not configured). With an empty mix,
     YTD revenue × tier base rate.
  3. Rules: accelerators = base × Σ(factor - 1); rules bonus = Σ additive
  4. SPIF: tier SPIF-eligible AND attainment >= tier accelerator trigger
     → YTD revenue × plan SPIF rate (default 2%)
  5. Total = base + accelerators + rules bonus + SPIF;
     effective rate = total / YTD revenue (undefined at zero revenue)
  6. Return the breakdown

  Zero or negative revenue/quota is not an error: the output is degenerate
  (zero amounts, undefined ratios). Use Context.Validate to flag it.

EXAMPLE:
  YTD 1,250,000, quota 1,000,000, tier base 8%, trigger 90%, SPIF eligible
  → base 100,000; SPIF 25,000; total 125,000; effective rate 10%
*/
package compensation

import (
	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/rules"
	"go.uber.org/zap"
)

// Calculator computes payout breakdowns. It holds no per-calculation state
// and is safe for concurrent use.
type Calculator struct {
	Rules  *rules.Engine
	Logger *zap.Logger

	// Workers bounds CalculateAll parallelism. Zero means DefaultWorkers.
	Workers int
}

// NewCalculator creates a calculator. A nil logger disables logging.
func NewCalculator(logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{
		Rules:  rules.NewEngine(logger.Named("rules")),
		Logger: logger,
	}
}

// Calculate computes the payout breakdown for one representative.
// cfg is read only. The only error is a *ConfigurationError wrapping
// ErrNoApplicableTier.
func (c *Calculator) Calculate(rep Context, cfg Configuration) (PayoutBreakdown, error) {
	log := c.logger().With(zap.String("rep_id", rep.RepID))

	// Step 1: tier
	tier, err := ResolveTier(rep.TierName, cfg.tiers)
	if err != nil {
		if ce, ok := err.(*ConfigurationError); ok {
			ce.RepID = rep.RepID
		}
		log.Debug("no applicable tier", zap.String("tier_label", rep.TierName))
		return PayoutBreakdown{}, err
	}

	// Step 2: base commission
	base, lines := baseCommission(rep, tier, cfg.matrix)

	// Step 3: rules
	attainment := rep.QuotaAttainment()
	quarter := c.quarter(rep, cfg)
	adj := c.engine().Evaluate(cfg.rules, c.facts(rep, tier, attainment, quarter))
	accelerators := base.Mul(adj.AcceleratorDelta)

	// Step 4: SPIF
	spif := decimal.Zero
	if spifQualifies(tier, attainment) {
		spif = rep.YTDRevenue.Mul(cfg.settings.SPIFRate)
	}

	// Step 5: totals
	b := PayoutBreakdown{
		RepID:                  rep.RepID,
		YTDRevenue:             rep.YTDRevenue,
		BaseCommission:         base,
		Accelerators:           accelerators,
		RulesBonus:             adj.AdditiveBonus,
		SPIFBonus:              spif,
		QuotaAttainment:        attainment,
		QuotaAttainmentPercent: FormatPercent(attainment),
		AppliedTierName:        tier.Name,
		AppliedBaseRate:        tier.BaseCommissionRate,
		SPIFEligible:           tier.SPIFEligible,
		RulesAppliedCount:      adj.AppliedCount,
		RulesApplied:           adj.Applied,
		RulesSkipped:           adj.Skipped,
		Products:               lines,
		Quarter:                quarter,
	}
	b.total()

	log.Debug("calculated payout",
		zap.String("tier", tier.Name),
		zap.String("total", b.TotalCommission.String()),
		zap.Int("rules_applied", adj.AppliedCount),
	)
	return b, nil
}

// total recomputes TotalCommission and EffectiveRate from the components.
func (b *PayoutBreakdown) total() {
	b.TotalCommission = b.BaseCommission.Add(b.Accelerators).Add(b.RulesBonus).Add(b.SPIFBonus)
	b.EffectiveRate = ratioOf(b.TotalCommission, b.YTDRevenue)
}

func baseCommission(rep Context, tier Tier, matrix RateMatrix) (decimal.Decimal, []ProductCommission) {
	if len(rep.ProductMix) == 0 {
		return rep.YTDRevenue.Mul(tier.BaseCommissionRate), nil
	}

	base := decimal.Zero
	lines := make([]ProductCommission, 0, len(rep.ProductMix))
	for _, product := range rep.Products() {
		revenue := rep.ProductMix[product]
		rate, fallback := matrix.ResolveRate(rep.Territory, product, tier.BaseCommissionRate)
		commission := revenue.Mul(rate)
		base = base.Add(commission)
		lines = append(lines, ProductCommission{
			Product:    product,
			Revenue:    revenue,
			Rate:       rate,
			Commission: commission,
			Fallback:   fallback,
		})
	}
	return base, lines
}

func spifQualifies(tier Tier, attainment decimal.NullDecimal) bool {
	return tier.SPIFEligible && attainment.Valid && attainment.Decimal.GreaterThanOrEqual(tier.AcceleratorTrigger)
}

func (c *Calculator) facts(rep Context, tier Tier, attainment decimal.NullDecimal, quarter string) rules.Facts {
	f := rules.Facts{
		QuotaAttainment: attainment,
		Quarter:         quarter,
		Territory:       rep.Territory,
		SalesTier:       []string{rep.TierName, tier.Name},
		YTDRevenue:      rep.YTDRevenue,
		AsOf:            rep.AsOf,
	}
	if rep.TeamQuotaAttainment != nil {
		f.TeamQuotaAttainment = decimal.NullDecimal{Decimal: *rep.TeamQuotaAttainment, Valid: true}
	}
	for _, product := range rep.Products() {
		if rep.ProductMix[product].IsPositive() {
			f.ProductCategories = append(f.ProductCategories, product)
		}
	}
	return f
}

// quarter is the context quarter, or the fiscal quarter of AsOf when unset.
func (c *Calculator) quarter(rep Context, cfg Configuration) string {
	if q := normalizeQuarter(rep.Quarter); q != "" {
		return q
	}
	if !rep.AsOf.IsZero() {
		return cfg.Calendar().Quarter(rep.AsOf)
	}
	return ""
}

func (c *Calculator) engine() *rules.Engine {
	if c.Rules == nil {
		return rules.NewEngine(c.logger())
	}
	return c.Rules
}

func (c *Calculator) logger() *zap.Logger {
	if c.Logger == nil {
		return zap.NewNop()
	}
	return c.Logger
}

// ratioOf returns num / den, invalid when den is zero.
func ratioOf(num, den decimal.Decimal) decimal.NullDecimal {
	if den.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: num.Div(den), Valid: true}
}
