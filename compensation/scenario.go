/*
scenario.go - What-if simulation with bonus modifiers

A Scenario is a named set of modifiers applied on top of a plan for a set
of representatives (all of them when AffectedReps is empty):

  SPIFPercent      replaces the plan SPIF rate (3 means 3%)
  AcceleratorRate  for reps at or above their tier's accelerator trigger,
                   adds base × (rate - 1) to accelerators
  BonusMultiplier  scales rules bonus and SPIF bonus

Unset modifiers leave the plan as is. Simulate never edits the plan; it
calculates against a derived Configuration and returns a Snapshot ready
for Compare.
*/
package compensation

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Scenario is a saved combination of bonus modifiers.
type Scenario struct {
	ID              string              `json:"id"`
	Name            string              `json:"name"`
	Description     string              `json:"description,omitempty"`
	SPIFPercent     decimal.NullDecimal `json:"spif_percent"`
	AcceleratorRate decimal.NullDecimal `json:"accelerator_rate"`
	BonusMultiplier decimal.NullDecimal `json:"bonus_multiplier"`
	AffectedReps    []string            `json:"affected_reps,omitempty"`
	CreatedAt       time.Time           `json:"created_at"`
}

// Affects reports whether the scenario modifies the representative.
func (s Scenario) Affects(repID string) bool {
	if len(s.AffectedReps) == 0 {
		return true
	}
	for _, id := range s.AffectedReps {
		if id == repID {
			return true
		}
	}
	return false
}

// Validate checks modifier ranges.
func (s Scenario) Validate() error {
	if s.SPIFPercent.Valid && (s.SPIFPercent.Decimal.IsNegative() || s.SPIFPercent.Decimal.GreaterThan(hundred)) {
		return fmt.Errorf("%w: spif_percent %s must be within [0, 100]", ErrRateOutOfRange, s.SPIFPercent.Decimal)
	}
	if s.AcceleratorRate.Valid && !s.AcceleratorRate.Decimal.IsPositive() {
		return fmt.Errorf("%w: accelerator_rate %s must be positive", ErrRateOutOfRange, s.AcceleratorRate.Decimal)
	}
	if s.BonusMultiplier.Valid && s.BonusMultiplier.Decimal.IsNegative() {
		return fmt.Errorf("%w: bonus_multiplier %s must not be negative", ErrRateOutOfRange, s.BonusMultiplier.Decimal)
	}
	return nil
}

// ScenarioResult is a simulated scenario.
type ScenarioResult struct {
	Scenario Scenario
	Snapshot Snapshot
	Rows     []BatchResult
}

// Simulate runs the scenario over reps. Representatives without an
// applicable tier appear in Rows with an error and are left out of the
// snapshot total.
func (c *Calculator) Simulate(ctx context.Context, cfg Configuration, reps []Context, sc Scenario) (ScenarioResult, error) {
	if err := sc.Validate(); err != nil {
		return ScenarioResult{}, err
	}

	scenarioCfg := cfg
	if sc.SPIFPercent.Valid {
		settings := cfg.Settings()
		settings.SPIFRate = sc.SPIFPercent.Decimal.Div(hundred)
		var err error
		if scenarioCfg, err = cfg.WithSettings(settings); err != nil {
			return ScenarioResult{}, err
		}
	}

	var affected, untouched []Context
	var affectedIdx, untouchedIdx []int
	for i, rep := range reps {
		if sc.Affects(rep.RepID) {
			affected = append(affected, rep)
			affectedIdx = append(affectedIdx, i)
		} else {
			untouched = append(untouched, rep)
			untouchedIdx = append(untouchedIdx, i)
		}
	}

	rows := make([]BatchResult, len(reps))

	modified, err := c.CalculateAll(ctx, scenarioCfg, affected)
	if err != nil {
		return ScenarioResult{}, err
	}
	for j, r := range modified {
		if r.Err == nil {
			r.Breakdown = applyModifiers(r.Breakdown, affected[j], cfg, sc)
		}
		rows[affectedIdx[j]] = r
	}

	plain, err := c.CalculateAll(ctx, cfg, untouched)
	if err != nil {
		return ScenarioResult{}, err
	}
	for j, r := range plain {
		rows[untouchedIdx[j]] = r
	}

	var ok []PayoutBreakdown
	for _, r := range rows {
		if r.Err == nil {
			ok = append(ok, r.Breakdown)
		}
	}

	snap := SnapshotFromBreakdowns(sc.ID, sc.Name, ok)
	snap.Modifiers = append(snap.Modifiers,
		Modifier{Name: ModSPIFPercent, Value: scenarioCfg.settings.SPIFRate.Mul(hundred)},
		Modifier{Name: ModAcceleratorRate, Value: orOne(sc.AcceleratorRate)},
		Modifier{Name: ModBonusMultiplier, Value: orOne(sc.BonusMultiplier)},
		Modifier{Name: ModAffectedReps, Value: decimal.NewFromInt(int64(len(affected)))},
	)

	c.logger().Debug("simulated scenario",
		zap.String("scenario_id", sc.ID),
		zap.Int("affected", len(affected)),
		zap.String("total", snap.Total.String()),
	)
	return ScenarioResult{Scenario: sc, Snapshot: snap, Rows: rows}, nil
}

func applyModifiers(b PayoutBreakdown, rep Context, cfg Configuration, sc Scenario) PayoutBreakdown {
	if sc.AcceleratorRate.Valid {
		tier, err := ResolveTier(rep.TierName, cfg.tiers)
		if err == nil && b.QuotaAttainment.Valid && b.QuotaAttainment.Decimal.GreaterThanOrEqual(tier.AcceleratorTrigger) {
			extra := b.BaseCommission.Mul(sc.AcceleratorRate.Decimal.Sub(one))
			b.Accelerators = b.Accelerators.Add(extra)
		}
	}
	if sc.BonusMultiplier.Valid {
		b.RulesBonus = b.RulesBonus.Mul(sc.BonusMultiplier.Decimal)
		b.SPIFBonus = b.SPIFBonus.Mul(sc.BonusMultiplier.Decimal)
	}
	b.total()
	return b
}

func orOne(d decimal.NullDecimal) decimal.Decimal {
	if d.Valid {
		return d.Decimal
	}
	return one
}
