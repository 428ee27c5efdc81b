package compensation

import "fmt"

// =============================================================================
// DATA QUALITY WARNINGS
// =============================================================================

// Validate reports non-fatal issues in a configuration: overlapping tier
// thresholds, rates outside [0, 1] and ambiguous tier names. Configurations
// loaded from storage can carry values the edit methods would have rejected;
// they still calculate.
func (c Configuration) Validate() []Warning {
	var warnings []Warning

	if len(c.tiers) == 0 {
		warnings = append(warnings, Warning{Code: WarnNoTiers, Message: "configuration has no tiers; every calculation will fail"})
	}

	minGap := c.validation.MinTierGap
	seenNames := make(map[string]string, len(c.tiers))
	for i, t := range c.tiers {
		if err := checkRate("base_commission_rate", t.BaseCommissionRate); err != nil {
			warnings = append(warnings, Warning{Code: WarnRateOutOfRange, Subject: t.ID, Message: err.Error()})
		}
		if err := checkRate("accelerator_trigger", t.AcceleratorTrigger); err != nil {
			warnings = append(warnings, Warning{Code: WarnRateOutOfRange, Subject: t.ID, Message: err.Error()})
		}
		if prev, ok := seenNames[t.Name]; ok {
			warnings = append(warnings, Warning{
				Code:    WarnDuplicateTierName,
				Subject: t.ID,
				Message: fmt.Sprintf("name %q is also used by tier %s; the first one always wins", t.Name, prev),
			})
		} else {
			seenNames[t.Name] = t.ID
		}
		if !minGap.IsPositive() {
			continue
		}
		for _, other := range c.tiers[i+1:] {
			gap := t.QuotaThreshold.Sub(other.QuotaThreshold).Abs()
			if gap.LessThan(minGap) {
				err := &TierOverlapError{TierID: t.ID, ConflictID: other.ID, Gap: gap, MinGap: minGap}
				warnings = append(warnings, Warning{Code: WarnTierOverlap, Subject: t.ID, Message: err.Error()})
			}
		}
	}

	for _, e := range c.matrix.Entries() {
		if err := checkRate(e.Territory+"/"+e.Product, e.Rate); err != nil {
			warnings = append(warnings, Warning{Code: WarnRateOutOfRange, Subject: e.Territory + "/" + e.Product, Message: err.Error()})
		}
	}
	if err := checkRate("spif_rate", c.settings.SPIFRate); err != nil {
		warnings = append(warnings, Warning{Code: WarnRateOutOfRange, Subject: "settings", Message: err.Error()})
	}
	return warnings
}

// Validate reports non-positive revenue or quota and negative product lines.
// A context with warnings still calculates, with degenerate output.
func (c Context) Validate() []Warning {
	var warnings []Warning
	if !c.YTDRevenue.IsPositive() {
		warnings = append(warnings, Warning{
			Code:    WarnNonPositiveRevenue,
			Subject: c.RepID,
			Message: fmt.Sprintf("ytd revenue %s is not positive; effective rate is undefined or degenerate", c.YTDRevenue),
		})
	}
	if !c.AnnualQuota.IsPositive() {
		warnings = append(warnings, Warning{
			Code:    WarnNonPositiveQuota,
			Subject: c.RepID,
			Message: fmt.Sprintf("annual quota %s is not positive; quota attainment is undefined", c.AnnualQuota),
		})
	}
	for _, p := range c.Products() {
		if c.ProductMix[p].IsNegative() {
			warnings = append(warnings, Warning{
				Code:    WarnNegativeRevenue,
				Subject: c.RepID,
				Message: fmt.Sprintf("product %q has negative revenue %s", p, c.ProductMix[p]),
			})
		}
	}
	return warnings
}
