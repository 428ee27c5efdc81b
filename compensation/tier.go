/*
tier.go - Tier resolution and tier list editing

RESOLUTION:
  A tier applies when the representative's tier label is a substring of the
  tier's name, so "Tier 1" matches "Tier 1 - Executive". The first match in
  configuration order wins. No match is a ConfigurationError.

  Matching is case-sensitive, as tier labels come from the same
  configuration the names do. An empty label matches nothing.

EDITING:
  Tier lists are never mutated in place. Every edit returns a new slice,
  renumbered so Order runs 1..n in slice order. Thresholds must stay at
  least MinTierGap apart (non-overlap guard).
*/
package compensation

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultMinTierGap is the default non-overlap guard between tier thresholds.
var DefaultMinTierGap = decimal.NewFromInt(1000)

// ResolveTier finds the tier whose name contains label.
func ResolveTier(label string, tiers []Tier) (Tier, error) {
	label = strings.TrimSpace(label)
	if label != "" {
		for _, t := range tiers {
			if strings.Contains(t.Name, label) {
				return t, nil
			}
		}
	}
	return Tier{}, &ConfigurationError{Code: CodeNoApplicableTier, Label: label}
}

// =============================================================================
// TIER LIST EDITS
// =============================================================================

func addTier(tiers []Tier, t Tier, minGap decimal.Decimal) ([]Tier, error) {
	if err := validateTier(t); err != nil {
		return nil, err
	}
	for _, existing := range tiers {
		if existing.ID == t.ID {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateTier, t.ID)
		}
	}
	if err := checkOverlap(tiers, t, minGap); err != nil {
		return nil, err
	}
	out := append(cloneTiers(tiers), t)
	return renumber(out), nil
}

func updateTier(tiers []Tier, t Tier, minGap decimal.Decimal) ([]Tier, error) {
	idx := indexOfTier(tiers, t.ID)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrTierNotFound, t.ID)
	}
	if err := validateTier(t); err != nil {
		return nil, err
	}
	if err := checkOverlap(tiers, t, minGap); err != nil {
		return nil, err
	}
	out := cloneTiers(tiers)
	out[idx] = t
	return renumber(out), nil
}

func removeTier(tiers []Tier, id string) ([]Tier, error) {
	idx := indexOfTier(tiers, id)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrTierNotFound, id)
	}
	out := make([]Tier, 0, len(tiers)-1)
	out = append(out, tiers[:idx]...)
	out = append(out, tiers[idx+1:]...)
	return renumber(out), nil
}

// moveTier places tier id at position to (0-based), clamped to the list bounds.
func moveTier(tiers []Tier, id string, to int) ([]Tier, error) {
	from := indexOfTier(tiers, id)
	if from < 0 {
		return nil, fmt.Errorf("%w: %s", ErrTierNotFound, id)
	}
	if to < 0 {
		to = 0
	}
	if to > len(tiers)-1 {
		to = len(tiers) - 1
	}

	moved := tiers[from]
	rest := make([]Tier, 0, len(tiers)-1)
	rest = append(rest, tiers[:from]...)
	rest = append(rest, tiers[from+1:]...)

	out := make([]Tier, 0, len(tiers))
	out = append(out, rest[:to]...)
	out = append(out, moved)
	out = append(out, rest[to:]...)
	return renumber(out), nil
}

// checkOverlap rejects t when its threshold is within minGap of another tier.
// The tier being replaced (same ID) is ignored.
func checkOverlap(tiers []Tier, t Tier, minGap decimal.Decimal) error {
	if !minGap.IsPositive() {
		return nil
	}
	for _, other := range tiers {
		if other.ID == t.ID {
			continue
		}
		gap := t.QuotaThreshold.Sub(other.QuotaThreshold).Abs()
		if gap.LessThan(minGap) {
			return &TierOverlapError{TierID: t.ID, ConflictID: other.ID, Gap: gap, MinGap: minGap}
		}
	}
	return nil
}

func validateTier(t Tier) error {
	if err := checkRate("base_commission_rate", t.BaseCommissionRate); err != nil {
		return err
	}
	return checkRate("accelerator_trigger", t.AcceleratorTrigger)
}

func checkRate(field string, r decimal.Decimal) error {
	if r.IsNegative() || r.GreaterThan(one) {
		return &RateError{Field: field, Rate: r}
	}
	return nil
}

func renumber(tiers []Tier) []Tier {
	for i := range tiers {
		tiers[i].Order = i + 1
	}
	return tiers
}

func indexOfTier(tiers []Tier, id string) int {
	for i, t := range tiers {
		if t.ID == id {
			return i
		}
	}
	return -1
}

func cloneTiers(tiers []Tier) []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

var one = decimal.NewFromInt(1)
