/*
variance.go - Scenario comparison against a baseline

SNAPSHOTS:
  A Snapshot is anything with a payout total and named modifiers: a single
  PayoutBreakdown, an aggregate over many representatives, or a saved
  scenario (SPIF %, accelerator rate, bonus multiplier, affected reps).

DELTAS:
  payout delta         = candidate.Total - baseline.Total
  payout delta percent = delta / baseline.Total × 100   (undefined at 0)
  modifier deltas      = matched by modifier name; a modifier present on
                         only one side has an undefined delta

  compare(A, [B]).PayoutDelta == -compare(B, [A]).PayoutDelta holds exactly
  because amounts are decimals.

ORDER:
  Variances follow candidate input order. CompareAll treats the first
  snapshot as the baseline.
*/
package compensation

import (
	"github.com/shopspring/decimal"
)

// Modifier names used by breakdown and scenario snapshots.
const (
	ModBaseCommission  = "base_commission"
	ModAccelerators    = "accelerators"
	ModRulesBonus      = "rules_bonus"
	ModSPIFBonus       = "spif_bonus"
	ModRulesApplied    = "rules_applied"
	ModSPIFPercent     = "spif_percent"
	ModAcceleratorRate = "accelerator_rate"
	ModBonusMultiplier = "bonus_multiplier"
	ModAffectedReps    = "affected_reps"
)

// Modifier is one named, comparable dimension of a snapshot.
type Modifier struct {
	Name  string          `json:"name"`
	Value decimal.Decimal `json:"value"`
}

// Snapshot is a comparable payout result.
type Snapshot struct {
	ID            string              `json:"id"`
	Name          string              `json:"name"`
	Total         decimal.Decimal     `json:"total"`
	EffectiveRate decimal.NullDecimal `json:"effective_rate"`
	Modifiers     []Modifier          `json:"modifiers,omitempty"`
}

// Modifier returns the named modifier value.
func (s Snapshot) Modifier(name string) (decimal.Decimal, bool) {
	for _, m := range s.Modifiers {
		if m.Name == name {
			return m.Value, true
		}
	}
	return decimal.Zero, false
}

// ModifierDelta compares one modifier across baseline and candidate.
type ModifierDelta struct {
	Name         string              `json:"name"`
	Baseline     decimal.NullDecimal `json:"baseline"`
	Candidate    decimal.NullDecimal `json:"candidate"`
	Delta        decimal.NullDecimal `json:"delta"`
	DeltaPercent decimal.NullDecimal `json:"delta_percent"`
}

// Variance is the difference of one candidate from the baseline.
type Variance struct {
	CandidateID        string              `json:"candidate_id"`
	CandidateName      string              `json:"candidate_name"`
	PayoutDelta        decimal.Decimal     `json:"payout_delta"`
	PayoutDeltaPercent decimal.NullDecimal `json:"payout_delta_percent"`
	RateDelta          decimal.NullDecimal `json:"rate_delta"`
	ModifierDeltas     []ModifierDelta     `json:"modifier_deltas,omitempty"`
}

// Comparison is computed on demand and never stored by the engine.
type Comparison struct {
	Baseline   Snapshot   `json:"baseline"`
	Candidates []Snapshot `json:"candidates"`
	Variances  []Variance `json:"variances"`
}

// =============================================================================
// COMPARE
// =============================================================================

// Compare computes each candidate's variance from baseline.
func Compare(baseline Snapshot, candidates ...Snapshot) Comparison {
	out := Comparison{
		Baseline:   baseline,
		Candidates: append([]Snapshot{}, candidates...),
		Variances:  make([]Variance, 0, len(candidates)),
	}
	for _, cand := range candidates {
		out.Variances = append(out.Variances, variance(baseline, cand))
	}
	return out
}

// CompareAll uses the first snapshot as the baseline.
func CompareAll(snapshots []Snapshot) (Comparison, error) {
	if len(snapshots) == 0 {
		return Comparison{}, ErrNoSnapshots
	}
	return Compare(snapshots[0], snapshots[1:]...), nil
}

func variance(baseline, cand Snapshot) Variance {
	delta := cand.Total.Sub(baseline.Total)
	v := Variance{
		CandidateID:        cand.ID,
		CandidateName:      cand.Name,
		PayoutDelta:        delta,
		PayoutDeltaPercent: percentOf(delta, baseline.Total),
	}
	if baseline.EffectiveRate.Valid && cand.EffectiveRate.Valid {
		v.RateDelta = decimal.NullDecimal{Decimal: cand.EffectiveRate.Decimal.Sub(baseline.EffectiveRate.Decimal), Valid: true}
	}
	for _, name := range modifierNames(baseline, cand) {
		v.ModifierDeltas = append(v.ModifierDeltas, modifierDelta(name, baseline, cand))
	}
	return v
}

func modifierDelta(name string, baseline, cand Snapshot) ModifierDelta {
	md := ModifierDelta{Name: name}
	if b, ok := baseline.Modifier(name); ok {
		md.Baseline = decimal.NullDecimal{Decimal: b, Valid: true}
	}
	if c, ok := cand.Modifier(name); ok {
		md.Candidate = decimal.NullDecimal{Decimal: c, Valid: true}
	}
	if md.Baseline.Valid && md.Candidate.Valid {
		d := md.Candidate.Decimal.Sub(md.Baseline.Decimal)
		md.Delta = decimal.NullDecimal{Decimal: d, Valid: true}
		md.DeltaPercent = percentOf(d, md.Baseline.Decimal)
	}
	return md
}

// modifierNames lists baseline modifiers first, then candidate-only ones.
func modifierNames(baseline, cand Snapshot) []string {
	seen := make(map[string]bool, len(baseline.Modifiers)+len(cand.Modifiers))
	var names []string
	for _, ms := range [][]Modifier{baseline.Modifiers, cand.Modifiers} {
		for _, m := range ms {
			if !seen[m.Name] {
				seen[m.Name] = true
				names = append(names, m.Name)
			}
		}
	}
	return names
}

// percentOf returns part / whole × 100, invalid when whole is zero.
func percentOf(part, whole decimal.Decimal) decimal.NullDecimal {
	if whole.IsZero() {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: part.Div(whole).Mul(hundred), Valid: true}
}

// =============================================================================
// SNAPSHOT BUILDERS
// =============================================================================

// SnapshotFromBreakdown turns one breakdown into a comparable snapshot whose
// modifiers are the payout components.
func SnapshotFromBreakdown(id, name string, b PayoutBreakdown) Snapshot {
	return SnapshotFromBreakdowns(id, name, []PayoutBreakdown{b})
}

// SnapshotFromBreakdowns aggregates many breakdowns (a whole team) into one
// snapshot. The effective rate is total commission over total revenue.
func SnapshotFromBreakdowns(id, name string, bs []PayoutBreakdown) Snapshot {
	var base, accel, bonus, spif, revenue, total decimal.Decimal
	applied := 0
	for _, b := range bs {
		base = base.Add(b.BaseCommission)
		accel = accel.Add(b.Accelerators)
		bonus = bonus.Add(b.RulesBonus)
		spif = spif.Add(b.SPIFBonus)
		revenue = revenue.Add(b.YTDRevenue)
		total = total.Add(b.TotalCommission)
		applied += b.RulesAppliedCount
	}
	return Snapshot{
		ID:            id,
		Name:          name,
		Total:         total,
		EffectiveRate: ratioOf(total, revenue),
		Modifiers: []Modifier{
			{Name: ModBaseCommission, Value: base},
			{Name: ModAccelerators, Value: accel},
			{Name: ModRulesBonus, Value: bonus},
			{Name: ModSPIFBonus, Value: spif},
			{Name: ModRulesApplied, Value: decimal.NewFromInt(int64(applied))},
		},
	}
}
