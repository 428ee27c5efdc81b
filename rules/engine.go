/*
engine.go - Ordered rule evaluation

PROCESSING ORDER:
  Descending Priority, ties in insertion order (stable sort). Order only
  affects the Applied/Skipped listing: every effect is additive, so the
  accumulated numbers do not depend on it.

ACCUMULATION:
  multiply_commission(f)   AcceleratorDelta += f - 1
  add_bonus(a)             AdditiveBonus    += a
  add_percentage_bonus(p)  AdditiveBonus    += p * YTDRevenue

  Multipliers never chain: two matching 1.25 rules give a delta of 0.50,
  not 1.5625 - 1.

SEE ALSO:
  - compensation/calculator.go: Applies the Adjustment to base commission
*/
package rules

import (
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// AppliedRule records one matching rule and what it contributed.
type AppliedRule struct {
	ID     string          `json:"id"`
	Name   string          `json:"name"`
	Action ActionKind      `json:"action"`
	Effect decimal.Decimal `json:"effect"`
}

// SkippedRule records a rule that was never evaluated.
type SkippedRule struct {
	ID     string     `json:"id"`
	Name   string     `json:"name"`
	Reason SkipReason `json:"reason"`
}

// Adjustment is the cumulative effect of a rule set.
type Adjustment struct {
	AcceleratorDelta decimal.Decimal
	AdditiveBonus    decimal.Decimal
	AppliedCount     int
	Applied          []AppliedRule
	Skipped          []SkippedRule
}

// Engine evaluates compiled rules. The zero value is ready to use.
type Engine struct {
	Logger *zap.Logger
}

// NewEngine creates an engine that logs evaluation details at debug level.
func NewEngine(logger *zap.Logger) *Engine {
	return &Engine{Logger: logger}
}

// Evaluate runs the rules against facts. The input slice is not modified.
func (e *Engine) Evaluate(rs []CompiledRule, facts Facts) Adjustment {
	log := e.logger()

	ordered := Ordered(rs)

	adj := Adjustment{
		AcceleratorDelta: decimal.Zero,
		AdditiveBonus:    decimal.Zero,
	}
	for _, r := range ordered {
		if reason := r.eligibility(facts.AsOf); reason != "" {
			adj.Skipped = append(adj.Skipped, SkippedRule{ID: r.ID, Name: r.Name, Reason: reason})
			continue
		}
		if !r.When.Match(facts) {
			continue
		}

		effect := decimal.Zero
		switch r.Then.Kind {
		case ActionMultiplyCommission:
			effect = r.Then.Arg.Sub(decimal.NewFromInt(1))
			adj.AcceleratorDelta = adj.AcceleratorDelta.Add(effect)
		case ActionAddBonus:
			effect = r.Then.Arg
			adj.AdditiveBonus = adj.AdditiveBonus.Add(effect)
		case ActionAddPercentageBonus:
			effect = r.Then.Arg.Mul(facts.YTDRevenue)
			adj.AdditiveBonus = adj.AdditiveBonus.Add(effect)
		}

		adj.AppliedCount++
		adj.Applied = append(adj.Applied, AppliedRule{ID: r.ID, Name: r.Name, Action: r.Then.Kind, Effect: effect})
		log.Debug("rule applied",
			zap.String("rule_id", r.ID),
			zap.String("action", string(r.Then.Kind)),
			zap.String("effect", effect.String()),
		)
	}
	return adj
}

// Ordered returns a copy of rs sorted by descending priority (stable).
func Ordered(rs []CompiledRule) []CompiledRule {
	out := make([]CompiledRule, len(rs))
	copy(out, rs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})
	return out
}

func (e *Engine) logger() *zap.Logger {
	if e == nil || e.Logger == nil {
		return zap.NewNop()
	}
	return e.Logger
}
