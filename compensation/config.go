/*
config.go - Immutable plan configuration

A Configuration bundles everything a calculation reads: tiers, the rate
matrix, compiled rules and plan settings. It has no exported fields and
every edit method returns a new value, so one Configuration can be handed
to many concurrent calculations and to an editor at the same time.

  cfg := compensation.NewConfiguration(tiers, matrix, compiled)
  next, err := cfg.AddTier(tier)     // cfg is unchanged
  next, err = next.SetRate("West Coast", "Enterprise", rate)

Rules only enter a Configuration compiled (see rules.Compile), so a
Configuration never holds a rule with malformed syntax.
*/
package compensation

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/rules"
)

// DefaultSPIFRate is the share of YTD revenue paid as SPIF bonus.
var DefaultSPIFRate = decimal.RequireFromString("0.02")

// Settings are plan-wide calculation parameters.
type Settings struct {
	SPIFRate             decimal.Decimal `json:"spif_rate"`
	FiscalYearStartMonth time.Month      `json:"fiscal_year_start_month"`
}

// ValidationPolicy holds the configurable authoring guards.
type ValidationPolicy struct {
	// MinTierGap is the smallest allowed distance between tier thresholds.
	// Zero disables the guard.
	MinTierGap decimal.Decimal `json:"min_tier_gap"`
}

// DefaultSettings returns a 2% SPIF on a calendar fiscal year.
func DefaultSettings() Settings {
	return Settings{SPIFRate: DefaultSPIFRate, FiscalYearStartMonth: time.January}
}

// DefaultValidation returns the 1000-unit tier gap guard.
func DefaultValidation() ValidationPolicy {
	return ValidationPolicy{MinTierGap: DefaultMinTierGap}
}

// Configuration is an immutable commission plan.
type Configuration struct {
	tiers      []Tier
	matrix     RateMatrix
	rules      []rules.CompiledRule
	settings   Settings
	validation ValidationPolicy
}

// NewConfiguration copies its inputs into a new Configuration with default
// settings. Tier Order is renumbered from slice order.
func NewConfiguration(tiers []Tier, matrix RateMatrix, rs []rules.CompiledRule) Configuration {
	return Configuration{
		tiers:      renumber(cloneTiers(tiers)),
		matrix:     matrix.clone(),
		rules:      cloneRules(rs),
		settings:   DefaultSettings(),
		validation: DefaultValidation(),
	}
}

// =============================================================================
// ACCESSORS - Return copies
// =============================================================================

func (c Configuration) Tiers() []Tier                { return cloneTiers(c.tiers) }
func (c Configuration) RateMatrix() RateMatrix       { return c.matrix }
func (c Configuration) Rules() []rules.CompiledRule  { return cloneRules(c.rules) }
func (c Configuration) Settings() Settings           { return c.settings }
func (c Configuration) Validation() ValidationPolicy { return c.validation }

// Calendar returns the fiscal calendar implied by the settings.
func (c Configuration) Calendar() FiscalCalendar {
	return FiscalCalendar{StartMonth: c.settings.FiscalYearStartMonth}
}

// =============================================================================
// SETTINGS EDITS
// =============================================================================

// WithSettings replaces the plan settings. The SPIF rate must be in [0, 1].
func (c Configuration) WithSettings(s Settings) (Configuration, error) {
	if err := checkRate("spif_rate", s.SPIFRate); err != nil {
		return Configuration{}, err
	}
	if s.FiscalYearStartMonth == 0 {
		s.FiscalYearStartMonth = time.January
	}
	if s.FiscalYearStartMonth < time.January || s.FiscalYearStartMonth > time.December {
		return Configuration{}, fmt.Errorf("fiscal_year_start_month: %d is not a month", s.FiscalYearStartMonth)
	}
	out := c.clone()
	out.settings = s
	return out, nil
}

// WithValidation replaces the authoring guards.
func (c Configuration) WithValidation(v ValidationPolicy) Configuration {
	out := c.clone()
	out.validation = v
	return out
}

// WithRateMatrix replaces the rate matrix.
func (c Configuration) WithRateMatrix(m RateMatrix) Configuration {
	out := c.clone()
	out.matrix = m.clone()
	return out
}

// =============================================================================
// TIER EDITS
// =============================================================================

// AddTier appends a tier, enforcing rate ranges and the threshold gap.
func (c Configuration) AddTier(t Tier) (Configuration, error) {
	tiers, err := addTier(c.tiers, t, c.validation.MinTierGap)
	if err != nil {
		return Configuration{}, err
	}
	out := c.clone()
	out.tiers = tiers
	return out, nil
}

// UpdateTier replaces the tier with the same ID.
func (c Configuration) UpdateTier(t Tier) (Configuration, error) {
	tiers, err := updateTier(c.tiers, t, c.validation.MinTierGap)
	if err != nil {
		return Configuration{}, err
	}
	out := c.clone()
	out.tiers = tiers
	return out, nil
}

// RemoveTier deletes a tier and renumbers the rest from 1.
func (c Configuration) RemoveTier(id string) (Configuration, error) {
	tiers, err := removeTier(c.tiers, id)
	if err != nil {
		return Configuration{}, err
	}
	out := c.clone()
	out.tiers = tiers
	return out, nil
}

// MoveTier moves a tier to a 0-based position and renumbers.
func (c Configuration) MoveTier(id string, to int) (Configuration, error) {
	tiers, err := moveTier(c.tiers, id, to)
	if err != nil {
		return Configuration{}, err
	}
	out := c.clone()
	out.tiers = tiers
	return out, nil
}

// =============================================================================
// MATRIX EDITS
// =============================================================================

func (c Configuration) SetRate(territory, product string, rate decimal.Decimal) (Configuration, error) {
	return c.editMatrix(func(m RateMatrix) (RateMatrix, error) { return m.SetRate(territory, product, rate) })
}

func (c Configuration) AddTerritory(name string) (Configuration, error) {
	return c.editMatrix(func(m RateMatrix) (RateMatrix, error) { return m.AddTerritory(name) })
}

func (c Configuration) AddProduct(name string) (Configuration, error) {
	return c.editMatrix(func(m RateMatrix) (RateMatrix, error) { return m.AddProduct(name) })
}

func (c Configuration) RemoveTerritory(name string) (Configuration, error) {
	return c.editMatrix(func(m RateMatrix) (RateMatrix, error) { return m.RemoveTerritory(name) })
}

func (c Configuration) RemoveProduct(name string) (Configuration, error) {
	return c.editMatrix(func(m RateMatrix) (RateMatrix, error) { return m.RemoveProduct(name) })
}

func (c Configuration) editMatrix(edit func(RateMatrix) (RateMatrix, error)) (Configuration, error) {
	m, err := edit(c.matrix)
	if err != nil {
		return Configuration{}, err
	}
	out := c.clone()
	out.matrix = m
	return out, nil
}

// =============================================================================
// RULE EDITS
// =============================================================================

// PutRule compiles r and adds it, replacing any rule with the same ID in
// place. A rule that fails to compile is rejected and c is unchanged.
func (c Configuration) PutRule(r rules.Rule) (Configuration, error) {
	compiled, err := rules.Compile(r)
	if err != nil {
		return Configuration{}, err
	}
	out := c.clone()
	for i := range out.rules {
		if out.rules[i].ID == r.ID {
			out.rules[i] = compiled
			return out, nil
		}
	}
	out.rules = append(out.rules, compiled)
	return out, nil
}

// RemoveRule deletes the rule with the given ID.
func (c Configuration) RemoveRule(id string) (Configuration, error) {
	out := c.clone()
	for i := range out.rules {
		if out.rules[i].ID == id {
			out.rules = append(out.rules[:i], out.rules[i+1:]...)
			return out, nil
		}
	}
	return Configuration{}, fmt.Errorf("%w: rule %s", ErrNotFound, id)
}

// SetRuleActive toggles a rule without recompiling it.
func (c Configuration) SetRuleActive(id string, active bool) (Configuration, error) {
	out := c.clone()
	for i := range out.rules {
		if out.rules[i].ID == id {
			out.rules[i].Active = active
			return out, nil
		}
	}
	return Configuration{}, fmt.Errorf("%w: rule %s", ErrNotFound, id)
}

func (c Configuration) clone() Configuration {
	return Configuration{
		tiers:      cloneTiers(c.tiers),
		matrix:     c.matrix,
		rules:      cloneRules(c.rules),
		settings:   c.settings,
		validation: c.validation,
	}
}

func cloneRules(rs []rules.CompiledRule) []rules.CompiledRule {
	out := make([]rules.CompiledRule, len(rs))
	copy(out, rs)
	return out
}
