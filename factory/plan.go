/*
Package factory provides JSON to Go plan conversion.

PURPOSE:
  Converts JSON plan definitions into compensation.Configuration values.
  Compensation admins edit plans in the dashboard as JSON; the factory
  turns them into the immutable Configuration the calculator reads, and
  back again for storage.

JSON SCHEMA:
  {
    "id": "fy25-field-sales",
    "name": "FY25 Field Sales",
    "tiers": [
      {"id": "tier-1", "name": "Tier 1 - Executive", "quota_threshold": "1000000",
       "base_commission_rate": "0.08", "accelerator_trigger": "0.9", "spif_eligible": true}
    ],
    "rate_matrix": {
      "territories": ["West Coast"],
      "products": ["Enterprise"],
      "rates": [{"territory": "West Coast", "product": "Enterprise", "rate": "0.10"}]
    },
    "rules": [
      {"id": "q4-push", "name": "Q4 Push", "condition": "quota_attainment > 100% AND quarter = Q4",
       "action": "multiply_commission(1.25)", "active": true, "priority": 10}
    ],
    "settings": {"spif_rate": "0.02", "fiscal_year_start_month": 1, "min_tier_gap": "1000"}
  }

KEY FEATURES:
  - Every rule is compiled at load time; a plan with a malformed rule is
    rejected with every failing field listed
  - Tiers go through the same guards as dashboard edits (rate ranges,
    threshold gap)
  - Missing tier IDs are assigned from position ("tier-1", "tier-2", ...)
  - Missing settings fall back to the package defaults

USAGE:
  f := factory.NewPlanFactory()
  cfg, err := f.ParsePlan(jsonString)

  // Presets for demos and tests
  cfg, err = f.ParsePlan(factory.SamplePlanJSON())

SEE ALSO:
  - compensation/config.go: Configuration type definition
  - factory/presets.go: Sample plan and representatives
*/
package factory

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/compensation"
	"github.com/warp/commission-engine/rules"
)

// =============================================================================
// JSON SCHEMA TYPES
// =============================================================================

// PlanJSON is the JSON representation of a commission plan.
type PlanJSON struct {
	ID         string                   `json:"id"`
	Name       string                   `json:"name"`
	Tiers      []compensation.Tier      `json:"tiers"`
	RateMatrix *compensation.RateMatrix `json:"rate_matrix,omitempty"`
	Rules      []rules.Rule             `json:"rules,omitempty"`
	Settings   *SettingsJSON            `json:"settings,omitempty"`
}

// SettingsJSON represents plan-wide settings. Every field is optional.
type SettingsJSON struct {
	SPIFRate             *decimal.Decimal `json:"spif_rate,omitempty"`
	FiscalYearStartMonth int              `json:"fiscal_year_start_month,omitempty"` // Month 1-12
	MinTierGap           *decimal.Decimal `json:"min_tier_gap,omitempty"`
}

// =============================================================================
// PLAN FACTORY
// =============================================================================

// PlanFactory converts JSON plans to Configurations.
type PlanFactory struct{}

// NewPlanFactory creates a new plan factory.
func NewPlanFactory() *PlanFactory {
	return &PlanFactory{}
}

// ParsePlan parses a JSON string into a Configuration.
func (f *PlanFactory) ParsePlan(jsonStr string) (compensation.Configuration, error) {
	pj, err := f.Decode([]byte(jsonStr))
	if err != nil {
		return compensation.Configuration{}, err
	}
	return f.FromJSON(pj)
}

// Decode unmarshals plan JSON without building a Configuration.
func (f *PlanFactory) Decode(data []byte) (PlanJSON, error) {
	var pj PlanJSON
	if err := json.Unmarshal(data, &pj); err != nil {
		return PlanJSON{}, fmt.Errorf("failed to parse plan JSON: %w", err)
	}
	return pj, nil
}

// FromJSON converts PlanJSON to a Configuration.
func (f *PlanFactory) FromJSON(pj PlanJSON) (compensation.Configuration, error) {
	compiled, err := rules.CompileAll(pj.Rules)
	if err != nil {
		return compensation.Configuration{}, err
	}

	cfg := compensation.NewConfiguration(nil, compensation.RateMatrix{}, compiled)

	// Settings first: the tier gap guard below depends on them
	settings, validation := parseSettings(pj.Settings)
	cfg, err = cfg.WithSettings(settings)
	if err != nil {
		return compensation.Configuration{}, err
	}
	cfg = cfg.WithValidation(validation)

	for i, t := range pj.Tiers {
		if t.ID == "" {
			t.ID = fmt.Sprintf("tier-%d", i+1)
		}
		cfg, err = cfg.AddTier(t)
		if err != nil {
			return compensation.Configuration{}, fmt.Errorf("tier %s: %w", t.ID, err)
		}
	}

	if pj.RateMatrix != nil {
		cfg = cfg.WithRateMatrix(*pj.RateMatrix)
		// Re-set every entry so out-of-range rates are rejected like edits are
		for _, e := range pj.RateMatrix.Entries() {
			cfg, err = cfg.SetRate(e.Territory, e.Product, e.Rate)
			if err != nil {
				return compensation.Configuration{}, fmt.Errorf("rate %s/%s: %w", e.Territory, e.Product, err)
			}
		}
	}

	return cfg, nil
}

// ToJSON converts a Configuration to PlanJSON.
func (f *PlanFactory) ToJSON(id, name string, cfg compensation.Configuration) PlanJSON {
	settings := cfg.Settings()
	gap := cfg.Validation().MinTierGap
	matrix := cfg.RateMatrix()

	pj := PlanJSON{
		ID:         id,
		Name:       name,
		Tiers:      cfg.Tiers(),
		RateMatrix: &matrix,
		Settings: &SettingsJSON{
			SPIFRate:             &settings.SPIFRate,
			FiscalYearStartMonth: int(settings.FiscalYearStartMonth),
			MinTierGap:           &gap,
		},
	}
	for _, r := range cfg.Rules() {
		pj.Rules = append(pj.Rules, r.Rule)
	}
	return pj
}

// Encode marshals a Configuration as indented plan JSON.
func (f *PlanFactory) Encode(id, name string, cfg compensation.Configuration) ([]byte, error) {
	return json.MarshalIndent(f.ToJSON(id, name, cfg), "", "  ")
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseSettings(sj *SettingsJSON) (compensation.Settings, compensation.ValidationPolicy) {
	settings := compensation.DefaultSettings()
	validation := compensation.DefaultValidation()
	if sj == nil {
		return settings, validation
	}
	if sj.SPIFRate != nil {
		settings.SPIFRate = *sj.SPIFRate
	}
	if sj.FiscalYearStartMonth != 0 {
		settings.FiscalYearStartMonth = time.Month(sj.FiscalYearStartMonth)
	}
	if sj.MinTierGap != nil {
		validation.MinTierGap = *sj.MinTierGap
	}
	return settings, validation
}
