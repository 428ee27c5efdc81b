/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Engine values are
  embedded as-is (exact decimals as strings); every response that carries
  money also carries a Display block with the dashboard formatting, so the
  front end never rounds on its own.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

TYPES:
  Plan:
    PlanDTO (wraps factory.PlanJSON), ValidatePlanResponse

  Rules:
    ValidateRuleRequest, ValidateRuleResponse, FieldErrorDTO

  Calculation:
    PreviewRequest, BreakdownDTO, PayoutRequest, PayoutRunDTO

  Scenarios:
    SimulateRequest, SimulationDTO, CompareRequest, ComparisonDTO

VALIDATION:
  Validation is done in handlers, not in DTOs. DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - display/: Currency and percent formatting
  - factory/plan.go: PlanJSON type
*/
package api

import (
	"time"

	"github.com/warp/commission-engine/compensation"
	"github.com/warp/commission-engine/display"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/rules"
)

// =============================================================================
// PLANS
// =============================================================================

// PlanDTO represents a plan in API responses.
type PlanDTO struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Version   int              `json:"version"`
	Config    factory.PlanJSON `json:"config"`
	Warnings  []WarningDTO     `json:"warnings"`
	CreatedAt string           `json:"created_at,omitempty"`
	UpdatedAt string           `json:"updated_at,omitempty"`
}

// WarningDTO is a non-fatal data quality warning.
type WarningDTO struct {
	Code    string `json:"code"`
	Subject string `json:"subject,omitempty"`
	Message string `json:"message"`
}

// ValidatePlanResponse is the result of a dry-run plan validation.
type ValidatePlanResponse struct {
	Valid    bool            `json:"valid"`
	Errors   []FieldErrorDTO `json:"errors"`
	Warnings []WarningDTO    `json:"warnings"`
}

// =============================================================================
// RULES
// =============================================================================

// ValidateRuleRequest is a rule being authored in the rule builder.
type ValidateRuleRequest struct {
	Rule rules.Rule `json:"rule"`
}

// ValidateRuleResponse lists field errors for the rule builder.
type ValidateRuleResponse struct {
	Valid  bool            `json:"valid"`
	Errors []FieldErrorDTO `json:"errors"`
	// Normalized condition and action, present when valid
	Condition string `json:"condition,omitempty"`
	Action    string `json:"action,omitempty"`
}

// FieldErrorDTO is one authoring error.
type FieldErrorDTO struct {
	RuleID   string `json:"rule_id,omitempty"`
	Field    string `json:"field"`
	Position int    `json:"position,omitempty"`
	Message  string `json:"message"`
}

// =============================================================================
// CALCULATION
// =============================================================================

// PreviewRequest calculates one representative: a stored one by RepID, or
// an inline Representative.
type PreviewRequest struct {
	RepID          string                `json:"rep_id,omitempty"`
	Representative *compensation.Context `json:"representative,omitempty"`
}

// BreakdownDTO is a payout breakdown with display strings.
type BreakdownDTO struct {
	compensation.PayoutBreakdown
	Display  BreakdownDisplayDTO `json:"display"`
	Warnings []WarningDTO        `json:"warnings,omitempty"`
}

// BreakdownDisplayDTO holds the dashboard formatting of a breakdown.
type BreakdownDisplayDTO struct {
	BaseCommission  string `json:"base_commission"`
	Accelerators    string `json:"accelerators"`
	RulesBonus      string `json:"rules_bonus"`
	SPIFBonus       string `json:"spif_bonus"`
	TotalCommission string `json:"total_commission"`
	EffectiveRate   string `json:"effective_rate"`
	QuotaAttainment string `json:"quota_attainment"`
}

// PayoutRequest runs a batch. Empty RepIDs means every stored representative.
type PayoutRequest struct {
	RepIDs     []string `json:"rep_ids,omitempty"`
	ScenarioID string   `json:"scenario_id,omitempty"`
}

// PayoutRunDTO is a recorded batch run.
type PayoutRunDTO struct {
	compensation.PayoutRun
	TotalDisplay string      `json:"total_display"`
	Failures     []RowErrDTO `json:"failures,omitempty"`
}

// RowErrDTO is a per-representative failure in a batch.
type RowErrDTO struct {
	RepID string `json:"rep_id"`
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

// =============================================================================
// SCENARIOS
// =============================================================================

// SimulateRequest names the plan a scenario runs against.
type SimulateRequest struct {
	PlanID string   `json:"plan_id"`
	RepIDs []string `json:"rep_ids,omitempty"`
}

// SimulationDTO is one simulated scenario.
type SimulationDTO struct {
	Snapshot     compensation.Snapshot `json:"snapshot"`
	TotalDisplay string                `json:"total_display"`
	Rows         []BreakdownDTO        `json:"rows"`
	Failures     []RowErrDTO           `json:"failures,omitempty"`
}

// CompareRequest compares saved scenarios; the first is the baseline.
type CompareRequest struct {
	PlanID      string   `json:"plan_id"`
	ScenarioIDs []string `json:"scenario_ids"`
	RepIDs      []string `json:"rep_ids,omitempty"`
}

// ComparisonDTO is a scenario comparison with display strings.
type ComparisonDTO struct {
	compensation.Comparison
	Display []VarianceDisplayDTO `json:"display"`
}

// VarianceDisplayDTO holds the dashboard formatting of one variance.
type VarianceDisplayDTO struct {
	CandidateID        string `json:"candidate_id"`
	CandidateTotal     string `json:"candidate_total"`
	BaselineTotal      string `json:"baseline_total"`
	PayoutDelta        string `json:"payout_delta"`
	PayoutDeltaPercent string `json:"payout_delta_percent"`
	RateDelta          string `json:"rate_delta"`
}

// DemoDTO describes a loadable demo dataset.
type DemoDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toWarningDTOs(ws []compensation.Warning) []WarningDTO {
	out := make([]WarningDTO, len(ws))
	for i, w := range ws {
		out[i] = WarningDTO{Code: string(w.Code), Subject: w.Subject, Message: w.Message}
	}
	return out
}

func toBreakdownDTO(b compensation.PayoutBreakdown) BreakdownDTO {
	return BreakdownDTO{
		PayoutBreakdown: b,
		Display: BreakdownDisplayDTO{
			BaseCommission:  display.Currency(b.BaseCommission),
			Accelerators:    display.Currency(b.Accelerators),
			RulesBonus:      display.Currency(b.RulesBonus),
			SPIFBonus:       display.Currency(b.SPIFBonus),
			TotalCommission: display.Currency(b.TotalCommission),
			EffectiveRate:   display.Ratio(b.EffectiveRate, 2),
			QuotaAttainment: display.Ratio(b.QuotaAttainment, 1),
		},
	}
}

func toRowErrDTOs(results []compensation.BatchResult) []RowErrDTO {
	var out []RowErrDTO
	for _, r := range compensation.Failed(results) {
		out = append(out, RowErrDTO{RepID: r.RepID, Code: errorCode(r.Err), Error: r.Err.Error()})
	}
	return out
}

func toPayoutRunDTO(run compensation.PayoutRun, failures []RowErrDTO) PayoutRunDTO {
	return PayoutRunDTO{PayoutRun: run, TotalDisplay: display.Currency(run.Total), Failures: failures}
}

func toComparisonDTO(cmp compensation.Comparison) ComparisonDTO {
	out := ComparisonDTO{Comparison: cmp, Display: make([]VarianceDisplayDTO, len(cmp.Variances))}
	for i, v := range cmp.Variances {
		out.Display[i] = VarianceDisplayDTO{
			CandidateID:        v.CandidateID,
			CandidateTotal:     display.Currency(cmp.Candidates[i].Total),
			BaselineTotal:      display.Currency(cmp.Baseline.Total),
			PayoutDelta:        display.SignedCurrency(v.PayoutDelta),
			PayoutDeltaPercent: display.Percent(v.PayoutDeltaPercent, 2),
			RateDelta:          display.Ratio(v.RateDelta, 2),
		}
	}
	return out
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
