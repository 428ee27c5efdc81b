/*
handlers.go - HTTP API handlers for the commission dashboard

PURPOSE:
  Exposes the commission engine and the workspace store via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  compensation package. No calculation logic lives here.

ENDPOINTS:
  Plans:
    GET    /api/plans                  List plans
    POST   /api/plans                  Create plan from plan JSON
    POST   /api/plans/validate         Dry-run validation (errors + warnings)
    GET    /api/plans/{id}             Get plan
    PUT    /api/plans/{id}             Replace plan (bumps version)
    DELETE /api/plans/{id}             Delete plan

  Calculation:
    POST   /api/plans/{id}/preview     Calculate one representative
    POST   /api/plans/{id}/payouts     Batch payout run (recorded)
    GET    /api/plans/{id}/payouts     Payout run history

  Rules:
    POST   /api/rules/validate         Rule builder validation

  Representatives:
    GET    /api/representatives        List sample representatives
    POST   /api/representatives        Create or replace
    GET    /api/representatives/{id}   Get
    DELETE /api/representatives/{id}   Delete

  Scenarios:
    GET    /api/scenarios              List saved scenarios
    POST   /api/scenarios              Create or replace
    GET    /api/scenarios/{id}         Get
    DELETE /api/scenarios/{id}         Delete
    POST   /api/scenarios/{id}/simulate Run one scenario against a plan
    POST   /api/scenarios/compare      Compare scenarios (first is baseline)

ARCHITECTURE:
  Handler struct holds all dependencies:
  - Store: Workspace persistence (SQLite or memory)
  - Plans: Plan JSON <-> Configuration
  - Calc:  Shared calculator (safe for concurrent use)

  Plans are parsed from the store on every request. A Configuration is
  immutable, so there is no cache to invalidate.

ERROR HANDLING:
  Errors are returned as JSON; see errors.go for the status mapping.

SEE ALSO:
  - dto.go: Request/response data structures
  - demo.go: Demo dataset loader
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/warp/commission-engine/compensation"
	"github.com/warp/commission-engine/display"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/rules"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  compensation.WorkspaceStore
	Plans  *factory.PlanFactory
	Calc   *compensation.Calculator
	Logger *zap.Logger

	// Defaults apply to plans submitted without a settings block.
	Defaults factory.SettingsJSON

	// NewID generates record IDs; swappable in tests.
	NewID func() string
	// Now is swappable in tests.
	Now func() time.Time

	mu          sync.Mutex
	currentDemo string
}

// NewHandler creates a new handler with the given store.
func NewHandler(store compensation.WorkspaceStore, calc *compensation.Calculator, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if calc == nil {
		calc = compensation.NewCalculator(logger)
	}
	return &Handler{
		Store:  store,
		Plans:  factory.NewPlanFactory(),
		Calc:   calc,
		Logger: logger,
		NewID:  uuid.NewString,
		Now:    func() time.Time { return time.Now().UTC() },
	}
}

// =============================================================================
// PLAN HANDLERS
// =============================================================================

// ListPlans returns all plans.
func (h *Handler) ListPlans(w http.ResponseWriter, r *http.Request) {
	records, err := h.Store.ListPlans(r.Context())
	if err != nil {
		h.writeError(w, r, "Failed to list plans", err)
		return
	}

	dtos := make([]PlanDTO, 0, len(records))
	for _, rec := range records {
		dto, err := h.toPlanDTO(rec)
		if err != nil {
			// A stored plan that no longer parses is still listed
			h.Logger.Warn("stored plan does not parse", zap.String("plan_id", rec.ID), zap.Error(err))
			dto = PlanDTO{ID: rec.ID, Name: rec.Name, Version: rec.Version, Warnings: []WarningDTO{{Code: CodeInvalidRule, Message: err.Error()}}}
		}
		dtos = append(dtos, dto)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePlan creates a new plan from plan JSON.
func (h *Handler) CreatePlan(w http.ResponseWriter, r *http.Request) {
	var pj factory.PlanJSON
	if !h.decode(w, r, &pj) {
		return
	}
	if pj.ID == "" {
		pj.ID = h.NewID()
	}
	h.savePlan(w, r, pj, http.StatusCreated)
}

// UpdatePlan replaces a plan; the stored version is bumped.
func (h *Handler) UpdatePlan(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := h.Store.GetPlan(r.Context(), id); err != nil {
		h.writeError(w, r, "Plan not found", err)
		return
	}

	var pj factory.PlanJSON
	if !h.decode(w, r, &pj) {
		return
	}
	pj.ID = id
	h.savePlan(w, r, pj, http.StatusOK)
}

func (h *Handler) savePlan(w http.ResponseWriter, r *http.Request, pj factory.PlanJSON, status int) {
	if strings.TrimSpace(pj.Name) == "" {
		h.writeError(w, r, "Invalid plan configuration", fmt.Errorf("%w: name is required", errBadRequest))
		return
	}
	if pj.Settings == nil {
		defaults := h.Defaults
		pj.Settings = &defaults
	}

	cfg, err := h.Plans.FromJSON(pj)
	if err != nil {
		h.writeErrorDetails(w, r, "Invalid plan configuration", err, fieldErrors(err))
		return
	}

	data, err := h.Plans.Encode(pj.ID, pj.Name, cfg)
	if err != nil {
		h.writeError(w, r, "Failed to encode plan", err)
		return
	}
	rec, err := h.Store.SavePlan(r.Context(), compensation.PlanRecord{ID: pj.ID, Name: pj.Name, Plan: data})
	if err != nil {
		h.writeError(w, r, "Failed to save plan", err)
		return
	}

	h.Logger.Info("plan saved", zap.String("plan_id", rec.ID), zap.Int("version", rec.Version))
	writeJSON(w, status, h.planDTO(rec, pj.Name, cfg))
}

// GetPlan returns a single plan.
func (h *Handler) GetPlan(w http.ResponseWriter, r *http.Request) {
	rec, err := h.Store.GetPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "Plan not found", err)
		return
	}
	dto, err := h.toPlanDTO(rec)
	if err != nil {
		h.writeError(w, r, "Stored plan is invalid", err)
		return
	}
	writeJSON(w, http.StatusOK, dto)
}

// DeletePlan removes a plan. Its payout runs are kept.
func (h *Handler) DeletePlan(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeletePlan(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, "Failed to delete plan", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ValidatePlan checks plan JSON without saving it.
func (h *Handler) ValidatePlan(w http.ResponseWriter, r *http.Request) {
	var pj factory.PlanJSON
	if !h.decode(w, r, &pj) {
		return
	}

	resp := ValidatePlanResponse{Errors: []FieldErrorDTO{}, Warnings: []WarningDTO{}}
	cfg, err := h.Plans.FromJSON(pj)
	if err != nil {
		resp.Errors = fieldErrors(err)
	} else {
		resp.Valid = true
		resp.Warnings = toWarningDTOs(cfg.Validate())
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) toPlanDTO(rec compensation.PlanRecord) (PlanDTO, error) {
	_, cfg, err := h.parsePlan(rec)
	if err != nil {
		return PlanDTO{}, err
	}
	return h.planDTO(rec, rec.Name, cfg), nil
}

func (h *Handler) planDTO(rec compensation.PlanRecord, name string, cfg compensation.Configuration) PlanDTO {
	return PlanDTO{
		ID:        rec.ID,
		Name:      name,
		Version:   rec.Version,
		Config:    h.Plans.ToJSON(rec.ID, name, cfg),
		Warnings:  toWarningDTOs(cfg.Validate()),
		CreatedAt: formatTimestamp(rec.CreatedAt),
		UpdatedAt: formatTimestamp(rec.UpdatedAt),
	}
}

func (h *Handler) parsePlan(rec compensation.PlanRecord) (factory.PlanJSON, compensation.Configuration, error) {
	pj, err := h.Plans.Decode(rec.Plan)
	if err != nil {
		return factory.PlanJSON{}, compensation.Configuration{}, err
	}
	cfg, err := h.Plans.FromJSON(pj)
	return pj, cfg, err
}

// loadPlan fetches and parses a stored plan.
func (h *Handler) loadPlan(ctx context.Context, id string) (compensation.PlanRecord, compensation.Configuration, error) {
	rec, err := h.Store.GetPlan(ctx, id)
	if err != nil {
		return compensation.PlanRecord{}, compensation.Configuration{}, err
	}
	_, cfg, err := h.parsePlan(rec)
	if err != nil {
		return compensation.PlanRecord{}, compensation.Configuration{}, fmt.Errorf("plan %s: %w", id, err)
	}
	return rec, cfg, nil
}

// =============================================================================
// RULE HANDLERS
// =============================================================================

// ValidateRule compiles a single rule for the rule builder. Authoring
// errors are a normal response (200 with valid=false), not an HTTP error.
func (h *Handler) ValidateRule(w http.ResponseWriter, r *http.Request) {
	var req ValidateRuleRequest
	if !h.decode(w, r, &req) {
		return
	}

	compiled, err := rules.Compile(req.Rule)
	if err != nil {
		writeJSON(w, http.StatusOK, ValidateRuleResponse{Errors: fieldErrors(err)})
		return
	}
	writeJSON(w, http.StatusOK, ValidateRuleResponse{
		Valid:     true,
		Errors:    []FieldErrorDTO{},
		Condition: compiled.When.String(),
		Action:    compiled.Then.String(),
	})
}

// =============================================================================
// CALCULATION HANDLERS
// =============================================================================

// Preview calculates one representative against a stored plan.
func (h *Handler) Preview(w http.ResponseWriter, r *http.Request) {
	_, cfg, err := h.loadPlan(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "Plan not found", err)
		return
	}

	var req PreviewRequest
	if !h.decode(w, r, &req) {
		return
	}

	var rep compensation.Context
	switch {
	case req.Representative != nil:
		rep = *req.Representative
	case req.RepID != "":
		rep, err = h.Store.GetRepresentative(r.Context(), req.RepID)
		if err != nil {
			h.writeError(w, r, "Representative not found", err)
			return
		}
	default:
		h.writeError(w, r, "Invalid request body", fmt.Errorf("%w: rep_id or representative is required", errBadRequest))
		return
	}

	b, err := h.Calc.Calculate(rep, cfg)
	if err != nil {
		h.writeError(w, r, "Calculation failed", err)
		return
	}

	dto := toBreakdownDTO(b)
	dto.Warnings = toWarningDTOs(rep.Validate())
	writeJSON(w, http.StatusOK, dto)
}

// RunPayouts calculates a batch against a stored plan and records the run.
// Representatives without an applicable tier are reported as failures;
// the run still succeeds.
func (h *Handler) RunPayouts(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	rec, cfg, err := h.loadPlan(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "Plan not found", err)
		return
	}

	var req PayoutRequest
	if !h.decode(w, r, &req) {
		return
	}

	reps, err := h.representatives(ctx, req.RepIDs)
	if err != nil {
		h.writeError(w, r, "Failed to load representatives", err)
		return
	}

	var results []compensation.BatchResult
	if req.ScenarioID != "" {
		sc, err := h.Store.GetScenario(ctx, req.ScenarioID)
		if err != nil {
			h.writeError(w, r, "Scenario not found", err)
			return
		}
		res, err := h.Calc.Simulate(ctx, cfg, reps, sc)
		if err != nil {
			h.writeError(w, r, "Simulation failed", err)
			return
		}
		results = res.Rows
	} else {
		results, err = h.Calc.CalculateAll(ctx, cfg, reps)
		if err != nil {
			h.writeError(w, r, "Batch calculation failed", err)
			return
		}
	}

	run := compensation.NewPayoutRun(h.NewID(), rec, req.ScenarioID, results, h.Now())
	if err := h.Store.SavePayoutRun(ctx, run); err != nil {
		h.writeError(w, r, "Failed to record payout run", err)
		return
	}

	h.Logger.Info("payout run recorded",
		zap.String("run_id", run.ID),
		zap.String("plan_id", run.PlanID),
		zap.Int("plan_version", run.PlanVersion),
		zap.Int("reps", run.RepCount),
		zap.Int("failed", run.FailedCount),
		zap.String("total", run.Total.String()),
	)
	writeJSON(w, http.StatusCreated, toPayoutRunDTO(run, toRowErrDTOs(results)))
}

// ListPayoutRuns returns the run history of a plan, newest first.
func (h *Handler) ListPayoutRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.Store.ListPayoutRuns(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "Failed to list payout runs", err)
		return
	}
	dtos := make([]PayoutRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toPayoutRunDTO(run, nil)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// representatives loads the named reps in request order, or all of them.
func (h *Handler) representatives(ctx context.Context, ids []string) ([]compensation.Context, error) {
	if len(ids) == 0 {
		return h.Store.ListRepresentatives(ctx)
	}
	reps := make([]compensation.Context, 0, len(ids))
	for _, id := range ids {
		rep, err := h.Store.GetRepresentative(ctx, id)
		if err != nil {
			return nil, err
		}
		reps = append(reps, rep)
	}
	return reps, nil
}

// =============================================================================
// REPRESENTATIVE HANDLERS
// =============================================================================

// ListRepresentatives returns all sample representatives.
func (h *Handler) ListRepresentatives(w http.ResponseWriter, r *http.Request) {
	reps, err := h.Store.ListRepresentatives(r.Context())
	if err != nil {
		h.writeError(w, r, "Failed to list representatives", err)
		return
	}
	writeJSON(w, http.StatusOK, reps)
}

// SaveRepresentative creates or replaces a representative.
func (h *Handler) SaveRepresentative(w http.ResponseWriter, r *http.Request) {
	var rep compensation.Context
	if !h.decode(w, r, &rep) {
		return
	}
	if strings.TrimSpace(rep.RepID) == "" {
		h.writeError(w, r, "Invalid representative", fmt.Errorf("%w: rep_id is required", errBadRequest))
		return
	}
	if err := h.Store.SaveRepresentative(r.Context(), rep); err != nil {
		h.writeError(w, r, "Failed to save representative", err)
		return
	}
	writeJSON(w, http.StatusCreated, rep)
}

// GetRepresentative returns a single representative.
func (h *Handler) GetRepresentative(w http.ResponseWriter, r *http.Request) {
	rep, err := h.Store.GetRepresentative(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "Representative not found", err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// DeleteRepresentative removes a representative.
func (h *Handler) DeleteRepresentative(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteRepresentative(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, "Failed to delete representative", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// SCENARIO HANDLERS
// =============================================================================

// ListScenarios returns saved scenarios, oldest first.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	scenarios, err := h.Store.ListScenarios(r.Context())
	if err != nil {
		h.writeError(w, r, "Failed to list scenarios", err)
		return
	}
	writeJSON(w, http.StatusOK, scenarios)
}

// SaveScenario creates or replaces a scenario.
func (h *Handler) SaveScenario(w http.ResponseWriter, r *http.Request) {
	var sc compensation.Scenario
	if !h.decode(w, r, &sc) {
		return
	}
	if err := sc.Validate(); err != nil {
		h.writeError(w, r, "Invalid scenario", err)
		return
	}
	if sc.ID == "" {
		sc.ID = h.NewID()
	}
	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = h.Now()
	}
	if err := h.Store.SaveScenario(r.Context(), sc); err != nil {
		h.writeError(w, r, "Failed to save scenario", err)
		return
	}
	writeJSON(w, http.StatusCreated, sc)
}

// GetScenario returns a single scenario.
func (h *Handler) GetScenario(w http.ResponseWriter, r *http.Request) {
	sc, err := h.Store.GetScenario(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "Scenario not found", err)
		return
	}
	writeJSON(w, http.StatusOK, sc)
}

// DeleteScenario removes a scenario.
func (h *Handler) DeleteScenario(w http.ResponseWriter, r *http.Request) {
	if err := h.Store.DeleteScenario(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, r, "Failed to delete scenario", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SimulateScenario runs one saved scenario against a plan.
func (h *Handler) SimulateScenario(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req SimulateRequest
	if !h.decode(w, r, &req) {
		return
	}

	sc, err := h.Store.GetScenario(ctx, chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, r, "Scenario not found", err)
		return
	}
	_, cfg, err := h.loadPlan(ctx, req.PlanID)
	if err != nil {
		h.writeError(w, r, "Plan not found", err)
		return
	}
	reps, err := h.representatives(ctx, req.RepIDs)
	if err != nil {
		h.writeError(w, r, "Failed to load representatives", err)
		return
	}

	res, err := h.Calc.Simulate(ctx, cfg, reps, sc)
	if err != nil {
		h.writeError(w, r, "Simulation failed", err)
		return
	}

	dto := SimulationDTO{
		Snapshot:     res.Snapshot,
		TotalDisplay: display.Currency(res.Snapshot.Total),
		Rows:         []BreakdownDTO{},
		Failures:     toRowErrDTOs(res.Rows),
	}
	for _, row := range res.Rows {
		if row.Err == nil {
			dto.Rows = append(dto.Rows, toBreakdownDTO(row.Breakdown))
		}
	}
	writeJSON(w, http.StatusOK, dto)
}

// CompareScenarios simulates each scenario and compares them to the first.
func (h *Handler) CompareScenarios(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req CompareRequest
	if !h.decode(w, r, &req) {
		return
	}
	if len(req.ScenarioIDs) < 2 {
		h.writeError(w, r, "Invalid request body", fmt.Errorf("%w: at least two scenario_ids are required", errBadRequest))
		return
	}

	_, cfg, err := h.loadPlan(ctx, req.PlanID)
	if err != nil {
		h.writeError(w, r, "Plan not found", err)
		return
	}
	reps, err := h.representatives(ctx, req.RepIDs)
	if err != nil {
		h.writeError(w, r, "Failed to load representatives", err)
		return
	}

	snapshots := make([]compensation.Snapshot, 0, len(req.ScenarioIDs))
	for _, id := range req.ScenarioIDs {
		sc, err := h.Store.GetScenario(ctx, id)
		if err != nil {
			h.writeError(w, r, "Scenario not found", err)
			return
		}
		res, err := h.Calc.Simulate(ctx, cfg, reps, sc)
		if err != nil {
			h.writeError(w, r, "Simulation failed", err)
			return
		}
		snapshots = append(snapshots, res.Snapshot)
	}

	cmp, err := compensation.CompareAll(snapshots)
	if err != nil {
		h.writeError(w, r, "Comparison failed", err)
		return
	}
	writeJSON(w, http.StatusOK, toComparisonDTO(cmp))
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// decode reads the JSON body into v, writing a 400 on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, r, "Invalid request body", fmt.Errorf("%w: %v", errBadRequest, err))
		return false
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.writeErrorDetails(w, r, message, err, nil)
}

func (h *Handler) writeErrorDetails(w http.ResponseWriter, r *http.Request, message string, err error, details any) {
	status := statusFor(err)
	resp := ErrorResponse{Error: message, Code: errorCode(err)}
	if details != nil {
		resp.Details = details
	} else if err != nil {
		resp.Details = err.Error()
	}
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message, zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, status, resp)
}
