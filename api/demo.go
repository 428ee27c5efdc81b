/*
demo.go - Demo dataset loaders for testing and demonstrations

PURPOSE:

	Populates the workspace with a realistic plan, representatives and
	saved scenarios so the dashboard has something to show on first run.

AVAILABLE DATASETS:

	field-sales:  FY25 field sales plan, four reps, three scenarios
	new-region:   Same plan plus reps in a territory and tier the plan
	              does not cover (shows fallback rates and batch failures)

HOW LOADING WORKS:
 1. Reset workspace (clear all data)
 2. Save the sample plan via the factory
 3. Save representatives
 4. Save scenarios

USAGE VIA API:

	POST /api/demo/load
	{"dataset": "field-sales"}

NOTE:

	Loading resets the workspace. Only use in development/demo environments.

SEE ALSO:
  - factory/presets.go: Sample plan, representatives and scenarios
*/
package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/compensation"
	"github.com/warp/commission-engine/factory"
	"go.uber.org/zap"
)

// =============================================================================
// DATASET DEFINITIONS
// =============================================================================

var demos = []DemoDTO{
	{
		ID:          "field-sales",
		Name:        "FY25 Field Sales",
		Description: "Three tiers, two territories, Q4 accelerator and enterprise bonus",
	},
	{
		ID:          "new-region",
		Name:        "New Region Rollout",
		Description: "Field sales plan with reps in an unpriced territory and an unknown tier",
	},
}

// ListDemos returns available datasets.
func (h *Handler) ListDemos(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, demos)
}

// GetCurrentDemo returns the currently loaded dataset, if any.
func (h *Handler) GetCurrentDemo(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	current := h.currentDemo
	h.mu.Unlock()

	for _, d := range demos {
		if d.ID == current {
			writeJSON(w, http.StatusOK, d)
			return
		}
	}
	writeJSON(w, http.StatusOK, nil)
}

// LoadDemo resets the workspace and loads a dataset.
func (h *Handler) LoadDemo(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Dataset string `json:"dataset"`
	}
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.LoadDataset(r.Context(), req.Dataset); err != nil {
		h.writeError(w, r, "Failed to load dataset", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "loaded", "dataset": req.Dataset})
}

// LoadDataset resets the workspace and loads the named dataset.
func (h *Handler) LoadDataset(ctx context.Context, dataset string) error {
	var load func(context.Context) error
	switch dataset {
	case "field-sales":
		load = h.loadFieldSales
	case "new-region":
		load = h.loadNewRegion
	default:
		return fmt.Errorf("%w: unknown dataset %q", errBadRequest, dataset)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	h.currentDemo = ""
	if err := h.Store.Reset(ctx); err != nil {
		return fmt.Errorf("reset workspace: %w", err)
	}
	if err := load(ctx); err != nil {
		return err
	}
	h.currentDemo = dataset

	h.Logger.Info("demo dataset loaded", zap.String("dataset", dataset))
	return nil
}

// ResetWorkspace clears every plan, representative, scenario and run.
func (h *Handler) ResetWorkspace(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.Store.Reset(r.Context()); err != nil {
		h.writeError(w, r, "Failed to reset workspace", err)
		return
	}
	h.currentDemo = ""
	writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// =============================================================================
// DATASET LOADERS
// =============================================================================

func (h *Handler) loadFieldSales(ctx context.Context) error {
	if err := h.saveSamplePlan(ctx); err != nil {
		return err
	}
	for _, rep := range factory.SampleRepresentatives() {
		if err := h.Store.SaveRepresentative(ctx, rep); err != nil {
			return fmt.Errorf("save representative %s: %w", rep.RepID, err)
		}
	}
	for _, sc := range factory.SampleScenarios() {
		if err := h.Store.SaveScenario(ctx, sc); err != nil {
			return fmt.Errorf("save scenario %s: %w", sc.ID, err)
		}
	}
	return nil
}

func (h *Handler) loadNewRegion(ctx context.Context) error {
	if err := h.loadFieldSales(ctx); err != nil {
		return err
	}

	asOf := factory.SampleRepresentatives()[0].AsOf
	extra := []compensation.Context{
		{
			// Mountain has no matrix row; every product uses the tier rate
			RepID: "rep-101", RepName: "Casey Brooks", Territory: "Mountain", TierName: "Tier 2",
			AnnualQuota: decimal.NewFromInt(600000), YTDRevenue: decimal.NewFromInt(480000),
			ProductMix: map[string]decimal.Decimal{
				"Mid-Market": decimal.NewFromInt(300000),
				"SMB":        decimal.NewFromInt(180000),
			},
			AsOf: asOf,
		},
		{
			// No plan tier is named "Tier 4"; batches report this rep as failed
			RepID: "rep-102", RepName: "Drew Kim", Territory: "Mountain", TierName: "Tier 4",
			AnnualQuota: decimal.NewFromInt(200000), YTDRevenue: decimal.NewFromInt(90000),
			AsOf: asOf,
		},
	}
	for _, rep := range extra {
		if err := h.Store.SaveRepresentative(ctx, rep); err != nil {
			return fmt.Errorf("save representative %s: %w", rep.RepID, err)
		}
	}
	return nil
}

func (h *Handler) saveSamplePlan(ctx context.Context) error {
	pj, err := h.Plans.Decode([]byte(factory.SamplePlanJSON()))
	if err != nil {
		return err
	}
	cfg, err := h.Plans.FromJSON(pj)
	if err != nil {
		return err
	}
	data, err := h.Plans.Encode(pj.ID, pj.Name, cfg)
	if err != nil {
		return err
	}
	_, err = h.Store.SavePlan(ctx, compensation.PlanRecord{ID: pj.ID, Name: pj.Name, Plan: data})
	return err
}
