/*
store.go - Workspace persistence interface

PURPOSE:
  The engine itself is stateless. The dashboard around it keeps a
  workspace: plan configurations being edited, sample representatives
  used in previews, saved scenarios, and a record of payout runs. This
  interface is what the HTTP adapter and CLI use; Calculator never
  touches it.

VERSIONING:
  Plans are stored as plan JSON (see factory/). Every SavePlan on an
  existing ID bumps Version, so a payout run can name the exact plan
  version it was computed against.

IMPLEMENTATIONS:
  - store/sqlite/sqlite.go:          SQLite
  - compensation/store/memory.go:   In-memory for tests and demos

SEE ALSO:
  - factory/plan.go: PlanJSON <-> Configuration
*/
package compensation

import (
	"context"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PlanRecord is a stored plan configuration.
type PlanRecord struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Plan      json.RawMessage `json:"plan"`
	Version   int             `json:"version"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// PayoutRun records one batch calculation.
type PayoutRun struct {
	ID          string            `json:"id"`
	PlanID      string            `json:"plan_id"`
	PlanVersion int               `json:"plan_version"`
	ScenarioID  string            `json:"scenario_id,omitempty"`
	Total       decimal.Decimal   `json:"total"`
	RepCount    int               `json:"rep_count"`
	FailedCount int               `json:"failed_count"`
	Breakdowns  []PayoutBreakdown `json:"breakdowns,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// WorkspaceStore persists the dashboard workspace. Missing records are
// reported with ErrNotFound.
type WorkspaceStore interface {
	// SavePlan inserts or updates a plan and returns the stored record
	// (with its new Version and timestamps).
	SavePlan(ctx context.Context, p PlanRecord) (PlanRecord, error)
	GetPlan(ctx context.Context, id string) (PlanRecord, error)
	ListPlans(ctx context.Context) ([]PlanRecord, error)
	DeletePlan(ctx context.Context, id string) error

	SaveRepresentative(ctx context.Context, rep Context) error
	GetRepresentative(ctx context.Context, id string) (Context, error)
	ListRepresentatives(ctx context.Context) ([]Context, error)
	DeleteRepresentative(ctx context.Context, id string) error

	SaveScenario(ctx context.Context, sc Scenario) error
	GetScenario(ctx context.Context, id string) (Scenario, error)
	ListScenarios(ctx context.Context) ([]Scenario, error)
	DeleteScenario(ctx context.Context, id string) error

	// SavePayoutRun appends a run. Runs are never updated.
	SavePayoutRun(ctx context.Context, run PayoutRun) error
	// ListPayoutRuns returns runs newest first; planID "" lists all.
	ListPayoutRuns(ctx context.Context, planID string) ([]PayoutRun, error)

	// Reset clears the workspace (demo reload).
	Reset(ctx context.Context) error
}

// NewPayoutRun summarizes batch results into a run record.
func NewPayoutRun(id string, plan PlanRecord, scenarioID string, results []BatchResult, at time.Time) PayoutRun {
	run := PayoutRun{
		ID:          id,
		PlanID:      plan.ID,
		PlanVersion: plan.Version,
		ScenarioID:  scenarioID,
		Total:       decimal.Zero,
		RepCount:    len(results),
		CreatedAt:   at,
	}
	for _, r := range results {
		if r.Err != nil {
			run.FailedCount++
			continue
		}
		run.Total = run.Total.Add(r.Breakdown.TotalCommission)
		run.Breakdowns = append(run.Breakdowns, r.Breakdown)
	}
	return run
}
