// Package store provides WorkspaceStore implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/commission-engine/compensation"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	plans     map[string]compensation.PlanRecord
	reps      map[string]compensation.Context
	scenarios map[string]compensation.Scenario
	runs      []compensation.PayoutRun

	// now is swappable in tests.
	now func() time.Time
}

var _ compensation.WorkspaceStore = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		plans:     make(map[string]compensation.PlanRecord),
		reps:      make(map[string]compensation.Context),
		scenarios: make(map[string]compensation.Scenario),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// =============================================================================
// PLANS
// =============================================================================

func (m *Memory) SavePlan(_ context.Context, p compensation.PlanRecord) (compensation.PlanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	if existing, ok := m.plans[p.ID]; ok {
		p.Version = existing.Version + 1
		p.CreatedAt = existing.CreatedAt
	} else {
		p.Version = 1
		p.CreatedAt = now
	}
	p.UpdatedAt = now
	p.Plan = append([]byte(nil), p.Plan...)
	m.plans[p.ID] = p
	return p, nil
}

func (m *Memory) GetPlan(_ context.Context, id string) (compensation.PlanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.plans[id]
	if !ok {
		return compensation.PlanRecord{}, fmt.Errorf("plan %s: %w", id, compensation.ErrNotFound)
	}
	return p, nil
}

func (m *Memory) ListPlans(_ context.Context) ([]compensation.PlanRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]compensation.PlanRecord, 0, len(m.plans))
	for _, p := range m.plans {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *Memory) DeletePlan(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.plans[id]; !ok {
		return fmt.Errorf("plan %s: %w", id, compensation.ErrNotFound)
	}
	delete(m.plans, id)
	return nil
}

// =============================================================================
// REPRESENTATIVES
// =============================================================================

func (m *Memory) SaveRepresentative(_ context.Context, rep compensation.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reps[rep.RepID] = copyContext(rep)
	return nil
}

func (m *Memory) GetRepresentative(_ context.Context, id string) (compensation.Context, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	rep, ok := m.reps[id]
	if !ok {
		return compensation.Context{}, fmt.Errorf("representative %s: %w", id, compensation.ErrNotFound)
	}
	return copyContext(rep), nil
}

func (m *Memory) ListRepresentatives(_ context.Context) ([]compensation.Context, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]compensation.Context, 0, len(m.reps))
	for _, rep := range m.reps {
		out = append(out, copyContext(rep))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RepID < out[j].RepID })
	return out, nil
}

func (m *Memory) DeleteRepresentative(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.reps[id]; !ok {
		return fmt.Errorf("representative %s: %w", id, compensation.ErrNotFound)
	}
	delete(m.reps, id)
	return nil
}

// copyContext detaches the product mix so callers can't mutate stored state.
func copyContext(rep compensation.Context) compensation.Context {
	if rep.ProductMix != nil {
		mix := make(map[string]decimal.Decimal, len(rep.ProductMix))
		for k, v := range rep.ProductMix {
			mix[k] = v
		}
		rep.ProductMix = mix
	}
	return rep
}

// =============================================================================
// SCENARIOS
// =============================================================================

func (m *Memory) SaveScenario(_ context.Context, sc compensation.Scenario) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if sc.CreatedAt.IsZero() {
		sc.CreatedAt = m.now()
	}
	sc.AffectedReps = append([]string(nil), sc.AffectedReps...)
	m.scenarios[sc.ID] = sc
	return nil
}

func (m *Memory) GetScenario(_ context.Context, id string) (compensation.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	sc, ok := m.scenarios[id]
	if !ok {
		return compensation.Scenario{}, fmt.Errorf("scenario %s: %w", id, compensation.ErrNotFound)
	}
	return sc, nil
}

func (m *Memory) ListScenarios(_ context.Context) ([]compensation.Scenario, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]compensation.Scenario, 0, len(m.scenarios))
	for _, sc := range m.scenarios {
		out = append(out, sc)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) DeleteScenario(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.scenarios[id]; !ok {
		return fmt.Errorf("scenario %s: %w", id, compensation.ErrNotFound)
	}
	delete(m.scenarios, id)
	return nil
}

// =============================================================================
// PAYOUT RUNS - Append-only
// =============================================================================

func (m *Memory) SavePayoutRun(_ context.Context, run compensation.PayoutRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.runs {
		if existing.ID == run.ID {
			return fmt.Errorf("payout run %s: %w", run.ID, compensation.ErrDuplicateRecord)
		}
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = m.now()
	}
	m.runs = append(m.runs, run)
	return nil
}

func (m *Memory) ListPayoutRuns(_ context.Context, planID string) ([]compensation.PayoutRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []compensation.PayoutRun
	// Newest first
	for i := len(m.runs) - 1; i >= 0; i-- {
		if planID == "" || m.runs[i].PlanID == planID {
			out = append(out, m.runs[i])
		}
	}
	return out, nil
}

func (m *Memory) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.plans = make(map[string]compensation.PlanRecord)
	m.reps = make(map[string]compensation.Context)
	m.scenarios = make(map[string]compensation.Scenario)
	m.runs = nil
	return nil
}
