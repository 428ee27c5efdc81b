package store_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/compensation"
	"github.com/warp/commission-engine/compensation/store"
)

func TestMemory_SavePlanBumpsVersion(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	first, err := m.SavePlan(ctx, compensation.PlanRecord{ID: "fy25", Name: "FY25", Plan: json.RawMessage(`{"tiers":[]}`)})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	second, err := m.SavePlan(ctx, compensation.PlanRecord{ID: "fy25", Name: "FY25", Plan: json.RawMessage(`{"tiers":[{}]}`)})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	got, err := m.GetPlan(ctx, "fy25")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tiers":[{}]}`, string(got.Plan))

	_, err = m.GetPlan(ctx, "missing")
	assert.ErrorIs(t, err, compensation.ErrNotFound)
}

func TestMemory_RepresentativesAreCopied(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	mix := map[string]decimal.Decimal{"Enterprise": decimal.NewFromInt(100)}
	require.NoError(t, m.SaveRepresentative(ctx, compensation.Context{RepID: "rep-1", ProductMix: mix}))

	mix["Enterprise"] = decimal.NewFromInt(999)

	got, err := m.GetRepresentative(ctx, "rep-1")
	require.NoError(t, err)
	assert.True(t, got.ProductMix["Enterprise"].Equal(decimal.NewFromInt(100)))

	require.NoError(t, m.DeleteRepresentative(ctx, "rep-1"))
	assert.ErrorIs(t, m.DeleteRepresentative(ctx, "rep-1"), compensation.ErrNotFound)
}

func TestMemory_PayoutRunsAreAppendOnlyNewestFirst(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	t0 := time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, m.SavePayoutRun(ctx, compensation.PayoutRun{ID: "run-1", PlanID: "fy25", CreatedAt: t0}))
	require.NoError(t, m.SavePayoutRun(ctx, compensation.PayoutRun{ID: "run-2", PlanID: "other", CreatedAt: t0.Add(time.Hour)}))
	require.NoError(t, m.SavePayoutRun(ctx, compensation.PayoutRun{ID: "run-3", PlanID: "fy25", CreatedAt: t0.Add(2 * time.Hour)}))

	err := m.SavePayoutRun(ctx, compensation.PayoutRun{ID: "run-1"})
	assert.ErrorIs(t, err, compensation.ErrDuplicateRecord)

	runs, err := m.ListPayoutRuns(ctx, "fy25")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "run-1", runs[1].ID)

	all, err := m.ListPayoutRuns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMemory_Reset(t *testing.T) {
	ctx := context.Background()
	m := store.NewMemory()

	require.NoError(t, m.SaveScenario(ctx, compensation.Scenario{ID: "sc-1", Name: "Push"}))
	require.NoError(t, m.Reset(ctx))

	scenarios, err := m.ListScenarios(ctx)
	require.NoError(t, err)
	assert.Empty(t, scenarios)
}
