package sqlite_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/commission-engine/compensation"
	"github.com/warp/commission-engine/factory"
	"github.com/warp/commission-engine/store/sqlite"
)

func newStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStore_PlanVersioning(t *testing.T) {
	// GIVEN: A plan saved twice under the same ID
	// WHEN: Reading it back
	// THEN: Version is 2, created_at is kept, the JSON is the latest one

	ctx := context.Background()
	s := newStore(t)

	first, err := s.SavePlan(ctx, compensation.PlanRecord{ID: "fy25", Name: "FY25", Plan: json.RawMessage(factory.SamplePlanJSON())})
	require.NoError(t, err)
	assert.Equal(t, 1, first.Version)

	second, err := s.SavePlan(ctx, compensation.PlanRecord{ID: "fy25", Name: "FY25 v2", Plan: json.RawMessage(`{"tiers":[]}`)})
	require.NoError(t, err)
	assert.Equal(t, 2, second.Version)
	assert.Equal(t, "FY25 v2", second.Name)
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))

	got, err := s.GetPlan(ctx, "fy25")
	require.NoError(t, err)
	assert.JSONEq(t, `{"tiers":[]}`, string(got.Plan))

	plans, err := s.ListPlans(ctx)
	require.NoError(t, err)
	assert.Len(t, plans, 1)

	require.NoError(t, s.DeletePlan(ctx, "fy25"))
	_, err = s.GetPlan(ctx, "fy25")
	assert.ErrorIs(t, err, compensation.ErrNotFound)
	assert.ErrorIs(t, s.DeletePlan(ctx, "fy25"), compensation.ErrNotFound)
}

func TestStore_RepresentativesRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	for _, rep := range factory.SampleRepresentatives() {
		require.NoError(t, s.SaveRepresentative(ctx, rep))
	}

	reps, err := s.ListRepresentatives(ctx)
	require.NoError(t, err)
	require.Len(t, reps, 4)
	assert.Equal(t, "rep-001", reps[0].RepID)

	got, err := s.GetRepresentative(ctx, "rep-001")
	require.NoError(t, err)
	assert.Equal(t, "West Coast", got.Territory)
	assert.True(t, got.ProductMix["Enterprise"].Equal(decimal.NewFromInt(800000)))
	require.NotNil(t, got.TeamQuotaAttainment)
	assert.True(t, got.TeamQuotaAttainment.Equal(decimal.RequireFromString("1.04")))

	// Overwrite keeps one row
	got.YTDRevenue = decimal.NewFromInt(1)
	require.NoError(t, s.SaveRepresentative(ctx, got))
	again, err := s.GetRepresentative(ctx, "rep-001")
	require.NoError(t, err)
	assert.True(t, again.YTDRevenue.Equal(decimal.NewFromInt(1)))

	_, err = s.GetRepresentative(ctx, "nobody")
	assert.ErrorIs(t, err, compensation.ErrNotFound)
}

func TestStore_ScenariosOldestFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	scenarios := factory.SampleScenarios()
	// Save in reverse to prove ordering comes from created_at
	for i := len(scenarios) - 1; i >= 0; i-- {
		require.NoError(t, s.SaveScenario(ctx, scenarios[i]))
	}

	got, err := s.ListScenarios(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "current", got[0].ID)
	assert.Equal(t, "senior-focus", got[2].ID)
	assert.Equal(t, []string{"rep-002", "rep-004"}, got[2].AffectedReps)

	push, err := s.GetScenario(ctx, "q4-push")
	require.NoError(t, err)
	require.True(t, push.SPIFPercent.Valid)
	assert.True(t, push.SPIFPercent.Decimal.Equal(decimal.NewFromInt(3)))
	assert.False(t, got[0].AcceleratorRate.Valid)

	require.NoError(t, s.DeleteScenario(ctx, "q4-push"))
	assert.ErrorIs(t, s.DeleteScenario(ctx, "q4-push"), compensation.ErrNotFound)
}

func TestStore_PayoutRunsAppendOnly(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	t0 := time.Date(2025, time.December, 1, 0, 0, 0, 0, time.UTC)
	run := compensation.PayoutRun{
		ID: "run-1", PlanID: "fy25", PlanVersion: 3,
		Total: decimal.RequireFromString("154375.50"), RepCount: 2, FailedCount: 1,
		Breakdowns: []compensation.PayoutBreakdown{{RepID: "rep-001", TotalCommission: decimal.RequireFromString("154375.50")}},
		CreatedAt:  t0,
	}
	require.NoError(t, s.SavePayoutRun(ctx, run))
	require.NoError(t, s.SavePayoutRun(ctx, compensation.PayoutRun{ID: "run-2", PlanID: "other", CreatedAt: t0.Add(time.Hour)}))
	require.NoError(t, s.SavePayoutRun(ctx, compensation.PayoutRun{ID: "run-3", PlanID: "fy25", ScenarioID: "q4-push", CreatedAt: t0.Add(2 * time.Hour)}))

	err := s.SavePayoutRun(ctx, compensation.PayoutRun{ID: "run-1", PlanID: "fy25"})
	assert.ErrorIs(t, err, compensation.ErrDuplicateRecord)

	runs, err := s.ListPayoutRuns(ctx, "fy25")
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-3", runs[0].ID)
	assert.Equal(t, "q4-push", runs[0].ScenarioID)

	first := runs[1]
	assert.Equal(t, 3, first.PlanVersion)
	assert.Equal(t, "154375.5", first.Total.String())
	assert.True(t, first.CreatedAt.Equal(t0))
	require.Len(t, first.Breakdowns, 1)
	assert.True(t, first.Breakdowns[0].TotalCommission.Equal(first.Total))

	all, err := s.ListPayoutRuns(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestStore_Reset(t *testing.T) {
	ctx := context.Background()
	s := newStore(t)

	_, err := s.SavePlan(ctx, compensation.PlanRecord{ID: "p", Name: "P", Plan: json.RawMessage(`{}`)})
	require.NoError(t, err)
	require.NoError(t, s.SaveRepresentative(ctx, compensation.Context{RepID: "r"}))
	require.NoError(t, s.Reset(ctx))

	plans, err := s.ListPlans(ctx)
	require.NoError(t, err)
	assert.Empty(t, plans)
	reps, err := s.ListRepresentatives(ctx)
	require.NoError(t, err)
	assert.Empty(t, reps)
}
