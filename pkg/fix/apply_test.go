package fix

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leakguard-dev/leakguard/pkg/audit"
	"github.com/leakguard-dev/leakguard/pkg/table"
)

func fixtureTable(t *testing.T) *table.Table {
	t.Helper()
	return table.MustNew(
		table.Column{Name: "y", Kind: table.Numeric, Floats: []float64{0, 1, 0, 1}, Nulls: make([]bool, 4)},
		table.Column{Name: "leaky", Kind: table.Numeric, Floats: []float64{0, 1, 0, 1}, Nulls: make([]bool, 4)},
		table.Column{Name: "rolling_mean_y", Kind: table.Numeric, Floats: []float64{0.1, 0.9, 0.1, 0.9}, Nulls: make([]bool, 4)},
		table.Column{Name: "amount", Kind: table.Numeric, Floats: []float64{3, 4, 5, 6}, Nulls: make([]bool, 4)},
	)
}

func fixturePlan() *Plan {
	return &Plan{
		ID: "test-plan",
		Deletes: []Action{
			{Type: ActionDelete, Target: "leaky", Reason: "leaks the target", Confidence: 1},
		},
		Recalcs: []Action{
			{Type: ActionRecalculate, Target: "rolling_mean_y", Reason: "recompute inside folds", Confidence: 0.68},
		},
		CVRecs: []Action{
			{Type: ActionRecommendCV, Target: "timeseries", Confidence: 0.7},
		},
	}
}

func TestApplyDeletesAndAdvises(t *testing.T) {
	tbl := fixtureTable(t)

	out, trail := NewApplier().Apply(tbl, fixturePlan(), ModeApply)

	assert.False(t, out.HasColumn("leaky"))
	assert.True(t, tbl.HasColumn("leaky"), "the input table is never modified")
	assert.True(t, out.HasColumn("amount"))

	require.Len(t, trail, 3)
	assert.Equal(t, StatusApplied, trail[0].Status)

	// No strategy registered: the recalc is recorded, the data untouched.
	assert.Equal(t, StatusSkipped, trail[1].Status)
	assert.Contains(t, trail[1].Note, "no recalculation strategy")
	assert.True(t, out.HasColumn("rolling_mean_y"))

	assert.Equal(t, StatusApplied, trail[2].Status)
	assert.Equal(t, "advisory, no data change", trail[2].Note)
}

func TestApplyPlanOnlyChangesNothing(t *testing.T) {
	tbl := fixtureTable(t)

	out, trail := NewApplier().Apply(tbl, fixturePlan(), ModePlanOnly)

	assert.Same(t, tbl, out)
	require.Len(t, trail, 3)
	assert.Equal(t, StatusSkipped, trail[0].Status)
	assert.Equal(t, "plan-only mode", trail[0].Note)
}

func TestApplyDeleteIsIdempotent(t *testing.T) {
	tbl := fixtureTable(t)
	plan := &Plan{Deletes: []Action{
		{Type: ActionDelete, Target: "leaky"},
		{Type: ActionDelete, Target: "leaky"},
		{Type: ActionDelete, Target: "never_existed"},
	}}

	out, trail := NewApplier().Apply(tbl, plan, ModeApply)

	assert.False(t, out.HasColumn("leaky"))
	require.Len(t, trail, 3)
	assert.Equal(t, StatusApplied, trail[0].Status)
	assert.Equal(t, StatusSkipped, trail[1].Status)
	assert.Contains(t, trail[1].Note, "not present")
	assert.Equal(t, StatusSkipped, trail[2].Status)
}

func TestApplyTwiceEqualsApplyOnce(t *testing.T) {
	tbl := fixtureTable(t)
	plan := fixturePlan()
	a := NewApplier()

	once, _ := a.Apply(tbl, plan, ModeApply)
	twice, trail := a.Apply(once, plan, ModeApply)

	assert.Equal(t, once, twice)
	require.Len(t, trail, 3)
	assert.Equal(t, StatusSkipped, trail[0].Status, "the column is already gone")
	assert.Contains(t, trail[0].Note, "not present")
}

func TestApplyRecalcStrategy(t *testing.T) {
	tbl := fixtureTable(t)
	a := NewApplier()
	a.RegisterRecalc("rolling_", func(tbl *table.Table, column string) (table.Column, error) {
		// Strategies receive the current table and return the replacement.
		n := tbl.Rows()
		return table.Column{
			Kind:   table.Numeric,
			Floats: make([]float64, n),
			Nulls:  make([]bool, n),
		}, nil
	})

	plan := &Plan{Recalcs: []Action{{Type: ActionRecalculate, Target: "rolling_mean_y"}}}
	out, trail := a.Apply(tbl, plan, ModeApply)

	require.Len(t, trail, 1)
	assert.Equal(t, StatusApplied, trail[0].Status)
	col, ok := out.Column("rolling_mean_y")
	require.True(t, ok)
	assert.Equal(t, []float64{0, 0, 0, 0}, col.Floats)
}

func TestApplyRecalcStrategyFailureIsRecorded(t *testing.T) {
	tbl := fixtureTable(t)
	a := NewApplier()
	a.RegisterRecalc("rolling_", func(*table.Table, string) (table.Column, error) {
		return table.Column{}, errors.New("insufficient history")
	})

	plan := &Plan{Recalcs: []Action{{Type: ActionRecalculate, Target: "rolling_mean_y"}}}
	out, trail := a.Apply(tbl, plan, ModeApply)

	require.Len(t, trail, 1)
	assert.Equal(t, StatusSkipped, trail[0].Status)
	assert.Contains(t, trail[0].Note, "insufficient history")
	col, _ := out.Column("rolling_mean_y")
	assert.Equal(t, []float64{0.1, 0.9, 0.1, 0.9}, col.Floats, "a failed strategy leaves the column untouched")
}

func TestApplyMinimalDropsOnlyHighTargetLeaks(t *testing.T) {
	tbl := fixtureTable(t)
	cfg := audit.DefaultConfig()

	high := audit.NewRiskItem("Target leakage (high correlation)", audit.CategoryTargetLeak, 0.99, "leaks", cfg)
	high.Evidence["leaky"] = audit.Metrics{"correlation": 0.99}
	mediumStat := audit.NewRiskItem("Statistical encoding leakage (name heuristic)", audit.CategoryStatLeak, 0.85, "suspect", cfg)
	mediumStat.Evidence["rolling_mean_y"] = audit.Metrics{"correlation": 0.85}

	out, removed, trail := ApplyMinimal(tbl, []audit.RiskItem{high, mediumStat})

	assert.Equal(t, []string{"leaky"}, removed)
	assert.False(t, out.HasColumn("leaky"))
	assert.True(t, out.HasColumn("rolling_mean_y"), "minimal mode never touches medium findings")
	require.Len(t, trail, 1)
	assert.Equal(t, StatusApplied, trail[0].Status)
}
