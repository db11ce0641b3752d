package audit

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leakguard-dev/leakguard/pkg/table"
)

// groupTable builds n rows with a customer id repeated across groupSize rows
// and a unique row id.
func groupTable(t *testing.T, n, groupSize int) *table.Table {
	t.Helper()
	y := make([]float64, n)
	rowID := make([]string, n)
	custID := make([]string, n)
	for i := 0; i < n; i++ {
		y[i] = float64(i % 2)
		rowID[i] = fmt.Sprintf("row-%06d", i)
		custID[i] = fmt.Sprintf("cust-%04d", i/groupSize)
	}
	return table.MustNew(
		numCol("y", y...),
		catCol("row_id", rowID...),
		catCol("customer_id", custID...),
	)
}

func TestGroupLeakFlagsRepeatedIdentifier(t *testing.T) {
	// 1200 rows, 60 customers of 20 rows: duplicate ratio 0.95.
	tbl := groupTable(t, 1200, 20)

	d := &GroupLeakDetector{}
	risks, err := d.Detect(context.Background(), tbl, RunContext{Target: "y", Config: DefaultConfig()})
	require.NoError(t, err)
	require.Len(t, risks, 1)

	r := risks[0]
	assert.Equal(t, "KFold leakage risk (use GroupKFold)", r.Name)
	assert.Equal(t, CategoryGroup, r.Category)
	assert.Equal(t, SeverityMedium, r.Severity)
	assert.InDelta(t, 0.75, r.LeakScore, 1e-9)
	assert.Contains(t, r.Evidence, "customer_id")
	assert.NotContains(t, r.Evidence, "row_id", "unique keys are not group candidates")
	assert.Contains(t, r.Message, "customer_id")
}

func TestGroupLeakSeverityScalesWithDuplication(t *testing.T) {
	d := &GroupLeakDetector{}
	rc := RunContext{Target: "y", Config: DefaultConfig()}

	// 1000 rows, 100 customers of 10: duplicate ratio exactly at the 0.90
	// cutoff, the mildest finding that fires.
	risks, err := d.Detect(context.Background(), groupTable(t, 1000, 10), rc)
	require.NoError(t, err)
	require.Len(t, risks, 1)
	assert.Equal(t, SeverityMedium, risks[0].Severity)
	assert.InDelta(t, 0.5, risks[0].LeakScore, 1e-9)

	// 1200 rows, 5 customers of 240: ratio ~0.996, near-total duplication.
	risks, err = d.Detect(context.Background(), groupTable(t, 1200, 240), rc)
	require.NoError(t, err)
	require.Len(t, risks, 1)
	assert.Equal(t, SeverityHigh, risks[0].Severity)
	assert.Greater(t, risks[0].LeakScore, 0.9)
}

func TestGroupLeakSkipsSmallTables(t *testing.T) {
	tbl := groupTable(t, 200, 20)

	d := &GroupLeakDetector{}
	risks, err := d.Detect(context.Background(), tbl, RunContext{Target: "y", Config: DefaultConfig()})
	require.NoError(t, err)
	assert.Empty(t, risks)
}

func TestGroupLeakQuietWithoutDuplication(t *testing.T) {
	// Groups of two rows: duplicate ratio 0.5, below the cutoff.
	tbl := groupTable(t, 1200, 2)

	d := &GroupLeakDetector{}
	risks, err := d.Detect(context.Background(), tbl, RunContext{Target: "y", Config: DefaultConfig()})
	require.NoError(t, err)
	assert.Empty(t, risks)
}

func TestFindGroupCandidatesOrdering(t *testing.T) {
	n := 1200
	y := make([]float64, n)
	store := make([]string, n)
	region := make([]string, n)
	for i := 0; i < n; i++ {
		y[i] = float64(i % 2)
		store[i] = fmt.Sprintf("store-%02d", i/20) // ratio 0.95
		region[i] = fmt.Sprintf("region-%d", i/240) // ratio ~0.996
	}
	tbl := table.MustNew(numCol("y", y...), catCol("store_id", store...), catCol("region", region...))

	cands := FindGroupCandidates(tbl, RunContext{Target: "y", Config: DefaultConfig()})
	require.Len(t, cands, 2)
	assert.Equal(t, "region", cands[0].Column, "higher duplicate ratio sorts first")
	assert.Equal(t, "store_id", cands[1].Column)
	assert.Greater(t, cands[0].DuplicateRatio, cands[1].DuplicateRatio)
}

func TestFindGroupCandidatesExcludesTargetAndTime(t *testing.T) {
	n := 1200
	y := make([]float64, n)
	ts := make([]string, n)
	for i := 0; i < n; i++ {
		y[i] = float64(i % 2)
		ts[i] = fmt.Sprintf("2024-%02d-01", 1+i%12) // heavy duplication
	}
	tbl := table.MustNew(numCol("y", y...), dateCol("month_start", ts...))

	cands := FindGroupCandidates(tbl, RunContext{Target: "y", TimeCol: "month_start", Config: DefaultConfig()})
	assert.Empty(t, cands)
}
