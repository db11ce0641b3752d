package audit

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leakguard-dev/leakguard/pkg/table"
)

func TestParseTimestampLayouts(t *testing.T) {
	ok := []string{
		"2024-01-02T15:04:05Z",
		"2024-01-02 15:04:05",
		"2024-01-02T15:04:05",
		"2024-01-02",
		"2024/01/02",
		"01/02/2024",
	}
	for _, v := range ok {
		_, parsed := ParseTimestamp(v)
		assert.True(t, parsed, "value %q should parse", v)
	}
	for _, v := range []string{"", "yesterday", "2024-13-40", "42"} {
		_, parsed := ParseTimestamp(v)
		assert.False(t, parsed, "value %q should not parse", v)
	}
}

func TestTimeColumnSortedEvidence(t *testing.T) {
	tbl := table.MustNew(
		numCol("y", 0, 1, 0, 1),
		dateCol("order_date", "2024-01-01", "2024-01-02", "2024-01-03", "2024-01-04"),
	)

	d := &TimeColumnDetector{}
	risks, err := d.Detect(context.Background(), tbl, RunContext{Target: "y", TimeCol: "order_date", Config: DefaultConfig()})
	require.NoError(t, err)
	require.Len(t, risks, 1)

	r := risks[0]
	assert.Equal(t, "Time-awareness evidence", r.Name)
	assert.Equal(t, SeverityLow, r.Severity)
	assert.Equal(t, 1.0, r.Evidence["order_date"]["sorted"])
}

func TestTimeColumnUnsortedEvidence(t *testing.T) {
	tbl := table.MustNew(
		numCol("y", 0, 1, 0),
		dateCol("order_date", "2024-01-03", "2024-01-01", "2024-01-02"),
	)

	d := &TimeColumnDetector{}
	risks, err := d.Detect(context.Background(), tbl, RunContext{Target: "y", TimeCol: "order_date", Config: DefaultConfig()})
	require.NoError(t, err)
	require.Len(t, risks, 1)
	assert.Equal(t, 0.0, risks[0].Evidence["order_date"]["sorted"])
}

func TestTimeColumnUnparsable(t *testing.T) {
	tbl := table.MustNew(
		numCol("y", 0, 1, 0, 1),
		catCol("order_date", "soonish", "n/a", "???", "2024-01-01"),
	)

	d := &TimeColumnDetector{}
	risks, err := d.Detect(context.Background(), tbl, RunContext{Target: "y", TimeCol: "order_date", Config: DefaultConfig()})
	require.NoError(t, err)
	require.Len(t, risks, 2, "expected an unparsable finding plus sorted evidence for the one parsed row")

	r := risks[0]
	assert.Equal(t, "Unparsable time column", r.Name)
	assert.Equal(t, SeverityMedium, r.Severity)
	assert.InDelta(t, 0.75, r.Evidence["order_date"]["parse_fail_rate"], 1e-9)
	// score = 0.5 + 0.5*0.75
	assert.InDelta(t, 0.875, r.LeakScore, 1e-9)
}

func TestTimeColumnFullFailureIsHigh(t *testing.T) {
	tbl := table.MustNew(
		numCol("y", 0, 1),
		catCol("order_date", "nope", "never"),
	)

	d := &TimeColumnDetector{}
	risks, err := d.Detect(context.Background(), tbl, RunContext{Target: "y", TimeCol: "order_date", Config: DefaultConfig()})
	require.NoError(t, err)
	require.Len(t, risks, 1)
	assert.Equal(t, SeverityHigh, risks[0].Severity)
	assert.InDelta(t, 1.0, risks[0].LeakScore, 1e-9)
}

func TestTimeColumnSuggestsUndeclared(t *testing.T) {
	tbl := table.MustNew(
		numCol("y", 0, 1),
		dateCol("created_at", "2024-01-01", "2024-01-02"),
	)

	d := &TimeColumnDetector{}
	risks, err := d.Detect(context.Background(), tbl, RunContext{Target: "y", Config: DefaultConfig()})
	require.NoError(t, err)
	require.Len(t, risks, 1)

	r := risks[0]
	assert.Equal(t, "Undeclared time column", r.Name)
	assert.Equal(t, SeverityLow, r.Severity)
	assert.Contains(t, r.Evidence, "created_at")
}

func TestTimeColumnNoSuggestionWithoutTemporalNames(t *testing.T) {
	tbl := table.MustNew(numCol("y", 0, 1), numCol("amount", 3, 4))

	d := &TimeColumnDetector{}
	risks, err := d.Detect(context.Background(), tbl, RunContext{Target: "y", Config: DefaultConfig()})
	require.NoError(t, err)
	assert.Empty(t, risks)
}
