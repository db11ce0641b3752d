package simulate

import (
	"context"
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leakguard-dev/leakguard/pkg/audit"
	"github.com/leakguard-dev/leakguard/pkg/table"
)

func numCol(name string, vals ...float64) table.Column {
	return table.Column{Name: name, Kind: table.Numeric, Floats: vals, Nulls: make([]bool, len(vals))}
}

func dateCol(name string, vals ...string) table.Column {
	return table.Column{Name: name, Kind: table.Datetime, Strings: vals, Nulls: make([]bool, len(vals))}
}

// stepTable builds a dataset whose target flips from 0 to 1 halfway through
// time. A feature that copies the target is trivially separable under a
// shuffled split but gives a time-ordered split nothing to learn from the
// all-zero early folds.
func stepTable(t *testing.T, n int) *table.Table {
	t.Helper()
	y := make([]float64, n)
	x := make([]float64, n)
	ts := make([]string, n)
	for i := 0; i < n; i++ {
		if i >= n/2 {
			y[i] = 1
		}
		x[i] = y[i] + 0.001*float64(i%17)
		ts[i] = fmt.Sprintf("2024-01-01T%02d:%02d:00Z", (i/60)%24, i%60)
	}
	return table.MustNew(numCol("y", y...), numCol("signal", x...), dateCol("event_time", ts...))
}

func TestSimulatorDetectsTemporalLeak(t *testing.T) {
	tbl := stepTable(t, 200)

	res, err := New(nil).Run(context.Background(), tbl, "y", "event_time")
	require.NoError(t, err)

	require.Equal(t, StatusOK, res.Status)
	assert.Equal(t, TaskClassification, res.Task)
	assert.InDelta(t, 1.0, res.MetricKFold, 1e-9, "a shuffled split separates the classes perfectly")
	assert.Less(t, res.MetricTimeSeries, 0.75, "single-class training folds cannot score")
	assert.True(t, res.Leak)
	assert.GreaterOrEqual(t, res.Delta, audit.DefaultConfig().LeakThreshold)
	assert.Equal(t, int64(42), res.Seed)
}

func TestSimulatorIsDeterministic(t *testing.T) {
	tbl := stepTable(t, 200)
	s := New(nil)

	a, err := s.Run(context.Background(), tbl, "y", "event_time")
	require.NoError(t, err)
	b, err := s.Run(context.Background(), tbl, "y", "event_time")
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSimulatorSkipConditions(t *testing.T) {
	small := stepTable(t, 20)
	noTime := table.MustNew(numCol("y", 0, 1, 0, 1), numCol("x", 1, 2, 3, 4))
	cn := 60
	cy := make([]float64, cn)
	cx := make([]float64, cn)
	cts := make([]string, cn)
	for i := 0; i < cn; i++ {
		cx[i] = float64(i)
		cts[i] = fmt.Sprintf("2024-01-01T00:%02d:00Z", i)
	}
	constTarget := table.MustNew(numCol("y", cy...), numCol("x", cx...), dateCol("event_time", cts...))

	tests := []struct {
		name    string
		tbl     *table.Table
		target  string
		timeCol string
		reason  string
	}{
		{"missing target", small, "nope", "event_time", "missing or not numeric"},
		{"no time column", noTime, "y", "", "no time column declared"},
		{"missing time column", noTime, "y", "event_time", "missing"},
		{"too few rows", small, "y", "event_time", "too few usable rows"},
		{"degenerate target", constTarget, "y", "event_time", "degenerate target"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			res, err := New(nil).Run(context.Background(), tc.tbl, tc.target, tc.timeCol)
			require.NoError(t, err)
			assert.Equal(t, StatusSkipped, res.Status)
			assert.Contains(t, res.SkipReason, tc.reason)
		})
	}
}

func TestSimulatorDropsUnparsableTimeRows(t *testing.T) {
	// Corrupt a handful of timestamps; the run must still work on the rest.
	n := 200
	y := make([]float64, n)
	x := make([]float64, n)
	ts := make([]string, n)
	for i := 0; i < n; i++ {
		if i >= n/2 {
			y[i] = 1
		}
		x[i] = y[i] + 0.001*float64(i%17)
		if i%50 == 3 {
			ts[i] = "not-a-date"
		} else {
			ts[i] = fmt.Sprintf("2024-01-01T%02d:%02d:00Z", (i/60)%24, i%60)
		}
	}
	tbl := table.MustNew(numCol("y", y...), numCol("signal", x...), dateCol("event_time", ts...))

	res, err := New(nil).Run(context.Background(), tbl, "y", "event_time")
	require.NoError(t, err)
	assert.Equal(t, StatusOK, res.Status)
	assert.True(t, res.Leak)
}

func TestEnrichSkippedAddsNotice(t *testing.T) {
	s := New(nil)
	risks := s.Enrich(nil, Result{Status: StatusSkipped, SkipReason: "no time column declared"})

	require.Len(t, risks, 1)
	assert.Equal(t, "CV simulation skipped", risks[0].Name)
	assert.Equal(t, audit.SeverityLow, risks[0].Severity)
	assert.Contains(t, risks[0].Message, "no time column declared")
}

func TestEnrichLeakScoreBands(t *testing.T) {
	cfg := audit.DefaultConfig()
	s := New(cfg)

	atThreshold := s.Enrich(nil, Result{Status: StatusOK, Leak: true, Delta: cfg.LeakThreshold, Seed: cfg.Seed})
	require.Len(t, atThreshold, 1)
	assert.Equal(t, audit.SeverityMedium, atThreshold[0].Severity)
	assert.InDelta(t, cfg.MediumScoreThreshold, atThreshold[0].LeakScore, 1e-9)

	atTwice := s.Enrich(nil, Result{Status: StatusOK, Leak: true, Delta: 2 * cfg.LeakThreshold, Seed: cfg.Seed})
	require.Len(t, atTwice, 1)
	assert.Equal(t, audit.SeverityHigh, atTwice[0].Severity)
	assert.InDelta(t, cfg.HighScoreThreshold, atTwice[0].LeakScore, 1e-9)

	quiet := s.Enrich(nil, Result{Status: StatusOK, Leak: false, Delta: 0.001})
	assert.Empty(t, quiet)
}

func TestEnrichRecordsSeedEvidence(t *testing.T) {
	cfg := audit.DefaultConfig()
	risks := New(cfg).Enrich(nil, Result{Status: StatusOK, Leak: true, Delta: 0.05, Seed: cfg.Seed})

	require.Len(t, risks, 1)
	ev := risks[0].Evidence["simulation"]
	assert.Equal(t, float64(cfg.Seed), ev["seed"])
	assert.Equal(t, cfg.LeakThreshold, ev["threshold"])
	assert.InDelta(t, 0.05, ev["delta"], 1e-9)
}

func TestShuffledKFoldPartition(t *testing.T) {
	folds := shuffledKFold(103, 5, 42)
	require.Len(t, folds, 5)

	seen := make(map[int]int)
	for _, f := range folds {
		for _, r := range f.test {
			seen[r]++
		}
		assert.Len(t, f.train, 103-len(f.test))
	}
	require.Len(t, seen, 103, "every row appears in exactly one validation fold")
	for r, c := range seen {
		assert.Equal(t, 1, c, "row %d", r)
	}
}

func TestExpandingTimeSplitNeverLooksAhead(t *testing.T) {
	order := make([]int, 100)
	for i := range order {
		order[i] = i
	}
	folds := expandingTimeSplit(order, 5)
	require.Len(t, folds, 4)

	for _, f := range folds {
		maxTrain := -1
		for _, r := range f.train {
			if r > maxTrain {
				maxTrain = r
			}
		}
		for _, r := range f.test {
			assert.Greater(t, r, maxTrain, "validation rows must be strictly later than training rows")
		}
	}
}

func TestROCAUC(t *testing.T) {
	perfect := rocAUC([]float64{0.1, 0.2, 0.8, 0.9}, []float64{0, 0, 1, 1})
	assert.InDelta(t, 1.0, perfect, 1e-9)

	inverted := rocAUC([]float64{0.9, 0.8, 0.2, 0.1}, []float64{0, 0, 1, 1})
	assert.InDelta(t, 0.0, inverted, 1e-9)

	constant := rocAUC([]float64{0.5, 0.5, 0.5, 0.5}, []float64{0, 1, 0, 1})
	assert.InDelta(t, 0.5, constant, 1e-9, "tied scores average to chance")

	singleClass := rocAUC([]float64{0.1, 0.9}, []float64{1, 1})
	assert.True(t, math.IsNaN(singleClass))
}

func TestRSquared(t *testing.T) {
	exact := rSquared([]float64{1, 2, 3}, []float64{1, 2, 3})
	assert.InDelta(t, 1.0, exact, 1e-9)

	meanOnly := rSquared([]float64{2, 2, 2}, []float64{1, 2, 3})
	assert.InDelta(t, 0.0, meanOnly, 1e-9)

	zeroVar := rSquared([]float64{1, 2}, []float64{5, 5})
	assert.True(t, math.IsNaN(zeroVar))
}

func TestProbeSeparatesLinearSignal(t *testing.T) {
	n := 80
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		y[i] = float64(i % 2)
		x[i] = []float64{y[i]*2 - 1, float64(i % 5)}
	}
	p := fitProbe(x, y, true)

	hi := p.predict([]float64{1, 2})
	lo := p.predict([]float64{-1, 2})
	assert.Greater(t, hi, lo, "the probe must rank positive examples above negative ones")
}
