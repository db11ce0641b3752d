package audit

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/leakguard-dev/leakguard/pkg/table"
)

// TargetLeakDetector flags features that directly encode the target: numeric
// columns with near-perfect correlation and categorical columns whose values
// almost perfectly determine the target class.
type TargetLeakDetector struct{}

// ID implements Detector.
func (d *TargetLeakDetector) ID() string { return "target-leak" }

// Name implements Detector.
func (d *TargetLeakDetector) Name() string { return "Target leakage" }

// Detect implements Detector.
func (d *TargetLeakDetector) Detect(_ context.Context, tbl *table.Table, rc RunContext) ([]RiskItem, error) {
	target, ok := tbl.Column(rc.Target)
	if !ok {
		return nil, fmt.Errorf("target column %q missing", rc.Target)
	}
	if target.Kind != table.Numeric {
		return nil, fmt.Errorf("target column %q is not numeric", rc.Target)
	}

	var risks []RiskItem
	if item, ok := d.checkNumeric(tbl, rc); ok {
		risks = append(risks, item)
	}
	if item, ok := d.checkCategorical(tbl, target, rc); ok {
		risks = append(risks, item)
	}
	return risks, nil
}

// checkNumeric flags numeric features whose |corr| or single-feature R²
// reaches the configured threshold.
func (d *TargetLeakDetector) checkNumeric(tbl *table.Table, rc RunContext) (RiskItem, bool) {
	cfg := rc.Config
	type hit struct {
		col   string
		score float64
	}
	var hits []hit
	for _, name := range tbl.Names() {
		if name == rc.Target || name == rc.TimeCol {
			continue
		}
		sum, ok := tbl.Summarize(name, rc.Target)
		if !ok || sum.Kind != table.Numeric {
			continue
		}
		if sum.Cardinality <= 1 || sum.NullRatio > cfg.MaxMissingRatio {
			// Constant or mostly-missing columns are degenerate, not risky.
			continue
		}
		corr := math.Abs(sum.TargetCorr)
		if math.IsNaN(corr) {
			continue
		}
		// For a single-feature least-squares fit R² equals corr², so one
		// statistic covers both the regression and classification framing.
		r2 := corr * corr
		score := corr
		if r2 > score {
			score = r2
		}
		if score >= cfg.CorrThreshold {
			hits = append(hits, hit{col: name, score: score})
		}
	}
	if len(hits) == 0 {
		return RiskItem{}, false
	}
	sort.Slice(hits, func(i, j int) bool { return hits[i].col < hits[j].col })

	top := 0.0
	cols := make([]string, 0, len(hits))
	item := NewRiskItem(
		"Target leakage (high correlation)",
		CategoryTargetLeak,
		0,
		"",
		cfg,
	)
	for _, h := range hits {
		cols = append(cols, h.col)
		item.Evidence[h.col] = Metrics{"correlation": h.score}
		if h.score > top {
			top = h.score
		}
	}
	item.LeakScore = ClampScore(top)
	item.Severity = SeverityForScore(item.LeakScore, cfg)
	item.Message = fmt.Sprintf(
		"Columns [%s] correlate with target %q at |corr| or R² >= %.2f and likely leak it.",
		strings.Join(cols, ", "), rc.Target, cfg.CorrThreshold,
	)
	return item, true
}

// checkCategorical flags low-cardinality categorical features where a large
// share of rows fall into categories that almost perfectly determine the
// majority target class.
func (d *TargetLeakDetector) checkCategorical(tbl *table.Table, target *table.Column, rc RunContext) (RiskItem, bool) {
	cfg := rc.Config
	rows := tbl.Rows()
	maxCard := cfg.PurityMinGroup / 2
	if c := rows / 100; c > maxCard {
		maxCard = c
	}
	if maxCard < 10 {
		maxCard = 10
	}

	item := NewRiskItem("Target leakage (categorical purity)", CategoryTargetLeak, 0, "", cfg)
	var pureRows int
	var puritySum, purityWeight float64
	var flagged []string

	for _, name := range tbl.Names() {
		if name == rc.Target || name == rc.TimeCol {
			continue
		}
		col, _ := tbl.Column(name)
		if col.Kind != table.Categorical {
			continue
		}
		sums := make(map[string]float64)
		counts := make(map[string]int)
		for i := 0; i < rows; i++ {
			if col.IsNull(i) || target.IsNull(i) {
				continue
			}
			v := col.Strings[i]
			sums[v] += target.Floats[i]
			counts[v]++
		}
		if len(counts) <= 1 || len(counts) >= maxCard {
			continue
		}
		colPure := 0
		for v, n := range counts {
			if n < cfg.PurityMinGroup {
				continue
			}
			p := sums[v] / float64(n)
			if p <= cfg.PurityEpsilon || p >= 1-cfg.PurityEpsilon {
				purity := math.Max(p, 1-p)
				puritySum += purity * float64(n)
				purityWeight += float64(n)
				colPure += n
				item.Evidence[name+"="+v] = Metrics{"p": p, "n": float64(n)}
			}
		}
		if colPure > 0 {
			pureRows += colPure
			flagged = append(flagged, name)
		}
	}

	if rows == 0 || float64(pureRows)/float64(rows) < cfg.PurityMinShare || purityWeight == 0 {
		return RiskItem{}, false
	}
	sort.Strings(flagged)
	item.LeakScore = ClampScore(puritySum / purityWeight)
	item.Severity = SeverityForScore(item.LeakScore, cfg)
	item.Message = fmt.Sprintf(
		"Categories in [%s] determine target %q almost perfectly; if derived from aggregates they leak.",
		strings.Join(flagged, ", "), rc.Target,
	)
	return item, true
}
