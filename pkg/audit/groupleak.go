package audit

import (
	"context"
	"fmt"
	"sort"

	"github.com/leakguard-dev/leakguard/pkg/table"
)

// GroupCandidate is an identifier-like column with enough duplication to
// warrant GroupKFold. Exposed so CVPolicyDetector and the fix planner can
// reuse the same selection logic.
type GroupCandidate struct {
	Column         string
	Cardinality    int
	DuplicateRatio float64
}

// FindGroupCandidates returns group-key candidates ordered by descending
// duplicate ratio, then name. The target, the time column and primary-key
// columns (duplicate ratio at or below the primary-key cutoff) are excluded.
func FindGroupCandidates(tbl *table.Table, rc RunContext) []GroupCandidate {
	cfg := rc.Config
	var out []GroupCandidate
	for _, name := range tbl.Names() {
		if name == rc.Target || name == rc.TimeCol {
			continue
		}
		sum, ok := tbl.Summarize(name, rc.Target)
		if !ok || sum.Cardinality <= 1 {
			continue
		}
		if sum.DuplicateRatio <= cfg.PrimaryKeyDupRatio {
			// Unique-per-row identifiers are keys, not groups.
			continue
		}
		if sum.DuplicateRatio >= cfg.DupRatioThreshold {
			out = append(out, GroupCandidate{
				Column:         name,
				Cardinality:    sum.Cardinality,
				DuplicateRatio: sum.DuplicateRatio,
			})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DuplicateRatio != out[j].DuplicateRatio {
			return out[i].DuplicateRatio > out[j].DuplicateRatio
		}
		return out[i].Column < out[j].Column
	})
	return out
}

// GroupLeakDetector warns when naive KFold would scatter rows that share an
// identifier across folds, leaking group-level information.
type GroupLeakDetector struct{}

// ID implements Detector.
func (d *GroupLeakDetector) ID() string { return "group-leak" }

// Name implements Detector.
func (d *GroupLeakDetector) Name() string { return "KFold group leakage" }

// Detect implements Detector.
func (d *GroupLeakDetector) Detect(_ context.Context, tbl *table.Table, rc RunContext) ([]RiskItem, error) {
	cfg := rc.Config
	if tbl.Rows() < cfg.MinGroupRows {
		return nil, nil
	}
	candidates := FindGroupCandidates(tbl, rc)
	if len(candidates) == 0 {
		return nil, nil
	}

	// Scale the overshoot past the firing threshold into the medium/high
	// band: a ratio at the cutoff reads as medium, near-total duplication
	// as high.
	frac := (candidates[0].DuplicateRatio - cfg.DupRatioThreshold) / (1 - cfg.DupRatioThreshold)
	score := cfg.MediumScoreThreshold + (1-cfg.MediumScoreThreshold)*frac

	item := NewRiskItem(
		"KFold leakage risk (use GroupKFold)",
		CategoryGroup,
		score,
		fmt.Sprintf("Column %q repeats across %.1f%% of rows; shuffled KFold would place the same group in train and validation. Use GroupKFold keyed on it.",
			candidates[0].Column, candidates[0].DuplicateRatio*100),
		cfg,
	)
	for _, c := range candidates {
		item.Evidence[c.Column] = Metrics{
			"duplicate_ratio": c.DuplicateRatio,
			"cardinality":     float64(c.Cardinality),
		}
	}
	return []RiskItem{item}, nil
}
