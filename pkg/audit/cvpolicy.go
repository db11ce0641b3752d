package audit

import (
	"context"
	"fmt"

	"github.com/leakguard-dev/leakguard/pkg/table"
)

// Cross-validation strategy names shared with the fix planner and CLI.
const (
	CVKFold      = "kfold"
	CVTimeSeries = "timeseries"
	CVGroup      = "group"
)

// RecommendCV derives the CV strategy the data actually requires, in
// priority order: a usable time column wins, then a group-like column, then
// plain kfold. The second return value is the group column when the
// recommendation is CVGroup.
func RecommendCV(tbl *table.Table, rc RunContext) (string, string) {
	if rc.TimeCol != "" && tbl.HasColumn(rc.TimeCol) {
		return CVTimeSeries, ""
	}
	if len(rc.GroupHints) > 0 && tbl.HasColumn(rc.GroupHints[0]) {
		return CVGroup, rc.GroupHints[0]
	}
	if tbl.Rows() >= rc.Config.MinGroupRows {
		if cands := FindGroupCandidates(tbl, rc); len(cands) > 0 {
			return CVGroup, cands[0].Column
		}
	}
	return CVKFold, ""
}

// CVPolicyDetector compares the declared cross-validation strategy against
// the strategy the data requires and reports a mismatch.
type CVPolicyDetector struct{}

// ID implements Detector.
func (d *CVPolicyDetector) ID() string { return "cv-policy" }

// Name implements Detector.
func (d *CVPolicyDetector) Name() string { return "CV policy consistency" }

// Detect implements Detector.
func (d *CVPolicyDetector) Detect(_ context.Context, tbl *table.Table, rc RunContext) ([]RiskItem, error) {
	recommended, groupCol := RecommendCV(tbl, rc)
	if rc.DeclaredCV == "" || rc.DeclaredCV == recommended {
		return nil, nil
	}

	// Land the score in the medium band: a policy mismatch is actionable
	// but carries no measured leakage by itself.
	score := (rc.Config.MediumScoreThreshold + rc.Config.HighScoreThreshold) / 2
	item := NewRiskItem(
		"CV strategy mismatch",
		CategoryCVConsistency,
		score,
		fmt.Sprintf("Declared CV strategy %q but the data requires %q.", rc.DeclaredCV, recommended),
		rc.Config,
	)
	// Structured evidence keys: the fix planner reads the recommended
	// strategy (and group key) back out of them.
	item.Evidence["declared="+rc.DeclaredCV] = Metrics{}
	item.Evidence["recommended="+recommended] = Metrics{}
	if groupCol != "" {
		item.Evidence["group="+groupCol] = Metrics{"group_key": 1}
	}
	return []RiskItem{item}, nil
}
