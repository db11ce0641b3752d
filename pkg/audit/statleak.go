package audit

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/leakguard-dev/leakguard/pkg/table"
)

// StatLeakDetector is the preview heuristic for statistics computed over the
// full dataset: target encoding, weight-of-evidence and rolling aggregates
// of the target. It combines a near-constant coefficient of variation with
// target correlation, plus naming patterns at lower confidence.
//
// Best-effort by design: non-numeric columns are skipped silently and false
// positives are acceptable.
type StatLeakDetector struct{}

// ID implements Detector.
func (d *StatLeakDetector) ID() string { return "stat-leak" }

// Name implements Detector.
func (d *StatLeakDetector) Name() string { return "Statistical leakage (preview)" }

// Detect implements Detector.
func (d *StatLeakDetector) Detect(_ context.Context, tbl *table.Table, rc RunContext) ([]RiskItem, error) {
	cfg := rc.Config
	var risks []RiskItem

	for _, name := range tbl.Names() {
		if name == rc.Target || name == rc.TimeCol {
			continue
		}
		sum, ok := tbl.Summarize(name, rc.Target)
		if !ok || sum.Kind != table.Numeric {
			continue
		}
		corr := math.Abs(sum.TargetCorr)
		if math.IsNaN(corr) {
			continue
		}

		lowVariation := !math.IsNaN(sum.CoefVariation) && sum.CoefVariation <= cfg.CVariationCutoff
		named := matchesAny(name, cfg.AggregatePatterns)

		switch {
		case lowVariation && corr >= cfg.SecondaryCorrThreshold:
			item := NewRiskItem(
				"Statistical encoding leakage (suspected)",
				CategoryStatLeak,
				corr,
				fmt.Sprintf("Column %q is near-constant relative to scale yet correlates with the target (|corr|=%.3f); it resembles a target encoding or WOE feature computed over the full dataset.", name, corr),
				cfg,
			)
			item.Evidence[name] = Metrics{
				"correlation":       corr,
				"coef_variation":    sum.CoefVariation,
				"secondary_cutoff":  cfg.SecondaryCorrThreshold,
				"cvariation_cutoff": cfg.CVariationCutoff,
			}
			risks = append(risks, item)

		case named && corr >= cfg.SecondaryCorrThreshold:
			// Naming patterns alone are weaker evidence; cap the score at
			// medium so the planner proposes a recalculation, not a delete.
			score := corr
			if score >= cfg.HighScoreThreshold {
				score = cfg.HighScoreThreshold - 0.01
			}
			item := NewRiskItem(
				"Statistical encoding leakage (name heuristic)",
				CategoryStatLeak,
				score,
				fmt.Sprintf("Column %q is named like a target aggregate and correlates with the target (|corr|=%.3f); verify it is computed inside each CV fold only.", name, corr),
				cfg,
			)
			item.Evidence[name] = Metrics{"correlation": corr}
			risks = append(risks, item)
		}
	}
	return risks, nil
}

func matchesAny(name string, patterns []string) bool {
	lower := strings.ToLower(name)
	for _, p := range patterns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}
