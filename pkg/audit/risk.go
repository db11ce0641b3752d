package audit

import "math"

// Category classifies a risk item by the kind of leakage it evidences.
type Category string

// Risk categories. The set is closed: detectors must not invent new ones
// because downstream consumers (report, JSON, exit codes) switch on them.
const (
	CategoryTargetLeak    Category = "target-leak"
	CategoryStatLeak      Category = "statistical-leak"
	CategoryTime          Category = "time"
	CategoryGroup         Category = "group"
	CategoryCVConsistency Category = "cv-consistency"
)

// Metrics is a bag of named metric values attached to a risk item as
// evidence for one column or strategy.
type Metrics map[string]float64

// RiskItem is a single detected leakage risk.
type RiskItem struct {
	// Name identifies the finding, e.g. "Target leakage (high correlation)".
	Name string `json:"name"`
	// Category classifies the risk.
	Category Category `json:"category"`
	// Severity is derived from LeakScore via SeverityForScore and must
	// never be set inconsistently with it.
	Severity Severity `json:"severity"`
	// LeakScore quantifies evidence strength, clamped to [0,1].
	LeakScore float64 `json:"leak_score"`
	// Evidence maps column names (or strategy names) to their metrics.
	Evidence map[string]Metrics `json:"evidence,omitempty"`
	// Message is the human-readable explanation, reused verbatim as the
	// reason on derived fix actions.
	Message string `json:"message"`
}

// NewRiskItem builds a risk item with the score clamped to [0,1] and the
// severity derived from the configured thresholds.
func NewRiskItem(name string, cat Category, score float64, msg string, cfg *Config) RiskItem {
	score = ClampScore(score)
	return RiskItem{
		Name:      name,
		Category:  cat,
		Severity:  SeverityForScore(score, cfg),
		LeakScore: score,
		Evidence:  make(map[string]Metrics),
		Message:   msg,
	}
}

// ClampScore bounds a leak score to [0,1]. NaN clamps to zero.
func ClampScore(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// CountBySeverity tallies risk items per severity level.
func CountBySeverity(risks []RiskItem) map[Severity]int {
	counts := make(map[Severity]int, 3)
	for _, r := range risks {
		counts[r.Severity]++
	}
	return counts
}

// HighestSeverity returns the maximum severity present, or SeverityLow and
// false when the slice is empty.
func HighestSeverity(risks []RiskItem) (Severity, bool) {
	if len(risks) == 0 {
		return SeverityLow, false
	}
	max := SeverityLow
	for _, r := range risks {
		if r.Severity > max {
			max = r.Severity
		}
	}
	return max, true
}
