// Package fix derives machine-applicable remediation plans from detected
// risks and applies them to a dataset. Plan synthesis is a pure function of
// the risk sequence and the schema; applying a plan always produces a new
// table plus an audit trail and never mutates the input.
package fix

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/leakguard-dev/leakguard/pkg/audit"
)

// ActionType enumerates the remediation action variants.
type ActionType string

// Action variants.
const (
	ActionDelete          ActionType = "delete"
	ActionRecalculate     ActionType = "recalculate"
	ActionRecommendCV     ActionType = "recommend_cv"
	ActionRecommendGroups ActionType = "recommend_groups"
)

// Action is a single remediation step. Target is a column name for delete /
// recalculate / recommend_groups and a CV strategy name for recommend_cv.
type Action struct {
	Type       ActionType    `json:"type"`
	Target     string        `json:"target"`
	Reason     string        `json:"reason"`
	Confidence float64       `json:"confidence"`
	Evidence   audit.Metrics `json:"evidence,omitempty"`
}

// Plan is an ordered set of remediation actions plus risk summary counts.
// A plan is fully derivable from the risk sequence and the schema alone.
type Plan struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Deletes   []Action  `json:"deletes"`
	Recalcs   []Action  `json:"recalculates"`
	CVRecs    []Action  `json:"cv_recommendations"`
	GroupRecs []Action  `json:"group_recommendations"`
	// SeverityCounts tallies all input risks by severity, independent of
	// how many actions they produced.
	SeverityCounts map[string]int `json:"severity_counts"`
}

// Actions returns every action in application order: deletes, then
// recalculations, then advisories.
func (p *Plan) Actions() []Action {
	out := make([]Action, 0, len(p.Deletes)+len(p.Recalcs)+len(p.CVRecs)+len(p.GroupRecs))
	out = append(out, p.Deletes...)
	out = append(out, p.Recalcs...)
	out = append(out, p.CVRecs...)
	out = append(out, p.GroupRecs...)
	return out
}

// IsEmpty reports whether the plan proposes no actions at all.
func (p *Plan) IsEmpty() bool {
	return len(p.Deletes)+len(p.Recalcs)+len(p.CVRecs)+len(p.GroupRecs) == 0
}

// deleteConfidenceMargin is added to the leak score when deriving delete
// confidence, capped at 1.
const deleteConfidenceMargin = 0.05

// BuildPlan maps the full risk sequence onto a remediation plan. The
// mapping is deterministic: identical risks and schema yield an identical
// plan apart from ID and timestamp.
func BuildPlan(risks []audit.RiskItem, schema []string, cfg *audit.Config) *Plan {
	if cfg == nil {
		cfg = audit.DefaultConfig()
	}
	known := make(map[string]bool, len(schema))
	for _, name := range schema {
		known[name] = true
	}
	plan := &Plan{
		ID:             uuid.NewString(),
		CreatedAt:      time.Now().UTC(),
		SeverityCounts: make(map[string]int, 3),
	}
	seenDelete := make(map[string]bool)
	seenRecalc := make(map[string]bool)

	for _, r := range risks {
		plan.SeverityCounts[r.Severity.String()]++

		switch r.Category {
		case audit.CategoryTargetLeak, audit.CategoryStatLeak:
			cols := evidenceColumns(r, known)
			switch {
			case r.Severity == audit.SeverityHigh:
				conf := math.Min(1, r.LeakScore+deleteConfidenceMargin)
				for _, col := range cols {
					if seenDelete[col] {
						continue
					}
					seenDelete[col] = true
					plan.Deletes = append(plan.Deletes, Action{
						Type:       ActionDelete,
						Target:     col,
						Reason:     r.Message,
						Confidence: conf,
						Evidence:   r.Evidence[col],
					})
				}
			case r.Category == audit.CategoryStatLeak && r.Severity == audit.SeverityMedium:
				// Ambiguous causality: recalculating inside each fold is
				// safer than destroying a possibly legitimate feature.
				conf := math.Max(0.3, r.LeakScore*0.8)
				for _, col := range cols {
					if seenRecalc[col] || seenDelete[col] {
						continue
					}
					seenRecalc[col] = true
					plan.Recalcs = append(plan.Recalcs, Action{
						Type:       ActionRecalculate,
						Target:     col,
						Reason:     r.Message,
						Confidence: conf,
						Evidence:   r.Evidence[col],
					})
				}
			}

		case audit.CategoryCVConsistency:
			recommended := evidenceTag(r, "recommended=")
			if recommended == "" {
				continue
			}
			plan.CVRecs = append(plan.CVRecs, Action{
				Type:       ActionRecommendCV,
				Target:     recommended,
				Reason:     r.Message,
				Confidence: math.Max(0.5, r.LeakScore),
			})

		case audit.CategoryGroup:
			best, ratio := bestGroupColumn(r, known)
			if best == "" {
				continue
			}
			plan.GroupRecs = append(plan.GroupRecs, Action{
				Type:       ActionRecommendGroups,
				Target:     best,
				Reason:     r.Message,
				Confidence: audit.ClampScore(ratio),
				Evidence:   r.Evidence[best],
			})
		}
	}
	return plan
}

// evidenceColumns extracts schema column names from evidence keys in
// deterministic order. Keys of the form "col=value" (categorical purity)
// collapse to their column part.
func evidenceColumns(r audit.RiskItem, known map[string]bool) []string {
	set := make(map[string]bool)
	for key := range r.Evidence {
		col := key
		if i := strings.Index(key, "="); i > 0 {
			col = key[:i]
		}
		if known[col] {
			set[col] = true
		}
	}
	cols := make([]string, 0, len(set))
	for c := range set {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// evidenceTag finds an evidence key with the given prefix and returns the
// remainder, e.g. "recommended=timeseries" -> "timeseries".
func evidenceTag(r audit.RiskItem, prefix string) string {
	for key := range r.Evidence {
		if strings.HasPrefix(key, prefix) {
			return strings.TrimPrefix(key, prefix)
		}
	}
	return ""
}

// bestGroupColumn picks the evidence column with the highest duplicate
// ratio, breaking ties by name.
func bestGroupColumn(r audit.RiskItem, known map[string]bool) (string, float64) {
	best := ""
	ratio := -1.0
	keys := make([]string, 0, len(r.Evidence))
	for key := range r.Evidence {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if !known[key] {
			continue
		}
		dup := r.Evidence[key]["duplicate_ratio"]
		if dup > ratio {
			best, ratio = key, dup
		}
	}
	if best == "" {
		return "", 0
	}
	return best, ratio
}

// Save writes the plan as indented JSON.
func (p *Plan) Save(path string) error {
	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal plan: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write plan: %w", err)
	}
	return nil
}

// Load reads a plan previously written by Save.
func Load(path string) (*Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	var p Plan
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse plan %s: %w", path, err)
	}
	return &p, nil
}
