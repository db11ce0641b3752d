package fix

import (
	"fmt"
	"strings"

	"github.com/leakguard-dev/leakguard/pkg/audit"
	"github.com/leakguard-dev/leakguard/pkg/table"
)

// Mode controls whether an Applier mutates the dataset or only records what
// it would do.
type Mode string

// Apply modes.
const (
	ModePlanOnly Mode = "plan-only"
	ModeApply    Mode = "apply"
)

// EntryStatus classifies a single audit-trail entry.
type EntryStatus string

// Audit entry statuses.
const (
	StatusApplied EntryStatus = "applied"
	StatusSkipped EntryStatus = "skipped"
)

// AuditEntry records the disposition of one action during Apply.
type AuditEntry struct {
	Action Action      `json:"action"`
	Status EntryStatus `json:"status"`
	Note   string      `json:"note,omitempty"`
}

// RecalcFunc recomputes a column without full-dataset statistics, returning
// the replacement column. Strategies are looked up by matching their
// registered pattern against the column name.
type RecalcFunc func(tbl *table.Table, column string) (table.Column, error)

type recalcStrategy struct {
	pattern string
	fn      RecalcFunc
}

// Applier applies fix plans to tables.
type Applier struct {
	recalcs []recalcStrategy // matched in registration order
}

// NewApplier creates an applier with no recalculation strategies
// registered; recalculate actions will be recorded as skipped with a
// warning until strategies are added.
func NewApplier() *Applier {
	return &Applier{}
}

// RegisterRecalc registers a recalculation strategy for columns whose name
// contains pattern (case-insensitive). Strategies are tried in registration
// order.
func (a *Applier) RegisterRecalc(pattern string, fn RecalcFunc) {
	a.recalcs = append(a.recalcs, recalcStrategy{pattern: strings.ToLower(pattern), fn: fn})
}

// Apply executes the plan against the table and returns the resulting table
// plus an ordered audit trail. The input table is never modified. Under
// ModePlanOnly every action is recorded but nothing is changed.
//
// Deletes are idempotent: an action naming an absent column is a recorded
// no-op, never an error. Recommendations produce no mutation and surface
// unchanged for downstream consumers.
func (a *Applier) Apply(tbl *table.Table, plan *Plan, mode Mode) (*table.Table, []AuditEntry) {
	out := tbl
	trail := make([]AuditEntry, 0, len(plan.Actions()))

	for _, act := range plan.Actions() {
		switch act.Type {
		case ActionDelete:
			if !out.HasColumn(act.Target) {
				trail = append(trail, AuditEntry{
					Action: act,
					Status: StatusSkipped,
					Note:   fmt.Sprintf("column %q not present", act.Target),
				})
				continue
			}
			if mode == ModePlanOnly {
				trail = append(trail, AuditEntry{
					Action: act,
					Status: StatusSkipped,
					Note:   "plan-only mode",
				})
				continue
			}
			out = out.Drop(act.Target)
			trail = append(trail, AuditEntry{Action: act, Status: StatusApplied})

		case ActionRecalculate:
			trail = append(trail, a.recalculate(&out, act, mode))

		case ActionRecommendCV, ActionRecommendGroups:
			// Advisory only: surfaced, never applied to data.
			trail = append(trail, AuditEntry{
				Action: act,
				Status: StatusApplied,
				Note:   "advisory, no data change",
			})

		default:
			trail = append(trail, AuditEntry{
				Action: act,
				Status: StatusSkipped,
				Note:   fmt.Sprintf("unknown action type %q", act.Type),
			})
		}
	}
	return out, trail
}

// recalculate is best-effort: with no matching strategy the column stays
// untouched and the skip is recorded with a warning. Data is never silently
// dropped.
func (a *Applier) recalculate(out **table.Table, act Action, mode Mode) AuditEntry {
	if !(*out).HasColumn(act.Target) {
		return AuditEntry{
			Action: act,
			Status: StatusSkipped,
			Note:   fmt.Sprintf("column %q not present", act.Target),
		}
	}
	fn, pattern := a.lookupRecalc(act.Target)
	if fn == nil {
		return AuditEntry{
			Action: act,
			Status: StatusSkipped,
			Note:   fmt.Sprintf("no recalculation strategy registered for %q; recompute it inside each CV fold manually", act.Target),
		}
	}
	if mode == ModePlanOnly {
		return AuditEntry{Action: act, Status: StatusSkipped, Note: "plan-only mode"}
	}
	col, err := fn(*out, act.Target)
	if err != nil {
		return AuditEntry{
			Action: act,
			Status: StatusSkipped,
			Note:   fmt.Sprintf("strategy %q failed: %v", pattern, err),
		}
	}
	rebuilt, err := replaceColumn(*out, act.Target, col)
	if err != nil {
		return AuditEntry{
			Action: act,
			Status: StatusSkipped,
			Note:   fmt.Sprintf("replace failed: %v", err),
		}
	}
	*out = rebuilt
	return AuditEntry{Action: act, Status: StatusApplied, Note: "strategy " + pattern}
}

func (a *Applier) lookupRecalc(column string) (RecalcFunc, string) {
	lower := strings.ToLower(column)
	for _, s := range a.recalcs {
		if strings.Contains(lower, s.pattern) {
			return s.fn, s.pattern
		}
	}
	return nil, ""
}

func replaceColumn(tbl *table.Table, name string, col table.Column) (*table.Table, error) {
	col.Name = name
	cols := make([]table.Column, 0, tbl.NumCols())
	for _, c := range tbl.Columns() {
		if c.Name == name {
			cols = append(cols, col)
		} else {
			cols = append(cols, c)
		}
	}
	return table.New(cols...)
}

// ApplyMinimal drops only the columns named by high-severity target-leak
// findings: the smallest change that removes unambiguous leaks. Returns the
// new table, the removed column names and the audit trail.
func ApplyMinimal(tbl *table.Table, risks []audit.RiskItem) (*table.Table, []string, []AuditEntry) {
	known := make(map[string]bool, tbl.NumCols())
	for _, n := range tbl.Names() {
		known[n] = true
	}
	out := tbl
	var removed []string
	var trail []AuditEntry
	for _, r := range risks {
		if r.Category != audit.CategoryTargetLeak || r.Severity != audit.SeverityHigh {
			continue
		}
		for _, col := range evidenceColumns(r, known) {
			act := Action{
				Type:       ActionDelete,
				Target:     col,
				Reason:     r.Message,
				Confidence: r.LeakScore,
			}
			if !out.HasColumn(col) {
				trail = append(trail, AuditEntry{Action: act, Status: StatusSkipped, Note: "already removed"})
				continue
			}
			out = out.Drop(col)
			removed = append(removed, col)
			trail = append(trail, AuditEntry{Action: act, Status: StatusApplied})
		}
	}
	return out, removed, trail
}
