// Package audit implements the leakage detection engine: the detector
// registry, the six built-in detectors and the risk model they emit.
//
// Detectors are registered in a fixed order and that order is part of the
// output contract: report and JSON consumers render risk items in emission
// order, so two runs over the same inputs must produce the same sequence.
package audit

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/leakguard-dev/leakguard/internal/executor"
	"github.com/leakguard-dev/leakguard/pkg/table"
)

// RunContext carries the per-run inputs shared by every detector.
type RunContext struct {
	// Target is the label column name. Required.
	Target string
	// TimeCol is the declared time column name. Optional.
	TimeCol string
	// DeclaredCV is the user-declared cross-validation strategy
	// (kfold, timeseries, group). Optional.
	DeclaredCV string
	// GroupHints are user-declared group key columns. Optional.
	GroupHints []string
	// Config holds all thresholds. Never nil inside a detector.
	Config *Config
}

// Detector inspects a table and emits zero or more risk items.
// Implementations must be read-only over the table and deterministic for
// identical inputs.
type Detector interface {
	// ID returns the short unique identifier, e.g. "target-leak".
	ID() string
	// Name returns the human-readable detector name.
	Name() string
	// Detect runs the check. A returned error marks the detector as
	// degraded; it never aborts the surrounding pass.
	Detect(ctx context.Context, tbl *table.Table, rc RunContext) ([]RiskItem, error)
}

// ConfigError reports an invalid run configuration, raised before any
// detector executes. Callers map it to a distinct exit class.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// Registry holds detectors in registration order and runs them over one
// dataset.
type Registry struct {
	detectors []Detector
	logger    *slog.Logger
}

// NewRegistry creates an empty registry. A nil logger disables logging.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Registry{logger: logger}
}

// DefaultRegistry returns a registry with the six built-in detectors in
// their contractual order.
func DefaultRegistry(logger *slog.Logger) *Registry {
	r := NewRegistry(logger)
	r.Register(
		&TargetLeakDetector{},
		&StatLeakDetector{},
		&TimeColumnDetector{},
		&GroupLeakDetector{},
		&CVPolicyDetector{},
	)
	return r
}

// Register appends detectors. Registration order is emission order.
func (r *Registry) Register(ds ...Detector) {
	r.detectors = append(r.detectors, ds...)
}

// Detectors returns the registered detectors in order.
func (r *Registry) Detectors() []Detector {
	return r.detectors
}

// Run validates the run configuration against the table schema and then
// invokes every detector in registration order, concatenating the results.
//
// A detector failure (error or panic) is isolated: it is recorded as a
// low-severity "detector degraded" notice and the remaining detectors still
// run. Schema errors (missing target or time column) fail fast with a
// *ConfigError before any detector runs.
func (r *Registry) Run(ctx context.Context, tbl *table.Table, rc RunContext) ([]RiskItem, error) {
	if rc.Config == nil {
		rc.Config = DefaultConfig()
	}
	if rc.Target == "" {
		return nil, &ConfigError{Field: "target", Msg: "target column is required"}
	}
	if !tbl.HasColumn(rc.Target) {
		return nil, &ConfigError{Field: "target", Msg: fmt.Sprintf("column %q not in schema", rc.Target)}
	}
	if rc.TimeCol != "" && !tbl.HasColumn(rc.TimeCol) {
		return nil, &ConfigError{Field: "time_col", Msg: fmt.Sprintf("column %q not in schema", rc.TimeCol)}
	}

	// Detectors are read-only over the table, so they run concurrently;
	// the executor returns results in registration order, which keeps the
	// emission contract intact. Failures are carried in the result, never
	// as an error, so one degraded detector cannot cancel the others.
	type outcome struct {
		items []RiskItem
		err   error
	}
	outcomes, err := executor.Map(ctx, r.detectors,
		executor.Options{Parallelism: rc.Config.Parallelism},
		func(ctx context.Context, d Detector) (outcome, error) {
			items, err := r.runOne(ctx, d, tbl, rc)
			return outcome{items: items, err: err}, nil
		})
	if err != nil {
		return nil, err
	}

	var risks []RiskItem
	for i, o := range outcomes {
		if o.err != nil {
			d := r.detectors[i]
			r.logger.Warn("detector degraded", "detector", d.ID(), "err", o.err)
			risks = append(risks, degradedNotice(d, o.err, rc.Config))
			continue
		}
		risks = append(risks, o.items...)
	}
	return risks, nil
}

// runOne isolates a single detector invocation, converting panics to errors.
func (r *Registry) runOne(ctx context.Context, d Detector, tbl *table.Table, rc RunContext) (items []RiskItem, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return d.Detect(ctx, tbl, rc)
}

func degradedNotice(d Detector, err error, cfg *Config) RiskItem {
	item := NewRiskItem(
		fmt.Sprintf("Detector degraded (%s)", d.ID()),
		CategoryCVConsistency,
		0,
		fmt.Sprintf("Detector %q failed and was skipped: %v. Remaining detectors still ran.", d.Name(), err),
		cfg,
	)
	item.Category = riskCategoryFor(d)
	return item
}

// riskCategoryFor maps a detector to the category its degraded notice is
// filed under, so consumers can group notices with related findings.
func riskCategoryFor(d Detector) Category {
	switch d.ID() {
	case "target-leak":
		return CategoryTargetLeak
	case "stat-leak":
		return CategoryStatLeak
	case "time-column":
		return CategoryTime
	case "group-leak":
		return CategoryGroup
	default:
		return CategoryCVConsistency
	}
}
