// Package report renders audit results for terminal, JSON and SARIF
// consumers. Risk items are always rendered in emission order; the order is
// part of the core's output contract.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	prettytable "github.com/jedib0t/go-pretty/v6/table"

	"github.com/leakguard-dev/leakguard/pkg/audit"
	"github.com/leakguard-dev/leakguard/pkg/audit/simulate"
	"github.com/leakguard-dev/leakguard/pkg/fix"
)

// Result bundles everything one audit run produced.
type Result struct {
	Risks      []audit.RiskItem `json:"risks"`
	Simulation *simulate.Result `json:"simulation,omitempty"`
	Plan       *fix.Plan        `json:"plan,omitempty"`
	Meta       Meta             `json:"meta"`
}

// Meta describes the audited dataset and run parameters.
type Meta struct {
	Train      string    `json:"train"`
	Target     string    `json:"target"`
	TimeCol    string    `json:"time_col,omitempty"`
	DeclaredCV string    `json:"cv_type,omitempty"`
	Rows       int       `json:"n_rows"`
	Cols       int       `json:"n_cols"`
	Seed       int64     `json:"seed"`
	StartedAt  time.Time `json:"started_at"`
}

// WriteText renders the result as terminal tables.
func WriteText(w io.Writer, res Result) error {
	fmt.Fprintf(w, "Audited %s (%d rows, %d cols), target %q\n\n",
		res.Meta.Train, res.Meta.Rows, res.Meta.Cols, res.Meta.Target)

	if len(res.Risks) == 0 {
		fmt.Fprintln(w, "No leakage risks detected.")
	} else {
		t := prettytable.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(prettytable.StyleLight)
		t.AppendHeader(prettytable.Row{"Severity", "Category", "Score", "Finding", "Detail"})
		for _, r := range res.Risks {
			t.AppendRow(prettytable.Row{
				r.Severity.String(), string(r.Category),
				fmt.Sprintf("%.3f", r.LeakScore), r.Name, r.Message,
			})
		}
		t.Render()
	}

	if sim := res.Simulation; sim != nil {
		fmt.Fprintln(w)
		if sim.Status == simulate.StatusSkipped {
			fmt.Fprintf(w, "CV simulation skipped: %s\n", sim.SkipReason)
		} else {
			fmt.Fprintf(w, "CV simulation (%s, seed %d): kfold=%.4f timeseries=%.4f delta=%.4f leak=%v\n",
				sim.Task, sim.Seed, sim.MetricKFold, sim.MetricTimeSeries, sim.Delta, sim.Leak)
		}
	}

	if plan := res.Plan; plan != nil && !plan.IsEmpty() {
		fmt.Fprintln(w)
		t := prettytable.NewWriter()
		t.SetOutputMirror(w)
		t.SetStyle(prettytable.StyleLight)
		t.AppendHeader(prettytable.Row{"Action", "Target", "Confidence", "Reason"})
		for _, a := range plan.Actions() {
			t.AppendRow(prettytable.Row{
				string(a.Type), a.Target, fmt.Sprintf("%.2f", a.Confidence), a.Reason,
			})
		}
		t.Render()
	}
	return nil
}

// WriteJSON renders the result as indented JSON.
func WriteJSON(w io.Writer, res Result) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
