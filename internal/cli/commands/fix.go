package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/leakguard-dev/leakguard/internal/cli/config"
	"github.com/leakguard-dev/leakguard/internal/loader"
	"github.com/leakguard-dev/leakguard/pkg/fix"

	prettytable "github.com/jedib0t/go-pretty/v6/table"
)

// NewFixCommand creates the fix command.
func NewFixCommand(cfgFile *string) *cobra.Command {
	var (
		planPath string
		apply    bool
		outPath  string
		minimal  bool
	)
	cmd := &cobra.Command{
		Use:   "fix",
		Short: "Apply (or preview) a fix plan against a dataset",
		Long: `Load a dataset and a previously generated fix plan, then either preview
what would change (default) or apply the plan and write the fixed dataset.

With --minimal the plan is ignored and only columns named by high-severity
target-leak findings of a fresh audit are dropped.`,
		Example: `  # Preview a plan
  leakguard fix --train train.csv --target y --plan reports/plan.json

  # Apply it and write the cleaned dataset
  leakguard fix --train train.csv --target y --plan reports/plan.json --apply --out fixed.csv`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runFix(cmd, cfg, planPath, apply, minimal, outPath)
		},
	}
	addDataFlags(cmd)
	cmd.Flags().StringVar(&planPath, "plan", "", "path to plan.json")
	cmd.Flags().BoolVar(&apply, "apply", false, "apply the plan instead of previewing")
	cmd.Flags().BoolVar(&minimal, "minimal", false, "drop only high-severity target-leak columns")
	cmd.Flags().StringVar(&outPath, "out-file", "", "path for the fixed dataset CSV")
	return cmd
}

func runFix(cmd *cobra.Command, cfg *config.Config, planPath string, apply, minimal bool, outPath string) error {
	if cfg.Train == "" {
		return fmt.Errorf("--train is required")
	}
	tbl, err := loader.Load(cmd.Context(), cfg.Train, loader.Options{
		Engine:      loader.Engine(cfg.Engine),
		MaxRows:     cfg.MaxRows,
		MemoryCapMB: cfg.Audit.MemoryCapMB,
	})
	if err != nil {
		return fmt.Errorf("load %s: %w", cfg.Train, err)
	}

	var trail []fix.AuditEntry
	fixed := tbl

	switch {
	case minimal:
		res, err := executeAudit(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		var removed []string
		fixed, removed, trail = fix.ApplyMinimal(tbl, res.Risks)
		fmt.Fprintf(cmd.OutOrStdout(), "Minimal fix removed %d columns: %v\n", len(removed), removed)

	case planPath != "":
		plan, err := fix.Load(planPath)
		if err != nil {
			return err
		}
		mode := fix.ModePlanOnly
		if apply {
			mode = fix.ModeApply
		}
		applier := fix.NewApplier()
		fixed, trail = applier.Apply(tbl, plan, mode)

	default:
		return fmt.Errorf("either --plan or --minimal is required")
	}

	renderTrail(cmd, trail)

	if outPath != "" && (apply || minimal) {
		if err := loader.WriteCSV(outPath, fixed); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote fixed dataset to %s (%d cols)\n", outPath, fixed.NumCols())
	}
	return nil
}

func renderTrail(cmd *cobra.Command, trail []fix.AuditEntry) {
	if len(trail) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "Nothing to do.")
		return
	}
	t := prettytable.NewWriter()
	t.SetOutputMirror(cmd.OutOrStdout())
	t.SetStyle(prettytable.StyleLight)
	t.AppendHeader(prettytable.Row{"Action", "Target", "Status", "Note"})
	for _, e := range trail {
		t.AppendRow(prettytable.Row{string(e.Action.Type), e.Action.Target, string(e.Status), e.Note})
	}
	t.Render()
}
