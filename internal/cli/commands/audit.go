package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/leakguard-dev/leakguard/internal/cli/config"
	"github.com/leakguard-dev/leakguard/internal/loader"
	"github.com/leakguard-dev/leakguard/internal/report"
	"github.com/leakguard-dev/leakguard/pkg/audit"
	"github.com/leakguard-dev/leakguard/pkg/audit/simulate"
	"github.com/leakguard-dev/leakguard/pkg/fix"
)

// NewAuditCommand creates the audit command.
func NewAuditCommand(cfgFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Audit a training dataset for leakage risk",
		Long: `Run all leakage detectors over a training dataset, optionally run the
CV leak simulation, derive a fix plan and write the results.

Exit codes: 0 no risks, 2 low/medium findings, 3 high-severity findings,
4 configuration error (target or time column absent), 1 internal error.`,
		Example: `  # Basic audit
  leakguard audit --train train.csv --target y

  # Time-aware audit with leak simulation and JSON output to a directory
  leakguard audit --train train.csv --target y --time-col ts --simulate --out reports/

  # Check a declared CV policy
  leakguard audit --train train.csv --target y --cv kfold`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(*cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			return runAudit(cmd, cfg)
		},
	}
	addDataFlags(cmd)
	cmd.Flags().String("cv", "", "declared CV strategy: kfold, timeseries, group")
	cmd.Flags().StringSlice("groups", nil, "declared group key columns")
	cmd.Flags().Bool("simulate", false, "run the kfold-vs-timeseries leak simulation")
	cmd.Flags().String("out", "", "directory to write risks.json, plan.json and the report")
	cmd.Flags().StringP("format", "f", "text", "output format: text, json, sarif")
	cmd.Flags().Int64("seed", 42, "random seed for the simulation")
	cmd.Flags().Float64("leak-threshold", 0.02, "simulation leak threshold")
	return cmd
}

// addDataFlags registers the flags shared by audit, fix and watch.
func addDataFlags(cmd *cobra.Command) {
	cmd.Flags().String("train", "", "path to the training dataset (CSV or Parquet)")
	cmd.Flags().String("target", "", "target column name")
	cmd.Flags().String("time-col", "", "time column name")
	cmd.Flags().String("engine", "", "loader engine: csv, duckdb")
	cmd.Flags().Int("max-rows", 0, "cap on rows read (0 = unlimited)")
}

func runAudit(cmd *cobra.Command, cfg *config.Config) error {
	if cmd.Flags().Changed("seed") {
		cfg.Audit.Seed, _ = cmd.Flags().GetInt64("seed")
	}
	if cmd.Flags().Changed("leak-threshold") {
		cfg.Audit.LeakThreshold, _ = cmd.Flags().GetFloat64("leak-threshold")
	}
	res, err := executeAudit(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	if err := writeAuditOutput(cmd, cfg, res); err != nil {
		return err
	}
	return exitForRisks(res.Risks)
}

// executeAudit runs the full pipeline: load, detect, simulate, plan.
func executeAudit(ctx context.Context, cfg *config.Config) (report.Result, error) {
	if cfg.Train == "" {
		return report.Result{}, fmt.Errorf("--train is required")
	}
	if cfg.Target == "" {
		return report.Result{}, &ExitError{Code: ExitConfig, Msg: "config: target column is required"}
	}

	auditCfg := cfg.Audit

	tbl, err := loader.Load(ctx, cfg.Train, loader.Options{
		Engine:      loader.Engine(cfg.Engine),
		MaxRows:     cfg.MaxRows,
		MemoryCapMB: auditCfg.MemoryCapMB,
		Logger:      slog.Default(),
	})
	if err != nil {
		return report.Result{}, fmt.Errorf("load %s: %w", cfg.Train, err)
	}

	rc := audit.RunContext{
		Target:     cfg.Target,
		TimeCol:    cfg.TimeCol,
		DeclaredCV: cfg.CVType,
		GroupHints: cfg.Groups,
		Config:     auditCfg,
	}
	registry := audit.DefaultRegistry(slog.Default())
	risks, err := registry.Run(ctx, tbl, rc)
	if err != nil {
		var ce *audit.ConfigError
		if errors.As(err, &ce) {
			return report.Result{}, &ExitError{Code: ExitConfig, Msg: ce.Error()}
		}
		return report.Result{}, err
	}

	res := report.Result{
		Risks: risks,
		Meta: report.Meta{
			Train:      cfg.Train,
			Target:     cfg.Target,
			TimeCol:    cfg.TimeCol,
			DeclaredCV: cfg.CVType,
			Rows:       tbl.Rows(),
			Cols:       tbl.NumCols(),
			Seed:       auditCfg.Seed,
			StartedAt:  time.Now().UTC(),
		},
	}

	if cfg.Simulate {
		sim := simulate.New(auditCfg)
		simRes, err := sim.Run(ctx, tbl, cfg.Target, cfg.TimeCol)
		if err != nil {
			return report.Result{}, fmt.Errorf("simulation: %w", err)
		}
		res.Simulation = &simRes
		res.Risks = sim.Enrich(res.Risks, simRes)
	}

	res.Plan = fix.BuildPlan(res.Risks, tbl.Names(), auditCfg)
	return res, nil
}

func writeAuditOutput(cmd *cobra.Command, cfg *config.Config, res report.Result) error {
	switch cfg.Format {
	case "json":
		if err := report.WriteJSON(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	case "sarif":
		if err := report.WriteSARIF(cmd.OutOrStdout(), res, cmd.Root().Version); err != nil {
			return err
		}
	default:
		if err := report.WriteText(cmd.OutOrStdout(), res); err != nil {
			return err
		}
	}

	if cfg.OutDir == "" {
		return nil
	}
	if err := os.MkdirAll(cfg.OutDir, 0o755); err != nil {
		return fmt.Errorf("create out dir: %w", err)
	}
	riskPath := filepath.Join(cfg.OutDir, "risks.json")
	f, err := os.Create(riskPath)
	if err != nil {
		return fmt.Errorf("create %s: %w", riskPath, err)
	}
	defer f.Close()
	if err := report.WriteJSON(f, res); err != nil {
		return fmt.Errorf("write %s: %w", riskPath, err)
	}
	if res.Plan != nil {
		if err := res.Plan.Save(filepath.Join(cfg.OutDir, "plan.json")); err != nil {
			return err
		}
	}
	return nil
}

// exitForRisks converts the severity tally into the exit contract.
func exitForRisks(risks []audit.RiskItem) error {
	highest, any := audit.HighestSeverity(risks)
	switch {
	case !any:
		return nil
	case highest == audit.SeverityHigh:
		return &ExitError{Code: ExitHighRisk, Msg: "high-severity leakage found"}
	default:
		return &ExitError{Code: ExitWarnings, Msg: ""}
	}
}
