// Package loader reads tabular training data into the audit table model.
// It is a collaborator of the detection core, not part of it: engine choice
// (pure CSV vs DuckDB), type sniffing and row sampling live here so the
// detectors only ever see a typed, rectangular table.
package loader

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/leakguard-dev/leakguard/pkg/table"
)

// Engine selects the loading backend.
type Engine string

// Supported engines.
const (
	// EngineCSV reads files with encoding/csv and sniffs column types.
	EngineCSV Engine = "csv"
	// EngineDuckDB delegates parsing to DuckDB's read_csv_auto /
	// read_parquet, which also enables Parquet inputs.
	EngineDuckDB Engine = "duckdb"
)

// Options configures a load.
type Options struct {
	Engine Engine
	// MaxRows caps the number of data rows read; 0 means unlimited.
	// Oversized inputs are truncated, not sampled randomly, so repeated
	// runs see identical data.
	MaxRows int
	// MemoryCapMB is a soft memory budget. The CSV engine stops reading
	// when the raw cell bytes exceed it; the DuckDB engine forwards it as
	// the instance memory_limit. 0 means unlimited.
	MemoryCapMB int
	Logger      *slog.Logger
}

// Load reads the file at path into a table using the configured engine.
func Load(ctx context.Context, path string, opts Options) (*table.Table, error) {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	engine := opts.Engine
	if engine == "" {
		engine = EngineCSV
		if strings.HasSuffix(strings.ToLower(path), ".parquet") {
			engine = EngineDuckDB
		}
	}
	switch engine {
	case EngineCSV:
		return loadCSV(ctx, path, opts)
	case EngineDuckDB:
		return loadDuckDB(ctx, path, opts)
	default:
		return nil, fmt.Errorf("unknown loader engine %q", engine)
	}
}
