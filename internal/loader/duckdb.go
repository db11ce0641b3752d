package loader

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/marcboeker/go-duckdb" // duckdb driver

	"github.com/leakguard-dev/leakguard/pkg/table"
)

// loadDuckDB reads a CSV or Parquet file through an in-memory DuckDB
// instance, borrowing its type inference instead of sniffing ourselves.
func loadDuckDB(ctx context.Context, path string, opts Options) (*table.Table, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("ping duckdb: %w", err)
	}

	if opts.MemoryCapMB > 0 {
		limit := fmt.Sprintf("SET memory_limit='%dMB'", opts.MemoryCapMB)
		if _, err := db.ExecContext(ctx, limit); err != nil {
			return nil, fmt.Errorf("duckdb memory limit: %w", err)
		}
	}

	reader := "read_csv_auto"
	if strings.HasSuffix(strings.ToLower(path), ".parquet") {
		reader = "read_parquet"
	}
	query := fmt.Sprintf("SELECT * FROM %s(?)", reader)
	if opts.MaxRows > 0 {
		query += fmt.Sprintf(" LIMIT %d", opts.MaxRows)
	}

	rows, err := db.QueryContext(ctx, query, path)
	if err != nil {
		return nil, fmt.Errorf("duckdb query %s: %w", path, err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("duckdb columns: %w", err)
	}

	builders := make([]colBuilder, len(names))
	scan := make([]any, len(names))
	for i := range scan {
		scan[i] = new(any)
	}
	for rows.Next() {
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("duckdb scan: %w", err)
		}
		for i := range names {
			builders[i].add(*(scan[i].(*any)))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("duckdb rows: %w", err)
	}

	cols := make([]table.Column, len(names))
	for i, name := range names {
		cols[i] = builders[i].column(name)
	}
	return table.New(cols...)
}

// colBuilder accumulates driver values for one column and decides its kind
// from what DuckDB returned.
type colBuilder struct {
	floats  []float64
	strings []string
	nulls   []bool
	numeric int
	times   int
	text    int
}

func (b *colBuilder) add(v any) {
	switch x := v.(type) {
	case nil:
		b.floats = append(b.floats, 0)
		b.strings = append(b.strings, "")
		b.nulls = append(b.nulls, true)
		return
	case float64:
		b.floats = append(b.floats, x)
		b.strings = append(b.strings, fmt.Sprintf("%v", x))
		b.numeric++
	case float32:
		b.floats = append(b.floats, float64(x))
		b.strings = append(b.strings, fmt.Sprintf("%v", x))
		b.numeric++
	case int64:
		b.floats = append(b.floats, float64(x))
		b.strings = append(b.strings, fmt.Sprintf("%d", x))
		b.numeric++
	case int32:
		b.floats = append(b.floats, float64(x))
		b.strings = append(b.strings, fmt.Sprintf("%d", x))
		b.numeric++
	case bool:
		f := 0.0
		if x {
			f = 1.0
		}
		b.floats = append(b.floats, f)
		b.strings = append(b.strings, fmt.Sprintf("%v", x))
		b.numeric++
	case time.Time:
		b.floats = append(b.floats, 0)
		b.strings = append(b.strings, x.Format(time.RFC3339))
		b.times++
	case string:
		b.floats = append(b.floats, 0)
		b.strings = append(b.strings, x)
		b.text++
	default:
		b.floats = append(b.floats, 0)
		b.strings = append(b.strings, fmt.Sprintf("%v", x))
		b.text++
	}
	b.nulls = append(b.nulls, false)
}

func (b *colBuilder) column(name string) table.Column {
	switch {
	case b.numeric > 0 && b.times == 0 && b.text == 0:
		return table.Column{Name: name, Kind: table.Numeric, Floats: b.floats, Nulls: b.nulls}
	case b.times > 0 && b.text == 0 && b.numeric == 0:
		return table.Column{Name: name, Kind: table.Datetime, Strings: b.strings, Nulls: b.nulls}
	default:
		return table.Column{Name: name, Kind: table.Categorical, Strings: b.strings, Nulls: b.nulls}
	}
}
