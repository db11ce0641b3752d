package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/leakguard-dev/leakguard/pkg/audit"
	"github.com/leakguard-dev/leakguard/pkg/table"
)

// loadCSV reads a CSV file with a header row, sniffing each column as
// numeric, datetime or categorical from its values.
func loadCSV(ctx context.Context, path string, opts Options) (*table.Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.ReuseRecord = false
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(h)
	}

	raw := make([][]string, len(header))
	rows := 0
	bytesRead := 0
	byteCap := opts.MemoryCapMB * 1 << 20
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s row %d: %w", path, rows+2, err)
		}
		for i := range header {
			v := ""
			if i < len(rec) {
				v = strings.TrimSpace(rec[i])
			}
			raw[i] = append(raw[i], v)
			bytesRead += len(v)
		}
		rows++
		if opts.MaxRows > 0 && rows >= opts.MaxRows {
			opts.Logger.Warn("input truncated", "path", path, "max_rows", opts.MaxRows)
			break
		}
		if byteCap > 0 && bytesRead >= byteCap {
			opts.Logger.Warn("input truncated by memory cap", "path", path, "memory_cap_mb", opts.MemoryCapMB, "rows", rows)
			break
		}
	}

	cols := make([]table.Column, len(header))
	for i, name := range header {
		cols[i] = sniffColumn(name, raw[i])
	}
	return table.New(cols...)
}

// sniffColumn types a raw string column: numeric when every non-empty value
// parses as a float, datetime when every non-empty value parses as a
// timestamp, categorical otherwise. Empty cells become nulls.
func sniffColumn(name string, values []string) table.Column {
	numeric := true
	datetime := true
	nonEmpty := 0
	for _, v := range values {
		if v == "" {
			continue
		}
		nonEmpty++
		if numeric {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				numeric = false
			}
		}
		if datetime {
			if _, ok := audit.ParseTimestamp(v); !ok {
				datetime = false
			}
		}
	}
	// A column of plain numbers stays numeric even if the values would
	// also parse as timestamps.
	if numeric {
		datetime = false
	}

	nulls := make([]bool, len(values))
	switch {
	case numeric && nonEmpty > 0:
		floats := make([]float64, len(values))
		for i, v := range values {
			if v == "" {
				nulls[i] = true
				continue
			}
			floats[i], _ = strconv.ParseFloat(v, 64)
		}
		return table.Column{Name: name, Kind: table.Numeric, Floats: floats, Nulls: nulls}
	case datetime && nonEmpty > 0:
		strs := make([]string, len(values))
		copy(strs, values)
		for i, v := range values {
			nulls[i] = v == ""
		}
		return table.Column{Name: name, Kind: table.Datetime, Strings: strs, Nulls: nulls}
	default:
		strs := make([]string, len(values))
		copy(strs, values)
		for i, v := range values {
			nulls[i] = v == ""
		}
		return table.Column{Name: name, Kind: table.Categorical, Strings: strs, Nulls: nulls}
	}
}
