package loader

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/leakguard-dev/leakguard/pkg/table"
)

// WriteCSV writes a table back out as CSV with a header row. Nulls become
// empty cells.
func WriteCSV(path string, tbl *table.Table) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(tbl.Names()); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	cols := tbl.Columns()
	record := make([]string, len(cols))
	for i := 0; i < tbl.Rows(); i++ {
		for j := range cols {
			c := &cols[j]
			switch {
			case c.IsNull(i):
				record[j] = ""
			case c.Kind == table.Numeric:
				record[j] = strconv.FormatFloat(c.Floats[i], 'g', -1, 64)
			default:
				record[j] = c.Strings[i]
			}
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush %s: %w", path, err)
	}
	return nil
}
