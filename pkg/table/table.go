// Package table provides the immutable tabular dataset model shared by the
// audit detectors, the CV simulator and the fix applier.
//
// A Table is rectangular: every column carries exactly Rows() values plus a
// null mask. Tables are never mutated in place; operations like Drop return
// a new Table and leave the receiver untouched so that callers can keep the
// original around for audit or undo.
package table

import "fmt"

// Kind identifies the logical type of a column.
type Kind int

// Column kinds.
const (
	// Numeric columns store float64 values.
	Numeric Kind = iota
	// Categorical columns store string values.
	Categorical
	// Datetime columns store raw string values that are expected to parse
	// as timestamps. Parsing is left to consumers so that parse failures
	// can be reported as findings rather than load errors.
	Datetime
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case Numeric:
		return "numeric"
	case Categorical:
		return "categorical"
	case Datetime:
		return "datetime"
	default:
		return "unknown"
	}
}

// Column is a single named, typed column. Exactly one of Floats or Strings
// is populated depending on Kind; Nulls marks missing entries in either.
type Column struct {
	Name    string
	Kind    Kind
	Floats  []float64 // populated when Kind == Numeric
	Strings []string  // populated when Kind == Categorical or Datetime
	Nulls   []bool
}

// Len returns the number of rows in the column including nulls.
func (c *Column) Len() int {
	if c.Kind == Numeric {
		return len(c.Floats)
	}
	return len(c.Strings)
}

// IsNull reports whether row i is missing.
func (c *Column) IsNull(i int) bool {
	return i < len(c.Nulls) && c.Nulls[i]
}

// Table is an immutable rectangular dataset.
type Table struct {
	cols   []Column
	byName map[string]int
	rows   int
}

// New builds a Table from the given columns. All columns must have the same
// length; column names must be unique and non-empty.
func New(cols ...Column) (*Table, error) {
	t := &Table{byName: make(map[string]int, len(cols))}
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d has no name", i)
		}
		if _, dup := t.byName[c.Name]; dup {
			return nil, fmt.Errorf("duplicate column name %q", c.Name)
		}
		if i == 0 {
			t.rows = c.Len()
		} else if c.Len() != t.rows {
			return nil, fmt.Errorf("column %q has %d rows, want %d", c.Name, c.Len(), t.rows)
		}
		t.byName[c.Name] = i
	}
	t.cols = append(t.cols, cols...)
	return t, nil
}

// MustNew is New but panics on error. Intended for tests and fixtures.
func MustNew(cols ...Column) *Table {
	t, err := New(cols...)
	if err != nil {
		panic(err)
	}
	return t
}

// Rows returns the row count.
func (t *Table) Rows() int { return t.rows }

// NumCols returns the column count.
func (t *Table) NumCols() int { return len(t.cols) }

// Names returns the column names in declaration order.
func (t *Table) Names() []string {
	names := make([]string, len(t.cols))
	for i, c := range t.cols {
		names[i] = c.Name
	}
	return names
}

// HasColumn reports whether a column with the given name exists.
func (t *Table) HasColumn(name string) bool {
	_, ok := t.byName[name]
	return ok
}

// Column returns the named column. The returned pointer references the
// table's internal storage and must be treated as read-only.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.byName[name]
	if !ok {
		return nil, false
	}
	return &t.cols[i], true
}

// Columns returns all columns in declaration order, read-only.
func (t *Table) Columns() []Column {
	return t.cols
}

// Drop returns a new Table without the named columns. Names that do not
// exist are ignored; the receiver is never modified.
func (t *Table) Drop(names ...string) *Table {
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	kept := make([]Column, 0, len(t.cols))
	for _, c := range t.cols {
		if !drop[c.Name] {
			kept = append(kept, c)
		}
	}
	out, err := New(kept...)
	if err != nil {
		// Unreachable: kept columns come from a valid table.
		panic(err)
	}
	return out
}
