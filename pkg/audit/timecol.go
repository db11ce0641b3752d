package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/leakguard-dev/leakguard/pkg/table"
)

// timeLayouts are tried in order when parsing time column values.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
	"2006/01/02",
	"01/02/2006",
	time.RFC1123,
}

// ParseTimestamp parses a single cell value as a timestamp, trying the
// supported layouts in order.
func ParseTimestamp(v string) (time.Time, bool) {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// TimeColumnDetector validates a declared time column (parse failures,
// chronological ordering) and suggests declaring one when an undeclared
// column is named like a timestamp.
type TimeColumnDetector struct{}

// ID implements Detector.
func (d *TimeColumnDetector) ID() string { return "time-column" }

// Name implements Detector.
func (d *TimeColumnDetector) Name() string { return "Time column issues" }

// Detect implements Detector.
func (d *TimeColumnDetector) Detect(_ context.Context, tbl *table.Table, rc RunContext) ([]RiskItem, error) {
	cfg := rc.Config
	if rc.TimeCol == "" {
		return d.suggestTimeColumn(tbl, rc), nil
	}

	col, ok := tbl.Column(rc.TimeCol)
	if !ok {
		return nil, fmt.Errorf("time column %q missing", rc.TimeCol)
	}

	var risks []RiskItem
	parsed := make([]time.Time, 0, col.Len())
	failures := 0
	total := 0
	sorted := true
	var prev time.Time
	havePrev := false

	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			continue
		}
		total++
		raw := cellString(col, i)
		ts, ok := ParseTimestamp(raw)
		if !ok {
			failures++
			continue
		}
		if havePrev && ts.Before(prev) {
			sorted = false
		}
		prev, havePrev = ts, true
		parsed = append(parsed, ts)
	}

	if total == 0 {
		return nil, fmt.Errorf("time column %q has no values", rc.TimeCol)
	}
	failRate := float64(failures) / float64(total)

	if failRate > cfg.TimeParseFailThreshold {
		// Scale into the medium/high band: full failure reads as high.
		score := cfg.MediumScoreThreshold + (1-cfg.MediumScoreThreshold)*failRate
		item := NewRiskItem(
			"Unparsable time column",
			CategoryTime,
			score,
			fmt.Sprintf("Time column %q failed to parse for %.1f%% of rows; time-aware validation cannot be trusted.", rc.TimeCol, failRate*100),
			cfg,
		)
		item.Evidence[rc.TimeCol] = Metrics{
			"parse_fail_rate": failRate,
			"failures":        float64(failures),
			"rows":            float64(total),
		}
		risks = append(risks, item)
	}

	if len(parsed) > 0 {
		sortedVal := 0.0
		if sorted {
			sortedVal = 1.0
		}
		item := NewRiskItem(
			"Time-awareness evidence",
			CategoryTime,
			0.1,
			fmt.Sprintf("Time column %q parsed; rows chronologically sorted: %v. Use a time-aware split and keep feature windows historical.", rc.TimeCol, sorted),
			cfg,
		)
		item.Evidence[rc.TimeCol] = Metrics{
			"sorted":          sortedVal,
			"parsed_rows":     float64(len(parsed)),
			"parse_fail_rate": failRate,
		}
		risks = append(risks, item)
	}
	return risks, nil
}

// suggestTimeColumn emits a low-severity advisory when no time column is
// declared but a column name looks temporal.
func (d *TimeColumnDetector) suggestTimeColumn(tbl *table.Table, rc RunContext) []RiskItem {
	for _, name := range tbl.Names() {
		if name == rc.Target {
			continue
		}
		if matchesAny(name, rc.Config.TemporalPatterns) {
			item := NewRiskItem(
				"Undeclared time column",
				CategoryTime,
				0.2,
				fmt.Sprintf("Column %q is named like a timestamp but no time column was declared; declare it to enable time-aware validation.", name),
				rc.Config,
			)
			item.Evidence[name] = Metrics{"name_match": 1}
			return []RiskItem{item}
		}
	}
	return nil
}

func cellString(c *table.Column, i int) string {
	if c.Kind == table.Numeric {
		return fmt.Sprintf("%v", c.Floats[i])
	}
	return c.Strings[i]
}
