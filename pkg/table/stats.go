package table

import "math"

// Summary holds per-column derived statistics used by the audit detectors.
// Summaries are computed on demand and never cached on the Table.
type Summary struct {
	Name           string
	Kind           Kind
	NullRatio      float64
	Cardinality    int
	DuplicateRatio float64 // 1 - unique/rows, over non-null values
	CoefVariation  float64 // std/|mean|, NaN when mean is zero or column is non-numeric
	TargetCorr     float64 // Pearson correlation with the target, NaN when undefined
}

// Summarize computes the summary statistics for the named column. The target
// column is used for correlation and may be empty, in which case TargetCorr
// is NaN.
func (t *Table) Summarize(name, target string) (Summary, bool) {
	col, ok := t.Column(name)
	if !ok {
		return Summary{}, false
	}
	s := Summary{
		Name:          name,
		Kind:          col.Kind,
		CoefVariation: math.NaN(),
		TargetCorr:    math.NaN(),
	}

	nulls := 0
	seen := make(map[string]struct{})
	for i := 0; i < col.Len(); i++ {
		if col.IsNull(i) {
			nulls++
			continue
		}
		seen[cellKey(col, i)] = struct{}{}
	}
	if col.Len() > 0 {
		s.NullRatio = float64(nulls) / float64(col.Len())
	}
	s.Cardinality = len(seen)
	if valid := col.Len() - nulls; valid > 0 {
		s.DuplicateRatio = 1 - float64(len(seen))/float64(valid)
	}

	if col.Kind == Numeric {
		mean, std := meanStd(col.Floats, col.Nulls)
		if mean != 0 && !math.IsNaN(std) {
			s.CoefVariation = std / math.Abs(mean)
		}
		if tcol, ok := t.Column(target); ok && tcol.Kind == Numeric && target != name {
			s.TargetCorr = pearson(col.Floats, tcol.Floats, col.Nulls, tcol.Nulls)
		}
	}
	return s, true
}

func cellKey(c *Column, i int) string {
	if c.Kind == Numeric {
		return formatFloatKey(c.Floats[i])
	}
	return c.Strings[i]
}

func formatFloatKey(v float64) string {
	// Bit-exact keying; avoids strconv formatting ambiguity for NaN/±0.
	b := math.Float64bits(v)
	buf := make([]byte, 8)
	for i := 0; i < 8; i++ {
		buf[i] = byte(b >> (8 * i))
	}
	return string(buf)
}

func meanStd(vals []float64, nulls []bool) (mean, std float64) {
	n := 0
	for i, v := range vals {
		if i < len(nulls) && nulls[i] {
			continue
		}
		mean += v
		n++
	}
	if n == 0 {
		return math.NaN(), math.NaN()
	}
	mean /= float64(n)
	var ss float64
	for i, v := range vals {
		if i < len(nulls) && nulls[i] {
			continue
		}
		d := v - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(n))
}

// pearson computes the Pearson correlation over rows where neither value is
// null. Returns NaN when either side has zero variance or fewer than two
// usable rows remain.
func pearson(x, y []float64, xn, yn []bool) float64 {
	n := len(x)
	if len(y) < n {
		n = len(y)
	}
	var sx, sy float64
	count := 0
	for i := 0; i < n; i++ {
		if (i < len(xn) && xn[i]) || (i < len(yn) && yn[i]) {
			continue
		}
		sx += x[i]
		sy += y[i]
		count++
	}
	if count < 2 {
		return math.NaN()
	}
	mx := sx / float64(count)
	my := sy / float64(count)
	var cov, vx, vy float64
	for i := 0; i < n; i++ {
		if (i < len(xn) && xn[i]) || (i < len(yn) && yn[i]) {
			continue
		}
		dx := x[i] - mx
		dy := y[i] - my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}
