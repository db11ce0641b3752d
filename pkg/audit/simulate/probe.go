package simulate

import "math"

// probe is a disposable linear model used only to measure leakage. It is
// never a deliverable artifact: weights are discarded after scoring.
type probe struct {
	weights []float64
	bias    float64
	means   []float64
	stds    []float64
	logit   bool
}

const (
	probeEpochs = 200
	probeLR     = 0.1
	probeL2     = 1e-3
)

// fitProbe trains a ridge-regularized linear (or logistic) model with plain
// gradient descent. Features are standardized with train-set statistics so
// the probe itself cannot leak validation information.
func fitProbe(x [][]float64, y []float64, logit bool) *probe {
	n := len(x)
	if n == 0 {
		return &probe{logit: logit}
	}
	d := len(x[0])
	p := &probe{
		weights: make([]float64, d),
		means:   make([]float64, d),
		stds:    make([]float64, d),
		logit:   logit,
	}
	for j := 0; j < d; j++ {
		var sum float64
		for i := 0; i < n; i++ {
			sum += x[i][j]
		}
		p.means[j] = sum / float64(n)
		var ss float64
		for i := 0; i < n; i++ {
			dlt := x[i][j] - p.means[j]
			ss += dlt * dlt
		}
		p.stds[j] = math.Sqrt(ss / float64(n))
		if p.stds[j] == 0 {
			p.stds[j] = 1
		}
	}

	grad := make([]float64, d)
	for epoch := 0; epoch < probeEpochs; epoch++ {
		for j := range grad {
			grad[j] = 0
		}
		var gradB float64
		for i := 0; i < n; i++ {
			pred := p.raw(x[i])
			if logit {
				pred = sigmoid(pred)
			}
			err := pred - y[i]
			for j := 0; j < d; j++ {
				grad[j] += err * p.scaled(x[i], j)
			}
			gradB += err
		}
		inv := 1 / float64(n)
		for j := 0; j < d; j++ {
			p.weights[j] -= probeLR * (grad[j]*inv + probeL2*p.weights[j])
		}
		p.bias -= probeLR * gradB * inv
	}
	return p
}

func (p *probe) scaled(row []float64, j int) float64 {
	return (row[j] - p.means[j]) / p.stds[j]
}

func (p *probe) raw(row []float64) float64 {
	v := p.bias
	for j := range p.weights {
		v += p.weights[j] * p.scaled(row, j)
	}
	return v
}

// predict returns the model score for one row: a probability under logistic
// mode, the raw linear response otherwise.
func (p *probe) predict(row []float64) float64 {
	if len(p.weights) == 0 {
		return 0
	}
	v := p.raw(row)
	if p.logit {
		return sigmoid(v)
	}
	return v
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}
