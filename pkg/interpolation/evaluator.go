// Package interpolation fits and evaluates RBF interpolants: the evaluators
// apply the kernel operator to a weight vector and the Fitter solves for the
// weights with a domain-decomposition preconditioned Krylov method.
package interpolation

import (
	"fmt"

	"rbfinterp/internal/assembly"
	"rbfinterp/internal/models"
	"rbfinterp/internal/parallel"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/rbf"
)

// Evaluator computes an interpolant's values at a fixed set of field sites
// for changing weights.
type Evaluator interface {
	SetWeights(weights []float64) error
	Evaluate() ([]float64, error)
}

var (
	_ Evaluator = (*DirectEvaluator)(nil)
	_ Evaluator = (*SymmetricEvaluator)(nil)
)

// DirectEvaluator evaluates the interpolant defined on source points and
// gradient points at arbitrary field points and field gradient points.
// Values are laid out as field points, then Dim() partial derivatives per
// field gradient point. The nugget is not part of the interpolant.
type DirectEvaluator struct {
	model   *rbf.Model
	layout  models.Layout
	src     assembly.Sites
	field   assembly.Sites
	weights []float64
	workers int
}

func NewDirectEvaluator(model *rbf.Model, points, gradPoints geometry.Points3D) *DirectEvaluator {
	return &DirectEvaluator{
		model:  model,
		layout: models.NewLayout(model, len(points), len(gradPoints)),
		src:    assembly.Sites{Points: points, GradPoints: gradPoints},
	}
}

// SetWorkers sets the number of goroutines Evaluate uses; values below one
// mean all CPUs.
func (e *DirectEvaluator) SetWorkers(n int) { e.workers = n }

// SetWeights stores a copy of a weight vector of the global layout.
func (e *DirectEvaluator) SetWeights(weights []float64) error {
	if err := e.layout.Check("weights", weights); err != nil {
		return err
	}
	e.weights = append(e.weights[:0], weights...)
	return nil
}

func (e *DirectEvaluator) SetFieldPoints(points geometry.Points3D) {
	e.field.Points = points
}

func (e *DirectEvaluator) SetFieldGradPoints(gradPoints geometry.Points3D) {
	e.field.GradPoints = gradPoints
}

func (e *DirectEvaluator) Evaluate() ([]float64, error) {
	if e.weights == nil {
		return nil, fmt.Errorf("%w: evaluate called before weights were set", rbf.ErrConfiguration)
	}
	m := e.layout.Functionals()
	out := assembly.Apply(e.model, e.field, e.src, e.weights[:m], e.workers)
	assembly.AddPolynomial(e.model, e.field, e.weights[m:], out)
	return out, nil
}

// SymmetricEvaluator evaluates the interpolant at its own source sites. Each
// unordered pair of sites is evaluated once and contributes to both rows.
type SymmetricEvaluator struct {
	model   *rbf.Model
	layout  models.Layout
	sites   assembly.Sites
	weights []float64
	workers int
	acc     [][]float64
}

func NewSymmetricEvaluator(model *rbf.Model, points, gradPoints geometry.Points3D) *SymmetricEvaluator {
	return &SymmetricEvaluator{
		model:  model,
		layout: models.NewLayout(model, len(points), len(gradPoints)),
		sites:  assembly.Sites{Points: points, GradPoints: gradPoints},
	}
}

// SetWorkers sets the number of goroutines Evaluate uses; values below one
// mean all CPUs.
func (e *SymmetricEvaluator) SetWorkers(n int) {
	e.workers = n
	e.acc = nil
}

// SetWeights stores a copy of a weight vector of the global layout.
func (e *SymmetricEvaluator) SetWeights(weights []float64) error {
	if err := e.layout.Check("weights", weights); err != nil {
		return err
	}
	e.weights = append(e.weights[:0], weights...)
	return nil
}

// rowBlock is the number of sites handed to a worker at a time.
const rowBlock = 64

func (e *SymmetricEvaluator) Evaluate() ([]float64, error) {
	if e.weights == nil {
		return nil, fmt.Errorf("%w: evaluate called before weights were set", rbf.ErrConfiguration)
	}
	m := e.layout.Functionals()
	n := e.layout.Mu + e.layout.Sigma
	workers := parallel.Workers(e.workers)
	if e.acc == nil {
		e.acc = make([][]float64, workers)
		for w := range e.acc {
			e.acc[w] = make([]float64, m)
		}
	}
	for _, acc := range e.acc {
		for i := range acc {
			acc[i] = 0
		}
	}

	// Early rows pair with more sites, so rows go out in small blocks.
	blocks := (n + rowBlock - 1) / rowBlock
	_ = parallel.Each(workers, blocks, func(w, b int) error {
		acc := e.acc[w]
		for s := b * rowBlock; s < min((b+1)*rowBlock, n); s++ {
			for t := s; t < n; t++ {
				e.pair(s, t, acc)
			}
		}
		return nil
	})

	out := make([]float64, m)
	for _, acc := range e.acc {
		for i, v := range acc {
			out[i] += v
		}
	}
	assembly.AddPolynomial(e.model, e.sites, e.weights[m:], out)
	return out, nil
}

// pair adds the contributions between sites s ≤ t to acc. Sites below Mu are
// points; the rest are gradient points.
func (e *SymmetricEvaluator) pair(s, t int, acc []float64) {
	mu, dim := e.layout.Mu, e.layout.Dim
	w := e.weights
	switch {
	case t < mu:
		v := e.model.PointPoint(e.sites.Points[s].Sub(e.sites.Points[t]))
		acc[s] += v * w[t]
		if s != t {
			acc[t] += v * w[s]
		}
	case s < mu:
		j := e.layout.GradOffset(t - mu)
		b := e.model.PointGrad(e.sites.Points[s].Sub(e.sites.GradPoints[t-mu]))
		for k := 0; k < dim; k++ {
			acc[s] += b[k] * w[j+k]
			acc[j+k] += b[k] * w[s]
		}
	default:
		i := e.layout.GradOffset(s - mu)
		j := e.layout.GradOffset(t - mu)
		h := e.model.GradGrad(e.sites.GradPoints[s-mu].Sub(e.sites.GradPoints[t-mu]))
		for k := 0; k < dim; k++ {
			for l := 0; l < dim; l++ {
				acc[i+k] += h[k][l] * w[j+l]
				if s != t {
					acc[j+l] += h[k][l] * w[i+k]
				}
			}
		}
	}
}
