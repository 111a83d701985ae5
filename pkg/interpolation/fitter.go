package interpolation

import (
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"rbfinterp/internal/assembly"
	"rbfinterp/internal/models"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/krylov"
	"rbfinterp/pkg/polynomial"
	"rbfinterp/pkg/preconditioner"
	"rbfinterp/pkg/rbf"
)

// ConvergenceError is returned by Fit when the iteration cap is reached
// before the residual drops below the tolerance.
type ConvergenceError struct {
	Iterations int
	Residual   float64 // maximum absolute residual of the last iterate
	Tolerance  float64
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("fit did not converge in %d iterations: residual %g exceeds tolerance %g",
		e.Iterations, e.Residual, e.Tolerance)
}

func (e *ConvergenceError) Unwrap() error { return rbf.ErrNumerical }

// Options controls the decomposition and the iteration of a Fitter.
type Options struct {
	DomainSize    int     // sites per fine domain
	Overlap       float64 // borrowed sites per owned site in a fine domain; NoOverlap for none
	CoarseSize    int     // sites on the coarse level
	Restart       int     // Krylov subspace size
	MaxIterations int     // total iteration cap of one Fit
	Workers       int     // goroutines; values below one mean all CPUs
	Verbose       bool
	Progress      ProgressCallback
}

// NoOverlap requests fine domains that do not borrow sites from their
// neighbours. A zero Overlap selects the default.
const NoOverlap = -1.0

// DefaultOptions returns the options used for zero fields of Options.
func DefaultOptions() Options {
	return Options{
		DomainSize:    256,
		Overlap:       0.5,
		CoarseSize:    1024,
		Restart:       50,
		MaxIterations: 500,
	}
}

func (o *Options) setDefaults() {
	d := DefaultOptions()
	if o.DomainSize == 0 {
		o.DomainSize = d.DomainSize
	}
	switch {
	case o.Overlap == 0:
		o.Overlap = d.Overlap
	case o.Overlap < 0:
		o.Overlap = 0
	}
	if o.CoarseSize == 0 {
		o.CoarseSize = d.CoarseSize
	}
	if o.Restart == 0 {
		o.Restart = d.Restart
	}
	if o.MaxIterations == 0 {
		o.MaxIterations = d.MaxIterations
	}
}

// FitStats describes the last Fit.
type FitStats struct {
	Iterations int
	MatVec     int
	PSolve     int
	Resumes    int
	Residual   float64 // maximum absolute residual
	Runtime    time.Duration
}

// Fitter solves for the weights of an RBF interpolant through points and
// gradient points. The local subproblems are set up once by NewFitter and
// reused by every Fit.
type Fitter struct {
	model   *rbf.Model
	layout  models.Layout
	sites   assembly.Sites
	opts    Options
	precond *preconditioner.Preconditioner
	eval    *SymmetricEvaluator
	progress
	stats FitStats
}

// NewFitter selects the polynomial points, decomposes the sites into
// domains and factors every local subproblem. A failing subproblem is
// reported as a *preconditioner.DomainError.
func NewFitter(model *rbf.Model, points, gradPoints geometry.Points3D, opts Options) (*Fitter, error) {
	opts.setDefaults()
	if len(points) == 0 {
		return nil, fmt.Errorf("%w: no points to fit", rbf.ErrConfiguration)
	}
	if err := model.CheckGradientData(len(gradPoints)); err != nil {
		return nil, err
	}
	f := &Fitter{
		model:    model,
		layout:   models.NewLayout(model, len(points), len(gradPoints)),
		sites:    assembly.Sites{Points: points, GradPoints: gradPoints},
		opts:     opts,
		progress: progress{callback: opts.Progress, verbose: opts.Verbose},
	}
	f.reset()

	var (
		lagrange   *mat.Dense
		polyPoints []int
	)
	if f.layout.L > 0 {
		lb, err := polynomial.NewLagrangeBasis(model.Dim(), model.PolyDegree(), points)
		if err != nil {
			return nil, err
		}
		polyPoints = lb.BasisPointIndices()
		if lagrange, err = lb.Evaluate(points, gradPoints); err != nil {
			return nil, err
		}
	}

	coarse, err := preconditioner.CoarseDomain(points, gradPoints, opts.CoarseSize, polyPoints)
	if err != nil {
		return nil, err
	}
	var fine []*preconditioner.Domain
	if len(points)+len(gradPoints) > opts.CoarseSize {
		fine, err = preconditioner.Decompose(points, gradPoints, preconditioner.DecomposeOptions{
			DomainSize: opts.DomainSize,
			Overlap:    opts.Overlap,
			Prefix:     polyPoints,
		})
		if err != nil {
			return nil, err
		}
	}
	f.report(0, 0, fmt.Sprintf("Setting up %d domains and a coarse level of %d sites for %d points and %d gradient points",
		len(fine), len(coarse.PointIndices)+len(coarse.GradPointIndices), len(points), len(gradPoints)))

	f.precond, err = preconditioner.New(model, points, gradPoints, preconditioner.Options{
		Fine:       fine,
		Coarse:     coarse,
		Lagrange:   lagrange,
		PolyPoints: polyPoints,
		Workers:    opts.Workers,
	})
	if err != nil {
		return nil, err
	}
	f.eval = NewSymmetricEvaluator(model, points, gradPoints)
	f.eval.SetWorkers(opts.Workers)
	return f, nil
}

// Stats returns the statistics of the last Fit.
func (f *Fitter) Stats() FitStats { return f.stats }

// apply computes dst = [[K + nugget·I, P], [Pᵀ, 0]]·src.
func (f *Fitter) apply(dst, src []float64) {
	m := f.layout.Functionals()
	if err := f.eval.SetWeights(src); err != nil {
		panic(err)
	}
	kw, err := f.eval.Evaluate()
	if err != nil {
		panic(err)
	}
	copy(dst, kw)
	nugget := f.model.Nugget()
	for i := 0; i < f.layout.Mu; i++ {
		dst[i] += nugget * src[i]
	}
	for i := m; i < len(dst); i++ {
		dst[i] = 0
	}
	assembly.AddPolynomialTranspose(f.model, f.sites, src[:m], dst[m:])
}

// maxResidual returns the largest absolute entry of b - A·x over the
// interpolation conditions.
func (f *Fitter) maxResidual(b, x []float64) float64 {
	r := make([]float64, len(b))
	f.apply(r, x)
	m := f.layout.Functionals()
	floats.Sub(r[:m], b[:m])
	return floats.Norm(r[:m], math.Inf(1))
}

// Fit returns the weight vector (point weights, Dim() weights per gradient
// point, polynomial coefficients) of the interpolant whose values at the
// points and gradients at the gradient points match values to within
// tolerance, up to the nugget term. A non-nil initial guess must have the
// full weight-vector length; its polynomial moments are removed before use.
func (f *Fitter) Fit(values []float64, tolerance float64, initial []float64) ([]float64, error) {
	if err := f.layout.CheckValues("values", values); err != nil {
		return nil, err
	}
	if !(tolerance > 0) {
		return nil, fmt.Errorf("%w: tolerance must be positive, got %g", rbf.ErrConfiguration, tolerance)
	}
	n := f.layout.Size()
	x := make([]float64, n)
	if initial != nil {
		if err := f.layout.Check("initial guess", initial); err != nil {
			return nil, err
		}
		copy(x, initial)
		f.precond.Project(x)
	}
	b := make([]float64, n)
	copy(b, values)

	f.stats = FitStats{}
	start := time.Now()
	f.reset()

	// The Krylov method bounds the residual 2-norm. Starting from the bound
	// that would hold if the residual were spread evenly, the bound is
	// tightened until the largest residual meets the tolerance.
	target := tolerance * math.Sqrt(float64(f.layout.Functionals()))
	for {
		remaining := f.opts.MaxIterations - f.stats.Iterations
		res, err := krylov.FGMRES(f.apply, b, krylov.Settings{
			X0:            x,
			Tolerance:     target,
			MaxIterations: remaining,
			Restart:       f.opts.Restart,
			PSolve:        f.precond.Apply,
		})
		x = res.X
		f.stats.Iterations += res.Stats.Iterations
		f.stats.MatVec += res.Stats.MatVec
		f.stats.PSolve += res.Stats.PSolve
		f.stats.Residual = f.maxResidual(b, x)
		f.stats.Runtime = time.Since(start)
		f.report(f.stats.Iterations, f.opts.MaxIterations,
			fmt.Sprintf("residual %.3g (target %.3g)", f.stats.Residual, tolerance))

		if err != nil && !errors.Is(err, krylov.ErrNotConverged) {
			return nil, err
		}
		if f.stats.Residual <= tolerance {
			f.report(f.opts.MaxIterations, f.opts.MaxIterations,
				fmt.Sprintf("converged in %d iterations", f.stats.Iterations))
			return x, nil
		}
		if err != nil || f.stats.Iterations >= f.opts.MaxIterations {
			return nil, &ConvergenceError{Iterations: f.stats.Iterations, Residual: f.stats.Residual, Tolerance: tolerance}
		}
		target *= 0.5 * tolerance / f.stats.Residual
		f.stats.Resumes++
	}
}
