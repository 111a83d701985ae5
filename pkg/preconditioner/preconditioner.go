package preconditioner

import (
	"fmt"

	"gonum.org/v1/gonum/mat"

	"rbfinterp/internal/assembly"
	"rbfinterp/internal/models"
	"rbfinterp/internal/parallel"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/rbf"
)

// DomainError reports the local subproblem whose setup or solve failed.
// Domain is the index of the fine domain, or -1 for the coarse level.
type DomainError struct {
	Domain     int
	Points     int
	GradPoints int
	Err        error
}

func (e *DomainError) Error() string {
	where := fmt.Sprintf("domain %d", e.Domain)
	if e.Domain < 0 {
		where = "coarse level"
	}
	return fmt.Sprintf("%s (%d points, %d gradient points): %v", where, e.Points, e.GradPoints, e.Err)
}

func (e *DomainError) Unwrap() error { return e.Err }

func domainError(i int, d *Domain, err error) error {
	return &DomainError{Domain: i, Points: len(d.PointIndices), GradPoints: len(d.GradPointIndices), Err: err}
}

// Options describes the decomposition a Preconditioner is built on.
type Options struct {
	// Fine domains are solved independently and blended.
	Fine []*Domain
	// Coarse is solved first and supplies the polynomial coefficients.
	Coarse *Domain
	// Lagrange is the Lagrange basis evaluated at every point and gradient
	// point; PolyPoints are the point indices it was built on. Both are
	// unused when the model has no polynomial trend.
	Lagrange   *mat.Dense
	PolyPoints []int
	Workers    int
}

// Preconditioner is a two-level Schwarz approximation of the
// inverse of the global saddle-point operator.
//
// Apply first solves the coarse level and removes its contribution from the
// residual. The fine domains are then solved against the updated residual in
// parallel; every weight a fine domain produces is scaled by one over the
// number of fine domains sharing that site. The blended fine correction is
// projected back onto the weights with no polynomial moments, and the
// polynomial coefficients come from the coarse level alone.
type Preconditioner struct {
	model       *rbf.Model
	layout      models.Layout
	all         assembly.Sites
	coarse      *CoarseGrid
	coarseSites assembly.Sites
	fine        []*CoarseGrid
	overlap     []float64
	lagrange    *mat.Dense
	polyPoints  []int
	workers     int
	acc         [][]float64
}

// New sets up every local subproblem, concurrently. A failing subproblem is
// reported as a *DomainError.
func New(model *rbf.Model, points, gradPoints geometry.Points3D, opts Options) (*Preconditioner, error) {
	if opts.Coarse == nil {
		return nil, fmt.Errorf("%w: a coarse domain is required", rbf.ErrConfiguration)
	}
	if err := model.CheckGradientData(len(gradPoints)); err != nil {
		return nil, err
	}
	layout := models.NewLayout(model, len(points), len(gradPoints))
	all := append([]*Domain{opts.Coarse}, opts.Fine...)
	if err := CheckPartition(all, layout.Mu, layout.Sigma); err != nil {
		return nil, err
	}
	if layout.L > 0 && len(opts.PolyPoints) != layout.L {
		return nil, fmt.Errorf("%w: %d polynomial points for %d trend terms", rbf.ErrConfiguration, len(opts.PolyPoints), layout.L)
	}

	p := &Preconditioner{
		model:      model,
		layout:     layout,
		all:        assembly.Sites{Points: points, GradPoints: gradPoints},
		lagrange:   opts.Lagrange,
		polyPoints: opts.PolyPoints,
		workers:    parallel.Workers(opts.Workers),
	}
	grids := make([]*CoarseGrid, len(all))
	for i, d := range all {
		g, err := NewCoarseGrid(model, d)
		if err != nil {
			return nil, domainError(i-1, d, err)
		}
		grids[i] = g
	}
	err := parallel.Each(p.workers, len(grids), func(_, i int) error {
		if err := grids[i].Setup(points, gradPoints, opts.Lagrange); err != nil {
			return domainError(i-1, all[i], err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	p.coarse, p.fine = grids[0], grids[1:]
	p.coarseSites = assembly.Sites{
		Points:     points.Subset(opts.Coarse.PointIndices),
		GradPoints: gradPoints.Subset(opts.Coarse.GradPointIndices),
	}

	p.overlap = make([]float64, layout.Functionals())
	for _, d := range opts.Fine {
		for _, idx := range d.PointIndices {
			p.overlap[idx]++
		}
		for _, idx := range d.GradPointIndices {
			for k := 0; k < layout.Dim; k++ {
				p.overlap[layout.GradOffset(idx)+k]++
			}
		}
	}
	for i, c := range p.overlap {
		if c > 0 {
			p.overlap[i] = 1 / c
		}
	}
	p.acc = make([][]float64, p.workers)
	for w := range p.acc {
		p.acc[w] = make([]float64, layout.Functionals())
	}
	return p, nil
}

// Domains returns the number of fine domains.
func (p *Preconditioner) Domains() int { return len(p.fine) }

// Apply writes the approximate solution of the global system with
// right-hand side r into dst. Only the functional part of r is read. Apply
// must not be called concurrently.
func (p *Preconditioner) Apply(dst, r []float64) error {
	if err := p.layout.Check("preconditioner output", dst); err != nil {
		return err
	}
	if len(r) < p.layout.Functionals() {
		return p.layout.CheckValues("preconditioner input", r)
	}
	m := p.layout.Functionals()
	for i := range dst {
		dst[i] = 0
	}

	rhs := make([]float64, p.coarse.Size())
	p.coarse.gather(r, rhs)
	if err := p.coarse.Solve(rhs); err != nil {
		return domainError(-1, p.coarse.Domain(), err)
	}
	if err := p.coarse.SetSolutionTo(dst); err != nil {
		return err
	}
	if len(p.fine) == 0 {
		return nil
	}

	wc := p.coarse.Weights()
	update := assembly.Apply(p.model, p.all, p.coarseSites, wc, p.workers)
	nugget := p.model.Nugget()
	for i, idx := range p.coarse.Domain().PointIndices {
		update[idx] += nugget * wc[i]
	}
	assembly.AddPolynomial(p.model, p.all, p.coarse.PolyCoefficients(), update)
	residual := make([]float64, m)
	for i := range residual {
		residual[i] = r[i] - update[i]
	}

	for _, acc := range p.acc {
		for i := range acc {
			acc[i] = 0
		}
	}
	err := parallel.Each(p.workers, len(p.fine), func(w, i int) error {
		g := p.fine[i]
		local := make([]float64, g.Size())
		g.gather(residual, local)
		if err := g.Solve(local); err != nil {
			return domainError(i, g.Domain(), err)
		}
		g.accumulate(p.acc[w], p.overlap)
		return nil
	})
	if err != nil {
		return err
	}

	fine := p.acc[0]
	for _, acc := range p.acc[1:] {
		for i, v := range acc {
			fine[i] += v
		}
	}
	p.Project(fine)
	for i, v := range fine {
		dst[i] += v
	}
	return nil
}

// Project removes the polynomial moments of the kernel weights w[:Mu+Dim·Sigma]
// in place by adjusting the weights of the polynomial points, so that
// afterwards Pᵀw = 0. It is a no-op without a polynomial trend.
func (p *Preconditioner) Project(w []float64) {
	if p.layout.L == 0 || p.lagrange == nil {
		return
	}
	m := p.layout.Functionals()
	moments := mat.NewVecDense(p.layout.L, nil)
	moments.MulVec(p.lagrange, mat.NewVecDense(m, w[:m]))
	for a, idx := range p.polyPoints {
		w[idx] -= moments.AtVec(a)
	}
}
