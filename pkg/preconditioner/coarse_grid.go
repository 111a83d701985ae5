package preconditioner

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"

	"rbfinterp/internal/assembly"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/polynomial"
	"rbfinterp/pkg/rbf"
)

// lagrangeTol bounds how far the Lagrange evaluation at the leading domain
// points may be from the identity.
const lagrangeTol = 1e-8

// CoarseGrid holds the factored local system of one Domain.
//
// With a polynomial trend of l terms, the first l point indices of the
// Domain must be the points the Lagrange basis was built from. The local
// weights w are then written as w = Q·γ with Q = [-E; I], E being the
// Lagrange basis evaluated at the remaining local sites, so that w has no
// polynomial component. γ solves the symmetric positive definite system
// QᵀAQ·γ = Qᵀd, and the trend coefficients are recovered from the rows of
// the basis points.
type CoarseGrid struct {
	model  *rbf.Model
	domain *Domain
	dim    int
	l      int
	m      int // local unknowns

	mu, sigma int // global sizes seen at Setup

	chol    mat.Cholesky
	me      *mat.Dense // -E, l × (m-l)
	aTop    *mat.Dense // first l rows of A, l × m
	pTop    mat.LU     // monomials at the basis points, l × l
	reduced bool       // false when m == l and γ is empty

	weights []float64
	poly    []float64
	ready   bool
}

// NewCoarseGrid takes ownership of domain. Index ranges are checked by Setup.
func NewCoarseGrid(model *rbf.Model, domain *Domain) (*CoarseGrid, error) {
	if domain == nil || len(domain.PointIndices)+len(domain.GradPointIndices) == 0 {
		return nil, fmt.Errorf("%w: empty domain", rbf.ErrConfiguration)
	}
	if err := domain.Validate(math.MaxInt, math.MaxInt); err != nil {
		return nil, err
	}
	cg := &CoarseGrid{
		model:  model,
		domain: domain,
		dim:    model.Dim(),
		l:      model.PolyBasisSize(),
		m:      domain.Size(model.Dim()),
	}
	if len(domain.PointIndices) < cg.l {
		return nil, fmt.Errorf("%w: domain has %d points, the polynomial trend needs %d",
			rbf.ErrConfiguration, len(domain.PointIndices), cg.l)
	}
	return cg, nil
}

func (cg *CoarseGrid) Domain() *Domain { return cg.domain }

// Size is the number of local unknowns.
func (cg *CoarseGrid) Size() int { return cg.m }

// Weights returns the local weights of the last Solve, laid out as the
// Domain's points then Dim() entries per gradient point.
func (cg *CoarseGrid) Weights() []float64 { return cg.weights }

// PolyCoefficients returns the trend coefficients of the last Solve.
func (cg *CoarseGrid) PolyCoefficients() []float64 { return cg.poly }

// Setup assembles and factors the local system. lagrange is the Lagrange
// basis evaluated at all global points and gradient points (as returned by
// polynomial.LagrangeBasis.Evaluate); it is ignored when the model has no
// polynomial trend.
func (cg *CoarseGrid) Setup(points, gradPoints geometry.Points3D, lagrange *mat.Dense) error {
	if err := cg.domain.Validate(len(points), len(gradPoints)); err != nil {
		return err
	}
	cg.mu, cg.sigma = len(points), len(gradPoints)
	sites := assembly.Sites{
		Points:     points.Subset(cg.domain.PointIndices),
		GradPoints: gradPoints.Subset(cg.domain.GradPointIndices),
	}
	a := assembly.Matrix(cg.model, sites)

	if cg.l == 0 {
		if ok := cg.chol.Factorize(a); !ok {
			return fmt.Errorf("%w: local matrix of %d unknowns is not positive definite", rbf.ErrNumerical, cg.m)
		}
		if err := checkCond("local matrix", cg.chol.Cond()); err != nil {
			return err
		}
		cg.reduced = true
		cg.ready = true
		return nil
	}

	e, err := cg.localLagrange(lagrange)
	if err != nil {
		return err
	}
	l, m := cg.l, cg.m
	ad := mat.DenseCopyOf(a)
	cg.aTop = mat.DenseCopyOf(ad.Slice(0, l, 0, m))

	mono := polynomial.NewMonomialBasis(cg.dim, cg.model.PolyDegree())
	p := mat.NewDense(l, l, nil)
	row := make([]float64, l)
	for i := 0; i < l; i++ {
		mono.Values(sites.Points[i], row)
		p.SetRow(i, row)
	}
	cg.pTop.Factorize(p)
	if cond := cg.pTop.Cond(); !(cond <= mat.ConditionTolerance) {
		return fmt.Errorf("%w: leading domain points do not determine the polynomial trend (condition number %g)", rbf.ErrConfiguration, cond)
	}

	if m == l {
		cg.reduced = false
		cg.ready = true
		return nil
	}

	cg.me = mat.NewDense(l, m-l, nil)
	cg.me.Scale(-1, e.Slice(0, l, l, m))

	// QᵀAQ = meᵀ·A11·me + meᵀ·A12 + A21·me + A22.
	a11 := ad.Slice(0, l, 0, l)
	a12 := ad.Slice(0, l, l, m)
	a22 := ad.Slice(l, m, l, m)
	var t, q, cross mat.Dense
	t.Mul(a11, cg.me)
	q.Mul(cg.me.T(), &t)
	cross.Mul(cg.me.T(), a12)
	q.Add(&q, &cross)
	q.Add(&q, cross.T())
	q.Add(&q, a22)

	n := m - l
	qtaq := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			qtaq.SetSym(i, j, 0.5*(q.At(i, j)+q.At(j, i)))
		}
	}
	if ok := cg.chol.Factorize(qtaq); !ok {
		return fmt.Errorf("%w: reduced local matrix of %d unknowns is not positive definite", rbf.ErrNumerical, n)
	}
	if err := checkCond("reduced local matrix", cg.chol.Cond()); err != nil {
		return err
	}
	cg.reduced = true
	cg.ready = true
	return nil
}

// checkCond rejects factorizations whose solves gonum would refuse.
func checkCond(what string, cond float64) error {
	if !(cond <= mat.ConditionTolerance) {
		return fmt.Errorf("%w: %s is singular or near-singular, condition number %g", rbf.ErrNumerical, what, cond)
	}
	return nil
}

// localLagrange gathers the columns of the global Lagrange evaluation that
// belong to this Domain's sites and checks that the leading l columns are
// the identity.
func (cg *CoarseGrid) localLagrange(lagrange *mat.Dense) (*mat.Dense, error) {
	if lagrange == nil {
		return nil, fmt.Errorf("%w: polynomial degree %d needs a Lagrange basis evaluation", rbf.ErrConfiguration, cg.model.PolyDegree())
	}
	r, c := lagrange.Dims()
	if want := cg.mu + cg.dim*cg.sigma; r != cg.l || c != want {
		return nil, fmt.Errorf("%w: Lagrange evaluation is %d×%d, expected %d×%d", rbf.ErrConfiguration, r, c, cg.l, want)
	}
	e := mat.NewDense(cg.l, cg.m, nil)
	col := 0
	for _, idx := range cg.domain.PointIndices {
		for a := 0; a < cg.l; a++ {
			e.Set(a, col, lagrange.At(a, idx))
		}
		col++
	}
	for _, idx := range cg.domain.GradPointIndices {
		for k := 0; k < cg.dim; k++ {
			for a := 0; a < cg.l; a++ {
				e.Set(a, col, lagrange.At(a, cg.mu+cg.dim*idx+k))
			}
			col++
		}
	}
	for a := 0; a < cg.l; a++ {
		for b := 0; b < cg.l; b++ {
			want := 0.0
			if a == b {
				want = 1
			}
			if math.Abs(e.At(a, b)-want) > lagrangeTol {
				return nil, fmt.Errorf("%w: the first %d domain points are not the Lagrange basis points", rbf.ErrConfiguration, cg.l)
			}
		}
	}
	return e, nil
}

// Solve computes the local weights and trend coefficients for rhs, which is
// laid out like the local unknowns. Different CoarseGrids may be solved
// concurrently; one CoarseGrid must not be.
func (cg *CoarseGrid) Solve(rhs []float64) error {
	if !cg.ready {
		return fmt.Errorf("%w: coarse grid solved before setup", rbf.ErrConfiguration)
	}
	if len(rhs) != cg.m {
		return fmt.Errorf("%w: right-hand side has length %d, expected %d", rbf.ErrConfiguration, len(rhs), cg.m)
	}
	if cg.weights == nil {
		cg.weights = make([]float64, cg.m)
		cg.poly = make([]float64, cg.l)
	}
	l, m := cg.l, cg.m

	if l == 0 {
		x := mat.NewVecDense(m, cg.weights)
		if err := cg.chol.SolveVecTo(x, mat.NewVecDense(m, rhs)); err != nil {
			return fmt.Errorf("%w: local solve: %v", rbf.ErrNumerical, err)
		}
		return nil
	}

	head := mat.NewVecDense(l, rhs[:l])
	w := mat.NewVecDense(m, cg.weights)
	if cg.reduced {
		qtd := mat.NewVecDense(m-l, nil)
		qtd.MulVec(cg.me.T(), head)
		qtd.AddVec(qtd, mat.NewVecDense(m-l, rhs[l:]))

		gamma := mat.NewVecDense(m-l, cg.weights[l:])
		if err := cg.chol.SolveVecTo(gamma, qtd); err != nil {
			return fmt.Errorf("%w: local solve: %v", rbf.ErrNumerical, err)
		}
		top := mat.NewVecDense(l, cg.weights[:l])
		top.MulVec(cg.me, gamma)
	} else {
		w.Zero()
	}

	// The trend matches what the kernel part leaves at the basis points.
	resid := mat.NewVecDense(l, nil)
	resid.MulVec(cg.aTop, w)
	resid.SubVec(head, resid)
	if err := cg.pTop.SolveVecTo(mat.NewVecDense(l, cg.poly), false, resid); err != nil {
		return fmt.Errorf("%w: trend coefficients: %v", rbf.ErrNumerical, err)
	}
	return nil
}

// SetSolutionTo writes the local weights into their global positions and the
// trend coefficients into the trailing l entries of weights. It places
// values; it does not accumulate.
func (cg *CoarseGrid) SetSolutionTo(weights []float64) error {
	if cg.weights == nil {
		return fmt.Errorf("%w: coarse grid has no solution", rbf.ErrConfiguration)
	}
	if want := cg.mu + cg.dim*cg.sigma + cg.l; len(weights) != want {
		return fmt.Errorf("%w: weight vector has length %d, expected %d", rbf.ErrConfiguration, len(weights), want)
	}
	cg.scatter(weights, 1)
	copy(weights[len(weights)-cg.l:], cg.poly)
	return nil
}

// scatter writes scale·local weights into the global kernel-weight positions
// of dst.
func (cg *CoarseGrid) scatter(dst []float64, scale float64) {
	for i, idx := range cg.domain.PointIndices {
		dst[idx] = scale * cg.weights[i]
	}
	off := len(cg.domain.PointIndices)
	for j, idx := range cg.domain.GradPointIndices {
		for k := 0; k < cg.dim; k++ {
			dst[cg.mu+cg.dim*idx+k] = scale * cg.weights[off+cg.dim*j+k]
		}
	}
}

// gather collects the entries of a global functional vector belonging to
// this Domain into dst.
func (cg *CoarseGrid) gather(src, dst []float64) {
	for i, idx := range cg.domain.PointIndices {
		dst[i] = src[idx]
	}
	off := len(cg.domain.PointIndices)
	for j, idx := range cg.domain.GradPointIndices {
		for k := 0; k < cg.dim; k++ {
			dst[off+cg.dim*j+k] = src[cg.mu+cg.dim*idx+k]
		}
	}
}

// accumulate adds the local weights, each scaled by weight[global position],
// into dst.
func (cg *CoarseGrid) accumulate(dst, weight []float64) {
	for i, idx := range cg.domain.PointIndices {
		dst[idx] += weight[idx] * cg.weights[i]
	}
	off := len(cg.domain.PointIndices)
	for j, idx := range cg.domain.GradPointIndices {
		for k := 0; k < cg.dim; k++ {
			g := cg.mu + cg.dim*idx + k
			dst[g] += weight[g] * cg.weights[off+cg.dim*j+k]
		}
	}
}
