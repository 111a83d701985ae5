package polynomial

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/rbf"
)

// maxCond bounds the condition number of the Vandermonde matrix of the basis
// points; beyond it the points are treated as not unisolvent.
const maxCond = 1e12

// LagrangeBasis is the Lagrange basis of the degree-deg polynomials on a set
// of Dimension(dim, deg) unisolvent points: basis function a equals one at
// basis point a and zero at the others. Read-only after construction.
type LagrangeBasis struct {
	mono    *MonomialBasis
	points  geometry.Points3D
	indices []int
	lu      mat.LU
}

// NewLagrangeBasis builds the basis from points. With exactly
// Dimension(dim, deg) points all of them are used; with more, a
// well-conditioned subset is selected (see BasisPointIndices). Too few or
// rank-deficient points are a configuration error.
func NewLagrangeBasis(dim, deg int, points geometry.Points3D) (*LagrangeBasis, error) {
	l := Dimension(dim, deg)
	if l == 0 {
		return nil, fmt.Errorf("%w: degree %d has no polynomial term", rbf.ErrConfiguration, deg)
	}
	if len(points) < l {
		return nil, fmt.Errorf("%w: %d points cannot determine a degree %d polynomial in %d dimensions (need %d)",
			rbf.ErrConfiguration, len(points), deg, dim, l)
	}

	indices := make([]int, l)
	for i := range indices {
		indices[i] = i
	}
	if len(points) > l {
		var err error
		if indices, err = SelectUnisolvent(dim, deg, points); err != nil {
			return nil, err
		}
	}

	lb := &LagrangeBasis{
		mono:    NewMonomialBasis(dim, deg),
		points:  points.Subset(indices),
		indices: indices,
	}
	// V[a][b] is monomial b at basis point a.
	v := mat.NewDense(l, l, nil)
	row := make([]float64, l)
	for a, p := range lb.points {
		lb.mono.Values(p, row)
		v.SetRow(a, row)
	}
	lb.lu.Factorize(v)
	if cond := lb.lu.Cond(); math.IsInf(cond, 1) || math.IsNaN(cond) || cond > maxCond {
		return nil, fmt.Errorf("%w: basis points are not unisolvent for degree %d (condition number %g)",
			rbf.ErrConfiguration, deg, cond)
	}
	return lb, nil
}

// Size is the number of basis functions.
func (lb *LagrangeBasis) Size() int { return lb.mono.Size() }

// Points returns the basis points.
func (lb *LagrangeBasis) Points() geometry.Points3D { return lb.points }

// BasisPointIndices returns the positions of the basis points in the point
// set the basis was built from.
func (lb *LagrangeBasis) BasisPointIndices() []int { return lb.indices }

// Evaluate returns the Size() × (len(points) + dim·len(gradPoints)) matrix
// E with E[a][j] the value (or partial derivative, for gradient columns) of
// basis function a at query j. Every degree-deg polynomial p satisfies
// p(x_j) = Σ_a p(z_a)·E[a][j], z_a being the basis points.
func (lb *LagrangeBasis) Evaluate(points, gradPoints geometry.Points3D) (*mat.Dense, error) {
	m := lb.mono.Evaluate(points, gradPoints)
	if m == nil {
		return nil, nil
	}
	_, n := m.Dims()
	e := mat.NewDense(lb.Size(), n, nil)
	// Lagrange coefficients are V⁻¹, so E = V⁻ᵀ M.
	if err := lb.lu.SolveTo(e, true, m); err != nil {
		return nil, fmt.Errorf("%w: evaluating Lagrange basis: %v", rbf.ErrNumerical, err)
	}
	return e, nil
}

// SelectUnisolvent picks Dimension(dim, deg) points on which the degree-deg
// polynomials are well determined, by greedy pivoting on the rows of the
// Vandermonde matrix: each step takes the point whose monomial row has the
// largest component orthogonal to the rows already chosen.
func SelectUnisolvent(dim, deg int, points geometry.Points3D) ([]int, error) {
	mono := NewMonomialBasis(dim, deg)
	l := mono.Size()
	if len(points) < l {
		return nil, fmt.Errorf("%w: %d points cannot determine a degree %d polynomial in %d dimensions (need %d)",
			rbf.ErrConfiguration, len(points), deg, dim, l)
	}

	rows := make([][]float64, len(points))
	scale := 0.0
	for i, p := range points {
		rows[i] = make([]float64, l)
		mono.Values(p, rows[i])
		scale = math.Max(scale, floats.Norm(rows[i], 2))
	}

	chosen := make([]bool, len(points))
	selected := make([]int, 0, l)
	for len(selected) < l {
		best, bestNorm := -1, 0.0
		for i, r := range rows {
			if chosen[i] {
				continue
			}
			if n := floats.Norm(r, 2); n > bestNorm {
				best, bestNorm = i, n
			}
		}
		if best < 0 || bestNorm <= 1e-10*scale {
			return nil, fmt.Errorf("%w: points are rank-deficient for degree %d polynomials (rank %d < %d)",
				rbf.ErrConfiguration, deg, len(selected), l)
		}
		chosen[best] = true
		selected = append(selected, best)

		q := make([]float64, l)
		floats.ScaleTo(q, 1/bestNorm, rows[best])
		for i, r := range rows {
			if chosen[i] {
				continue
			}
			floats.AddScaled(r, -floats.Dot(r, q), q)
		}
	}
	return selected, nil
}
