// Package polynomial provides the monomial basis of the polynomial trend and
// the Lagrange basis used to eliminate the trend from local systems.
package polynomial

import (
	"gonum.org/v1/gonum/mat"

	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/rbf"
)

// Dimension returns the number of basis functions of degree deg in dim
// variables.
func Dimension(dim, deg int) int {
	return rbf.PolyDimension(dim, deg)
}

// MonomialBasis is the graded monomial basis
// 1, x, y, z, x², xy, xz, y², yz, z², … restricted to dim variables.
type MonomialBasis struct {
	dim  int
	deg  int
	exps [][3]int
}

// NewMonomialBasis enumerates the monomials of total degree at most deg.
// A negative degree yields an empty basis.
func NewMonomialBasis(dim, deg int) *MonomialBasis {
	b := &MonomialBasis{dim: dim, deg: deg}
	for d := 0; d <= deg; d++ {
		for a := d; a >= 0; a-- {
			if dim == 1 {
				if a == d {
					b.exps = append(b.exps, [3]int{a, 0, 0})
				}
				continue
			}
			for bb := d - a; bb >= 0; bb-- {
				c := d - a - bb
				if dim == 2 && c != 0 {
					continue
				}
				b.exps = append(b.exps, [3]int{a, bb, c})
			}
		}
	}
	return b
}

func (b *MonomialBasis) Dim() int    { return b.dim }
func (b *MonomialBasis) Degree() int { return b.deg }
func (b *MonomialBasis) Size() int   { return len(b.exps) }

func ipow(x float64, n int) float64 {
	v := 1.0
	for ; n > 0; n-- {
		v *= x
	}
	return v
}

// Values writes every basis function evaluated at p into dst[:Size()].
func (b *MonomialBasis) Values(p geometry.Point3D, dst []float64) {
	for i, e := range b.exps {
		dst[i] = ipow(p.X, e[0]) * ipow(p.Y, e[1]) * ipow(p.Z, e[2])
	}
}

// Derivatives writes the partial derivative along axis k of every basis
// function at p into dst[:Size()].
func (b *MonomialBasis) Derivatives(p geometry.Point3D, k int, dst []float64) {
	for i, e := range b.exps {
		if e[k] == 0 {
			dst[i] = 0
			continue
		}
		f := float64(e[k])
		e[k]--
		dst[i] = f * ipow(p.X, e[0]) * ipow(p.Y, e[1]) * ipow(p.Z, e[2])
	}
}

// Evaluate returns the Size() × (len(points) + dim·len(gradPoints)) matrix
// whose columns are the basis evaluated at each point and, for each
// gradient point, its dim partial derivatives. It returns nil for an empty
// basis or an empty point set.
func (b *MonomialBasis) Evaluate(points, gradPoints geometry.Points3D) *mat.Dense {
	l := b.Size()
	n := len(points) + b.dim*len(gradPoints)
	if l == 0 || n == 0 {
		return nil
	}
	out := mat.NewDense(l, n, nil)
	col := make([]float64, l)
	for j, p := range points {
		b.Values(p, col)
		out.SetCol(j, col)
	}
	for j, p := range gradPoints {
		for k := 0; k < b.dim; k++ {
			b.Derivatives(p, k, col)
			out.SetCol(len(points)+b.dim*j+k, col)
		}
	}
	return out
}
