// Package assembly evaluates blocks of the RBF interpolation matrix. Sites
// are ordered points first, then gradient points; a gradient point stands
// for Dim() consecutive rows or columns, one per partial derivative.
package assembly

import (
	"gonum.org/v1/gonum/mat"

	"rbfinterp/internal/parallel"
	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/polynomial"
	"rbfinterp/pkg/rbf"
)

// Sites is an ordered set of interpolation sites.
type Sites struct {
	Points     geometry.Points3D
	GradPoints geometry.Points3D
}

// Functionals is the number of rows the sites occupy for a model of
// dimension dim.
func (s Sites) Functionals(dim int) int {
	return len(s.Points) + dim*len(s.GradPoints)
}

// Matrix assembles the symmetric kernel matrix over the sites with the
// model nugget added to the point diagonal.
func Matrix(model *rbf.Model, s Sites) *mat.SymDense {
	dim := model.Dim()
	mu := len(s.Points)
	n := s.Functionals(dim)
	a := mat.NewSymDense(n, nil)
	nugget := model.Nugget()

	for i, xi := range s.Points {
		for j := i; j < mu; j++ {
			v := model.PointPoint(xi.Sub(s.Points[j]))
			if i == j {
				v += nugget
			}
			a.SetSym(i, j, v)
		}
		for j, yj := range s.GradPoints {
			b := model.PointGrad(xi.Sub(yj))
			for k := 0; k < dim; k++ {
				a.SetSym(i, mu+dim*j+k, b[k])
			}
		}
	}
	for i, yi := range s.GradPoints {
		for j := i; j < len(s.GradPoints); j++ {
			h := model.GradGrad(yi.Sub(s.GradPoints[j]))
			for k := 0; k < dim; k++ {
				for l := 0; l < dim; l++ {
					if i == j && l < k {
						continue
					}
					a.SetSym(mu+dim*i+k, mu+dim*j+l, h[k][l])
				}
			}
		}
	}
	return a
}

// valueAt is the value at x of the kernel part of the interpolant with
// weights w over the source sites.
func valueAt(model *rbf.Model, x geometry.Point3D, src Sites, w []float64) float64 {
	dim := model.Dim()
	mu := len(src.Points)
	v := 0.0
	for j, xj := range src.Points {
		if w[j] != 0 {
			v += w[j] * model.PointPoint(x.Sub(xj))
		}
	}
	for j, yj := range src.GradPoints {
		b := model.PointGrad(x.Sub(yj))
		g := w[mu+dim*j : mu+dim*j+dim]
		for k := 0; k < dim; k++ {
			v += b[k] * g[k]
		}
	}
	return v
}

// gradientAt writes the first dim gradient components at y of the kernel
// part of the interpolant into dst.
func gradientAt(model *rbf.Model, y geometry.Point3D, src Sites, w []float64, dst []float64) {
	dim := model.Dim()
	mu := len(src.Points)
	for k := range dst {
		dst[k] = 0
	}
	for j, xj := range src.Points {
		if w[j] == 0 {
			continue
		}
		b := model.GradPoint(y.Sub(xj))
		for k := 0; k < dim; k++ {
			dst[k] += b[k] * w[j]
		}
	}
	for j, yj := range src.GradPoints {
		h := model.GradGrad(y.Sub(yj))
		g := w[mu+dim*j : mu+dim*j+dim]
		for k := 0; k < dim; k++ {
			for l := 0; l < dim; l++ {
				dst[k] += h[k][l] * g[l]
			}
		}
	}
}

// Apply evaluates the kernel part of the interpolant defined by weights w on
// src at every field site: values at field points, then dim partial
// derivatives per field gradient point. No nugget is added. Rows are split
// over workers.
func Apply(model *rbf.Model, field, src Sites, w []float64, workers int) []float64 {
	dim := model.Dim()
	mu := len(field.Points)
	out := make([]float64, field.Functionals(dim))
	parallel.For(workers, len(field.Points)+len(field.GradPoints), func(_, start, end int) {
		for i := start; i < end; i++ {
			if i < mu {
				out[i] = valueAt(model, field.Points[i], src, w)
				continue
			}
			j := i - mu
			gradientAt(model, field.GradPoints[j], src, w, out[mu+dim*j:mu+dim*j+dim])
		}
	})
	return out
}

// AddPolynomial adds the trend with monomial coefficients coef to values
// laid out as for Apply over field.
func AddPolynomial(model *rbf.Model, field Sites, coef []float64, values []float64) {
	mono := polynomial.NewMonomialBasis(model.Dim(), model.PolyDegree())
	l := mono.Size()
	if l == 0 {
		return
	}
	dim := model.Dim()
	mu := len(field.Points)
	row := make([]float64, l)
	dot := func() float64 {
		s := 0.0
		for i, c := range coef {
			s += c * row[i]
		}
		return s
	}
	for i, x := range field.Points {
		mono.Values(x, row)
		values[i] += dot()
	}
	for j, y := range field.GradPoints {
		for k := 0; k < dim; k++ {
			mono.Derivatives(y, k, row)
			values[mu+dim*j+k] += dot()
		}
	}
}

// AddPolynomialTranspose adds Pᵀw, the moments of the site weights w against
// every monomial, to dst[:l].
func AddPolynomialTranspose(model *rbf.Model, s Sites, w []float64, dst []float64) {
	mono := polynomial.NewMonomialBasis(model.Dim(), model.PolyDegree())
	l := mono.Size()
	if l == 0 {
		return
	}
	dim := model.Dim()
	mu := len(s.Points)
	row := make([]float64, l)
	for i, x := range s.Points {
		mono.Values(x, row)
		for a := 0; a < l; a++ {
			dst[a] += row[a] * w[i]
		}
	}
	for j, y := range s.GradPoints {
		for k := 0; k < dim; k++ {
			mono.Derivatives(y, k, row)
			wk := w[mu+dim*j+k]
			for a := 0; a < l; a++ {
				dst[a] += row[a] * wk
			}
		}
	}
}
