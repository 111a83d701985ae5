package rbf

import (
	"fmt"

	"rbfinterp/pkg/geometry"
)

// PolyDimension returns the number of monomials of total degree at most deg
// in dim variables, C(dim+deg, dim). Degree -1 means no polynomial term.
func PolyDimension(dim, deg int) int {
	if deg < 0 {
		return 0
	}
	n := 1
	for i := 1; i <= dim; i++ {
		n = n * (deg + i) / i
	}
	return n
}

// Model pairs a kernel with the ambient dimension and the degree of the
// polynomial trend. Only the nugget may change after construction.
type Model struct {
	kernel Kernel
	dim    int
	deg    int
	nugget float64
}

// NewModel validates the kernel/degree combination: the trend degree must be
// at least CPDOrder()-1 for the interpolation system to be solvable.
func NewModel(kernel Kernel, dim, deg int) (*Model, error) {
	if kernel == nil {
		return nil, fmt.Errorf("%w: nil kernel", ErrConfiguration)
	}
	if dim < 1 || dim > 3 {
		return nil, fmt.Errorf("%w: dimension must be 1, 2 or 3, got %d", ErrConfiguration, dim)
	}
	if deg < -1 {
		return nil, fmt.Errorf("%w: polynomial degree must be >= -1, got %d", ErrConfiguration, deg)
	}
	if kernel.CPDOrder() > deg+1 {
		return nil, fmt.Errorf("%w: kernel %s needs a polynomial degree of at least %d, got %d",
			ErrConfiguration, kernel.Name(), kernel.CPDOrder()-1, deg)
	}
	return &Model{
		kernel: kernel,
		dim:    dim,
		deg:    deg,
		nugget: kernel.Nugget(),
	}, nil
}

func (m *Model) Kernel() Kernel     { return m.kernel }
func (m *Model) Dim() int           { return m.dim }
func (m *Model) PolyDegree() int    { return m.deg }
func (m *Model) Nugget() float64    { return m.nugget }
func (m *Model) PolyBasisSize() int { return PolyDimension(m.dim, m.deg) }

// CheckGradientData reports an ErrConfiguration error when sigma gradient
// points cannot be interpolated with the model's kernel.
func (m *Model) CheckGradientData(sigma int) error {
	if sigma > 0 && !m.kernel.SmoothAtOrigin() {
		return fmt.Errorf("%w: kernel %s is not twice differentiable at the origin and cannot fit gradient data",
			ErrConfiguration, m.kernel.Name())
	}
	return nil
}

// SetNugget replaces the nugget taken from the kernel parameters. It must not
// be called while a solve using the model is running.
func (m *Model) SetNugget(nugget float64) error {
	if nugget < 0 || nugget != nugget {
		return fmt.Errorf("%w: nugget must be non-negative, got %g", ErrConfiguration, nugget)
	}
	m.nugget = nugget
	return nil
}

// The entry helpers below give one block of the interpolation matrix. The
// first argument is always field minus source. Only the leading Dim()
// components of vector results are meaningful.

// PointPoint is the value at a point due to a unit point weight.
func (m *Model) PointPoint(d geometry.Point3D) float64 {
	return m.kernel.Evaluate(d.Norm())
}

// PointGrad is the value at a point due to unit gradient weights at a
// gradient point, one entry per direction.
func (m *Model) PointGrad(d geometry.Point3D) [3]float64 {
	gx, gy, gz := m.kernel.EvaluateGradient(d.X, d.Y, d.Z, d.Norm())
	return [3]float64{-gx, -gy, -gz}
}

// GradPoint is the gradient at a gradient point due to a unit point weight.
func (m *Model) GradPoint(d geometry.Point3D) [3]float64 {
	gx, gy, gz := m.kernel.EvaluateGradient(d.X, d.Y, d.Z, d.Norm())
	return [3]float64{gx, gy, gz}
}

// GradGrad is the gradient at a gradient point due to unit gradient weights.
func (m *Model) GradGrad(d geometry.Point3D) Hessian {
	h := m.kernel.EvaluateHessian(d.X, d.Y, d.Z, d.Norm())
	for i := range h {
		for j := range h[i] {
			h[i][j] = -h[i][j]
		}
	}
	return h
}
