// Package rbf defines radial basis function kernels and the Model that pairs
// a kernel with a polynomial trend.
package rbf

import (
	"fmt"
	"sort"
	"strings"
)

// Hessian is a symmetric 3×3 second-derivative matrix.
type Hessian [3][3]float64

// Kernel is a radial basis function. Displacement arguments (x, y, z) are
// field point minus source point and r is their length.
type Kernel interface {
	// Evaluate returns φ(r).
	Evaluate(r float64) float64

	// EvaluateGradient returns ∇φ(|d|) at d = (x, y, z). At r = 0 the
	// gradient is zero.
	EvaluateGradient(x, y, z, r float64) (gx, gy, gz float64)

	// EvaluateHessian returns the Hessian of φ(|d|) at d = (x, y, z).
	EvaluateHessian(x, y, z, r float64) Hessian

	// Nugget is the regularization carried by the parameter vector.
	Nugget() float64

	// CPDOrder is the order of conditional positive definiteness: the
	// polynomial trend must have degree at least CPDOrder()-1.
	CPDOrder() int

	// SmoothAtOrigin reports whether φ(|d|) is twice differentiable at
	// d = 0. Gradient data needs it: the gradient-gradient block of a
	// gradient point with itself is -H(0).
	SmoothAtOrigin() bool

	// Parameters returns a copy of the parameter vector.
	Parameters() []float64

	// Name is the registry name of the kernel.
	Name() string
}

// radialGradient returns φ'(r)·d/r given dr = φ'(r)/r.
func radialGradient(dr, x, y, z, r float64) (gx, gy, gz float64) {
	if r == 0 {
		return 0, 0, 0
	}
	return dr * x, dr * y, dr * z
}

// radialHessian assembles dr·I + (d2 - dr)·d dᵀ/r² from dr = φ'(r)/r and
// d2 = φ''(r). At r = 0 it is dr·I, the limit for kernels smooth at the
// origin.
func radialHessian(dr, d2, x, y, z, r float64) Hessian {
	var h Hessian
	h[0][0], h[1][1], h[2][2] = dr, dr, dr
	if r == 0 {
		return h
	}
	d := [3]float64{x, y, z}
	c := (d2 - dr) / (r * r)
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			h[i][j] += c * d[i] * d[j]
		}
	}
	return h
}

func checkParams(name string, params []float64, n int) error {
	if len(params) != n {
		return fmt.Errorf("%w: %s expects %d parameters, got %d", ErrConfiguration, name, n, len(params))
	}
	for i, p := range params {
		if p != p {
			return fmt.Errorf("%w: %s parameter %d is NaN", ErrConfiguration, name, i)
		}
	}
	if params[n-1] < 0 {
		return fmt.Errorf("%w: %s nugget must be non-negative, got %g", ErrConfiguration, name, params[n-1])
	}
	return nil
}

type constructor func(params []float64) (Kernel, error)

var registry = map[string]constructor{
	"biharmonic":           func(p []float64) (Kernel, error) { return NewBiharmonic(p) },
	"linear_variogram":     func(p []float64) (Kernel, error) { return NewLinearVariogram(p) },
	"multiquadric":         func(p []float64) (Kernel, error) { return NewMultiquadric(p) },
	"inverse_multiquadric": func(p []float64) (Kernel, error) { return NewInverseMultiquadric(p) },
	"triharmonic":          func(p []float64) (Kernel, error) { return NewTriharmonic(p) },
	"gaussian":             func(p []float64) (Kernel, error) { return NewGaussian(p) },
	"exponential":          func(p []float64) (Kernel, error) { return NewExponential(p) },
	"spherical":            func(p []float64) (Kernel, error) { return NewSpherical(p) },
}

// New constructs a kernel by registry name.
func New(name string, params []float64) (Kernel, error) {
	ctor, ok := registry[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: unknown kernel %q (known: %s)", ErrConfiguration, name, strings.Join(Names(), ", "))
	}
	return ctor(params)
}

// Names lists the registered kernel names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func errRange(name string, a float64) error {
	return fmt.Errorf("%w: %s range must be positive, got %g", ErrConfiguration, name, a)
}
