package rbf

import (
	"math"
)

var (
	_ Kernel = (*Biharmonic)(nil)
	_ Kernel = (*LinearVariogram)(nil)
	_ Kernel = (*Multiquadric)(nil)
	_ Kernel = (*InverseMultiquadric)(nil)
	_ Kernel = (*Triharmonic)(nil)
	_ Kernel = (*Gaussian)(nil)
	_ Kernel = (*Exponential)(nil)
	_ Kernel = (*Spherical)(nil)
)

type params []float64

func (p params) Parameters() []float64 {
	out := make([]float64, len(p))
	copy(out, p)
	return out
}

func (p params) Nugget() float64 { return p[len(p)-1] }

// Biharmonic is φ(r) = -slope·r. Parameters: {slope, nugget}.
// Its Hessian is singular at the origin and reported as zero there, so it
// should not be used with coincident gradient data.
type Biharmonic struct{ params }

func NewBiharmonic(p []float64) (*Biharmonic, error) {
	if err := checkParams("biharmonic", p, 2); err != nil {
		return nil, err
	}
	return &Biharmonic{params(p).Parameters()}, nil
}

func (k *Biharmonic) Name() string  { return "biharmonic" }
func (k *Biharmonic) CPDOrder() int { return 1 }
func (k *Biharmonic) SmoothAtOrigin() bool { return false }

func (k *Biharmonic) Evaluate(r float64) float64 {
	return -k.params[0] * r
}

func (k *Biharmonic) EvaluateGradient(x, y, z, r float64) (float64, float64, float64) {
	if r == 0 {
		return 0, 0, 0
	}
	c := -k.params[0] / r
	return c * x, c * y, c * z
}

func (k *Biharmonic) EvaluateHessian(x, y, z, r float64) Hessian {
	if r == 0 {
		return Hessian{}
	}
	return radialHessian(-k.params[0]/r, 0, x, y, z, r)
}

// LinearVariogram is the kernel induced by the variogram γ(r) = psill·r.
// Parameters: {psill, nugget}.
type LinearVariogram struct{ params }

func NewLinearVariogram(p []float64) (*LinearVariogram, error) {
	if err := checkParams("linear_variogram", p, 2); err != nil {
		return nil, err
	}
	return &LinearVariogram{params(p).Parameters()}, nil
}

func (k *LinearVariogram) Name() string  { return "linear_variogram" }
func (k *LinearVariogram) CPDOrder() int { return 1 }
func (k *LinearVariogram) SmoothAtOrigin() bool { return false }

func (k *LinearVariogram) Evaluate(r float64) float64 {
	return -k.params[0] * r
}

func (k *LinearVariogram) EvaluateGradient(x, y, z, r float64) (float64, float64, float64) {
	if r == 0 {
		return 0, 0, 0
	}
	return radialGradient(-k.params[0]/r, x, y, z, r)
}

func (k *LinearVariogram) EvaluateHessian(x, y, z, r float64) Hessian {
	if r == 0 {
		return Hessian{}
	}
	return radialHessian(-k.params[0]/r, 0, x, y, z, r)
}

// Multiquadric is φ(r) = -slope·√(r² + c²). Parameters: {slope, c, nugget}.
type Multiquadric struct{ params }

func NewMultiquadric(p []float64) (*Multiquadric, error) {
	if err := checkParams("multiquadric", p, 3); err != nil {
		return nil, err
	}
	return &Multiquadric{params(p).Parameters()}, nil
}

func (k *Multiquadric) Name() string  { return "multiquadric" }
func (k *Multiquadric) CPDOrder() int { return 1 }
func (k *Multiquadric) SmoothAtOrigin() bool { return k.params[1] != 0 }

func (k *Multiquadric) s(r float64) float64 {
	c := k.params[1]
	return math.Sqrt(r*r + c*c)
}

func (k *Multiquadric) Evaluate(r float64) float64 {
	return -k.params[0] * k.s(r)
}

func (k *Multiquadric) EvaluateGradient(x, y, z, r float64) (float64, float64, float64) {
	return radialGradient(-k.params[0]/k.s(r), x, y, z, r)
}

func (k *Multiquadric) EvaluateHessian(x, y, z, r float64) Hessian {
	slope, c := k.params[0], k.params[1]
	s := k.s(r)
	return radialHessian(-slope/s, -slope*c*c/(s*s*s), x, y, z, r)
}

// InverseMultiquadric is φ(r) = slope/√(r² + c²). Parameters: {slope, c, nugget}.
type InverseMultiquadric struct{ params }

func NewInverseMultiquadric(p []float64) (*InverseMultiquadric, error) {
	if err := checkParams("inverse_multiquadric", p, 3); err != nil {
		return nil, err
	}
	return &InverseMultiquadric{params(p).Parameters()}, nil
}

func (k *InverseMultiquadric) Name() string  { return "inverse_multiquadric" }
func (k *InverseMultiquadric) CPDOrder() int { return 0 }
func (k *InverseMultiquadric) SmoothAtOrigin() bool { return k.params[1] != 0 }

func (k *InverseMultiquadric) s(r float64) float64 {
	c := k.params[1]
	return math.Sqrt(r*r + c*c)
}

func (k *InverseMultiquadric) Evaluate(r float64) float64 {
	return k.params[0] / k.s(r)
}

func (k *InverseMultiquadric) EvaluateGradient(x, y, z, r float64) (float64, float64, float64) {
	s := k.s(r)
	return radialGradient(-k.params[0]/(s*s*s), x, y, z, r)
}

func (k *InverseMultiquadric) EvaluateHessian(x, y, z, r float64) Hessian {
	slope, c := k.params[0], k.params[1]
	s := k.s(r)
	s3 := s * s * s
	return radialHessian(-slope/s3, slope*(2*r*r-c*c)/(s3*s*s), x, y, z, r)
}

// Triharmonic is φ(r) = slope·r³. Parameters: {slope, nugget}.
type Triharmonic struct{ params }

func NewTriharmonic(p []float64) (*Triharmonic, error) {
	if err := checkParams("triharmonic", p, 2); err != nil {
		return nil, err
	}
	return &Triharmonic{params(p).Parameters()}, nil
}

func (k *Triharmonic) Name() string  { return "triharmonic" }
func (k *Triharmonic) CPDOrder() int { return 2 }
func (k *Triharmonic) SmoothAtOrigin() bool { return true }

func (k *Triharmonic) Evaluate(r float64) float64 {
	return k.params[0] * r * r * r
}

func (k *Triharmonic) EvaluateGradient(x, y, z, r float64) (float64, float64, float64) {
	return radialGradient(3*k.params[0]*r, x, y, z, r)
}

func (k *Triharmonic) EvaluateHessian(x, y, z, r float64) Hessian {
	return radialHessian(3*k.params[0]*r, 6*k.params[0]*r, x, y, z, r)
}

// Gaussian is the covariance psill·exp(-(r/range)²).
// Parameters: {psill, range, nugget}.
type Gaussian struct{ params }

func NewGaussian(p []float64) (*Gaussian, error) {
	if err := checkParams("gaussian", p, 3); err != nil {
		return nil, err
	}
	if p[1] <= 0 {
		return nil, errRange("gaussian", p[1])
	}
	return &Gaussian{params(p).Parameters()}, nil
}

func (k *Gaussian) Name() string  { return "gaussian" }
func (k *Gaussian) CPDOrder() int { return 0 }
func (k *Gaussian) SmoothAtOrigin() bool { return true }

func (k *Gaussian) Evaluate(r float64) float64 {
	a := r / k.params[1]
	return k.params[0] * math.Exp(-a*a)
}

func (k *Gaussian) EvaluateGradient(x, y, z, r float64) (float64, float64, float64) {
	a2 := k.params[1] * k.params[1]
	return radialGradient(-2*k.Evaluate(r)/a2, x, y, z, r)
}

func (k *Gaussian) EvaluateHessian(x, y, z, r float64) Hessian {
	a2 := k.params[1] * k.params[1]
	e := k.Evaluate(r)
	return radialHessian(-2*e/a2, e*(4*r*r/(a2*a2)-2/a2), x, y, z, r)
}

// Exponential is the covariance psill·exp(-r/range).
// Parameters: {psill, range, nugget}. Not differentiable at the origin.
type Exponential struct{ params }

func NewExponential(p []float64) (*Exponential, error) {
	if err := checkParams("exponential", p, 3); err != nil {
		return nil, err
	}
	if p[1] <= 0 {
		return nil, errRange("exponential", p[1])
	}
	return &Exponential{params(p).Parameters()}, nil
}

func (k *Exponential) Name() string  { return "exponential" }
func (k *Exponential) CPDOrder() int { return 0 }
func (k *Exponential) SmoothAtOrigin() bool { return false }

func (k *Exponential) Evaluate(r float64) float64 {
	return k.params[0] * math.Exp(-r/k.params[1])
}

func (k *Exponential) EvaluateGradient(x, y, z, r float64) (float64, float64, float64) {
	if r == 0 {
		return 0, 0, 0
	}
	return radialGradient(-k.Evaluate(r)/(k.params[1]*r), x, y, z, r)
}

func (k *Exponential) EvaluateHessian(x, y, z, r float64) Hessian {
	if r == 0 {
		return Hessian{}
	}
	a := k.params[1]
	e := k.Evaluate(r)
	return radialHessian(-e/(a*r), e/(a*a), x, y, z, r)
}

// Spherical is the compactly supported covariance
// psill·(1 - 1.5·r/range + 0.5·(r/range)³) for r < range, zero beyond.
// Parameters: {psill, range, nugget}.
type Spherical struct{ params }

func NewSpherical(p []float64) (*Spherical, error) {
	if err := checkParams("spherical", p, 3); err != nil {
		return nil, err
	}
	if p[1] <= 0 {
		return nil, errRange("spherical", p[1])
	}
	return &Spherical{params(p).Parameters()}, nil
}

func (k *Spherical) Name() string  { return "spherical" }
func (k *Spherical) CPDOrder() int { return 0 }
func (k *Spherical) SmoothAtOrigin() bool { return false }

func (k *Spherical) Evaluate(r float64) float64 {
	a := k.params[1]
	if r >= a {
		return 0
	}
	t := r / a
	return k.params[0] * (1 - 1.5*t + 0.5*t*t*t)
}

func (k *Spherical) EvaluateGradient(x, y, z, r float64) (float64, float64, float64) {
	a := k.params[1]
	if r == 0 || r >= a {
		return 0, 0, 0
	}
	d1 := k.params[0] * (-1.5/a + 1.5*r*r/(a*a*a))
	return radialGradient(d1/r, x, y, z, r)
}

func (k *Spherical) EvaluateHessian(x, y, z, r float64) Hessian {
	a := k.params[1]
	if r == 0 || r >= a {
		return Hessian{}
	}
	p := k.params[0]
	d1 := p * (-1.5/a + 1.5*r*r/(a*a*a))
	return radialHessian(d1/r, 3*p*r/(a*a*a), x, y, z, r)
}
