package rbf

import (
	"strings"
)

var _ Kernel = (*Sum)(nil)

// Sum is the kernel φ₁ + φ₂ + … . Nested sums are flattened.
type Sum struct {
	parts []Kernel
	order int
}

// NewSum combines kernels. Its CPD order is the largest among the parts and
// its nugget is the sum of theirs.
func NewSum(first Kernel, rest ...Kernel) *Sum {
	s := &Sum{}
	for _, k := range append([]Kernel{first}, rest...) {
		switch k := k.(type) {
		case *Sum:
			s.parts = append(s.parts, k.parts...)
		default:
			s.parts = append(s.parts, k)
		}
	}
	for _, part := range s.parts {
		if part.CPDOrder() > s.order {
			s.order = part.CPDOrder()
		}
	}
	return s
}

// Parts returns the flattened summands.
func (s *Sum) Parts() []Kernel { return s.parts }

func (s *Sum) Name() string {
	names := make([]string, len(s.parts))
	for i, part := range s.parts {
		names[i] = part.Name()
	}
	return "sum(" + strings.Join(names, "+") + ")"
}

func (s *Sum) CPDOrder() int { return s.order }

// SmoothAtOrigin holds when every part is smooth.
func (s *Sum) SmoothAtOrigin() bool {
	for _, part := range s.parts {
		if !part.SmoothAtOrigin() {
			return false
		}
	}
	return true
}

func (s *Sum) Nugget() float64 {
	n := 0.0
	for _, part := range s.parts {
		n += part.Nugget()
	}
	return n
}

func (s *Sum) Parameters() []float64 {
	var out []float64
	for _, part := range s.parts {
		out = append(out, part.Parameters()...)
	}
	return out
}

func (s *Sum) Evaluate(r float64) float64 {
	v := 0.0
	for _, part := range s.parts {
		v += part.Evaluate(r)
	}
	return v
}

func (s *Sum) EvaluateGradient(x, y, z, r float64) (gx, gy, gz float64) {
	for _, part := range s.parts {
		px, py, pz := part.EvaluateGradient(x, y, z, r)
		gx += px
		gy += py
		gz += pz
	}
	return
}

func (s *Sum) EvaluateHessian(x, y, z, r float64) Hessian {
	var h Hessian
	for _, part := range s.parts {
		ph := part.EvaluateHessian(x, y, z, r)
		for i := range h {
			for j := range h[i] {
				h[i][j] += ph[i][j]
			}
		}
	}
	return h
}
