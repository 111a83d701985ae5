// Package krylov solves nonsymmetric linear systems given only the action of
// the matrix, with flexible restarted GMRES.
package krylov

import (
	"errors"
	"math"
	"time"

	"gonum.org/v1/gonum/floats"
)

// ErrNotConverged is returned when the iteration limit is reached before the
// residual drops below the tolerance.
var ErrNotConverged = errors.New("krylov: iteration limit reached")

// Settings holds the settings of a solve.
type Settings struct {
	// X0 is an initial guess. If it is nil, the zero vector is used.
	X0 []float64

	// Tolerance is the absolute bound on the residual 2-norm |b - A·x|.
	Tolerance float64

	// MaxIterations bounds the total number of inner iterations over all
	// restart cycles. Zero means twice the dimension.
	MaxIterations int

	// Restart is the Krylov subspace size after which the method restarts.
	// Zero means 50.
	Restart int

	// PSolve applies the right preconditioner: dst ≈ A⁻¹·rhs. It may change
	// from one iteration to the next. If it is nil, no preconditioner is used.
	PSolve func(dst, rhs []float64) error
}

// Stats describes a finished solve.
type Stats struct {
	Iterations int
	Restarts   int
	MatVec     int
	PSolve     int
	Residual   float64
	StartTime  time.Time
	Runtime    time.Duration
}

// Result is the approximate solution of a solve and its statistics.
type Result struct {
	X     []float64
	Stats Stats
}

func defaultSettings(s *Settings, dim int) {
	if s.MaxIterations == 0 {
		s.MaxIterations = 2 * dim
	}
	if s.Restart == 0 {
		s.Restart = 50
	}
	if s.Restart > dim {
		s.Restart = dim
	}
}

// FGMRES solves A·x = b, where matVec computes dst = A·src, by right
// preconditioned flexible GMRES(Restart). After every cycle the true
// residual is recomputed, so Stats.Residual is never an estimate. When the
// iteration limit is reached the best iterate is returned together with
// ErrNotConverged.
func FGMRES(matVec func(dst, src []float64), b []float64, settings Settings) (Result, error) {
	stats := Stats{StartTime: time.Now()}

	dim := len(b)
	switch {
	case dim == 0:
		panic("krylov: zero dimension")
	case matVec == nil:
		panic("krylov: nil matrix-vector multiplication")
	case settings.X0 != nil && len(settings.X0) != dim:
		panic("krylov: mismatched length of initial guess")
	case settings.Tolerance <= 0:
		panic("krylov: non-positive tolerance")
	}
	defaultSettings(&settings, dim)

	s := newSolver(dim, settings.Restart)
	x := make([]float64, dim)
	if settings.X0 != nil {
		copy(x, settings.X0)
	}

	err := s.run(matVec, b, x, settings, &stats)
	stats.Runtime = time.Since(stats.StartTime)
	return Result{X: x, Stats: stats}, err
}

// solver holds the workspace of one restart cycle.
type solver struct {
	v      [][]float64 // Arnoldi basis, restart+1 vectors
	z      [][]float64 // preconditioned basis, restart vectors
	h      [][]float64 // Hessenberg matrix, column-major: h[j] is column j
	cs, sn []float64   // Givens rotations
	g      []float64   // rotated right-hand side of the least-squares problem
	r      []float64
}

func newSolver(dim, restart int) *solver {
	s := &solver{
		v:  make([][]float64, restart+1),
		z:  make([][]float64, restart),
		h:  make([][]float64, restart),
		cs: make([]float64, restart),
		sn: make([]float64, restart),
		g:  make([]float64, restart+1),
		r:  make([]float64, dim),
	}
	for i := range s.v {
		s.v[i] = make([]float64, dim)
	}
	for j := range s.z {
		s.z[j] = make([]float64, dim)
		s.h[j] = make([]float64, restart+1)
	}
	return s
}

// residual sets s.r = b - A·x and returns its norm.
func (s *solver) residual(matVec func(dst, src []float64), b, x []float64, stats *Stats) float64 {
	matVec(s.r, x)
	stats.MatVec++
	floats.AddScaledTo(s.r, b, -1, s.r)
	return floats.Norm(s.r, 2)
}

func (s *solver) run(matVec func(dst, src []float64), b, x []float64, settings Settings, stats *Stats) error {
	beta := s.residual(matVec, b, x, stats)
	stats.Residual = beta
	for beta >= settings.Tolerance {
		if stats.Iterations >= settings.MaxIterations {
			return ErrNotConverged
		}
		k, err := s.cycle(matVec, beta, settings, stats)
		if err != nil {
			return err
		}
		if k == 0 {
			return ErrNotConverged
		}
		s.update(x, k)
		beta = s.residual(matVec, b, x, stats)
		stats.Residual = beta
		stats.Restarts++
	}
	return nil
}

// cycle runs Arnoldi from the residual in s.r until the estimated residual
// is below tolerance, the basis is full, the iteration budget is spent or
// the Krylov space becomes invariant. It returns the number of basis
// vectors built.
func (s *solver) cycle(matVec func(dst, src []float64), beta float64, settings Settings, stats *Stats) (int, error) {
	floats.ScaleTo(s.v[0], 1/beta, s.r)
	for i := range s.g {
		s.g[i] = 0
	}
	s.g[0] = beta

	j := 0
	for j < settings.Restart && stats.Iterations < settings.MaxIterations {
		if settings.PSolve != nil {
			if err := settings.PSolve(s.z[j], s.v[j]); err != nil {
				return j, err
			}
			stats.PSolve++
		} else {
			copy(s.z[j], s.v[j])
		}
		w := s.v[j+1]
		matVec(w, s.z[j])
		stats.MatVec++

		h := s.h[j]
		for i := 0; i <= j; i++ {
			h[i] = floats.Dot(w, s.v[i])
			floats.AddScaled(w, -h[i], s.v[i])
		}
		h[j+1] = floats.Norm(w, 2)
		breakdown := h[j+1] == 0
		if !breakdown {
			floats.Scale(1/h[j+1], w)
		}

		for i := 0; i < j; i++ {
			h[i], h[i+1] = s.cs[i]*h[i]+s.sn[i]*h[i+1], -s.sn[i]*h[i]+s.cs[i]*h[i+1]
		}
		d := math.Hypot(h[j], h[j+1])
		if d == 0 {
			// The preconditioned direction is in the null space of A.
			return j, nil
		}
		s.cs[j], s.sn[j] = h[j]/d, h[j+1]/d
		h[j], h[j+1] = d, 0
		s.g[j+1] = -s.sn[j] * s.g[j]
		s.g[j] = s.cs[j] * s.g[j]

		stats.Iterations++
		j++
		if breakdown || math.Abs(s.g[j]) < settings.Tolerance {
			break
		}
	}
	return j, nil
}

// update adds the least-squares combination of the first k preconditioned
// basis vectors to x.
func (s *solver) update(x []float64, k int) {
	y := make([]float64, k)
	for i := k - 1; i >= 0; i-- {
		sum := s.g[i]
		for l := i + 1; l < k; l++ {
			sum -= s.h[l][i] * y[l]
		}
		y[i] = sum / s.h[i][i]
	}
	for i, yi := range y {
		floats.AddScaled(x, yi, s.z[i])
	}
}
