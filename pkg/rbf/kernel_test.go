package rbf

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rbfinterp/pkg/geometry"
)

func allKernels(t *testing.T) []Kernel {
	t.Helper()
	mk := func(k Kernel, err error) Kernel {
		require.NoError(t, err)
		return k
	}
	return []Kernel{
		mk(NewMultiquadric([]float64{1.3, 0.4, 0})),
		mk(NewInverseMultiquadric([]float64{0.7, 0.5, 0})),
		mk(NewTriharmonic([]float64{0.2, 0})),
		mk(NewGaussian([]float64{1.0, 0.8, 0})),
		mk(NewExponential([]float64{1.0, 0.8, 0})),
		mk(NewSpherical([]float64{1.0, 2.5, 0})),
		mk(NewBiharmonic([]float64{1.0, 0})),
		mk(NewLinearVariogram([]float64{2.0, 0})),
	}
}

func TestBiharmonic(t *testing.T) {
	k, err := NewBiharmonic([]float64{2.0, 0.1})
	require.NoError(t, err)

	assert.InDelta(t, -6.0, k.Evaluate(3), 1e-15)
	assert.Equal(t, 0.1, k.Nugget())
	assert.Equal(t, 1, k.CPDOrder())

	gx, gy, gz := k.EvaluateGradient(3, 4, 0, 5)
	assert.InDelta(t, -2.0*3/5, gx, 1e-15)
	assert.InDelta(t, -2.0*4/5, gy, 1e-15)
	assert.InDelta(t, 0.0, gz, 1e-15)

	gx, gy, gz = k.EvaluateGradient(0, 0, 0, 0)
	assert.Equal(t, [3]float64{0, 0, 0}, [3]float64{gx, gy, gz})
}

// TestGradientMatchesFiniteDifference checks every kernel's gradient and
// Hessian against central differences away from the origin.
func TestGradientMatchesFiniteDifference(t *testing.T) {
	const h = 1e-5
	d := [3]float64{0.31, -0.22, 0.17}
	phi := func(k Kernel, p [3]float64) float64 {
		return k.Evaluate(math.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2]))
	}
	grad := func(k Kernel, p [3]float64) [3]float64 {
		r := math.Sqrt(p[0]*p[0] + p[1]*p[1] + p[2]*p[2])
		gx, gy, gz := k.EvaluateGradient(p[0], p[1], p[2], r)
		return [3]float64{gx, gy, gz}
	}
	for _, k := range allKernels(t) {
		t.Run(k.Name(), func(t *testing.T) {
			g := grad(k, d)
			r := math.Sqrt(d[0]*d[0] + d[1]*d[1] + d[2]*d[2])
			hess := k.EvaluateHessian(d[0], d[1], d[2], r)
			for i := 0; i < 3; i++ {
				plus, minus := d, d
				plus[i] += h
				minus[i] -= h
				fd := (phi(k, plus) - phi(k, minus)) / (2 * h)
				assert.InDelta(t, fd, g[i], 1e-6, "gradient component %d", i)

				gp, gm := grad(k, plus), grad(k, minus)
				for j := 0; j < 3; j++ {
					assert.InDelta(t, (gp[j]-gm[j])/(2*h), hess[i][j], 1e-5, "hessian (%d,%d)", i, j)
				}
			}
		})
	}
}

func TestSmoothKernelHessianAtOrigin(t *testing.T) {
	k, err := NewMultiquadric([]float64{1.0, 0.5, 0})
	require.NoError(t, err)
	h := k.EvaluateHessian(0, 0, 0, 0)
	for i := 0; i < 3; i++ {
		assert.InDelta(t, -1.0/0.5, h[i][i], 1e-14)
	}
	assert.Equal(t, 0.0, h[0][1])
}

func TestParameterValidation(t *testing.T) {
	_, err := NewBiharmonic([]float64{1.0})
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = NewGaussian([]float64{1.0, 0, 0})
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = NewMultiquadric([]float64{1.0, 0.1, -1})
	assert.True(t, errors.Is(err, ErrConfiguration))

	_, err = New("no-such-kernel", nil)
	assert.True(t, errors.Is(err, ErrConfiguration))

	k, err := New("Multiquadric", []float64{1, 1e-3, 0})
	require.NoError(t, err)
	assert.Equal(t, "multiquadric", k.Name())
	assert.Equal(t, []float64{1, 1e-3, 0}, k.Parameters())
}

func TestSum(t *testing.T) {
	a, err := NewBiharmonic([]float64{1, 0.1})
	require.NoError(t, err)
	b, err := NewTriharmonic([]float64{0.5, 0.2})
	require.NoError(t, err)
	c, err := NewGaussian([]float64{1, 1, 0})
	require.NoError(t, err)

	s := NewSum(NewSum(a, b), c)
	assert.Len(t, s.Parts(), 3)
	assert.Equal(t, 2, s.CPDOrder())
	assert.InDelta(t, 0.3, s.Nugget(), 1e-15)
	assert.InDelta(t, a.Evaluate(0.7)+b.Evaluate(0.7)+c.Evaluate(0.7), s.Evaluate(0.7), 1e-15)
	assert.Equal(t, "sum(biharmonic+triharmonic+gaussian)", s.Name())
}

func TestModel(t *testing.T) {
	bh, err := NewBiharmonic([]float64{1, 0.25})
	require.NoError(t, err)

	testCases := []struct {
		dim, deg, size int
	}{
		{3, 0, 1},
		{3, 1, 4},
		{3, 2, 10},
		{2, 2, 6},
		{1, 3, 4},
	}
	for _, tc := range testCases {
		m, err := NewModel(bh, tc.dim, tc.deg)
		require.NoError(t, err)
		assert.Equal(t, tc.size, m.PolyBasisSize(), "dim %d deg %d", tc.dim, tc.deg)
	}

	m, err := NewModel(bh, 3, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.25, m.Nugget())
	require.NoError(t, m.SetNugget(0.01))
	assert.Equal(t, 0.01, m.Nugget())
	assert.True(t, errors.Is(m.SetNugget(-1), ErrConfiguration))

	// A CPD order 1 kernel needs at least a constant trend.
	_, err = NewModel(bh, 3, -1)
	assert.True(t, errors.Is(err, ErrConfiguration))

	imq, err := NewInverseMultiquadric([]float64{1, 1, 0})
	require.NoError(t, err)
	m, err = NewModel(imq, 3, -1)
	require.NoError(t, err)
	assert.Equal(t, 0, m.PolyBasisSize())

	_, err = NewModel(bh, 4, 0)
	assert.True(t, errors.Is(err, ErrConfiguration))
}

func TestModelEntriesAreSymmetric(t *testing.T) {
	k, err := NewMultiquadric([]float64{1, 0.3, 0})
	require.NoError(t, err)
	m, err := NewModel(k, 3, 0)
	require.NoError(t, err)

	x := geometry.Point3D{X: 0.1, Y: 0.4, Z: -0.3}
	y := geometry.Point3D{X: -0.2, Y: 0.5, Z: 0.2}

	// Value at x from a gradient source at y equals the gradient at y from a
	// point source at x.
	pg := m.PointGrad(x.Sub(y))
	gp := m.GradPoint(y.Sub(x))
	for i := 0; i < 3; i++ {
		assert.InDelta(t, gp[i], pg[i], 1e-15)
	}

	gg1 := m.GradGrad(x.Sub(y))
	gg2 := m.GradGrad(y.Sub(x))
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			assert.InDelta(t, gg1[i][j], gg2[j][i], 1e-15)
		}
	}
}

func TestGradientDataNeedsSmoothKernel(t *testing.T) {
	smooth := map[string]bool{
		"multiquadric":         true,
		"inverse_multiquadric": true,
		"triharmonic":          true,
		"gaussian":             true,
		"exponential":          false,
		"spherical":            false,
		"biharmonic":           false,
		"linear_variogram":     false,
	}
	for _, k := range allKernels(t) {
		assert.Equal(t, smooth[k.Name()], k.SmoothAtOrigin(), k.Name())

		m, err := NewModel(k, 3, 1)
		require.NoError(t, err)
		assert.NoError(t, m.CheckGradientData(0), k.Name())
		err = m.CheckGradientData(5)
		if smooth[k.Name()] {
			assert.NoError(t, err, k.Name())
		} else {
			assert.ErrorIs(t, err, ErrConfiguration, k.Name())
			assert.Contains(t, err.Error(), k.Name())
		}
	}

	mq, err := NewMultiquadric([]float64{1, 0, 0})
	require.NoError(t, err)
	assert.False(t, mq.SmoothAtOrigin())

	g, err := NewGaussian([]float64{1, 1, 0})
	require.NoError(t, err)
	bh, err := NewBiharmonic([]float64{1, 0})
	require.NoError(t, err)
	mq1, err := NewMultiquadric([]float64{1, 1, 0})
	require.NoError(t, err)
	assert.True(t, NewSum(g, mq1).SmoothAtOrigin())
	assert.False(t, NewSum(g, bh).SmoothAtOrigin())
}
