package interpolation

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/pointcloud"
	"rbfinterp/pkg/rbf"
)

// testPointsValues samples signed-distance data around the unit sphere.
func testPointsValues(t *testing.T, nSurface int, seed int64) (geometry.Points3D, []float64) {
	t.Helper()
	sphere := pointcloud.UnitSphere()
	surface := pointcloud.RandomPoints(sphere, nSurface, seed)
	normals := make(geometry.Points3D, len(surface))
	for i, p := range surface {
		normals[i] = sphere.Normal(p)
	}
	points, values, err := pointcloud.SDFData(surface, normals, 0.05)
	require.NoError(t, err)
	kept := pointcloud.DistanceFilter(points, 1e-6)
	filtered := make([]float64, len(kept))
	for i, idx := range kept {
		filtered[i] = values[idx]
	}
	return points.Subset(kept), filtered
}

func testModel(t *testing.T, deg int) *rbf.Model {
	t.Helper()
	var (
		k   rbf.Kernel
		err error
	)
	if deg < 0 {
		k, err = rbf.NewExponential([]float64{1.0, 1.0, 0})
	} else {
		k, err = rbf.NewLinearVariogram([]float64{1.0, 0})
	}
	require.NoError(t, err)
	m, err := rbf.NewModel(k, 3, deg)
	require.NoError(t, err)
	return m
}

func smallOptions() Options {
	return Options{DomainSize: 96, Overlap: 0.5, CoarseSize: 128, MaxIterations: 400, Workers: 4}
}

func randomGuess(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	x := make([]float64, n)
	for i := range x {
		x[i] = 1e-5 * (2*rng.Float64() - 1)
	}
	return x
}

// TestFitAccuracy fits every polynomial degree with and without an initial
// guess and checks the fitted values at the data points.
func TestFitAccuracy(t *testing.T) {
	const tolerance = 1e-4
	points, values := testPointsValues(t, 200, 1)

	for _, deg := range []int{-1, 0, 1, 2} {
		for _, withGuess := range []bool{false, true} {
			model := testModel(t, deg)
			fitter, err := NewFitter(model, points, nil, smallOptions())
			require.NoError(t, err, "degree %d", deg)

			var initial []float64
			if withGuess {
				initial = randomGuess(len(points)+model.PolyBasisSize(), int64(deg+10))
			}
			weights, err := fitter.Fit(values, tolerance, initial)
			require.NoError(t, err, "degree %d guess %v", deg, withGuess)
			require.Len(t, weights, len(points)+model.PolyBasisSize())
			assert.LessOrEqual(t, fitter.Stats().Residual, tolerance)

			eval := NewSymmetricEvaluator(model, points, nil)
			require.NoError(t, eval.SetWeights(weights))
			fit, err := eval.Evaluate()
			require.NoError(t, err)
			for i := range points {
				bound := tolerance + model.Nugget()*math.Abs(weights[i])
				require.LessOrEqual(t, math.Abs(values[i]-fit[i]), bound, "degree %d guess %v point %d", deg, withGuess, i)
			}
		}
	}
}

func TestFitWithNugget(t *testing.T) {
	const tolerance = 1e-4
	points, values := testPointsValues(t, 150, 2)
	model := testModel(t, 1)
	require.NoError(t, model.SetNugget(1e-3))

	fitter, err := NewFitter(model, points, nil, smallOptions())
	require.NoError(t, err)
	weights, err := fitter.Fit(values, tolerance, nil)
	require.NoError(t, err)

	eval := NewDirectEvaluator(model, points, nil)
	eval.SetFieldPoints(points)
	require.NoError(t, eval.SetWeights(weights))
	fit, err := eval.Evaluate()
	require.NoError(t, err)
	for i := range points {
		assert.LessOrEqual(t, math.Abs(values[i]-fit[i]), tolerance+1e-3*math.Abs(weights[i])+1e-12)
	}
}

// TestFitGradients fits values and gradients of the signed distance to the
// sphere on a problem small enough for the coarse level to hold every site.
func TestFitGradients(t *testing.T) {
	const tolerance = 1e-5
	sphere := pointcloud.UnitSphere()
	points := pointcloud.RandomPoints(pointcloud.Box{
		Min: geometry.Point3D{X: -1, Y: -1, Z: -1},
		Max: geometry.Point3D{X: 1, Y: 1, Z: 1},
	}, 120, 3)
	grads := pointcloud.RandomPoints(sphere, 40, 4)

	values := make([]float64, len(points)+3*len(grads))
	for i, p := range points {
		values[i] = p.Norm() - 1
	}
	for j, y := range grads {
		n := sphere.Normal(y)
		values[len(points)+3*j] = n.X
		values[len(points)+3*j+1] = n.Y
		values[len(points)+3*j+2] = n.Z
	}

	k, err := rbf.NewMultiquadric([]float64{1.0, 0.5, 0})
	require.NoError(t, err)
	model, err := rbf.NewModel(k, 3, 1)
	require.NoError(t, err)

	fitter, err := NewFitter(model, points, grads, Options{CoarseSize: 1000, Workers: 2})
	require.NoError(t, err)
	weights, err := fitter.Fit(values, tolerance, nil)
	require.NoError(t, err)
	require.Len(t, weights, len(points)+3*len(grads)+4)

	eval := NewDirectEvaluator(model, points, grads)
	eval.SetFieldPoints(points)
	eval.SetFieldGradPoints(grads)
	require.NoError(t, eval.SetWeights(weights))
	fit, err := eval.Evaluate()
	require.NoError(t, err)
	require.Len(t, fit, len(values))
	for i := range values {
		assert.InDelta(t, values[i], fit[i], tolerance+1e-9, "row %d", i)
	}
}

// TestFitInitialGuessEquivalence checks that seeding the iteration does not
// change the fitted values beyond the tolerance.
func TestFitInitialGuessEquivalence(t *testing.T) {
	const tolerance = 1e-4
	points, values := testPointsValues(t, 120, 5)
	model := testModel(t, 0)
	fitter, err := NewFitter(model, points, nil, smallOptions())
	require.NoError(t, err)

	plain, err := fitter.Fit(values, tolerance, nil)
	require.NoError(t, err)
	seeded, err := fitter.Fit(values, tolerance, randomGuess(len(points)+1, 6))
	require.NoError(t, err)

	eval := NewSymmetricEvaluator(model, points, nil)
	require.NoError(t, eval.SetWeights(plain))
	a, err := eval.Evaluate()
	require.NoError(t, err)
	require.NoError(t, eval.SetWeights(seeded))
	b, err := eval.Evaluate()
	require.NoError(t, err)
	for i := range a {
		assert.InDelta(t, a[i], b[i], 2*tolerance)
	}
}

func TestFitErrors(t *testing.T) {
	points, values := testPointsValues(t, 100, 7)
	model := testModel(t, 1)
	fitter, err := NewFitter(model, points, nil, smallOptions())
	require.NoError(t, err)

	_, err = fitter.Fit(values[1:], 1e-4, nil)
	assert.ErrorIs(t, err, rbf.ErrConfiguration)
	_, err = fitter.Fit(values, 0, nil)
	assert.ErrorIs(t, err, rbf.ErrConfiguration)
	_, err = fitter.Fit(values, 1e-4, make([]float64, len(points)))
	assert.ErrorIs(t, err, rbf.ErrConfiguration)

	_, err = NewFitter(model, nil, nil, smallOptions())
	assert.ErrorIs(t, err, rbf.ErrConfiguration)

	// Quadratics are not determined by points on a sphere.
	onSphere := pointcloud.RandomPoints(pointcloud.UnitSphere(), 50, 8)
	_, err = NewFitter(testModel(t, 2), onSphere, nil, smallOptions())
	assert.ErrorIs(t, err, rbf.ErrConfiguration)
}

func TestFitIterationCap(t *testing.T) {
	points, values := testPointsValues(t, 150, 9)
	opts := smallOptions()
	opts.MaxIterations = 1
	fitter, err := NewFitter(testModel(t, 1), points, nil, opts)
	require.NoError(t, err)

	_, err = fitter.Fit(values, 1e-12, nil)
	require.Error(t, err)
	var ce *ConvergenceError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 1, ce.Iterations)
	assert.Equal(t, 1e-12, ce.Tolerance)
	assert.Greater(t, ce.Residual, 1e-12)
	assert.ErrorIs(t, err, rbf.ErrNumerical)
}

func TestFitReportsProgress(t *testing.T) {
	points, values := testPointsValues(t, 80, 10)
	var messages []string
	opts := smallOptions()
	opts.Progress = func(completed, total int, message string) {
		if message != "" {
			messages = append(messages, message)
		}
	}
	fitter, err := NewFitter(testModel(t, 0), points, nil, opts)
	require.NoError(t, err)
	_, err = fitter.Fit(values, 1e-4, nil)
	require.NoError(t, err)

	require.NotEmpty(t, messages)
	assert.Contains(t, messages[0], "domains")
	assert.Contains(t, messages[len(messages)-1], "converged")
}

func TestOptionsOverlapDefaults(t *testing.T) {
	testCases := []struct {
		overlap, want float64
	}{
		{0, DefaultOptions().Overlap},
		{NoOverlap, 0},
		{0.25, 0.25},
	}
	for _, tc := range testCases {
		o := Options{Overlap: tc.overlap}
		o.setDefaults()
		assert.Equal(t, tc.want, o.Overlap, "overlap %g", tc.overlap)
	}
}

func TestNewFitterRejectsGradientsForNonSmoothKernel(t *testing.T) {
	sphere := pointcloud.UnitSphere()
	surface := pointcloud.RandomPoints(sphere, 60, 21)
	points, _ := testPointsValues(t, 60, 21)

	bh, err := rbf.NewBiharmonic([]float64{1, 0})
	require.NoError(t, err)
	model, err := rbf.NewModel(bh, 3, 0)
	require.NoError(t, err)

	_, err = NewFitter(model, points, surface, smallOptions())
	assert.ErrorIs(t, err, rbf.ErrConfiguration)
	assert.Contains(t, err.Error(), "biharmonic")

	_, err = NewFitter(model, points, nil, smallOptions())
	assert.NoError(t, err)
}
