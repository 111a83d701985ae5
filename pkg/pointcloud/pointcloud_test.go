package pointcloud

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rbfinterp/pkg/geometry"
)

func TestRandomPoints(t *testing.T) {
	sphere := Sphere{Center: geometry.Point3D{X: 1, Y: -2, Z: 0.5}, Radius: 3}
	points := RandomPoints(sphere, 200, 1)
	require.Len(t, points, 200)
	for _, p := range points {
		assert.InDelta(t, 3, p.Sub(sphere.Center).Norm(), 1e-12)
		n := sphere.Normal(p)
		assert.InDelta(t, 1, n.Norm(), 1e-12)
	}

	cube := RandomPoints(UnitCube(), 100, 2)
	lo, hi := cube.Bounds()
	assert.GreaterOrEqual(t, lo.X, 0.0)
	assert.LessOrEqual(t, hi.Z, 1.0)

	// Same seed, same points.
	assert.Equal(t, cube, RandomPoints(UnitCube(), 100, 2))
}

func TestSDFData(t *testing.T) {
	sphere := UnitSphere()
	surface := RandomPoints(sphere, 10, 3)
	normals := make(geometry.Points3D, len(surface))
	for i, p := range surface {
		normals[i] = sphere.Normal(p)
	}

	points, values, err := SDFData(surface, normals, 0.1, 0.2)
	require.NoError(t, err)
	require.Len(t, points, 50)
	require.Len(t, values, 50)
	for i, p := range points {
		// On the unit sphere the signed distance is |p| - 1.
		assert.InDelta(t, p.Norm()-1, values[i], 1e-12)
	}

	_, _, err = SDFData(surface, normals[1:], 0.1)
	assert.Error(t, err)
}

func TestDistanceFilter(t *testing.T) {
	points := geometry.Points3D{
		{X: 0}, {X: 0.05}, {X: 1}, {X: 1.2}, {X: 1.25}, {X: 3},
	}
	assert.Equal(t, []int{0, 2, 3, 5}, DistanceFilter(points, 0.1))
	assert.Equal(t, []int{0, 1, 2, 3, 4, 5}, DistanceFilter(points, 1e-6))

	random := RandomPoints(UnitCube(), 300, 4)
	kept := DistanceFilter(random, 0.1)
	for a := range kept {
		for b := a + 1; b < len(kept); b++ {
			d := random[kept[a]].Sub(random[kept[b]]).Norm()
			assert.Greater(t, d, 0.1-1e-12)
		}
	}
	assert.Less(t, len(kept), len(random))
}
