// Package pointcloud generates and thins scattered point sets used to drive
// the solver: random samples, signed-distance data around a surface and a
// minimum-distance filter.
package pointcloud

import (
	"fmt"
	"math"
	"math/rand"

	"rbfinterp/pkg/geometry"
)

// Shape samples random points.
type Shape interface {
	Sample(rng *rand.Rand) geometry.Point3D
}

// Sphere samples uniformly on the surface of a sphere.
type Sphere struct {
	Center geometry.Point3D
	Radius float64
}

// UnitSphere is the sphere of radius one centred at the origin.
func UnitSphere() Sphere { return Sphere{Radius: 1} }

func (s Sphere) Sample(rng *rand.Rand) geometry.Point3D {
	for {
		x, y, z := rng.NormFloat64(), rng.NormFloat64(), rng.NormFloat64()
		n := math.Sqrt(x*x + y*y + z*z)
		if n < 1e-12 {
			continue
		}
		f := s.Radius / n
		return geometry.Point3D{X: s.Center.X + f*x, Y: s.Center.Y + f*y, Z: s.Center.Z + f*z}
	}
}

// Normal returns the outward unit normal at a surface point.
func (s Sphere) Normal(p geometry.Point3D) geometry.Point3D {
	d := p.Sub(s.Center)
	n := d.Norm()
	return geometry.Point3D{X: d.X / n, Y: d.Y / n, Z: d.Z / n}
}

// Box samples uniformly inside an axis-aligned box.
type Box struct {
	Min, Max geometry.Point3D
}

// UnitCube is the box [0, 1]³.
func UnitCube() Box { return Box{Max: geometry.Point3D{X: 1, Y: 1, Z: 1}} }

func (b Box) Sample(rng *rand.Rand) geometry.Point3D {
	return geometry.Point3D{
		X: b.Min.X + rng.Float64()*(b.Max.X-b.Min.X),
		Y: b.Min.Y + rng.Float64()*(b.Max.Y-b.Min.Y),
		Z: b.Min.Z + rng.Float64()*(b.Max.Z-b.Min.Z),
	}
}

// RandomPoints draws n points from shape using a generator seeded with seed.
func RandomPoints(shape Shape, n int, seed int64) geometry.Points3D {
	rng := rand.New(rand.NewSource(seed))
	points := make(geometry.Points3D, n)
	for i := range points {
		points[i] = shape.Sample(rng)
	}
	return points
}

// SDFData builds signed-distance samples around a surface: every surface
// point with value zero, plus for each offset the points displaced by
// ±offset along the normal with values ±offset.
func SDFData(surface, normals geometry.Points3D, offsets ...float64) (geometry.Points3D, []float64, error) {
	if len(surface) != len(normals) {
		return nil, nil, fmt.Errorf("pointcloud: %d surface points but %d normals", len(surface), len(normals))
	}
	n := len(surface) * (1 + 2*len(offsets))
	points := make(geometry.Points3D, 0, n)
	values := make([]float64, 0, n)
	points = append(points, surface...)
	values = append(values, make([]float64, len(surface))...)
	for _, off := range offsets {
		for _, sign := range []float64{1, -1} {
			d := sign * off
			for i, p := range surface {
				nn := normals[i]
				points = append(points, geometry.Point3D{X: p.X + d*nn.X, Y: p.Y + d*nn.Y, Z: p.Z + d*nn.Z})
				values = append(values, d)
			}
		}
	}
	return points, values, nil
}

// DistanceFilter returns the indices of a subset of points in which no two
// points are closer than minDistance. Points are visited in order and a
// point is dropped when an already kept point lies within minDistance.
func DistanceFilter(points geometry.Points3D, minDistance float64) []int {
	index := geometry.NewIndex(points)
	removed := make([]bool, len(points))
	kept := make([]int, 0, len(points))
	for i, p := range points {
		if removed[i] {
			continue
		}
		kept = append(kept, i)
		for _, j := range index.Within(p, minDistance) {
			if j > i {
				removed[j] = true
			}
		}
	}
	return kept
}
