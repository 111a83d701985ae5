// Package geometry holds the point types shared by the interpolation packages
// and their adapters to gonum's kd-tree.
package geometry

import (
	"math"
)

// Point3D represents a 3D point. Models of lower dimension only read the
// leading coordinates.
type Point3D struct {
	X, Y, Z float64
}

// Sub returns the displacement p - q.
func (p Point3D) Sub(q Point3D) Point3D {
	return Point3D{X: p.X - q.X, Y: p.Y - q.Y, Z: p.Z - q.Z}
}

// Norm returns the Euclidean length of p.
func (p Point3D) Norm() float64 {
	return math.Sqrt(p.X*p.X + p.Y*p.Y + p.Z*p.Z)
}

// Coord returns the d-th coordinate.
func (p Point3D) Coord(d int) float64 {
	switch d {
	case 0:
		return p.X
	case 1:
		return p.Y
	case 2:
		return p.Z
	default:
		panic("illegal dimension")
	}
}

// Dims returns the number of dimensions for the KD-tree
func (p Point3D) Dims() int { return 3 }

// Distance returns the squared Euclidean distance between two points
func (p Point3D) Distance(q Point3D) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	dz := p.Z - q.Z
	return dx*dx + dy*dy + dz*dz
}

// Points3D is an ordered point set.
type Points3D []Point3D

// Bounds returns the axis-aligned bounding box of the set.
func (p Points3D) Bounds() (min, max Point3D) {
	if len(p) == 0 {
		return
	}
	min, max = p[0], p[0]
	for _, q := range p[1:] {
		min.X = math.Min(min.X, q.X)
		min.Y = math.Min(min.Y, q.Y)
		min.Z = math.Min(min.Z, q.Z)
		max.X = math.Max(max.X, q.X)
		max.Y = math.Max(max.Y, q.Y)
		max.Z = math.Max(max.Z, q.Z)
	}
	return
}

// Subset gathers the points at the given indices.
func (p Points3D) Subset(indices []int) Points3D {
	out := make(Points3D, len(indices))
	for i, idx := range indices {
		out[i] = p[idx]
	}
	return out
}
