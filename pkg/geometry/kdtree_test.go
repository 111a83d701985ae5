package geometry

import (
	"math/rand"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/kdtree"
)

func randomCloud(n int, seed int64) Points3D {
	rng := rand.New(rand.NewSource(seed))
	p := make(Points3D, n)
	for i := range p {
		p[i] = Point3D{X: rng.Float64(), Y: rng.Float64(), Z: rng.Float64()}
	}
	return p
}

func bruteNearest(points Points3D, q Point3D, k int) []int {
	idx := make([]int, len(points))
	for i := range idx {
		idx[i] = i
	}
	sort.Slice(idx, func(a, b int) bool {
		return points[idx[a]].Distance(q) < points[idx[b]].Distance(q)
	})
	return idx[:k]
}

func TestIndexNearest(t *testing.T) {
	points := randomCloud(500, 1)
	index := NewIndex(points)
	require.Equal(t, 500, index.Len())

	for i, q := range randomCloud(20, 2) {
		assert.Equal(t, bruteNearest(points, q, 7), index.Nearest(q, 7), "query %d", i)
	}
	assert.Len(t, index.Nearest(Point3D{}, 1000), 500)
	assert.Nil(t, index.Nearest(Point3D{}, 0))
	assert.Nil(t, NewIndex(nil).Nearest(Point3D{}, 3))
}

func TestIndexWithin(t *testing.T) {
	points := randomCloud(400, 3)
	index := NewIndex(points)
	q := Point3D{X: 0.5, Y: 0.5, Z: 0.5}

	var want []int
	for i, p := range points {
		if p.Sub(q).Norm() <= 0.2 {
			want = append(want, i)
		}
	}
	got := index.Within(q, 0.2)
	sort.Ints(got)
	assert.Equal(t, want, got)
}

func TestPointsBoundsAndSubset(t *testing.T) {
	p := Points3D{{X: 1, Y: -1, Z: 2}, {X: -3, Y: 4, Z: 0}, {X: 0, Y: 0, Z: 5}}
	lo, hi := p.Bounds()
	assert.Equal(t, Point3D{X: -3, Y: -1, Z: 0}, lo)
	assert.Equal(t, Point3D{X: 1, Y: 4, Z: 5}, hi)
	assert.Equal(t, Points3D{p[2], p[0]}, p.Subset([]int{2, 0}))
	assert.InDelta(t, 5, Point3D{X: 3, Y: 4}.Norm(), 1e-15)
	assert.Panics(t, func() { p[0].Coord(3) })
}

func TestIndexedPointComparable(t *testing.T) {
	var a, b kdtree.Comparable = IndexedPoint{Point3D: Point3D{X: 1, Y: 2, Z: 3}, Index: 0},
		IndexedPoint{Point3D: Point3D{X: 4, Y: 6, Z: 3}, Index: 1}
	assert.Equal(t, 3, a.Dims())
	assert.Equal(t, -3.0, a.Compare(b, 0))
	assert.Equal(t, -4.0, a.Compare(b, 1))
	assert.Equal(t, 25.0, a.Distance(b))
	assert.Equal(t, 25.0, Point3D{X: 1, Y: 2}.Distance(Point3D{X: 4, Y: 6}))
}
