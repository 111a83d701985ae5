package geometry

import (
	"sort"

	"gonum.org/v1/gonum/spatial/kdtree"
)

// IndexedPoint is a point that remembers its position in the set the tree
// was built from, so neighbour queries resolve to indices without a scan.
type IndexedPoint struct {
	Point3D
	Index int
}

// Compare implements the kdtree.Comparable interface
func (p IndexedPoint) Compare(c kdtree.Comparable, d kdtree.Dim) float64 {
	return p.Point3D.Coord(int(d)) - c.(IndexedPoint).Point3D.Coord(int(d))
}

// Distance returns the squared Euclidean distance between two points
func (p IndexedPoint) Distance(c kdtree.Comparable) float64 {
	return p.Point3D.Distance(c.(IndexedPoint).Point3D)
}

// IndexedPoints is a collection of IndexedPoint that satisfies kdtree.Interface
type IndexedPoints []IndexedPoint

func (p IndexedPoints) Index(i int) kdtree.Comparable         { return p[i] }
func (p IndexedPoints) Len() int                              { return len(p) }
func (p IndexedPoints) Slice(start, end int) kdtree.Interface { return p[start:end] }

// Pivot implements the kdtree.Interface method
func (p IndexedPoints) Pivot(d kdtree.Dim) int {
	return kdtree.Partition(pointPlane{IndexedPoints: p, Dim: d}, kdtree.MedianOfRandoms(pointPlane{IndexedPoints: p, Dim: d}, 100))
}

// pointPlane implements sort.Interface and kdtree.SortSlicer for IndexedPoints
type pointPlane struct {
	IndexedPoints
	kdtree.Dim
}

func (p pointPlane) Less(i, j int) bool {
	return p.IndexedPoints[i].Coord(int(p.Dim)) < p.IndexedPoints[j].Coord(int(p.Dim))
}

func (p pointPlane) Slice(start, end int) kdtree.SortSlicer {
	return pointPlane{IndexedPoints: p.IndexedPoints[start:end], Dim: p.Dim}
}

func (p pointPlane) Swap(i, j int) {
	p.IndexedPoints[i], p.IndexedPoints[j] = p.IndexedPoints[j], p.IndexedPoints[i]
}

// Index is a kd-tree over a point set answering index-valued queries.
type Index struct {
	tree *kdtree.Tree
	n    int
}

// NewIndex builds the spatial index. The input slice is not modified.
func NewIndex(points Points3D) *Index {
	items := make(IndexedPoints, len(points))
	for i, p := range points {
		items[i] = IndexedPoint{Point3D: p, Index: i}
	}
	idx := &Index{n: len(points)}
	if len(items) > 0 {
		idx.tree = kdtree.New(items, true)
	}
	return idx
}

// Len returns the number of indexed points.
func (x *Index) Len() int { return x.n }

// Nearest returns the indices of the k points closest to q, closest first.
func (x *Index) Nearest(q Point3D, k int) []int {
	if x.tree == nil || k <= 0 {
		return nil
	}
	if k > x.n {
		k = x.n
	}
	keeper := kdtree.NewNKeeper(k)
	x.tree.NearestSet(keeper, IndexedPoint{Point3D: q, Index: -1})
	return heapIndices(keeper.Heap)
}

// Within returns the indices of all points at distance at most r from q.
func (x *Index) Within(q Point3D, r float64) []int {
	if x.tree == nil {
		return nil
	}
	keeper := kdtree.NewDistKeeper(r * r)
	x.tree.NearestSet(keeper, IndexedPoint{Point3D: q, Index: -1})
	return heapIndices(keeper.Heap)
}

func heapIndices(heap kdtree.Heap) []int {
	items := make([]kdtree.ComparableDist, 0, len(heap))
	for _, item := range heap {
		// Skip the sentinel value
		if item.Comparable == nil {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Dist < items[j].Dist })
	out := make([]int, len(items))
	for i, item := range items {
		out[i] = item.Comparable.(IndexedPoint).Index
	}
	return out
}
