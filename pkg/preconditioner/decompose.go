package preconditioner

import (
	"fmt"
	"sort"

	"rbfinterp/pkg/geometry"
	"rbfinterp/pkg/rbf"
)

// DecomposeOptions controls Decompose.
type DecomposeOptions struct {
	// DomainSize is the number of sites (points plus gradient points) a
	// domain is grown to.
	DomainSize int
	// Overlap is the ratio of sites borrowed from neighbouring leaves to sites
	// owned by the leaf, so leaves hold DomainSize/(1+Overlap) sites.
	Overlap float64
	// Prefix lists point indices placed first, in order, in every domain.
	Prefix []int
}

// sites merges points and gradient points into one indexable set: position
// i < mu is point i, position mu+j is gradient point j.
type sites struct {
	pos geometry.Points3D
	mu  int
}

func newSites(points, gradPoints geometry.Points3D) sites {
	pos := make(geometry.Points3D, 0, len(points)+len(gradPoints))
	pos = append(pos, points...)
	pos = append(pos, gradPoints...)
	return sites{pos: pos, mu: len(points)}
}

// domain builds a Domain from prefix point indices followed by the given
// site positions, dropping repeats.
func (s sites) domain(prefix []int, members ...[]int) *Domain {
	d := &Domain{PointIndices: append([]int(nil), prefix...)}
	seen := make(map[int]struct{}, len(prefix))
	for _, idx := range prefix {
		seen[idx] = struct{}{}
	}
	for _, list := range members {
		for _, i := range list {
			if _, dup := seen[i]; dup {
				continue
			}
			seen[i] = struct{}{}
			if i < s.mu {
				d.PointIndices = append(d.PointIndices, i)
			} else {
				d.GradPointIndices = append(d.GradPointIndices, i-s.mu)
			}
		}
	}
	return d
}

// bisect splits the site positions in ids at the median of their longest
// extent until every leaf has at most leafSize entries. ids is reordered.
func (s sites) bisect(ids []int, leafSize int, leaves [][]int) [][]int {
	if len(ids) <= leafSize {
		return append(leaves, ids)
	}
	sub := s.pos.Subset(ids)
	lo, hi := sub.Bounds()
	axis, extent := 0, hi.X-lo.X
	if e := hi.Y - lo.Y; e > extent {
		axis, extent = 1, e
	}
	if e := hi.Z - lo.Z; e > extent {
		axis = 2
	}
	sort.Slice(ids, func(i, j int) bool {
		return s.pos[ids[i]].Coord(axis) < s.pos[ids[j]].Coord(axis)
	})
	half := len(ids) / 2
	leaves = s.bisect(ids[:half], leafSize, leaves)
	return s.bisect(ids[half:], leafSize, leaves)
}

func (s sites) centroid(ids []int) geometry.Point3D {
	var c geometry.Point3D
	for _, i := range ids {
		p := s.pos[i]
		c.X += p.X
		c.Y += p.Y
		c.Z += p.Z
	}
	n := float64(len(ids))
	return geometry.Point3D{X: c.X / n, Y: c.Y / n, Z: c.Z / n}
}

func (s sites) all() []int {
	ids := make([]int, len(s.pos))
	for i := range ids {
		ids[i] = i
	}
	return ids
}

func checkPrefix(prefix []int, mu int) error {
	return checkIndices("prefix point", prefix, mu)
}

// Decompose covers the points and gradient points with overlapping domains.
// The sites are bisected into spatially compact leaves; each leaf becomes a
// domain together with the sites nearest its centroid, up to DomainSize.
// Every site belongs to the domain of its leaf, so the result always passes
// CheckPartition.
func Decompose(points, gradPoints geometry.Points3D, opts DecomposeOptions) ([]*Domain, error) {
	if opts.DomainSize < 1 {
		return nil, fmt.Errorf("%w: domain size %d", rbf.ErrConfiguration, opts.DomainSize)
	}
	if opts.Overlap < 0 {
		return nil, fmt.Errorf("%w: negative overlap %g", rbf.ErrConfiguration, opts.Overlap)
	}
	if err := checkPrefix(opts.Prefix, len(points)); err != nil {
		return nil, err
	}
	s := newSites(points, gradPoints)
	if len(s.pos) == 0 {
		return nil, fmt.Errorf("%w: no sites to decompose", rbf.ErrConfiguration)
	}
	if len(s.pos) <= opts.DomainSize {
		return []*Domain{s.domain(opts.Prefix, s.all())}, nil
	}

	leafSize := max(1, int(float64(opts.DomainSize)/(1+opts.Overlap)))
	leaves := s.bisect(s.all(), leafSize, nil)
	index := geometry.NewIndex(s.pos)
	grow := max(opts.DomainSize-len(opts.Prefix), 0)

	domains := make([]*Domain, len(leaves))
	for i, leaf := range leaves {
		near := index.Nearest(s.centroid(leaf), grow)
		domains[i] = s.domain(opts.Prefix, leaf, near)
	}
	return domains, nil
}

// CoarseDomain picks about size sites spread evenly over the point set: the
// sites are bisected into size leaves and the site nearest each leaf's
// centroid is taken. The prefix points lead the result.
func CoarseDomain(points, gradPoints geometry.Points3D, size int, prefix []int) (*Domain, error) {
	if size < 1 {
		return nil, fmt.Errorf("%w: coarse size %d", rbf.ErrConfiguration, size)
	}
	if err := checkPrefix(prefix, len(points)); err != nil {
		return nil, err
	}
	s := newSites(points, gradPoints)
	if len(s.pos) <= size {
		return s.domain(prefix, s.all()), nil
	}
	leafSize := (len(s.pos) + size - 1) / size
	leaves := s.bisect(s.all(), leafSize, nil)
	picked := make([]int, 0, len(leaves))
	for _, leaf := range leaves {
		c := s.centroid(leaf)
		best, bestDist := leaf[0], s.pos[leaf[0]].Distance(c)
		for _, i := range leaf[1:] {
			if d := s.pos[i].Distance(c); d < bestDist {
				best, bestDist = i, d
			}
		}
		picked = append(picked, best)
	}
	return s.domain(prefix, picked), nil
}
