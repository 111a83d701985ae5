// Package preconditioner implements the overlapping domain decomposition
// that preconditions the global RBF system: Domains index local subproblems,
// CoarseGrids factor and solve them, and Preconditioner combines the local
// solves into an approximate inverse of the global operator.
package preconditioner

import (
	"fmt"

	"rbfinterp/pkg/rbf"
)

// Domain is one local subproblem: indices into the global point array and
// into the global gradient-point array. Indices must be unique within a
// Domain; different Domains may share indices.
type Domain struct {
	PointIndices     []int
	GradPointIndices []int
}

// Size is the number of local unknowns for a model of dimension dim.
func (d *Domain) Size(dim int) int {
	return len(d.PointIndices) + dim*len(d.GradPointIndices)
}

// Validate reports an ErrIndex error for an index outside [0, mu) or
// [0, sigma), or an index repeated within the Domain.
func (d *Domain) Validate(mu, sigma int) error {
	if err := checkIndices("point", d.PointIndices, mu); err != nil {
		return err
	}
	return checkIndices("gradient point", d.GradPointIndices, sigma)
}

func checkIndices(what string, indices []int, n int) error {
	seen := make(map[int]struct{}, len(indices))
	for pos, idx := range indices {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%w: %s index %d at position %d out of range [0, %d)", rbf.ErrIndex, what, idx, pos, n)
		}
		if _, dup := seen[idx]; dup {
			return fmt.Errorf("%w: duplicate %s index %d at position %d", rbf.ErrIndex, what, idx, pos)
		}
		seen[idx] = struct{}{}
	}
	return nil
}

// CheckPartition verifies that every global point and gradient-point index
// appears in at least one of the domains and that each domain is valid.
func CheckPartition(domains []*Domain, mu, sigma int) error {
	points := make([]bool, mu)
	grads := make([]bool, sigma)
	for i, d := range domains {
		if err := d.Validate(mu, sigma); err != nil {
			return fmt.Errorf("domain %d: %w", i, err)
		}
		for _, idx := range d.PointIndices {
			points[idx] = true
		}
		for _, idx := range d.GradPointIndices {
			grads[idx] = true
		}
	}
	for idx, ok := range points {
		if !ok {
			return fmt.Errorf("%w: point %d is not covered by any domain", rbf.ErrIndex, idx)
		}
	}
	for idx, ok := range grads {
		if !ok {
			return fmt.Errorf("%w: gradient point %d is not covered by any domain", rbf.ErrIndex, idx)
		}
	}
	return nil
}
