// Package models holds the index layout shared by the solver packages.
package models

import (
	"fmt"

	"rbfinterp/pkg/rbf"
)

// Layout describes a global unknown vector: Mu point weights, then Dim
// weights per gradient point (Sigma of them), then L polynomial coefficients.
type Layout struct {
	Mu    int
	Sigma int
	Dim   int
	L     int
}

// NewLayout returns the layout of a model applied to mu points and sigma
// gradient points.
func NewLayout(model *rbf.Model, mu, sigma int) Layout {
	return Layout{Mu: mu, Sigma: sigma, Dim: model.Dim(), L: model.PolyBasisSize()}
}

// Functionals is the number of interpolation conditions, Mu + Dim·Sigma.
func (l Layout) Functionals() int { return l.Mu + l.Dim*l.Sigma }

// Size is the full length of a weight vector.
func (l Layout) Size() int { return l.Functionals() + l.L }

// GradOffset is the position of the first weight of gradient point j.
func (l Layout) GradOffset(j int) int { return l.Mu + l.Dim*j }

// Check reports a configuration error when w does not have Size() entries.
func (l Layout) Check(what string, w []float64) error {
	if len(w) != l.Size() {
		return fmt.Errorf("%w: %s has length %d, expected %d (%d points + %d×%d gradients + %d polynomial terms)",
			rbf.ErrConfiguration, what, len(w), l.Size(), l.Mu, l.Dim, l.Sigma, l.L)
	}
	return nil
}

// CheckValues reports a configuration error when v does not have
// Functionals() entries.
func (l Layout) CheckValues(what string, v []float64) error {
	if len(v) != l.Functionals() {
		return fmt.Errorf("%w: %s has length %d, expected %d (%d points + %d×%d gradients)",
			rbf.ErrConfiguration, what, len(v), l.Functionals(), l.Mu, l.Dim, l.Sigma)
	}
	return nil
}
