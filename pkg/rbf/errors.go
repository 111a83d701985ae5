package rbf

import "errors"

// Error categories shared by every package of the solver. Callers match them
// with errors.Is; the wrapping error carries the details.
var (
	// ErrConfiguration reports an unusable combination of inputs: too few
	// points for the polynomial degree, a kernel whose conditional positive
	// definiteness order the degree cannot support, mismatched lengths.
	ErrConfiguration = errors.New("rbf: configuration error")

	// ErrNumerical reports a failed factorization or a solve that did not
	// reach its tolerance.
	ErrNumerical = errors.New("rbf: numerical error")

	// ErrIndex reports an out-of-range or duplicated index.
	ErrIndex = errors.New("rbf: index error")
)
