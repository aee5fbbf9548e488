package poi

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig marks options that fail validation
	ErrInvalidConfig = errors.New("invalid poi configuration")

	// ErrInvalidSnapshot marks a snapshot the engine cannot score
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// ErrNonConvergence marks a power iteration that ran out of iterations
	ErrNonConvergence = errors.New("importance iteration did not converge")
)

// NonConvergenceError reports the state of a power iteration that hit its
// iteration limit before the L1 delta dropped below the tolerance
type NonConvergenceError struct {
	Iterations int
	LastDelta  float64
	Tolerance  float64
}

func (e *NonConvergenceError) Error() string {
	return fmt.Sprintf("importance iteration did not converge after %d iterations (delta %g, tolerance %g)",
		e.Iterations, e.LastDelta, e.Tolerance)
}

func (e *NonConvergenceError) Unwrap() error { return ErrNonConvergence }

func invalidConfigf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}
