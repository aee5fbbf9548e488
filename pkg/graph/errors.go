package graph

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks configuration errors: bad parameters,
	// non-square matrices, node ids outside the graph.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrInvariantViolation marks a defect in the clustering code itself.
	ErrInvariantViolation = errors.New("invariant violation")
)

// InvariantError describes a broken internal invariant.
// It is raised with panic by low-level primitives and converted back into an
// error by RecoverInvariant at the package boundaries.
type InvariantError struct {
	Message string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("invariant violation: %s", e.Message)
}

func (e *InvariantError) Unwrap() error { return ErrInvariantViolation }

func invariantf(format string, args ...interface{}) {
	panic(&InvariantError{Message: fmt.Sprintf(format, args...)})
}

// RecoverInvariant turns a recovered *InvariantError into *err.
// Any other panic value is re-raised. Use as: defer graph.RecoverInvariant(&err)
func RecoverInvariant(err *error) {
	r := recover()
	if r == nil {
		return
	}
	if ie, ok := r.(*InvariantError); ok {
		*err = ie
		return
	}
	panic(r)
}

func invalidArgumentf(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
