package reflectance

import (
	"errors"
	"fmt"
)

var (
	// ErrConvergence is matched by every *ConvergenceError.
	ErrConvergence = errors.New("reflectance: solver did not converge")
	// ErrNumerical is returned when a linear solve is singular or
	// ill-conditioned, or an iterate stops being finite.
	ErrNumerical = errors.New("reflectance: numerical failure")
	// ErrInvalidSensitivity is returned for a malformed sensitivity table.
	ErrInvalidSensitivity = errors.New("reflectance: invalid sensitivity matrix")
	// ErrUnknownMethod is returned for an unrecognised solver name.
	ErrUnknownMethod = errors.New("reflectance: unknown method")
)

// ConvergenceError reports a solver that hit its iteration cap.
type ConvergenceError struct {
	Method     Method
	Iterations int
}

func (e *ConvergenceError) Error() string {
	return fmt.Sprintf("reflectance: %s found no solution after %d iterations", e.Method, e.Iterations)
}

func (e *ConvergenceError) Is(target error) bool { return target == ErrConvergence }
