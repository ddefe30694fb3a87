package skintone

import (
	"errors"

	"github.com/setanarut/skintone/reflectance"
)

var (
	// ErrDegenerateInput is returned when an empty color set or mask is
	// passed where at least one point is required.
	ErrDegenerateInput = errors.New("skintone: degenerate input")
	// ErrInvalidK is returned when the cluster count is not positive.
	ErrInvalidK = errors.New("skintone: k must be positive")
	// ErrLengthMismatch is returned when paired inputs differ in size.
	ErrLengthMismatch = errors.New("skintone: length mismatch")
	// ErrNoClustering is returned when no selection trial produced a usable
	// clustering.
	ErrNoClustering = errors.New("skintone: no valid clustering found")

	// ErrConvergence is returned when a reflectance solver hits its
	// iteration cap.
	ErrConvergence = reflectance.ErrConvergence
	// ErrNumerical is returned when a reflectance solve is singular or
	// ill-conditioned.
	ErrNumerical = reflectance.ErrNumerical
)
