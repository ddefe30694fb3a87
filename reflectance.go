package skintone

import (
	"context"

	"github.com/lucasb-eyer/go-colorful"

	"github.com/setanarut/skintone/reflectance"
)

// ReconstructReflectance returns a smooth 36-band reflectance curve for c
// using the embedded D65 sensitivity matrix. Solver failures are returned
// unchanged; match them with ErrConvergence and ErrNumerical.
func ReconstructReflectance(ctx context.Context, c colorful.Color, method reflectance.Method) (reflectance.Spectrum, error) {
	return reflectance.Reconstruct(ctx, c, method, reflectance.DefaultOptions())
}
