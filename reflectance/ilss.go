package reflectance

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// solveILSS computes the unconstrained least-roughness solution from the
// precomputed inverse of the augmented system, then repeatedly pins every
// out-of-range band to its bound and re-solves the reduced system for the
// remaining bands.
func solveILSS(ctx context.Context, rgb [3]float64, opt Options) (Spectrum, error) {
	const n = Bands
	b, err := opt.Sensitivity.ilssInverse()
	if err != nil {
		return Spectrum{}, err
	}
	b11 := b.Slice(0, n, 0, n)
	b12 := b.Slice(0, n, n, n+3)

	r := mat.NewVecDense(n, nil)
	r.MulVec(b12, mat.NewVecDense(3, rgb[:]))

	for i := range n {
		if v := r.AtVec(i); math.IsNaN(v) || math.IsInf(v, 0) {
			return Spectrum{}, fmt.Errorf("%w: ilss unconstrained solution band %d is %v", ErrNumerical, i, v)
		}
	}

	rho := mat.NewVecDense(n, nil)
	rho.CopyVec(r)

	for it := range opt.MaxIterations {
		if err := ctx.Err(); err != nil {
			return Spectrum{}, err
		}
		if inBounds(rho, opt.RhoMin, opt.RhoMax) {
			return toSpectrum(rho)
		}

		var fixed []int
		var bounds []float64
		for i := range n {
			if rho.AtVec(i) >= opt.RhoMax {
				fixed = append(fixed, i)
				bounds = append(bounds, opt.RhoMax)
			}
		}
		for i := range n {
			if rho.AtVec(i) <= opt.RhoMin {
				fixed = append(fixed, i)
				bounds = append(bounds, opt.RhoMin)
			}
		}
		m := len(fixed)
		if m == 0 {
			return Spectrum{}, fmt.Errorf("%w: ilss pass %d is out of range with no band to pin", ErrNumerical, it)
		}

		// K·B11·Kᵀ and K·R − bounds.
		kbk := mat.NewDense(m, m, nil)
		rhs := mat.NewVecDense(m, nil)
		for a, i := range fixed {
			for c, j := range fixed {
				kbk.Set(a, c, b11.At(i, j))
			}
			rhs.SetVec(a, r.AtVec(i)-bounds[a])
		}
		var lu mat.LU
		lu.Factorize(kbk)
		var y mat.VecDense
		if err := lu.SolveVecTo(&y, false, rhs); err != nil {
			return Spectrum{}, fmt.Errorf("%w: ilss active set pass %d with %d fixed bands: %w", ErrNumerical, it, m, err)
		}

		for i := range n {
			v := r.AtVec(i)
			for a, j := range fixed {
				v -= b11.At(i, j) * y.AtVec(a)
			}
			rho.SetVec(i, v)
		}
		for a, i := range fixed {
			rho.SetVec(i, bounds[a])
		}
	}
	if inBounds(rho, opt.RhoMin, opt.RhoMax) {
		return toSpectrum(rho)
	}
	return Spectrum{}, &ConvergenceError{Method: ILSS, Iterations: opt.MaxIterations}
}

func inBounds(v mat.Vector, lo, hi float64) bool {
	for i := range v.Len() {
		x := v.AtVec(i)
		if !(x >= lo && x <= hi) {
			return false
		}
	}
	return true
}
