package reflectance

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// solveLHTSS minimizes the slope roughness zᵀDz subject to T·ρ = rgb with
// ρ = (tanh(z)+1)/2, using Newton's method on z and the three Lagrange
// multipliers jointly.
func solveLHTSS(ctx context.Context, rgb [3]float64, opt Options) (Spectrum, error) {
	const n = Bands
	t := opt.Sensitivity.t
	d := roughness(lhtssDiag, lhtssOff)

	z := mat.NewVecDense(n, nil)
	lambda := mat.NewVecDense(3, nil)

	rho := mat.NewVecDense(n, nil)
	d1 := make([]float64, n) // dρ/dz
	d2 := make([]float64, n) // d²ρ/dz²
	tl := mat.NewVecDense(n, nil)
	dz := mat.NewVecDense(n, nil)
	tr := mat.NewVecDense(3, nil)
	f := mat.NewVecDense(n+3, nil)
	jac := mat.NewDense(n+3, n+3, nil)
	var delta mat.VecDense
	var lu mat.LU

	for it := range opt.MaxIterations {
		if err := ctx.Err(); err != nil {
			return Spectrum{}, err
		}

		for i := range n {
			zi := z.AtVec(i)
			sech := 1 / math.Cosh(zi)
			th := math.Tanh(zi)
			rho.SetVec(i, (th+1)/2)
			d1[i] = sech * sech / 2
			d2[i] = -sech * sech * th
		}

		tl.MulVec(t.T(), lambda)
		dz.MulVec(d, z)
		tr.MulVec(t, rho)

		converged := true
		for i := range n {
			v := dz.AtVec(i) + d1[i]*tl.AtVec(i)
			f.SetVec(i, v)
			converged = converged && math.Abs(v) < opt.Tolerance
		}
		for r := range 3 {
			v := tr.AtVec(r) - rgb[r]
			f.SetVec(n+r, v)
			converged = converged && math.Abs(v) < opt.Tolerance
		}
		if converged {
			return toSpectrum(rho)
		}
		if sum := mat.Sum(f); math.IsNaN(sum) || math.IsInf(sum, 0) {
			return Spectrum{}, fmt.Errorf("%w: lhtss residual is not finite at step %d", ErrNumerical, it)
		}

		jac.Zero()
		for i := range n {
			for j := range n {
				jac.Set(i, j, d.At(i, j))
			}
			jac.Set(i, i, jac.At(i, i)+d2[i]*tl.AtVec(i))
			for r := range 3 {
				v := d1[i] * t.At(r, i)
				jac.Set(i, n+r, v)
				jac.Set(n+r, i, v)
			}
		}

		lu.Factorize(jac)
		f.ScaleVec(-1, f)
		if err := lu.SolveVecTo(&delta, false, f); err != nil {
			return Spectrum{}, fmt.Errorf("%w: lhtss newton step %d: %w", ErrNumerical, it, err)
		}
		for i := range n {
			z.SetVec(i, z.AtVec(i)+delta.AtVec(i))
		}
		for r := range 3 {
			lambda.SetVec(r, lambda.AtVec(r)+delta.AtVec(n+r))
		}
	}
	return Spectrum{}, &ConvergenceError{Method: LHTSS, Iterations: opt.MaxIterations}
}

func toSpectrum(v mat.Vector) (Spectrum, error) {
	var s Spectrum
	for i := range s {
		x := v.AtVec(i)
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return Spectrum{}, fmt.Errorf("%w: non-finite reflectance at band %d", ErrNumerical, i)
		}
		s[i] = x
	}
	return s, nil
}
