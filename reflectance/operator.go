package reflectance

import "gonum.org/v1/gonum/mat"

const (
	lhtssDiag = 4.0
	lhtssOff  = -2.0
	ilssDiag  = 20.0
	ilssOff   = -6.0
	// Both operators pin the first and last main diagonal entries to 2.
	cornerDiag = 2.0
)

// roughness builds the Bands×Bands banded smoothness operator.
func roughness(diag, off float64) *mat.Dense {
	d := mat.NewDense(Bands, Bands, nil)
	for i := range Bands {
		d.Set(i, i, diag)
		if i > 0 {
			d.Set(i, i-1, off)
		}
		if i < Bands-1 {
			d.Set(i, i+1, off)
		}
	}
	d.Set(0, 0, cornerDiag)
	d.Set(Bands-1, Bands-1, cornerDiag)
	return d
}

// augmented stacks the operator with the tristimulus constraint:
//
//	[ D  Tᵀ ]
//	[ T  0  ]
func augmented(d, t mat.Matrix) *mat.Dense {
	n, _ := d.Dims()
	m, _ := t.Dims()
	a := mat.NewDense(n+m, n+m, nil)
	a.Slice(0, n, 0, n).(*mat.Dense).Copy(d)
	a.Slice(0, n, n, n+m).(*mat.Dense).Copy(t.T())
	a.Slice(n, n+m, 0, n).(*mat.Dense).Copy(t)
	return a
}
