package skintone

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

const pow25To7 = 6103515625.0 // 25^7

func deg2Rad(deg float64) float64 { return deg * (math.Pi / 180.0) }

// Distance returns the CIEDE2000 color difference between a and b with unit
// parametric weights. A value near 1 is a just-noticeable difference.
func Distance(a, b Lab) float64 {
	c1 := math.Hypot(a.A, a.B)
	c2 := math.Hypot(b.A, b.B)
	barC7 := math.Pow((c1+c2)/2, 7)
	g := 0.5 * (1 - math.Sqrt(barC7/(barC7+pow25To7)))

	a1p := (1 + g) * a.A
	a2p := (1 + g) * b.A
	c1p := math.Hypot(a1p, a.B)
	c2p := math.Hypot(a2p, b.B)
	h1p := hueAngle(a.B, a1p)
	h2p := hueAngle(b.B, a2p)

	dLp := b.L - a.L
	dCp := c2p - c1p

	// Hue is undefined for achromatic colors; it then contributes nothing.
	cProd := c1p * c2p
	dhp := 0.0
	if cProd != 0 {
		dhp = h2p - h1p
		if dhp > 180 {
			dhp -= 360
		} else if dhp < -180 {
			dhp += 360
		}
	}
	dHp := 2 * math.Sqrt(cProd) * math.Sin(deg2Rad(dhp)/2)

	barLp := (a.L + b.L) / 2
	barCp := (c1p + c2p) / 2
	barhp := h1p + h2p
	if cProd != 0 {
		switch {
		case math.Abs(h1p-h2p) <= 180:
			barhp /= 2
		case barhp < 360:
			barhp = (barhp + 360) / 2
		default:
			barhp = (barhp - 360) / 2
		}
	}

	t := 1 - 0.17*math.Cos(deg2Rad(barhp-30)) +
		0.24*math.Cos(deg2Rad(2*barhp)) +
		0.32*math.Cos(deg2Rad(3*barhp+6)) -
		0.20*math.Cos(deg2Rad(4*barhp-63))

	dTheta := 30 * math.Exp(-math.Pow((barhp-275)/25, 2))
	barCp7 := math.Pow(barCp, 7)
	rc := 2 * math.Sqrt(barCp7/(barCp7+pow25To7))
	lm50 := (barLp - 50) * (barLp - 50)
	sl := 1 + 0.015*lm50/math.Sqrt(20+lm50)
	sc := 1 + 0.045*barCp
	sh := 1 + 0.015*barCp*t
	rt := -math.Sin(deg2Rad(2*dTheta)) * rc

	l := dLp / sl
	c := dCp / sc
	h := dHp / sh
	// Rounding can push the sum a hair below zero for near-identical colors.
	return math.Sqrt(max(0, l*l+c*c+h*h+rt*c*h))
}

// hueAngle returns atan2(b, a) in degrees within [0, 360).
func hueAngle(b, a float64) float64 {
	if a == 0 && b == 0 {
		return 0
	}
	h := math.Atan2(b, a) * (180 / math.Pi)
	if h < 0 {
		h += 360
	}
	return h
}

// PairwiseDistances returns Distance(a[i], b[i]) for every i.
func PairwiseDistances(a, b []Lab) ([]float64, error) {
	if len(a) != len(b) {
		return nil, fmt.Errorf("%w: %d and %d colors", ErrLengthMismatch, len(a), len(b))
	}
	out := make([]float64, len(a))
	for i := range a {
		out[i] = Distance(a[i], b[i])
	}
	return out, nil
}

// DistancesTo returns the distance from c to every color in colors.
func DistancesTo(c Lab, colors []Lab) []float64 {
	out := make([]float64, len(colors))
	for i := range colors {
		out[i] = Distance(c, colors[i])
	}
	return out
}

// DistanceMatrix returns the symmetric n×n matrix of pairwise distances.
// The diagonal is zero. An empty input yields nil.
func DistanceMatrix(colors []Lab) *mat.SymDense {
	n := len(colors)
	if n == 0 {
		return nil
	}
	dm := mat.NewSymDense(n, nil)
	for i := range n {
		for j := i + 1; j < n; j++ {
			dm.SetSym(i, j, Distance(colors[i], colors[j]))
		}
	}
	return dm
}

// HexDistance converts two "#rrggbb" colors to Lab and returns their
// distance.
func HexDistance(a, b string) (float64, error) {
	la, err := LabFromHex(a)
	if err != nil {
		return 0, fmt.Errorf("color %q: %w", a, err)
	}
	lb, err := LabFromHex(b)
	if err != nil {
		return 0, fmt.Errorf("color %q: %w", b, err)
	}
	return Distance(la, lb), nil
}
