// Package reflectance recovers smooth, bounded 36-band reflectance curves
// (380-730 nm, 10 nm steps) whose D65 linear sRGB matches an observed
// color. Two solvers are provided: LHTSS, a Newton solve on a tanh
// reparametrization, and ILSS, an active-set least squares solve.
package reflectance

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

type Method int

const (
	LHTSS Method = iota
	ILSS
)

func (m Method) String() string {
	switch m {
	case ILSS:
		return "ilss"
	default:
		return "lhtss"
	}
}

// ParseMethod accepts "lhtss" or "ilss", case-insensitive.
func ParseMethod(s string) (Method, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lhtss":
		return LHTSS, nil
	case "ilss":
		return ILSS, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownMethod, s)
}

type Options struct {
	// Sensitivity matrix. Nil uses DefaultSensitivity().
	Sensitivity *Sensitivity
	// Lower reflectance bound. Also the value returned for black input.
	RhoMin float64
	// Upper reflectance bound. Also the value returned for white input.
	RhoMax float64
	// Iteration cap. LHTSS: Newton steps (100). ILSS: active-set passes (10).
	// Zero picks the method default.
	MaxIterations int
	// LHTSS residual tolerance on every component of F.
	Tolerance float64
}

func DefaultOptions() Options {
	return Options{
		RhoMin:    1e-4,
		RhoMax:    1.0,
		Tolerance: 1e-8,
	}
}

func (o Options) withDefaults(m Method) Options {
	if o.Sensitivity == nil {
		o.Sensitivity = DefaultSensitivity()
	}
	if o.RhoMax <= 0 {
		o.RhoMax = 1.0
	}
	if o.RhoMin <= 0 || o.RhoMin >= o.RhoMax {
		o.RhoMin = 1e-4
	}
	if o.Tolerance <= 0 {
		o.Tolerance = 1e-8
	}
	if o.MaxIterations <= 0 {
		switch m {
		case ILSS:
			o.MaxIterations = 10
		default:
			o.MaxIterations = 100
		}
	}
	return o
}

// Spectrum holds one reflectance fraction per band.
type Spectrum [Bands]float64

func uniform(v float64) Spectrum {
	var s Spectrum
	for i := range s {
		s[i] = v
	}
	return s
}

// Color renders the spectrum back to gamma-encoded sRGB through sens.
// Nil sens uses DefaultSensitivity().
func (s Spectrum) Color(sens *Sensitivity) colorful.Color {
	if sens == nil {
		sens = DefaultSensitivity()
	}
	rgb := sens.Apply(s)
	return colorful.LinearRgb(rgb[0], rgb[1], rgb[2])
}

// Reconstruct returns a reflectance curve for the sRGB color c.
// Black and white short-circuit to uniform RhoMin and RhoMax curves.
func Reconstruct(ctx context.Context, c colorful.Color, method Method, opt Options) (Spectrum, error) {
	opt = opt.withDefaults(method)

	for _, v := range [3]float64{c.R, c.G, c.B} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Spectrum{}, fmt.Errorf("%w: color channel %v", ErrNumerical, v)
		}
	}

	r, g, b := c.RGB255()
	switch {
	case r == 0 && g == 0 && b == 0:
		return uniform(opt.RhoMin), nil
	case r == 255 && g == 255 && b == 255:
		return uniform(opt.RhoMax), nil
	}

	lr, lg, lb := c.LinearRgb()
	rgb := [3]float64{lr, lg, lb}

	switch method {
	case LHTSS:
		return solveLHTSS(ctx, rgb, opt)
	case ILSS:
		return solveILSS(ctx, rgb, opt)
	}
	return Spectrum{}, fmt.Errorf("%w: %d", ErrUnknownMethod, int(method))
}

// Mix blends two colors subtractively: the result is rendered from the
// weighted geometric mean ρ1^alpha · ρ2^(1-alpha) of their reflectances.
func Mix(ctx context.Context, c1, c2 colorful.Color, alpha float64, method Method, opt Options) (colorful.Color, error) {
	opt = opt.withDefaults(method)
	alpha = min(1, max(0, alpha))

	rho1, err := Reconstruct(ctx, c1, method, opt)
	if err != nil {
		return colorful.Color{}, err
	}
	rho2, err := Reconstruct(ctx, c2, method, opt)
	if err != nil {
		return colorful.Color{}, err
	}
	var mix Spectrum
	for i := range mix {
		mix[i] = math.Pow(rho1[i], alpha) * math.Pow(rho2[i], 1-alpha)
	}
	return mix.Color(opt.Sensitivity).Clamped(), nil
}
