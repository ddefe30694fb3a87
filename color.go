// Package skintone splits a masked image region into a few perceptually
// distinct tone clusters using CIEDE2000 distances and k-medoids search,
// and reconstructs reflectance curves for single colors.
package skintone

import (
	"cmp"
	"encoding/binary"
	"math"
	"slices"

	"github.com/lucasb-eyer/go-colorful"
)

// Lab is a CIE L*a*b* (D65) color with L in [0,100] and a, b roughly ±128.
type Lab struct {
	L, A, B float64
}

// LabFromColor converts an sRGB color.
func LabFromColor(c colorful.Color) Lab {
	l, a, b := c.Lab()
	return Lab{L: l * 100, A: a * 100, B: b * 100}
}

// LabFromHex parses "#rrggbb".
func LabFromHex(s string) (Lab, error) {
	c, err := colorful.Hex(s)
	if err != nil {
		return Lab{}, err
	}
	return LabFromColor(c), nil
}

// Color converts back to sRGB, clamped to the displayable range.
func (c Lab) Color() colorful.Color {
	return colorful.Lab(c.L/100, c.A/100, c.B/100).Clamped()
}

func (c Lab) Hex() string {
	return c.Color().Hex()
}

func compareLab(a, b Lab) int {
	if c := cmp.Compare(a.L, b.L); c != 0 {
		return c
	}
	if c := cmp.Compare(a.A, b.A); c != 0 {
		return c
	}
	return cmp.Compare(a.B, b.B)
}

// medoidKey identifies a medoid set by its colors, independent of order.
func medoidKey(colors []Lab) string {
	sorted := slices.Clone(colors)
	slices.SortFunc(sorted, compareLab)
	buf := make([]byte, 0, len(sorted)*24)
	for _, c := range sorted {
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(c.L))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(c.A))
		buf = binary.LittleEndian.AppendUint64(buf, math.Float64bits(c.B))
	}
	return string(buf)
}
