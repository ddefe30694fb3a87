package skintone

import (
	"fmt"
	"image"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultMaskThreshold is the gray level at or above which a pixel belongs
// to a mask.
const DefaultMaskThreshold = 150

// Mask is a row-major boolean pixel grid.
type Mask struct {
	W, H int
	Bits []bool // len = W*H
}

func NewMask(w, h int) Mask {
	return Mask{W: w, H: h, Bits: make([]bool, w*h)}
}

func (m Mask) offset(x, y int) int {
	return y*m.W + x
}

func (m Mask) inside(x, y int) bool {
	return x >= 0 && x < m.W && y >= 0 && y < m.H
}

// At reports whether (x, y) is set. Out-of-range points are unset.
func (m Mask) At(x, y int) bool {
	return m.inside(x, y) && m.Bits[m.offset(x, y)]
}

func (m Mask) Set(x, y int, v bool) {
	if m.inside(x, y) {
		m.Bits[m.offset(x, y)] = v
	}
}

// Count returns the number of set pixels.
func (m Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		if b {
			n++
		}
	}
	return n
}

// Points returns set pixels in row-major order.
func (m Mask) Points() []image.Point {
	pts := make([]image.Point, 0, m.Count())
	for y := range m.H {
		for x := range m.W {
			if m.Bits[m.offset(x, y)] {
				pts = append(pts, image.Point{X: x, Y: y})
			}
		}
	}
	return pts
}

// Gray renders the mask as white on black.
func (m Mask) Gray() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.W, m.H))
	for i, b := range m.Bits {
		if b {
			g.Pix[(i/m.W)*g.Stride+i%m.W] = 255
		}
	}
	return g
}

// MaskFromImage thresholds the luminance of img. Pixels with gray level
// >= threshold are set.
func MaskFromImage(img image.Image, threshold uint8) Mask {
	b := img.Bounds()
	m := NewMask(b.Dx(), b.Dy())
	for y := range m.H {
		for x := range m.W {
			g := color.GrayModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray)
			m.Bits[m.offset(x, y)] = g.Y >= threshold
		}
	}
	return m
}

// MaskFromGray is MaskFromImage with DefaultMaskThreshold.
func MaskFromGray(g *image.Gray) Mask {
	return MaskFromImage(g, DefaultMaskThreshold)
}

// ColorSet is a sequence of colors index-aligned with the pixels they were
// read from.
type ColorSet struct {
	Colors []Lab
	RGB    []colorful.Color
	Points []image.Point // X = column, Y = row
}

func (cs ColorSet) Len() int {
	return len(cs.Colors)
}

// Subset returns the entries at idx, in order.
func (cs ColorSet) Subset(idx []int) ColorSet {
	out := ColorSet{
		Colors: make([]Lab, len(idx)),
		RGB:    make([]colorful.Color, len(idx)),
		Points: make([]image.Point, len(idx)),
	}
	for i, j := range idx {
		out.Colors[i] = cs.Colors[j]
		out.RGB[i] = cs.RGB[j]
		out.Points[i] = cs.Points[j]
	}
	return out
}

// Region reads the pixels of img selected by mask, in row-major order.
// The mask is anchored at img.Bounds().Min.
func Region(img image.Image, mask Mask) (ColorSet, error) {
	b := img.Bounds()
	if mask.W != b.Dx() || mask.H != b.Dy() {
		return ColorSet{}, fmt.Errorf("%w: mask %dx%d, image %dx%d", ErrLengthMismatch, mask.W, mask.H, b.Dx(), b.Dy())
	}
	pts := mask.Points()
	if len(pts) == 0 {
		return ColorSet{}, fmt.Errorf("%w: empty mask", ErrDegenerateInput)
	}
	cs := ColorSet{
		Colors: make([]Lab, len(pts)),
		RGB:    make([]colorful.Color, len(pts)),
		Points: pts,
	}
	for i, p := range pts {
		c := pixelColor(img, b.Min.X+p.X, b.Min.Y+p.Y)
		cs.RGB[i] = c
		cs.Colors[i] = LabFromColor(c)
	}
	return cs, nil
}

func pixelColor(img image.Image, x, y int) colorful.Color {
	r, g, b, _ := img.At(x, y).RGBA()
	return colorful.Color{
		R: float64(r>>8) / 255.0,
		G: float64(g>>8) / 255.0,
		B: float64(b>>8) / 255.0,
	}
}
