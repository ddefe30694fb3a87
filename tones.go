package skintone

import (
	"fmt"
	"image"

	"github.com/lucasb-eyer/go-colorful"
)

// DefaultBandWidth is the brightness span, in 8-bit levels, of one tone band.
const DefaultBandWidth = 5

// Tone is the mean color of one brightness band of a region.
type Tone struct {
	RGB  colorful.Color
	Lab  Lab
	Mask Mask
	// Percent of the region's pixels in this band, in [0,100].
	Percent float64
}

// BrightnessTones splits the region of img selected by mask into bands of
// pixel brightness (max of R, G, B) bandWidth levels wide, brightest first,
// and returns the mean color of each band.
func BrightnessTones(img image.Image, mask Mask, bandWidth int) ([]Tone, error) {
	region, err := Region(img, mask)
	if err != nil {
		return nil, err
	}
	if bandWidth <= 0 {
		bandWidth = DefaultBandWidth
	}

	brightness := make([]int, region.Len())
	hi, lo := 0, 255
	for i, c := range region.RGB {
		r, g, b := c.RGB255()
		v := int(max(r, g, b))
		brightness[i] = v
		hi, lo = max(hi, v), min(lo, v)
	}

	var tones []Tone
	for top := hi; top >= lo; top -= bandWidth + 1 {
		bottom := top - bandWidth
		var sr, sg, sb float64
		m := NewMask(mask.W, mask.H)
		n := 0
		for i, v := range brightness {
			if v > top || v < bottom {
				continue
			}
			c := region.RGB[i]
			sr, sg, sb = sr+c.R, sg+c.G, sb+c.B
			m.Set(region.Points[i].X, region.Points[i].Y, true)
			n++
		}
		if n == 0 {
			continue
		}
		mean := colorful.Color{R: sr / float64(n), G: sg / float64(n), B: sb / float64(n)}
		tones = append(tones, Tone{
			RGB:     mean,
			Lab:     LabFromColor(mean),
			Mask:    m,
			Percent: 100 * float64(n) / float64(region.Len()),
		})
	}
	return tones, nil
}

// MeanColor returns the average sRGB color of the masked pixels.
func MeanColor(img image.Image, mask Mask) (colorful.Color, error) {
	region, err := Region(img, mask)
	if err != nil {
		return colorful.Color{}, err
	}
	var sr, sg, sb float64
	for _, c := range region.RGB {
		sr, sg, sb = sr+c.R, sg+c.G, sb+c.B
	}
	n := float64(region.Len())
	return colorful.Color{R: sr / n, G: sg / n, B: sb / n}, nil
}

// MaskDistance returns the CIEDE2000 distance between the mean colors of
// two masks over the same image.
func MaskDistance(img image.Image, m1, m2 Mask) (float64, error) {
	c1, err := MeanColor(img, m1)
	if err != nil {
		return 0, fmt.Errorf("first mask: %w", err)
	}
	c2, err := MeanColor(img, m2)
	if err != nil {
		return 0, fmt.Errorf("second mask: %w", err)
	}
	return Distance(LabFromColor(c1), LabFromColor(c2)), nil
}
