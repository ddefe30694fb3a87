package skintone

import (
	"image"
	"image/color"
	"math/rand/v2"

	"github.com/lucasb-eyer/go-colorful"
)

var skinBases = []color.NRGBA{
	{R: 0xe0, G: 0xac, B: 0x69, A: 255},
	{R: 0xc6, G: 0x86, B: 0x42, A: 255},
	{R: 0x8d, G: 0x55, B: 0x24, A: 255},
}

func jitter(v uint8, rng *rand.Rand, amount int) uint8 {
	return uint8(min(255, max(0, int(v)+rng.IntN(2*amount+1)-amount)))
}

// skinImage paints three horizontal bands of skin tones with a little noise
// and masks everything but a 2 pixel border.
func skinImage(w, h int, rng *rand.Rand) (*image.NRGBA, Mask) {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	mask := NewMask(w, h)
	for y := range h {
		base := skinBases[min(len(skinBases)-1, y*len(skinBases)/h)]
		for x := range w {
			img.SetNRGBA(x, y, color.NRGBA{
				R: jitter(base.R, rng, 4),
				G: jitter(base.G, rng, 4),
				B: jitter(base.B, rng, 4),
				A: 255,
			})
			if x >= 2 && x < w-2 && y >= 2 && y < h-2 {
				mask.Set(x, y, true)
			}
		}
	}
	return img, mask
}

func colorFromNRGBA(c color.NRGBA) colorful.Color {
	col, _ := colorful.MakeColor(c)
	return col
}
