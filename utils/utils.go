// Package utils reads images and masks from disk and writes cluster masks,
// overlays and color swatches.
package utils

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	"image/png"
	"os"
	"path/filepath"
	"slices"

	"github.com/lucasb-eyer/go-colorful"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/setanarut/skintone"
)

// SortByBrightness orders colors from darkest to brightest by relative
// luminance.
func SortByBrightness(palette []colorful.Color) {
	slices.SortStableFunc(palette, func(a, b colorful.Color) int {
		ya, yb := luminance(a), luminance(b)
		if ya < yb {
			return -1
		}
		if ya > yb {
			return 1
		}
		return 0
	})
}

func luminance(c colorful.Color) float64 {
	r, g, b := c.LinearRgb()
	return 0.2126*r + 0.7152*g + 0.0722*b
}

// ReadImage decodes PNG, JPEG, BMP, TIFF or WebP.
func ReadImage(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return img, nil
}

// ReadMask reads a mask image; pixels at or above threshold are set.
func ReadMask(path string, threshold uint8) (skintone.Mask, error) {
	img, err := ReadImage(path)
	if err != nil {
		return skintone.Mask{}, err
	}
	return skintone.MaskFromImage(img, threshold), nil
}

// SaveMasks writes masks as prefix_00.png, prefix_01.png, ... into dir.
func SaveMasks(masks []skintone.Mask, dir, prefix string) ([]string, error) {
	paths := make([]string, 0, len(masks))
	for i, m := range masks {
		p := filepath.Join(dir, fmt.Sprintf("%s_%02d.png", prefix, i))
		if err := SaveImage(m.Gray(), p); err != nil {
			return paths, err
		}
		paths = append(paths, p)
	}
	return paths, nil
}

func SaveImage(img image.Image, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return err
	}
	if err := png.Encode(f, img); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// Overlay paints every set pixel of masks[i] with colors[i] over a
// transparent canvas. Later masks win where masks overlap.
func Overlay(masks []skintone.Mask, colors []colorful.Color) (*image.NRGBA, error) {
	if len(masks) == 0 {
		return nil, fmt.Errorf("no masks")
	}
	if len(masks) != len(colors) {
		return nil, fmt.Errorf("%d masks but %d colors", len(masks), len(colors))
	}
	w, h := masks[0].W, masks[0].H
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for i, m := range masks {
		if m.W != w || m.H != h {
			return nil, fmt.Errorf("mask %d is %dx%d, want %dx%d", i, m.W, m.H, w, h)
		}
		r, g, b := colors[i].Clamped().RGB255()
		c := color.NRGBA{R: r, G: g, B: b, A: 255}
		for _, p := range m.Points() {
			img.SetNRGBA(p.X, p.Y, c)
		}
	}
	return img, nil
}

// PaletteImage renders palette as a row of tileSize square swatches.
func PaletteImage(palette []colorful.Color, tileSize int) (*image.NRGBA, error) {
	if len(palette) == 0 {
		return nil, fmt.Errorf("empty palette")
	}
	if tileSize <= 0 {
		tileSize = 64
	}

	img := image.NewNRGBA(image.Rect(0, 0, tileSize*len(palette), tileSize))
	for i, c := range palette {
		r, g, b := c.Clamped().RGB255()
		x0 := i * tileSize
		for y := range tileSize {
			for x := x0; x < x0+tileSize; x++ {
				img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
			}
		}
	}
	return img, nil
}

func SavePalette(palette []colorful.Color, tileSize int, filename string) error {
	img, err := PaletteImage(palette, tileSize)
	if err != nil {
		return err
	}
	return SaveImage(img, filename)
}
