package skintone

import (
	"image"
	"image/color"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMask(t *testing.T) {
	m := NewMask(4, 3)
	assert.Equal(t, 0, m.Count())
	m.Set(1, 2, true)
	m.Set(3, 0, true)
	m.Set(9, 9, true) // ignored
	assert.True(t, m.At(1, 2))
	assert.False(t, m.At(2, 1))
	assert.False(t, m.At(-1, 0))
	assert.Equal(t, 2, m.Count())
	assert.Equal(t, []image.Point{{X: 3, Y: 0}, {X: 1, Y: 2}}, m.Points())

	g := m.Gray()
	assert.Equal(t, uint8(255), g.GrayAt(1, 2).Y)
	assert.Equal(t, uint8(0), g.GrayAt(0, 0).Y)
}

func TestMaskFromGray(t *testing.T) {
	g := image.NewGray(image.Rect(0, 0, 3, 1))
	g.SetGray(0, 0, color.Gray{Y: 149})
	g.SetGray(1, 0, color.Gray{Y: 150})
	g.SetGray(2, 0, color.Gray{Y: 255})
	m := MaskFromGray(g)
	assert.Equal(t, []bool{false, true, true}, m.Bits)

	// Round trip through Gray.
	assert.Equal(t, m.Bits, MaskFromGray(m.Gray()).Bits)
}

func TestRegion(t *testing.T) {
	img, mask := skinImage(10, 10, rand.New(rand.NewPCG(1, 2)))
	cs, err := Region(img, mask)
	require.NoError(t, err)
	require.Equal(t, mask.Count(), cs.Len())
	require.Len(t, cs.RGB, cs.Len())
	require.Len(t, cs.Points, cs.Len())
	for i, p := range cs.Points {
		require.True(t, mask.At(p.X, p.Y))
		want := colorFromNRGBA(img.NRGBAAt(p.X, p.Y))
		assert.InDelta(t, want.R, cs.RGB[i].R, 1e-9)
		assert.Equal(t, LabFromColor(cs.RGB[i]), cs.Colors[i])
	}

	sub := cs.Subset([]int{4, 0})
	assert.Equal(t, cs.Points[4], sub.Points[0])
	assert.Equal(t, cs.Colors[0], sub.Colors[1])
}

func TestRegionOffsetBounds(t *testing.T) {
	img := image.NewNRGBA(image.Rect(5, 5, 7, 7))
	img.SetNRGBA(6, 5, color.NRGBA{R: 255, A: 255})
	mask := NewMask(2, 2)
	mask.Set(1, 0, true)
	cs, err := Region(img, mask)
	require.NoError(t, err)
	require.Equal(t, 1, cs.Len())
	assert.Equal(t, 1.0, cs.RGB[0].R)
}

func TestLabConversions(t *testing.T) {
	lab, err := LabFromHex("#805947")
	require.NoError(t, err)
	assert.InDelta(t, 41.516, lab.L, 0.05)
	assert.InDelta(t, 13.684, lab.A, 0.05)
	assert.InDelta(t, 16.834, lab.B, 0.05)
	assert.Equal(t, "#805947", lab.Hex())

	_, err = LabFromHex("#zz")
	assert.Error(t, err)
}
