package main

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/setanarut/skintone/utils"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// writeSkin writes a two-tone image and a mask that skips the first column.
func writeSkin(t *testing.T) (imgPath, maskPath string) {
	t.Helper()
	dir := t.TempDir()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	mask := image.NewGray(img.Bounds())
	for y := range 8 {
		for x := range 8 {
			c := color.NRGBA{R: 0xe0, G: 0xac, B: 0x69, A: 255}
			if y >= 4 {
				c = color.NRGBA{R: 0x8d, G: 0x55, B: 0x24, A: 255}
			}
			img.SetNRGBA(x, y, c)
			if x > 0 {
				mask.SetGray(x, y, color.Gray{Y: 255})
			}
		}
	}
	imgPath = filepath.Join(dir, "skin.png")
	maskPath = filepath.Join(dir, "mask.png")
	require.NoError(t, utils.SaveImage(img, imgPath))
	require.NoError(t, utils.SaveImage(mask, maskPath))
	return imgPath, maskPath
}

func TestDistance(t *testing.T) {
	out, err := run(t, "distance", "#563521", "#805947")
	require.NoError(t, err)
	assert.Equal(t, "12.9470\n", out)

	_, err = run(t, "distance", "#563521")
	assert.Error(t, err)
	_, err = run(t, "distance", "#563521", "nothex")
	assert.Error(t, err)
}

func TestSpectrum(t *testing.T) {
	out, err := run(t, "spectrum", "#ffffff", "--method", "ilss")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 36)
	assert.Equal(t, "380\t1.000000", lines[0])
	assert.Equal(t, "730\t1.000000", lines[35])

	_, err = run(t, "spectrum", "#ffffff", "--method", "wgm")
	assert.Error(t, err)
}

func TestMix(t *testing.T) {
	out, err := run(t, "mix", "#e0ac69", "#e0ac69")
	require.NoError(t, err)
	assert.Regexp(t, `^#[0-9a-f]{6}\n$`, out)

	_, err = run(t, "mix", "#e0ac69", "#8d5524", "--alpha", "2")
	assert.Error(t, err)
}

func TestClusters(t *testing.T) {
	imgPath, maskPath := writeSkin(t)
	outDir := filepath.Join(t.TempDir(), "out")
	out, err := run(t, "clusters", "--image", imgPath, "--mask", maskPath,
		"-k", "2", "--candidates", "20", "--iterations", "10", "--seed", "7", "--out", outDir)
	require.NoError(t, err)
	assert.Contains(t, out, "#e0ac69")
	assert.Contains(t, out, "#8d5524")
	assert.Contains(t, out, "28 px")

	for _, name := range []string{"cluster_00.png", "cluster_01.png", "overlay.png", "palette.png"} {
		_, err := os.Stat(filepath.Join(outDir, name))
		assert.NoError(t, err, name)
	}
}

func TestClustersConfig(t *testing.T) {
	imgPath, maskPath := writeSkin(t)
	cfg := filepath.Join(t.TempDir(), "skintone.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("k: 1\niterations: 3\nseed: 5\nsample: kmeans\n"), 0o644))

	out, err := run(t, "clusters", "--config", cfg, "--image", imgPath, "--mask", maskPath)
	require.NoError(t, err)
	assert.Equal(t, 2, strings.Count(out, "\n"), out)

	// Flags override the file.
	out, err = run(t, "clusters", "--config", cfg, "--image", imgPath, "--mask", maskPath, "-k", "2")
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(out, "\n"), out)

	require.NoError(t, os.WriteFile(cfg, []byte("k: [\n"), 0o644))
	_, err = run(t, "clusters", "--config", cfg, "--image", imgPath)
	assert.Error(t, err)
}

func TestTones(t *testing.T) {
	imgPath, maskPath := writeSkin(t)
	out, err := run(t, "tones", "--image", imgPath, "--mask", maskPath)
	require.NoError(t, err)
	assert.Equal(t, "#e0ac69\t50.00%\n#8d5524\t50.00%\n", out)

	_, err = run(t, "tones")
	assert.Error(t, err)
}
