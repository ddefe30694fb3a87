package skintone

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/cenkalti/dominantcolor"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

type SampleMethod int

const (
	SampleUniform SampleMethod = iota
	SampleKMeans
	SampleDominant
)

func (m SampleMethod) String() string {
	switch m {
	case SampleKMeans:
		return "kmeans"
	case SampleDominant:
		return "dominantcolor"
	default:
		return "uniform"
	}
}

// ParseSampleMethod accepts the names returned by SampleMethod.String.
func ParseSampleMethod(s string) (SampleMethod, error) {
	for _, m := range []SampleMethod{SampleUniform, SampleKMeans, SampleDominant} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown sample method %q", s)
}

// maxKMeansSamples bounds the pixels fed to k-means.
const maxKMeansSamples = 12000

// SampleCandidates draws up to n candidate colors from the pixels of img
// selected by mask. Every candidate is an actual pixel of the region, so
// medoids chosen among them stay real data.
func SampleCandidates(img image.Image, mask Mask, n int, method SampleMethod, rng *rand.Rand) (ColorSet, error) {
	region, err := Region(img, mask)
	if err != nil {
		return ColorSet{}, err
	}
	if n <= 0 {
		return ColorSet{}, fmt.Errorf("%w: candidate count %d", ErrDegenerateInput, n)
	}
	if n >= region.Len() {
		return region, nil
	}

	switch method {
	case SampleKMeans:
		return sampleKMeans(region, n, rng)
	case SampleDominant:
		return sampleDominant(region, n), nil
	default:
		return region.Subset(randPerm(rng, region.Len())[:n]), nil
	}
}

// labObservation is a region pixel in Lab coordinates.
type labObservation struct {
	coords clusters.Coordinates
	index  int
}

func (o labObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o labObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

func sampleKMeans(region ColorSet, n int, rng *rand.Rand) (ColorSet, error) {
	// Subsample to keep kmeans tractable on large regions.
	step := 1
	if region.Len() > maxKMeansSamples {
		step = region.Len()/maxKMeansSamples + 1
	}
	offset := 0
	if step > 1 {
		if rng != nil {
			offset = rng.IntN(step)
		} else {
			offset = rand.IntN(step)
		}
	}
	dataset := make(clusters.Observations, 0, region.Len()/step+1)
	for i := offset; i < region.Len(); i += step {
		c := region.Colors[i]
		dataset = append(dataset, labObservation{
			coords: clusters.Coordinates{c.L, c.A, c.B},
			index:  i,
		})
	}

	km := kmeans.New()
	cc, err := km.Partition(dataset, min(n, len(dataset)))
	if err != nil {
		return ColorSet{}, fmt.Errorf("kmeans: %w", err)
	}

	// Largest clusters first, so truncation keeps the dominant tones.
	slices.SortFunc(cc, func(a, b clusters.Cluster) int {
		return len(b.Observations) - len(a.Observations)
	})

	picked := make([]int, 0, len(cc))
	for _, c := range cc {
		if len(c.Center) < 3 || len(c.Observations) == 0 {
			continue
		}
		center := Lab{L: c.Center[0], A: c.Center[1], B: c.Center[2]}
		best, bestD := -1, math.Inf(1)
		for _, o := range c.Observations {
			obs, ok := o.(labObservation)
			if !ok {
				continue
			}
			if d := Distance(center, region.Colors[obs.index]); d < bestD {
				best, bestD = obs.index, d
			}
		}
		if best >= 0 && !slices.Contains(picked, best) {
			picked = append(picked, best)
		}
	}
	if len(picked) == 0 {
		return ColorSet{}, fmt.Errorf("%w: kmeans produced no clusters", ErrDegenerateInput)
	}
	return region.Subset(picked), nil
}

type weightedIndex struct {
	index  int
	weight float64
}

func sampleDominant(region ColorSet, n int) ColorSet {
	// dominantcolor works on images, so pack the region pixels into a
	// compact square, repeating them to fill the last row.
	side := int(math.Ceil(math.Sqrt(float64(region.Len()))))
	packed := image.NewNRGBA(image.Rect(0, 0, side, side))
	for i := range side * side {
		r, g, b := region.RGB[i%region.Len()].RGB255()
		packed.SetNRGBA(i%side, i/side, color.NRGBA{R: r, G: g, B: b, A: 255})
	}

	found := dominantcolor.FindWeight(packed, max(24, n*2))
	weighted := make([]weightedIndex, 0, len(found))
	for _, c := range found {
		col, _ := colorful.MakeColor(c.RGBA)
		lab := LabFromColor(col.Clamped())
		best, bestD := 0, math.Inf(1)
		for i, rc := range region.Colors {
			if d := Distance(lab, rc); d < bestD {
				best, bestD = i, d
			}
		}
		if slices.ContainsFunc(weighted, func(w weightedIndex) bool { return w.index == best }) {
			continue
		}
		w := c.Weight
		if w <= 0 {
			w = 1e-6
		}
		weighted = append(weighted, weightedIndex{index: best, weight: w})
	}
	if len(weighted) == 0 {
		// Degenerate histogram; fall back to the first pixels.
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return region.Subset(idx)
	}
	return region.Subset(selectDiverse(region, weighted, n))
}

// selectDiverse greedily picks up to k entries, seeded with the heaviest,
// each next one maximizing its distance to those already picked scaled by
// its weight.
func selectDiverse(region ColorSet, cands []weightedIndex, k int) []int {
	k = min(k, len(cands))
	maxW := 0.0
	for _, c := range cands {
		maxW = max(maxW, c.weight)
	}
	if maxW <= 0 {
		maxW = 1
	}

	selected := make([]bool, len(cands))
	seed := 0
	for i := 1; i < len(cands); i++ {
		if cands[i].weight > cands[seed].weight {
			seed = i
		}
	}
	selected[seed] = true
	out := []int{cands[seed].index}

	for len(out) < k {
		bestIdx, bestScore := -1, -1.0
		for i, c := range cands {
			if selected[i] {
				continue
			}
			minD := math.MaxFloat64
			for _, s := range out {
				minD = min(minD, Distance(region.Colors[c.index], region.Colors[s]))
			}
			score := minD * (0.55 + 0.45*math.Sqrt(c.weight/maxW))
			if score > bestScore {
				bestIdx, bestScore = i, score
			}
		}
		if bestIdx < 0 {
			break
		}
		selected[bestIdx] = true
		out = append(out, cands[bestIdx].index)
	}
	return out
}
