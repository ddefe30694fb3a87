package skintone

import (
	"math/rand/v2"
	"testing"

	"github.com/muesli/clusters"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSampleCandidates(t *testing.T) {
	img, mask := skinImage(24, 24, rand.New(rand.NewPCG(21, 22)))
	region, err := Region(img, mask)
	require.NoError(t, err)

	for _, method := range []SampleMethod{SampleUniform, SampleKMeans, SampleDominant} {
		t.Run(method.String(), func(t *testing.T) {
			cs, err := SampleCandidates(img, mask, 12, method, rand.New(rand.NewPCG(1, 2)))
			require.NoError(t, err)
			require.Positive(t, cs.Len())
			assert.LessOrEqual(t, cs.Len(), 12)
			require.Len(t, cs.Points, cs.Len())

			seen := map[[2]int]bool{}
			for i, p := range cs.Points {
				assert.True(t, mask.At(p.X, p.Y))
				assert.False(t, seen[[2]int{p.X, p.Y}], "duplicate candidate %v", p)
				seen[[2]int{p.X, p.Y}] = true
				// Candidates are real pixels of the region.
				j := -1
				for k, q := range region.Points {
					if q == p {
						j = k
						break
					}
				}
				require.GreaterOrEqual(t, j, 0)
				assert.Equal(t, region.Colors[j], cs.Colors[i])
			}
		})
	}
}

func TestSampleCandidatesAll(t *testing.T) {
	img, mask := skinImage(8, 8, rand.New(rand.NewPCG(1, 1)))
	cs, err := SampleCandidates(img, mask, 1000, SampleKMeans, nil)
	require.NoError(t, err)
	assert.Equal(t, mask.Count(), cs.Len())

	_, err = SampleCandidates(img, mask, 0, SampleUniform, nil)
	assert.ErrorIs(t, err, ErrDegenerateInput)
	_, err = SampleCandidates(img, NewMask(8, 8), 5, SampleUniform, nil)
	assert.ErrorIs(t, err, ErrDegenerateInput)
}

func TestParseSampleMethod(t *testing.T) {
	m, err := ParseSampleMethod("kmeans")
	require.NoError(t, err)
	assert.Equal(t, SampleKMeans, m)
	_, err = ParseSampleMethod("median-cut")
	assert.Error(t, err)
}

var _ clusters.Observation = labObservation{}

func TestLabObservation(t *testing.T) {
	o := labObservation{coords: clusters.Coordinates{50, 10, -10}, index: 3}
	assert.Equal(t, clusters.Coordinates{50, 10, -10}, o.Coordinates())
	assert.InDelta(t, 0.0, o.Distance(clusters.Coordinates{50, 10, -10}), 1e-12)
	assert.Greater(t, o.Distance(clusters.Coordinates{60, 10, -10}), 0.0)

	// The observation survives a round trip through the kmeans dataset.
	var ds clusters.Observations = []clusters.Observation{o}
	got, ok := ds[0].(labObservation)
	require.True(t, ok)
	assert.Equal(t, 3, got.index)
}
