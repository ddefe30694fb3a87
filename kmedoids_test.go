package skintone

import (
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"
)

func requirePartition(t *testing.T, cl *Clustering, n int) {
	t.Helper()
	seen := make([]int, n)
	for _, m := range cl.MedoidIndices {
		members, ok := cl.Clusters[m]
		require.True(t, ok, "medoid %d has no cluster", m)
		assert.Contains(t, members, m, "medoid %d not in its own cluster", m)
		for _, i := range members {
			seen[i]++
		}
	}
	assert.Len(t, cl.Clusters, len(cl.MedoidIndices))
	for i, c := range seen {
		assert.Equal(t, 1, c, "point %d assigned %d times", i, c)
	}
}

func clusterCostOf(dm mat.Symmetric, cl *Clustering) float64 {
	total := 0.0
	for m, members := range cl.Clusters {
		for _, i := range members {
			total += dm.At(m, i)
		}
	}
	return total
}

func TestClusterColorsPartition(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 8))
	colors := make([]Lab, 60)
	for i := range colors {
		colors[i] = randomLab(rng)
	}
	dm := DistanceMatrix(colors)

	for _, k := range []int{1, 2, 3, 5, 8} {
		for trial := range 5 {
			cl, err := ClusterColors(colors, dm, k, rand.New(rand.NewPCG(uint64(k), uint64(trial))))
			require.NoError(t, err)
			require.Len(t, cl.MedoidIndices, k)
			require.Len(t, cl.Medoids, k)
			assert.True(t, slices.IsSorted(cl.MedoidIndices))
			for i, m := range cl.MedoidIndices {
				assert.Equal(t, colors[m], cl.Medoids[i])
			}
			requirePartition(t, cl, len(colors))
			assert.LessOrEqual(t, cl.Cost, cl.InitialCost)
			assert.InDelta(t, clusterCostOf(dm, cl), cl.Cost, 1e-9)
		}
	}
}

func TestClusterColorsSeparatedGroups(t *testing.T) {
	rng := rand.New(rand.NewPCG(9, 10))
	centers := []Lab{{30, 20, 20}, {60, 10, 30}, {85, 5, 15}}
	var colors []Lab
	var group []int
	for g, c := range centers {
		for range 15 {
			colors = append(colors, Lab{
				L: c.L + rng.Float64() - 0.5,
				A: c.A + rng.Float64() - 0.5,
				B: c.B + rng.Float64() - 0.5,
			})
			group = append(group, g)
		}
	}
	dm := DistanceMatrix(colors)

	cl, err := ClusterColors(colors, dm, 3, rand.New(rand.NewPCG(1, 1)))
	require.NoError(t, err)
	requirePartition(t, cl, len(colors))

	labels := cl.Labels()
	// Every group lands in exactly one cluster and no two groups share one.
	groupLabel := map[int]int{}
	for i, g := range group {
		if l, ok := groupLabel[g]; ok {
			assert.Equal(t, l, labels[i])
		} else {
			groupLabel[g] = labels[i]
		}
	}
	assert.Len(t, groupLabel, 3)
	assert.NotEqual(t, groupLabel[0], groupLabel[1])
	assert.NotEqual(t, groupLabel[1], groupLabel[2])
	assert.NotEqual(t, groupLabel[0], groupLabel[2])
}

func TestClusterColorsSingletons(t *testing.T) {
	colors := []Lab{{10, 0, 0}, {50, 10, 10}, {90, -5, 5}}
	dm := DistanceMatrix(colors)
	for _, k := range []int{3, 4, 10} {
		cl, err := ClusterColors(colors, dm, k, nil)
		require.NoError(t, err)
		assert.Equal(t, []int{0, 1, 2}, cl.MedoidIndices)
		assert.Equal(t, 0, cl.Swaps)
		assert.Equal(t, 0.0, cl.Cost)
		for _, m := range cl.MedoidIndices {
			assert.Equal(t, []int{m}, cl.Clusters[m])
		}
	}
}

func TestClusterColorsDuplicates(t *testing.T) {
	// Identical colors must not steal a medoid out of its own cluster.
	colors := []Lab{{50, 0, 0}, {50, 0, 0}, {50, 0, 0}, {70, 10, 10}}
	dm := DistanceMatrix(colors)
	for seed := range 10 {
		cl, err := ClusterColors(colors, dm, 2, rand.New(rand.NewPCG(uint64(seed), 0)))
		require.NoError(t, err)
		requirePartition(t, cl, len(colors))
	}
}

func TestClusterColorsErrors(t *testing.T) {
	colors := []Lab{{10, 0, 0}, {50, 10, 10}}
	dm := DistanceMatrix(colors)

	_, err := ClusterColors(nil, nil, 2, nil)
	assert.ErrorIs(t, err, ErrDegenerateInput)

	_, err = ClusterColors(colors, dm, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidK)

	_, err = ClusterColors(colors, DistanceMatrix(colors[:1]), 1, nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)

	_, err = ClusterColors(colors, nil, 1, nil)
	assert.ErrorIs(t, err, ErrLengthMismatch)
}

func TestIsClose(t *testing.T) {
	assert.True(t, isClose(100, 100.05, 1e-3))
	assert.False(t, isClose(100, 100.5, 1e-3))
	assert.True(t, isClose(0, 0, 1e-3))
}

// handOverCost builds the cluster sets explicitly: cand takes over old's
// members and old joins the cluster cand came from.
func handOverCost(dm mat.Symmetric, medoids []int, pos, cand int) float64 {
	members := map[int][]int{}
	for i := range dm.SymmetricDim() {
		p, _ := nearest(dm, medoids, i)
		members[medoids[p]] = append(members[medoids[p]], i)
	}
	old := medoids[pos]
	from := -1
	for m, ms := range members {
		if slices.Contains(ms, cand) {
			from = m
		}
	}
	swapped := map[int][]int{}
	for m, ms := range members {
		if m == old {
			m = cand
		}
		swapped[m] = slices.Clone(ms)
	}
	if from != old {
		swapped[cand] = append(slices.DeleteFunc(swapped[cand], func(i int) bool { return i == old }), cand)
		swapped[from] = append(slices.DeleteFunc(swapped[from], func(i int) bool { return i == cand }), old)
	}
	total := 0.0
	for m, ms := range swapped {
		for _, i := range ms {
			total += dm.At(m, i)
		}
	}
	return total
}

func TestSwapCostHandsOverCluster(t *testing.T) {
	rng := rand.New(rand.NewPCG(3, 4))
	colors := make([]Lab, 25)
	for i := range colors {
		colors[i] = randomLab(rng)
	}
	dm := DistanceMatrix(colors)
	medoids := []int{2, 9, 17}
	labels := nearestLabels(dm, medoids)
	for pos := range medoids {
		for cand := range colors {
			if slices.Contains(medoids, cand) {
				continue
			}
			assert.InDelta(t, handOverCost(dm, medoids, pos, cand), swapCost(dm, medoids, labels, pos, cand), 1e-9,
				"swap medoid %d for %d", medoids[pos], cand)
		}
	}
}

func TestSwapCostKeepsOtherClusters(t *testing.T) {
	// Point 3 sits beside medoid 0's group but belongs to medoid 4. Handing
	// medoid 0's cluster to point 1 must not pull 3 across.
	colors := []Lab{{50, 0, 0}, {51, 0, 0}, {49, 0, 0}, {60, 0, 0}, {62, 0, 0}}
	dm := DistanceMatrix(colors)
	medoids := []int{0, 4}
	labels := nearestLabels(dm, medoids)
	require.Equal(t, []int{0, 0, 0, 1, 1}, labels)

	want := dm.At(1, 0) + dm.At(1, 2) + dm.At(4, 3)
	assert.InDelta(t, want, swapCost(dm, medoids, labels, 0, 1), 1e-12)

	// Swapping medoid 4 for point 3 moves 4 into 3's cluster, which is its own.
	want = dm.At(0, 1) + dm.At(0, 2) + dm.At(3, 4)
	assert.InDelta(t, want, swapCost(dm, medoids, labels, 1, 3), 1e-12)
}

// handOverSearch reruns the swap search with explicit cluster sets from
// the same starting medoids ClusterColors draws.
func handOverSearch(dm mat.Symmetric, n, k int, rng *rand.Rand) []int {
	medoids := slices.Clone(rng.Perm(n)[:k])
	slices.Sort(medoids)
	cost := assignmentCost(dm, medoids)
	for {
		bestCost, bestPos, bestCand := cost, -1, -1
		for pos := range medoids {
			for cand := range n {
				if slices.Contains(medoids, cand) {
					continue
				}
				if c := handOverCost(dm, medoids, pos, cand); c < bestCost {
					bestCost, bestPos, bestCand = c, pos, cand
				}
			}
		}
		if bestPos < 0 || isClose(cost, bestCost, relTol) {
			return medoids
		}
		medoids[bestPos] = bestCand
		slices.Sort(medoids)
		cost = assignmentCost(dm, medoids)
	}
}

func TestClusterColorsMatchesHandOverSearch(t *testing.T) {
	for seed := range 10 {
		rng := rand.New(rand.NewPCG(uint64(seed), 99))
		colors := make([]Lab, 30)
		for i := range colors {
			colors[i] = randomLab(rng)
		}
		dm := DistanceMatrix(colors)

		cl, err := ClusterColors(colors, dm, 4, rand.New(rand.NewPCG(uint64(seed), 1)))
		require.NoError(t, err)
		want := handOverSearch(dm, len(colors), 4, rand.New(rand.NewPCG(uint64(seed), 1)))
		assert.Equal(t, want, cl.MedoidIndices, "seed %d", seed)
	}
}
