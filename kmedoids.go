package skintone

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"

	"gonum.org/v1/gonum/mat"
)

// relTol is the relative cost change below which a swap is not worth making.
const relTol = 1e-3

// Clustering is the result of a k-medoids run.
type Clustering struct {
	// Medoids[i] is colors[MedoidIndices[i]].
	Medoids       []Lab
	MedoidIndices []int
	// Clusters maps each medoid index to its sorted member indices,
	// including the medoid itself.
	Clusters map[int][]int
	// Cost is the sum of medoid-to-member distances at convergence.
	Cost float64
	// InitialCost is the cost of the random starting medoids.
	InitialCost float64
	// Swaps is the number of medoid swaps applied.
	Swaps int
}

// Labels returns, for every point, the position in MedoidIndices of its
// cluster.
func (c *Clustering) Labels() []int {
	n := 0
	for _, members := range c.Clusters {
		n += len(members)
	}
	labels := make([]int, n)
	for pos, m := range c.MedoidIndices {
		for _, i := range c.Clusters[m] {
			labels[i] = pos
		}
	}
	return labels
}

// ClusterColors partitions colors into k clusters around medoids using
// swap-based local search (PAM) over the precomputed distance matrix dm.
// Initial medoids are drawn from rng; nil rng uses the global source.
//
// A trial swap of medoid m for point i hands m's whole cluster to i and
// moves m into the cluster i left; no other point changes cluster. The
// best swap is applied and every point is then reassigned to its nearest
// medoid before the next round.
//
// If k >= len(colors) every point is its own medoid.
func ClusterColors(colors []Lab, dm mat.Symmetric, k int, rng *rand.Rand) (*Clustering, error) {
	n := len(colors)
	if n == 0 {
		return nil, fmt.Errorf("%w: no colors to cluster", ErrDegenerateInput)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	if dm == nil || dm.SymmetricDim() != n {
		return nil, fmt.Errorf("%w: distance matrix does not match %d colors", ErrLengthMismatch, n)
	}

	var medoids []int
	if k >= n {
		medoids = make([]int, n)
		for i := range medoids {
			medoids[i] = i
		}
	} else {
		perm := randPerm(rng, n)
		medoids = slices.Clone(perm[:k])
	}
	slices.Sort(medoids)

	cost := assignmentCost(dm, medoids)
	result := &Clustering{InitialCost: cost}

	if k < n {
		for {
			labels := nearestLabels(dm, medoids)
			bestCost := cost
			bestPos, bestCand := -1, -1
			for pos := range medoids {
				for cand := range n {
					if slices.Contains(medoids, cand) {
						continue
					}
					if c := swapCost(dm, medoids, labels, pos, cand); c < bestCost {
						bestCost = c
						bestPos, bestCand = pos, cand
					}
				}
			}
			if bestPos < 0 || isClose(cost, bestCost, relTol) {
				break
			}
			medoids[bestPos] = bestCand
			slices.Sort(medoids)
			cost = assignmentCost(dm, medoids)
			result.Swaps++
		}
	}

	result.MedoidIndices = medoids
	result.Cost = cost
	result.Clusters = assign(dm, medoids)
	result.Medoids = make([]Lab, len(medoids))
	for i, m := range medoids {
		result.Medoids[i] = colors[m]
	}
	return result, nil
}

// nearest returns the position in medoids closest to point i. A medoid
// always belongs to its own cluster. Other ties go to the earlier position,
// and medoids are kept sorted, so to the lowest index.
func nearest(dm mat.Symmetric, medoids []int, i int) (int, float64) {
	if pos := slices.Index(medoids, i); pos >= 0 {
		return pos, 0
	}
	best, bestD := 0, math.Inf(1)
	for pos, m := range medoids {
		if d := dm.At(i, m); d < bestD {
			best, bestD = pos, d
		}
	}
	return best, bestD
}

// nearestLabels returns, for every point, the position in medoids of its
// nearest medoid.
func nearestLabels(dm mat.Symmetric, medoids []int) []int {
	labels := make([]int, dm.SymmetricDim())
	for i := range labels {
		labels[i], _ = nearest(dm, medoids, i)
	}
	return labels
}

// swapCost is the clustering cost after medoids[pos] trades places with
// the non-medoid cand under the current labels. medoids and labels are
// read only.
func swapCost(dm mat.Symmetric, medoids, labels []int, pos, cand int) float64 {
	old := medoids[pos]
	left := labels[cand]
	total := 0.0
	for p, q := range labels {
		switch p {
		case cand:
			continue
		case old:
			q = left
		}
		r := medoids[q]
		if q == pos {
			r = cand
		}
		total += dm.At(r, p)
	}
	return total
}

// assignmentCost is the total distance of every point to its nearest
// medoid. medoids is read only.
func assignmentCost(dm mat.Symmetric, medoids []int) float64 {
	n := dm.SymmetricDim()
	total := 0.0
	for i := range n {
		_, d := nearest(dm, medoids, i)
		total += d
	}
	return total
}

func assign(dm mat.Symmetric, medoids []int) map[int][]int {
	clusters := make(map[int][]int, len(medoids))
	for _, m := range medoids {
		clusters[m] = nil
	}
	for i := range dm.SymmetricDim() {
		pos, _ := nearest(dm, medoids, i)
		m := medoids[pos]
		clusters[m] = append(clusters[m], i)
	}
	return clusters
}

// isClose mirrors a relative-tolerance float comparison.
func isClose(a, b, rel float64) bool {
	return math.Abs(a-b) <= rel*max(math.Abs(a), math.Abs(b))
}

func randPerm(rng *rand.Rand, n int) []int {
	if rng == nil {
		return rand.Perm(n)
	}
	return rng.Perm(n)
}
