package skintone

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"math/rand/v2"
	"sync"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/mat"
)

type SelectOptions struct {
	// Number of random k-medoids restarts.
	// 1000 is plenty for ~100 candidates and k <= 5.
	Iterations int
	// Stop early once a clustering costs no more than this (sum of per-cluster
	// mean CIEDE2000 distances). 2 is about two just-noticeable differences.
	Tolerance float64
	// Restarts run concurrently on this many goroutines.
	// 1 keeps the search sequential and reproducible for a fixed Seed.
	Workers int
	// Seed for the per-restart random streams. Zero picks a random seed.
	Seed uint64
	// Logger receives discarded trials and improvements at debug level.
	// Nil uses slog.Default().
	Logger *slog.Logger
}

func DefaultSelectOptions() SelectOptions {
	return SelectOptions{
		Iterations: 1000,
		Tolerance:  2,
		Workers:    1,
	}
}

// Selection is the best clustering found by BestClusters.
type Selection struct {
	Medoids []Lab
	// MedoidIndices index the candidate ColorSet.
	MedoidIndices []int
	// Masks[i] holds the comparison pixels closest to Medoids[i]. The masks
	// are disjoint and together cover the comparison mask.
	Masks []Mask
	// Indices are the cluster ordinals 0..k-1.
	Indices []int
	Cost    float64
	// Trials counts restarts run, Evaluated the distinct medoid sets scored.
	Trials    int
	Evaluated int
}

type selectionTracker struct {
	mu        sync.Mutex
	seen      map[string]struct{}
	best      *Selection
	trials    int
	evaluated int
}

// BestClusters searches for the k candidate colors that best represent the
// pixels of img selected by mask. Each restart runs ClusterColors from a
// fresh random start; medoid sets already scored are skipped, the rest are
// scored against the mask and the cheapest is kept. The search stops at
// opt.Tolerance or after opt.Iterations restarts.
//
// A failing restart is logged and discarded. ctx is checked between
// restarts.
func BestClusters(ctx context.Context, candidates ColorSet, img image.Image, mask Mask, k int, opt SelectOptions) (*Selection, error) {
	if candidates.Len() == 0 {
		return nil, fmt.Errorf("%w: no candidate colors", ErrDegenerateInput)
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidK, k)
	}
	ref, err := Region(img, mask)
	if err != nil {
		return nil, err
	}

	if opt.Iterations <= 0 {
		opt.Iterations = DefaultSelectOptions().Iterations
	}
	opt.Workers = max(opt.Workers, 1)
	if opt.Seed == 0 {
		opt.Seed = rand.Uint64()
	}
	log := opt.Logger
	if log == nil {
		log = slog.Default()
	}
	log = log.With("k", k, "candidates", candidates.Len(), "pixels", ref.Len())

	dm := DistanceMatrix(candidates.Colors)
	tr := &selectionTracker{seen: make(map[string]struct{})}

	searchCtx, stop := context.WithCancel(ctx)
	defer stop()

	var g errgroup.Group
	g.SetLimit(opt.Workers)
	for trial := range opt.Iterations {
		if searchCtx.Err() != nil {
			break
		}
		g.Go(func() error {
			if searchCtx.Err() != nil {
				return nil
			}
			if err := tr.run(candidates, dm, ref, mask, k, opt, trial, stop, log); err != nil {
				log.Debug("trial discarded", "trial", trial, "error", err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if tr.best == nil {
		return nil, fmt.Errorf("%w: %d trials", ErrNoClustering, tr.trials)
	}
	best := tr.best
	best.Trials, best.Evaluated = tr.trials, tr.evaluated
	log.Info("clusters selected", "cost", best.Cost, "trials", best.Trials, "evaluated", best.Evaluated)
	return best, nil
}

func (tr *selectionTracker) run(candidates ColorSet, dm mat.Symmetric, ref ColorSet, mask Mask, k int,
	opt SelectOptions, trial int, stop context.CancelFunc, log *slog.Logger) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("trial %d panicked: %v", trial, r)
		}
	}()

	rng := rand.New(rand.NewPCG(opt.Seed, uint64(trial)))
	cl, err := ClusterColors(candidates.Colors, dm, k, rng)
	if err != nil {
		return err
	}

	key := medoidKey(cl.Medoids)
	tr.mu.Lock()
	tr.trials++
	_, dup := tr.seen[key]
	if !dup {
		tr.seen[key] = struct{}{}
		tr.evaluated++
	}
	tr.mu.Unlock()
	if dup {
		return nil
	}

	cost, masks, err := clusterCost(ref, mask.W, mask.H, cl.Medoids)
	if err != nil {
		return err
	}

	tr.mu.Lock()
	defer tr.mu.Unlock()
	if tr.best != nil && cost >= tr.best.Cost {
		return nil
	}
	indices := make([]int, len(masks))
	for i := range indices {
		indices[i] = i
	}
	tr.best = &Selection{
		Medoids:       cl.Medoids,
		MedoidIndices: cl.MedoidIndices,
		Masks:         masks,
		Indices:       indices,
		Cost:          cost,
	}
	log.Debug("better clustering", "trial", trial, "cost", cost, "swaps", cl.Swaps)
	if cost <= opt.Tolerance {
		stop()
	}
	return nil
}

// clusterCost assigns every comparison pixel to its nearest medoid and
// returns the sum over clusters of the mean medoid-to-pixel distance along
// with one mask per medoid. A medoid that attracts no pixels is an error.
func clusterCost(ref ColorSet, w, h int, medoids []Lab) (float64, []Mask, error) {
	k := len(medoids)
	masks := make([]Mask, k)
	for i := range masks {
		masks[i] = NewMask(w, h)
	}
	sums := make([]float64, k)
	counts := make([]int, k)

	for i, c := range ref.Colors {
		best, bestD := 0, Distance(medoids[0], c)
		for j := 1; j < k; j++ {
			if d := Distance(medoids[j], c); d < bestD {
				best, bestD = j, d
			}
		}
		sums[best] += bestD
		counts[best]++
		masks[best].Set(ref.Points[i].X, ref.Points[i].Y, true)
	}

	cost := 0.0
	for i := range k {
		if counts[i] == 0 {
			return 0, nil, fmt.Errorf("%w: medoid %s has no pixels", ErrDegenerateInput, medoids[i].Hex())
		}
		cost += sums[i] / float64(counts[i])
	}
	return cost, masks, nil
}
