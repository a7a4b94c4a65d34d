// Package engine implements the search kernels that run over a Selector's
// resolved sketch set: the prefetch filter, the greedy min-set-cover
// GatherEngine, and the PairwiseEngine/CrossEngine containment scans.
package engine

import (
	"container/heap"
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/sourmash-bio/sketchsrch/catalog"
	"github.com/sourmash-bio/sketchsrch/internal/metrics"
	"github.com/sourmash-bio/sketchsrch/sketch"
)

// PrefetchResult is one candidate retained by the prefetch kernel: enough
// to rank it (Overlap) and to subtract it from a residual query later
// (Sketch) without reloading from storage.
type PrefetchResult struct {
	Record  sketch.Record
	Sketch  *sketch.Sketch
	Overlap int
}

// PrefetchHeap is a max-heap of PrefetchResult ordered by Overlap. The heap
// root is always the current best candidate; ties are broken by input
// order, which is deterministic but otherwise unspecified, matching §4.4.
type PrefetchHeap []PrefetchResult

func (h PrefetchHeap) Len() int            { return len(h) }
func (h PrefetchHeap) Less(i, j int) bool  { return h[i].Overlap > h[j].Overlap }
func (h PrefetchHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *PrefetchHeap) Push(x interface{}) { *h = append(*h, x.(PrefetchResult)) }
func (h *PrefetchHeap) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// PrefetchStats counts how many candidates were skipped (no compatible
// sketch for the selection) versus failed outright (storage error) while
// scanning a collection.
type PrefetchStats struct {
	Skipped int
	Failed  int
}

// workerCount bounds the goroutine fan-out used by every outer-axis scan in
// this package, mirroring the GOMAXPROCS-sized worker pool used by the
// teacher's shard search loop.
func workerCount() int {
	n := runtime.GOMAXPROCS(0)
	if n < 1 {
		return 1
	}
	return n
}

// Prefetch runs the prefetch kernel against every record in coll: for each
// candidate comparable with query (after downsampling if permitted), keep
// it only if its overlap with query is at least thresholdHashes. Work is
// fanned out across a bounded worker pool reading coll.Load concurrently;
// results are merged into a single heap by the calling goroutine once all
// workers finish, matching the "local Option<PrefetchResult> per worker,
// merged after" semantics of §4.4.
func Prefetch(ctx context.Context, query *sketch.Sketch, coll *catalog.Collection, thresholdHashes int, downsampleIfNeeded bool) (*PrefetchHeap, PrefetchStats, error) {
	n := coll.Len()
	results := make([]*PrefetchResult, n)
	stats := make([]PrefetchStats, workerCount())

	g, gctx := errgroup.WithContext(ctx)
	indexes := make(chan int, workerCount())

	g.Go(func() error {
		defer close(indexes)
		for i := 0; i < n; i++ {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case indexes <- i:
			}
		}
		return nil
	})

	for w := 0; w < workerCount(); w++ {
		w := w
		g.Go(func() error {
			metrics.WorkersRunning.Inc()
			defer metrics.WorkersRunning.Dec()
			for i := range indexes {
				metrics.CandidatesProcessed.Inc()
				sk, err := coll.Load(i)
				if err != nil {
					stats[w].Failed++
					metrics.CandidatesFailedTotal.Inc()
					continue
				}
				overlap, err := sketch.CountCommon(sk, query, downsampleIfNeeded)
				if err != nil {
					stats[w].Skipped++
					metrics.CandidatesSkippedTotal.Inc()
					continue
				}
				if overlap < thresholdHashes {
					continue
				}
				results[i] = &PrefetchResult{
					Record:  coll.Record(i),
					Sketch:  sk,
					Overlap: overlap,
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, PrefetchStats{}, err
	}

	total := PrefetchStats{}
	h := &PrefetchHeap{}
	heap.Init(h)
	for _, s := range stats {
		total.Skipped += s.Skipped
		total.Failed += s.Failed
	}
	for _, r := range results {
		if r != nil {
			heap.Push(h, *r)
		}
	}
	return h, total, nil
}

// RefilterAgainst re-runs the prefetch kernel over an already-materialised
// set of candidates (rather than a whole collection), used by the gather
// loop to rebuild its heap against a shrunk residual query without
// reloading sketches from storage (§4.5 step 4).
func RefilterAgainst(candidates []PrefetchResult, query *sketch.Sketch, thresholdHashes int) *PrefetchHeap {
	h := &PrefetchHeap{}
	heap.Init(h)
	for _, c := range candidates {
		overlap, err := sketch.CountCommon(c.Sketch, query, true)
		if err != nil || overlap < thresholdHashes {
			continue
		}
		c.Overlap = overlap
		heap.Push(h, c)
	}
	return h
}
