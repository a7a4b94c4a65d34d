package engine

import (
	"container/heap"
	"time"

	"github.com/pkg/errors"

	"github.com/sourmash-bio/sketchsrch/internal/metrics"
	"github.com/sourmash-bio/sketchsrch/sketch"
)

// GatherRow is one ranked result emitted by the greedy min-set-cover loop.
type GatherRow struct {
	Rank        int
	QueryName   string
	QueryMD5    string
	MatchName   string
	MatchMD5    string
	Overlap     int
	FMatch      float64
	IntersectBP uint64
}

// Gather runs the greedy min-set-cover loop described in §4.5: repeatedly
// peek the heap's best element, emit it, subtract its hashes from the
// residual query, then rebuild the heap by re-running the prefetch kernel
// over the *current* heap contents (not the original collection) at the
// same threshold. The loop terminates when the heap empties or its new top
// falls below threshold.
//
// query is left unchanged: RemoveFrom mutates a scratch copy, never the
// caller's original sketch.
func Gather(query *sketch.Sketch, queryName string, prefetched *PrefetchHeap, thresholdHashes int, scaled uint64) ([]GatherRow, error) {
	start := time.Now()
	defer func() { metrics.GatherDuration.Observe(time.Since(start).Seconds()) }()

	originalSize := query.Size()
	residual := cloneSketch(query)
	queryMD5 := query.MD5()

	remaining := make([]PrefetchResult, len(*prefetched))
	copy(remaining, *prefetched)
	heapState := &PrefetchHeap{}
	heap.Init(heapState)
	for _, r := range remaining {
		heap.Push(heapState, r)
	}

	var rows []GatherRow
	rank := 0
	for heapState.Len() > 0 {
		best := (*heapState)[0]

		if err := residual.RemoveFrom(best.Sketch); err != nil {
			return rows, errors.Wrapf(err, "gather: removing match %q from residual query", best.Record.Name)
		}

		rows = append(rows, GatherRow{
			Rank:        rank,
			QueryName:   queryName,
			QueryMD5:    queryMD5,
			MatchName:   best.Record.Name,
			MatchMD5:    best.Record.MD5,
			Overlap:     best.Overlap,
			FMatch:      float64(best.Overlap) / float64(originalSize),
			IntersectBP: sketch.IntersectBP(best.Overlap, scaled),
		})
		rank++
		metrics.GatherRanksEmittedTotal.Inc()

		candidates := make([]PrefetchResult, heapState.Len())
		copy(candidates, *heapState)
		heapState = RefilterAgainst(candidates, residual, thresholdHashes)
	}
	return rows, nil
}

func cloneSketch(s *sketch.Sketch) *sketch.Sketch {
	hashes := make([]uint64, len(s.Hashes()))
	copy(hashes, s.Hashes())
	return sketch.NewSorted(s.Params, hashes)
}
