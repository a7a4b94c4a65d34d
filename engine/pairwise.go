package engine

import (
	"context"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sourmash-bio/sketchsrch/catalog"
	ilog "github.com/sourmash-bio/sketchsrch/internal/log"
	"github.com/sourmash-bio/sketchsrch/internal/metrics"
	"github.com/sourmash-bio/sketchsrch/sketch"
)

// progressEvery is how often the inner comparison loop logs its running
// count, matching the rust implementation's eprintln! every 100,000
// comparisons.
const progressEvery = 100000

// ContainmentRow is one emitted containment comparison, shared by
// PairwiseEngine and CrossEngine (§4.6).
type ContainmentRow struct {
	QueryName     string
	QueryMD5      string
	MatchName     string
	MatchMD5      string
	KSize         int
	Scaled        uint64
	Moltype       sketch.Moltype
	Containment   float64
	MaxContainment float64
	Jaccard       float64
	IntersectHashes int
	QueryANI      float64
	MatchANI      float64
	AvgANI        float64
	MaxANI        float64
}

// containmentsFor computes every derived metric for a (query, subject)
// pair given their raw intersection size, emitting ANI only when
// estimateANI is set (§6).
func containmentsFor(q, s *sketch.Sketch, overlap int, estimateANI bool) ContainmentRow {
	cQS := float64(overlap) / float64(q.Size())
	cSQ := float64(overlap) / float64(s.Size())
	maxC := math.Max(cQS, cSQ)
	union := q.Size() + s.Size() - overlap
	jaccard := 0.0
	if union > 0 {
		jaccard = float64(overlap) / float64(union)
	}
	row := ContainmentRow{
		KSize:           q.K,
		Scaled:          q.Scaled,
		Moltype:         q.Moltype,
		Containment:     cQS,
		MaxContainment:  maxC,
		Jaccard:         jaccard,
		IntersectHashes: overlap,
	}
	if estimateANI {
		row.QueryANI = sketch.ANIFromContainment(cQS, q.K)
		row.MatchANI = sketch.ANIFromContainment(cSQ, q.K)
		row.AvgANI = (row.QueryANI + row.MatchANI) / 2
		row.MaxANI = math.Max(row.QueryANI, row.MatchANI)
	}
	return row
}

// Pairwise computes all-pairs containment within a single collection,
// parallelised over the outer axis i; worker i enumerates j > i
// sequentially, emitting the upper triangle only (§4.6). A comparison is
// retained when either-direction containment is strictly greater than
// thresholdContainment.
// When includeSelf is set, each sketch is also compared against itself
// (containment 1.0, mostly useful for sanity-checking a collection).
func Pairwise(ctx context.Context, coll *catalog.Collection, thresholdContainment float64, estimateANI, includeSelf, downsampleIfNeeded bool) ([]ContainmentRow, error) {
	log := ilog.Get()
	n := coll.Len()
	rowsPerI := make([][]ContainmentRow, n)
	var compared int64

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int, workerCount())

	g.Go(func() error {
		defer close(jobs)
		for i := 0; i < n; i++ {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case jobs <- i:
			}
		}
		return nil
	})

	for w := 0; w < workerCount(); w++ {
		g.Go(func() error {
			for i := range jobs {
				qi, err := coll.Load(i)
				if err != nil {
					continue
				}
				recI := coll.Record(i)

				var out []ContainmentRow
				if includeSelf {
					out = append(out, withNames(containmentsFor(qi, qi, qi.Size(), estimateANI), recI, recI))
				}
				for j := i + 1; j < n; j++ {
					sj, err := coll.Load(j)
					if err != nil {
						continue
					}
					overlap, err := sketch.CountCommon(qi, sj, downsampleIfNeeded)
					if err != nil {
						continue
					}
					metrics.ComparisonsTotal.Inc()
					if c := atomic.AddInt64(&compared, 1); c%progressEvery == 0 {
						log.Infow("pairwise progress", "comparisons", c)
					}
					row := containmentsFor(qi, sj, overlap, estimateANI)
					if row.MaxContainment <= thresholdContainment {
						continue
					}
					out = append(out, withNames(row, recI, coll.Record(j)))
				}
				rowsPerI[i] = out
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rows []ContainmentRow
	for _, rs := range rowsPerI {
		rows = append(rows, rs...)
	}
	return rows, nil
}

func withNames(row ContainmentRow, q, s sketch.Record) ContainmentRow {
	row.QueryName = q.Name
	row.QueryMD5 = q.MD5
	row.MatchName = s.Name
	row.MatchMD5 = s.MD5
	return row
}
