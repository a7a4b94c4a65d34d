package engine

import (
	"context"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/sourmash-bio/sketchsrch/catalog"
	ilog "github.com/sourmash-bio/sketchsrch/internal/log"
	"github.com/sourmash-bio/sketchsrch/internal/metrics"
	"github.com/sourmash-bio/sketchsrch/sketch"
)

// Cross computes containment for every (query, subject) pair across two
// collections, parallelised over subjects -- the larger axis in the
// motivating many-genomes-vs-many-queries workload -- iterating queries
// sequentially inside each subject worker (§4.6). Unlike Pairwise, the
// threshold test here is query-in-subject containment only, since queries
// and subjects are not interchangeable roles.
func Cross(ctx context.Context, queries, subjects *catalog.Collection, thresholdContainment float64, estimateANI, downsampleIfNeeded bool) ([]ContainmentRow, error) {
	log := ilog.Get()
	nq := queries.Len()
	ns := subjects.Len()
	var compared int64

	queryCache := make([]*sketch.Sketch, nq)
	queryRecs := make([]sketch.Record, nq)
	for i := 0; i < nq; i++ {
		sk, err := queries.Load(i)
		if err != nil {
			continue
		}
		queryCache[i] = sk
		queryRecs[i] = queries.Record(i)
	}

	rowsPerSubject := make([][]ContainmentRow, ns)

	g, gctx := errgroup.WithContext(ctx)
	jobs := make(chan int, workerCount())

	g.Go(func() error {
		defer close(jobs)
		for j := 0; j < ns; j++ {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case jobs <- j:
			}
		}
		return nil
	})

	for w := 0; w < workerCount(); w++ {
		g.Go(func() error {
			for j := range jobs {
				sj, err := subjects.Load(j)
				if err != nil {
					continue
				}
				recS := subjects.Record(j)

				var out []ContainmentRow
				for i := 0; i < nq; i++ {
					qi := queryCache[i]
					if qi == nil {
						continue
					}
					overlap, err := sketch.CountCommon(qi, sj, downsampleIfNeeded)
					if err != nil {
						continue
					}
					metrics.ComparisonsTotal.Inc()
					if c := atomic.AddInt64(&compared, 1); c%progressEvery == 0 {
						log.Infow("cross progress", "comparisons", c)
					}
					containment := float64(overlap) / float64(qi.Size())
					if containment <= thresholdContainment {
						continue
					}
					row := containmentsFor(qi, sj, overlap, estimateANI)
					out = append(out, withNames(row, queryRecs[i], recS))
				}
				rowsPerSubject[j] = out
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rows []ContainmentRow
	for _, rs := range rowsPerSubject {
		rows = append(rows, rs...)
	}
	return rows, nil
}
