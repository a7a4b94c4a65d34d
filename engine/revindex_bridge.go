package engine

import (
	"github.com/sourmash-bio/sketchsrch/catalog"
	"github.com/sourmash-bio/sketchsrch/internal/metrics"
	"github.com/sourmash-bio/sketchsrch/revindex"
	"github.com/sourmash-bio/sketchsrch/sketch"
)

// GatherFast runs the greedy min-set-cover loop using an inverted index's
// own Counter representation instead of materialising candidate sketches,
// whenever coll is backed by one (§4.7 prepare_gather_counters + gather).
// ok is false when coll has no revindex backing and the caller should fall
// back to the in-memory Prefetch+Gather path.
func GatherFast(query *sketch.Sketch, queryName string, coll *catalog.Collection, thresholdHashes int, scaled uint64) ([]GatherRow, bool, error) {
	if !coll.IsRevindex() {
		return nil, false, nil
	}
	idx, ok := revindex.IndexFromCollection(coll)
	if !ok {
		return nil, false, nil
	}

	metrics.RevindexQueriesTotal.Inc()
	indexRows, err := idx.Gather(query, thresholdHashes, scaled)
	if err != nil {
		return nil, true, err
	}

	queryMD5 := query.MD5()
	rows := make([]GatherRow, len(indexRows))
	for i, r := range indexRows {
		rows[i] = GatherRow{
			Rank:        r.Rank,
			QueryName:   queryName,
			QueryMD5:    queryMD5,
			MatchName:   r.MatchName,
			MatchMD5:    r.MatchMD5,
			Overlap:     r.Overlap,
			FMatch:      r.FMatch,
			IntersectBP: r.IntersectBP,
		}
	}
	return rows, true, nil
}
