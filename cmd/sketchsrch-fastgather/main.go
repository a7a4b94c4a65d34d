// Command sketchsrch-fastgather runs the greedy min-set-cover gather loop
// for a single query against a collection (§4.5). When the subject
// collection is an on-disk inverted index, it automatically takes the
// index-native Counter-based fast path instead of the in-memory
// Prefetch+Gather path (§4.7).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/sourmash-bio/sketchsrch/catalog"
	"github.com/sourmash-bio/sketchsrch/engine"
	ilog "github.com/sourmash-bio/sketchsrch/internal/log"
	"github.com/sourmash-bio/sketchsrch/sink"
	"github.com/sourmash-bio/sketchsrch/sketch"
)

func main() {
	queryPath := flag.String("query", "", "path to a single query sketch")
	againstPath := flag.String("against", "", "path to a subject collection or inverted index")
	ksize := flag.Int("ksize", 31, "k-mer size")
	scaledFlag := flag.Uint64("scaled", 1000, "scaled factor")
	moltype := flag.String("moltype", "DNA", "molecule type")
	thresholdBP := flag.Int("threshold-bp", 50000, "base-pair overlap threshold")
	gatherOutput := flag.String("gather-output", "", "gather CSV output path (default stdout)")
	prefetchOutput := flag.String("prefetch-output", "", "optional prefetch CSV output path")
	flag.Parse()

	if *queryPath == "" || *againstPath == "" {
		fmt.Fprintln(os.Stderr, "usage: sketchsrch-fastgather -query PATH -against PATH")
		os.Exit(2)
	}

	log := ilog.Get()
	defer ilog.Sync()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sel := catalog.Selection{K: *ksize, Moltype: sketch.Moltype(*moltype)}
	sel.Scaled = scaledFlag

	queryColl, _, err := catalog.OpenSelected(*queryPath, sel)
	if err != nil {
		log.Fatalw("loading query", "error", err)
	}
	if queryColl.Len() != 1 {
		log.Fatalw("fastgather requires exactly one query sketch", "found", queryColl.Len())
	}
	querySketch, err := queryColl.Load(0)
	if err != nil {
		log.Fatalw("materialising query", "error", err)
	}
	queryRec := queryColl.Record(0)

	against, resolvedScaled, err := catalog.OpenSelected(*againstPath, sel)
	if err != nil {
		log.Fatalw("loading subjects", "error", err)
	}

	thresholdHashes := int(sketch.ThresholdHashes(*thresholdBP, resolvedScaled))

	gatherW := os.Stdout
	if *gatherOutput != "" {
		f, err := os.Create(*gatherOutput)
		if err != nil {
			log.Fatalw("opening gather output", "error", err)
		}
		defer f.Close()
		gatherW = f
	}
	gatherSink, err := sink.NewGatherSink(gatherW)
	if err != nil {
		log.Fatalw("writing gather header", "error", err)
	}

	if rows, ok, err := engine.GatherFast(querySketch, queryRec.Name, against, thresholdHashes, resolvedScaled); ok {
		if err != nil {
			log.Fatalw("fastgather (index)", "error", err)
		}
		writeGatherRows(gatherSink, queryRec, rows)
		log.Infow("fastgather complete", "ranks", len(rows), "path", "index")
		return
	}

	prefetched, stats, err := engine.Prefetch(ctx, querySketch, against, thresholdHashes, true)
	if err != nil {
		log.Fatalw("prefetch", "error", err)
	}
	log.Infow("prefetch complete", "matches", prefetched.Len(), "skipped", stats.Skipped, "failed", stats.Failed)

	if *prefetchOutput != "" {
		writePrefetchOutput(log, *prefetchOutput, queryRec, *prefetched, resolvedScaled)
	}

	rows, err := engine.Gather(querySketch, queryRec.Name, prefetched, thresholdHashes, resolvedScaled)
	if err != nil {
		log.Fatalw("gather", "error", err)
	}
	writeGatherRows(gatherSink, queryRec, rows)
	log.Infow("fastgather complete", "ranks", len(rows), "path", "in-memory")
}

func writeGatherRows(s *sink.GatherSink, queryRec sketch.Record, rows []engine.GatherRow) {
	for _, r := range rows {
		_ = s.WriteRow(sink.GatherRow{
			QueryFilename: queryRec.Filename,
			Rank:          r.Rank,
			QueryName:     r.QueryName,
			QueryMD5:      r.QueryMD5,
			MatchName:     r.MatchName,
			MatchMD5:      r.MatchMD5,
			IntersectBP:   r.IntersectBP,
		})
	}
}

func writePrefetchOutput(log interface {
	Fatalw(string, ...interface{})
}, path string, queryRec sketch.Record, heap engine.PrefetchHeap, scaled uint64) {
	w := os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			log.Fatalw("opening prefetch output", "error", err)
		}
		defer f.Close()
		w = f
	}
	s, err := sink.NewPrefetchSink(w)
	if err != nil {
		log.Fatalw("writing prefetch header", "error", err)
	}
	for _, r := range heap {
		_ = s.WriteRow(sink.PrefetchRow{
			QueryFilename: queryRec.Filename,
			QueryName:     queryRec.Name,
			QueryMD5:      queryRec.MD5,
			MatchName:     r.Record.Name,
			MatchMD5:      r.Record.MD5,
			IntersectBP:   sketch.IntersectBP(r.Overlap, scaled),
		})
	}
}
