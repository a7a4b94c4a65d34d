// Command sketchsrch-pairwise computes all-pairs containment within a
// single collection, emitting only the upper triangle per pair clearing
// threshold (§4.6).
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
	"github.com/sourmash-bio/sketchsrch/internal/metrics"
	"github.com/sourmash-bio/sketchsrch/sink"
	"github.com/sourmash-bio/sketchsrch/sketch"
)

func main() {
	path := flag.String("collection", "", "path to a collection")
	ksize := flag.Int("ksize", 31, "k-mer size")
	scaledFlag := flag.Uint64("scaled", 0, "scaled factor; 0 resolves to the coarsest common value")
	moltype := flag.String("moltype", "DNA", "molecule type")
	threshold := flag.Float64("threshold", 0.01, "containment threshold")
	estimateANI := flag.Bool("estimate-ani", false, "also emit query_ani/match_ani/avg_ani/max_ani columns")
	includeSelf := flag.Bool("include-self", false, "also emit each sketch's self-comparison")
	output := flag.String("output", "", "output CSV path (default stdout)")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus /metrics on this address while running")
	flag.Parse()

	if *path == "" {
		fmt.Fprintln(os.Stderr, "usage: sketchsrch-pairwise -collection PATH")
		os.Exit(2)
	}

	log := ilog.Get()
	defer ilog.Sync()

	if *metricsAddr != "" {
		if err := metrics.Serve(*metricsAddr); err != nil {
			log.Fatalw("starting metrics server", "error", err)
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	sel := catalog.Selection{K: *ksize, Moltype: sketch.Moltype(*moltype)}
	if *scaledFlag != 0 {
		sel.Scaled = scaledFlag
	}

	coll, resolvedScaled, err := catalog.OpenSelected(*path, sel)
	if err != nil {
		log.Fatalw("loading collection", "error", err)
	}

	w := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalw("opening output", "error", err)
		}
		defer f.Close()
		w = f
	}

	out, err := sink.NewMultiSearchSink(w, *estimateANI)
	if err != nil {
		log.Fatalw("writing header", "error", err)
	}

	rows, err := engine.Pairwise(ctx, coll, *threshold, *estimateANI, *includeSelf, true)
	if err != nil {
		log.Fatalw("pairwise", "error", err)
	}
	for _, r := range rows {
		_ = out.WriteRow(sink.MultiSearchRow{
			QueryName:       r.QueryName,
			QueryMD5:        r.QueryMD5,
			MatchName:       r.MatchName,
			MatchMD5:        r.MatchMD5,
			KSize:           r.KSize,
			Scaled:          resolvedScaled,
			Moltype:         r.Moltype,
			Containment:     r.Containment,
			MaxContainment:  r.MaxContainment,
			Jaccard:         r.Jaccard,
			IntersectHashes: r.IntersectHashes,
			QueryANI:        r.QueryANI,
			MatchANI:        r.MatchANI,
			AvgANI:          r.AvgANI,
			MaxANI:          r.MaxANI,
		})
	}
	log.Infow("pairwise complete", "rows", len(rows))
}
