// Command sketchsrch-manysearch searches every query in a collection
// against every subject in another, parallelised over subjects (the larger
// axis), emitting a SearchResult row per pair that clears the containment
// threshold.
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
	queryPath := flag.String("queries", "", "path to query collection")
	againstPath := flag.String("against", "", "path to subject collection")
	ksize := flag.Int("ksize", 31, "k-mer size")
	scaledFlag := flag.Uint64("scaled", 0, "scaled factor; 0 resolves to the coarsest common value")
	moltype := flag.String("moltype", "DNA", "molecule type")
	threshold := flag.Float64("threshold", 0.01, "containment threshold")
	output := flag.String("output", "", "output CSV path (default stdout)")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus /metrics on this address while running")
	flag.Parse()

	if *queryPath == "" || *againstPath == "" {
		fmt.Fprintln(os.Stderr, "usage: sketchsrch-manysearch -queries PATH -against PATH")
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

	queries, _, err := catalog.OpenSelected(*queryPath, sel)
	if err != nil {
		log.Fatalw("loading queries", "error", err)
	}
	subjects, _, err := catalog.OpenSelected(*againstPath, sel)
	if err != nil {
		log.Fatalw("loading subjects", "error", err)
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

	out, err := sink.NewSearchSink(w)
	if err != nil {
		log.Fatalw("writing header", "error", err)
	}

	rows, err := engine.Cross(ctx, queries, subjects, *threshold, false, true)
	if err != nil {
		log.Fatalw("manysearch", "error", err)
	}
	for _, r := range rows {
		_ = out.WriteRow(sink.SearchRow{
			QueryName:       r.QueryName,
			QueryMD5:        r.QueryMD5,
			MatchName:       r.MatchName,
			Containment:     r.Containment,
			IntersectHashes: r.IntersectHashes,
			MatchMD5:        r.MatchMD5,
			Jaccard:         r.Jaccard,
			MaxContainment:  r.MaxContainment,
		})
	}
	log.Infow("manysearch complete", "rows", len(rows))
}
