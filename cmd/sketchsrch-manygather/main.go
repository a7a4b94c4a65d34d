// Command sketchsrch-manygather runs gather for every query in a
// collection against a single subject collection (or inverted index),
// parallelised over queries, writing every query's ranked rows to one
// GatherResult stream (the batch counterpart of fastgather, grounded on
// mastiff_manygather's "open the database once, iterate queries in
// parallel" shape).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/sourmash-bio/sketchsrch/catalog"
	"github.com/sourmash-bio/sketchsrch/engine"
	"github.com/sourmash-bio/sketchsrch/engine/pipeline"
	ilog "github.com/sourmash-bio/sketchsrch/internal/log"
	"github.com/sourmash-bio/sketchsrch/internal/metrics"
	"github.com/sourmash-bio/sketchsrch/sink"
	"github.com/sourmash-bio/sketchsrch/sketch"
)

func main() {
	queriesPath := flag.String("queries", "", "path to a query collection (path-list, zip, directory, ...)")
	againstPath := flag.String("against", "", "path to a subject collection or inverted index")
	ksize := flag.Int("ksize", 31, "k-mer size")
	scaledFlag := flag.Uint64("scaled", 1000, "scaled factor")
	moltype := flag.String("moltype", "DNA", "molecule type")
	thresholdBP := flag.Int("threshold-bp", 50000, "base-pair overlap threshold")
	output := flag.String("output", "", "output CSV path (default stdout)")
	metricsAddr := flag.String("metrics-addr", "", "if set, serve Prometheus /metrics on this address while running")
	flag.Parse()

	if *queriesPath == "" || *againstPath == "" {
		fmt.Fprintln(os.Stderr, "usage: sketchsrch-manygather -queries PATH -against PATH")
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
	sel.Scaled = scaledFlag

	queries, _, err := catalog.OpenSelected(*queriesPath, sel)
	if err != nil {
		log.Fatalw("loading queries", "error", err)
	}
	against, resolvedScaled, err := catalog.OpenSelected(*againstPath, sel)
	if err != nil {
		log.Fatalw("loading subjects", "error", err)
	}
	thresholdHashes := int(sketch.ThresholdHashes(*thresholdBP, resolvedScaled))

	w := os.Stdout
	if *output != "" {
		f, err := os.Create(*output)
		if err != nil {
			log.Fatalw("opening output", "error", err)
		}
		defer f.Close()
		w = f
	}
	out, err := sink.NewGatherSink(w)
	if err != nil {
		log.Fatalw("writing header", "error", err)
	}

	interrupted := &pipeline.Interrupted{}
	go func() {
		<-ctx.Done()
		interrupted.Set()
	}()

	source := func(ctx context.Context, i int) ([]pipeline.Row, error) {
		q, err := queries.Load(i)
		if err != nil {
			return nil, nil
		}
		rec := queries.Record(i)

		var rows []engine.GatherRow
		if fast, ok, err := engine.GatherFast(q, rec.Name, against, thresholdHashes, resolvedScaled); ok {
			if err != nil {
				return nil, err
			}
			rows = fast
		} else {
			prefetched, _, err := engine.Prefetch(ctx, q, against, thresholdHashes, true)
			if err != nil {
				return nil, err
			}
			rows, err = engine.Gather(q, rec.Name, prefetched, thresholdHashes, resolvedScaled)
			if err != nil {
				return nil, err
			}
		}

		out := make([]pipeline.Row, len(rows))
		for i, r := range rows {
			out[i] = sink.GatherRow{
				QueryFilename: rec.Filename,
				Rank:          r.Rank,
				QueryName:     r.QueryName,
				QueryMD5:      r.QueryMD5,
				MatchName:     r.MatchName,
				MatchMD5:      r.MatchMD5,
				IntersectBP:   r.IntersectBP,
			}
		}
		return out, nil
	}

	written := 0
	writer := func(row pipeline.Row) error {
		written++
		return out.WriteRow(row.(sink.GatherRow))
	}

	if err := pipeline.Run(ctx, queries.Len(), source, writer, interrupted); err != nil {
		log.Fatalw("manygather", "error", err)
	}
	log.Infow("manygather complete", "rows", written)
}
