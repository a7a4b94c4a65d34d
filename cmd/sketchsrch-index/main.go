// Command sketchsrch-index builds an on-disk inverted index from a
// resolved collection, optionally deduplicating posting lists through a
// colour table (§4.7 create).
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"

	"github.com/sourmash-bio/sketchsrch/catalog"
	ilog "github.com/sourmash-bio/sketchsrch/internal/log"
	"github.com/sourmash-bio/sketchsrch/revindex"
	"github.com/sourmash-bio/sketchsrch/sketch"
)

func main() {
	inputPath := flag.String("from", "", "path to a collection to ingest (path-list, zip, directory, ...)")
	outputPath := flag.String("output", "", "directory to create the index in")
	ksize := flag.Int("ksize", 31, "k-mer size")
	scaledFlag := flag.Uint64("scaled", 1000, "scaled factor")
	moltype := flag.String("moltype", "DNA", "molecule type")
	useColors := flag.Bool("use-colors", false, "deduplicate identical posting lists through a colour table")
	internalizeStorage := flag.Bool("internalize-storage", false, "copy every sketch into the index directory so it no longer depends on -from's original locations")
	flag.Parse()

	if *inputPath == "" || *outputPath == "" {
		fmt.Fprintln(os.Stderr, "usage: sketchsrch-index -from PATH -output DIR")
		os.Exit(2)
	}

	log := ilog.Get()
	defer ilog.Sync()

	sel := catalog.Selection{K: *ksize, Moltype: sketch.Moltype(*moltype)}
	sel.Scaled = scaledFlag

	coll, resolvedScaled, err := catalog.OpenSelected(*inputPath, sel)
	if err != nil {
		log.Fatalw("loading collection", "error", err)
	}

	if err := os.MkdirAll(*outputPath, 0o755); err != nil {
		log.Fatalw("creating index directory", "error", err)
	}

	if err := revindex.Create(*outputPath, coll, *useColors, *internalizeStorage); err != nil {
		log.Fatalw("creating index", "error", err)
	}

	log.Infow("index created",
		"path", *outputPath,
		"records", coll.Len(),
		"scaled", resolvedScaled,
		"use_colors", *useColors,
		"internalize_storage", *internalizeStorage,
		"size", humanize.IBytes(dirSize(*outputPath)))
}

// dirSize sums the apparent size of every file pebble wrote under path, for
// a human-readable log line; it is diagnostic only and never fails the
// command on a stat error.
func dirSize(path string) uint64 {
	var total uint64
	_ = filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		total += uint64(info.Size())
		return nil
	})
	return total
}
