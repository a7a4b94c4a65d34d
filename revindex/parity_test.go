package revindex_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourmash-bio/sketchsrch/catalog"
	"github.com/sourmash-bio/sketchsrch/engine"
	"github.com/sourmash-bio/sketchsrch/revindex"
	"github.com/sourmash-bio/sketchsrch/sketch"
)

type memStorage map[string]*sketch.Sketch

func (m memStorage) Load(rec sketch.Record) (*sketch.Sketch, error) {
	return m[rec.MD5], nil
}

func params() sketch.Params { return sketch.Params{K: 21, Scaled: 1, Moltype: sketch.DNA} }

// TestIndexAndInMemoryGatherAgreeOnMatchOrder verifies that, given the same
// collection and query, the inverted-index gather path and the in-memory
// prefetch+gather path choose matches in the same order.
func TestIndexAndInMemoryGatherAgreeOnMatchOrder(t *testing.T) {
	sketches := map[string][]uint64{
		"a": {1, 2, 3, 4, 5, 6},
		"b": {1, 2, 3, 7, 8},
		"c": {7, 8, 9, 10},
	}

	storage := make(memStorage)
	var manifest catalog.Manifest
	for name, hashes := range sketches {
		sk := sketch.New(params(), hashes)
		rec := sketch.Record{Name: name, MD5: name, K: 21, Moltype: sketch.DNA, Scaled: 1, NHashes: sk.Size()}
		storage[rec.MD5] = sk
		manifest = append(manifest, rec)
	}
	coll := catalog.NewCollection("mem", manifest, storage)

	query := sketch.New(params(), []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	const thresholdHashes = 2

	dir := filepath.Join(t.TempDir(), "idx")
	require.NoError(t, revindex.Create(dir, coll, false, false))
	idx, err := revindex.Open(dir, true)
	require.NoError(t, err)
	defer idx.Close()

	indexRows, err := idx.Gather(query, thresholdHashes, 1)
	require.NoError(t, err)

	prefetched, _, err := engine.Prefetch(context.Background(), query, coll, thresholdHashes, true)
	require.NoError(t, err)
	memRows, err := engine.Gather(query, "query", prefetched, thresholdHashes, 1)
	require.NoError(t, err)

	require.Equal(t, len(memRows), len(indexRows))
	for i := range memRows {
		require.Equal(t, memRows[i].MatchMD5, indexRows[i].MatchMD5,
			"rank %d diverged between index and in-memory gather", i)
	}
}
