package engine

import (
	"context"
	"sort"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourmash-bio/sketchsrch/catalog"
	"github.com/sourmash-bio/sketchsrch/sketch"
)

func testParams() sketch.Params { return sketch.Params{K: 21, Scaled: 1, Moltype: sketch.DNA} }

type memStorage map[string]*sketch.Sketch

func (m memStorage) Load(rec sketch.Record) (*sketch.Sketch, error) {
	return m[rec.MD5], nil
}

func collectionOf(t *testing.T, sketches map[string][]uint64) *catalog.Collection {
	t.Helper()
	storage := make(memStorage)
	var manifest catalog.Manifest
	names := make([]string, 0, len(sketches))
	for name := range sketches {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		hashes := sketches[name]
		sk := sketch.New(testParams(), hashes)
		rec := sketch.Record{Name: name, MD5: name, K: 21, Moltype: sketch.DNA, Scaled: 1, NHashes: sk.Size()}
		storage[rec.MD5] = sk
		manifest = append(manifest, rec)
	}
	return catalog.NewCollection("mem", manifest, storage)
}

func TestPrefetchKeepsOnlyCandidatesMeetingThreshold(t *testing.T) {
	coll := collectionOf(t, map[string][]uint64{
		"high": {1, 2, 3, 4, 5},
		"low":  {1, 2},
		"none": {100, 200},
	})
	query := sketch.New(testParams(), []uint64{1, 2, 3, 4, 5, 6, 7})

	heap, stats, err := Prefetch(context.Background(), query, coll, 3, true)
	require.NoError(t, err)
	require.Zero(t, stats.Failed)
	require.Equal(t, 1, heap.Len())
	require.Equal(t, "high", (*heap)[0].Record.Name)
}

func TestPrefetchHeapRootIsHighestOverlap(t *testing.T) {
	coll := collectionOf(t, map[string][]uint64{
		"a": {1, 2, 3},
		"b": {1, 2, 3, 4, 5},
	})
	query := sketch.New(testParams(), []uint64{1, 2, 3, 4, 5, 6})

	heap, _, err := Prefetch(context.Background(), query, coll, 1, true)
	require.NoError(t, err)
	require.Equal(t, 2, heap.Len())
	require.Equal(t, "b", (*heap)[0].Record.Name)
}

func TestRefilterAgainstDropsBelowThreshold(t *testing.T) {
	a := sketch.New(testParams(), []uint64{1, 2, 3})
	b := sketch.New(testParams(), []uint64{4, 5})
	candidates := []PrefetchResult{
		{Record: sketch.Record{Name: "a"}, Sketch: a, Overlap: 3},
		{Record: sketch.Record{Name: "b"}, Sketch: b, Overlap: 2},
	}
	query := sketch.New(testParams(), []uint64{1, 2, 3})

	refiltered := RefilterAgainst(candidates, query, 1)
	require.Equal(t, 1, refiltered.Len())
	require.Equal(t, "a", (*refiltered)[0].Record.Name)
}
