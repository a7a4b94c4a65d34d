package revindex

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourmash-bio/sketchsrch/catalog"
	"github.com/sourmash-bio/sketchsrch/sketch"
)

type memStorage map[string]*sketch.Sketch

func (m memStorage) Load(rec sketch.Record) (*sketch.Sketch, error) {
	return m[rec.MD5], nil
}

func testParams() sketch.Params { return sketch.Params{K: 21, Scaled: 1, Moltype: sketch.DNA} }

func collectionOf(t *testing.T, sketches map[string][]uint64) *catalog.Collection {
	t.Helper()
	storage := make(memStorage)
	var manifest catalog.Manifest
	for name, hashes := range sketches {
		sk := sketch.New(testParams(), hashes)
		rec := sketch.Record{Name: name, MD5: name, K: 21, Moltype: sketch.DNA, Scaled: 1, NHashes: sk.Size()}
		storage[rec.MD5] = sk
		manifest = append(manifest, rec)
	}
	return catalog.NewCollection("mem", manifest, storage)
}

func buildIndex(t *testing.T, useColors bool, sketches map[string][]uint64) *Index {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "idx")
	coll := collectionOf(t, sketches)
	require.NoError(t, Create(dir, coll, useColors, false))

	idx, err := Open(dir, true)
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })
	return idx
}

func TestCreateAndOpenRoundTrip(t *testing.T) {
	idx := buildIndex(t, false, map[string][]uint64{
		"a": {1, 2, 3},
		"b": {3, 4, 5},
	})
	require.Equal(t, 2, len(idx.Manifest()))
	require.Equal(t, uint64(1), idx.MaxScaled())
}

func TestCreateWithColoursRoundTrip(t *testing.T) {
	idx := buildIndex(t, true, map[string][]uint64{
		"a": {1, 2, 3},
		"b": {1, 2, 3}, // identical posting lists -> should share a colour
		"c": {9},
	})
	require.Equal(t, 3, len(idx.Manifest()))

	counter, err := idx.CounterForQuery(sketch.New(testParams(), []uint64{1, 2, 3}))
	require.NoError(t, err)

	matches := idx.MatchesFromCounter(counter, 1)
	require.Len(t, matches, 2)
	names := map[string]bool{matches[0].Record.Name: true, matches[1].Record.Name: true}
	require.True(t, names["a"] && names["b"])
	require.Equal(t, 3, matches[0].Overlap)
	require.Equal(t, 3, matches[1].Overlap)
}

func TestCounterForQueryAccumulatesPerSubject(t *testing.T) {
	idx := buildIndex(t, false, map[string][]uint64{
		"a": {1, 2, 3, 4},
		"b": {3, 4, 5},
	})

	counter, err := idx.CounterForQuery(sketch.New(testParams(), []uint64{1, 2, 3, 4, 5}))
	require.NoError(t, err)

	matches := idx.MatchesFromCounter(counter, 1)
	require.Len(t, matches, 2)
	require.Equal(t, "a", matches[0].Record.Name)
	require.Equal(t, 4, matches[0].Overlap)
	require.Equal(t, "b", matches[1].Record.Name)
	require.Equal(t, 3, matches[1].Overlap)
}

func TestGatherSubtractsSharedHashCountNotFlatDecrement(t *testing.T) {
	// a and b share hashes {1,2,3} with each other in addition to overlapping
	// the query; after picking a, b's count must drop by exactly the number
	// of hashes a and b share (3), not by 1.
	idx := buildIndex(t, false, map[string][]uint64{
		"a": {1, 2, 3, 4, 5, 6},
		"b": {1, 2, 3, 7, 8},
	})
	query := sketch.New(testParams(), []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	rows, err := idx.Gather(query, 2, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	require.Equal(t, "a", rows[0].MatchName)
	require.Equal(t, 6, rows[0].Overlap)
	require.Equal(t, "b", rows[1].MatchName)
	require.Equal(t, 2, rows[1].Overlap)
}

func TestGatherStopsBelowThreshold(t *testing.T) {
	idx := buildIndex(t, false, map[string][]uint64{
		"a": {1, 2, 3, 4, 5, 6},
		"b": {1, 2, 3, 7, 8},
	})
	query := sketch.New(testParams(), []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	rows, err := idx.Gather(query, 3, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "a", rows[0].MatchName)
}

func TestAsCollectionRoundTripsHashesThroughIndexStorage(t *testing.T) {
	idx := buildIndex(t, false, map[string][]uint64{
		"a": {1, 2, 3, 4},
	})

	coll := idx.AsCollection()
	require.True(t, coll.IsRevindex())
	require.Equal(t, 1, coll.Len())

	sk, err := coll.Load(0)
	require.NoError(t, err)
	require.Equal(t, []uint64{1, 2, 3, 4}, sk.Hashes())

	back, ok := IndexFromCollection(coll)
	require.True(t, ok)
	require.Same(t, idx, back)
}

func TestOpenRejectsMissingCURRENTMarker(t *testing.T) {
	_, err := Open(t.TempDir(), true)
	require.Error(t, err)
}

func TestCreateWithInternalizeStorageCopiesSketchesAndUpdatesManifest(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "idx")
	coll := collectionOf(t, map[string][]uint64{
		"a": {1, 2, 3},
	})
	require.NoError(t, Create(dir, coll, false, true))

	idx, err := Open(dir, true)
	require.NoError(t, err)
	defer idx.Close()

	manifest := idx.Manifest()
	require.Len(t, manifest, 1)
	require.Equal(t, filepath.Join(internalSketchesDir, manifest[0].MD5+".sig.gz"), manifest[0].InternalLocation)

	_, err = os.Stat(filepath.Join(dir, manifest[0].InternalLocation))
	require.NoError(t, err)
}
