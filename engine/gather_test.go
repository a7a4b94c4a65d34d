package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourmash-bio/sketchsrch/sketch"
)

func TestGatherPicksGreedilyAndSubtractsResidual(t *testing.T) {
	coll := collectionOf(t, map[string][]uint64{
		"a": {1, 2, 3, 4, 5, 6},
		"b": {1, 2, 3, 7, 8},
	})
	query := sketch.New(testParams(), []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	prefetched, _, err := Prefetch(context.Background(), query, coll, 2, true)
	require.NoError(t, err)

	rows, err := Gather(query, "query", prefetched, 2, 1)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	require.Equal(t, "a", rows[0].MatchName)
	require.Equal(t, 6, rows[0].Overlap)

	require.Equal(t, "b", rows[1].MatchName)
	require.Equal(t, 2, rows[1].Overlap) // only {7,8} remain uncovered by a
}

func TestGatherStopsWhenNothingClearsThreshold(t *testing.T) {
	coll := collectionOf(t, map[string][]uint64{
		"a": {1, 2, 3, 4, 5, 6},
		"b": {1, 2, 3, 7, 8},
	})
	query := sketch.New(testParams(), []uint64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})

	prefetched, _, err := Prefetch(context.Background(), query, coll, 2, true)
	require.NoError(t, err)

	rows, err := Gather(query, "query", prefetched, 3, 1)
	require.NoError(t, err)
	require.Len(t, rows, 1) // b's residual overlap of 2 never clears threshold 3
	require.Equal(t, "a", rows[0].MatchName)
}

func TestGatherDoesNotMutateCallerQuery(t *testing.T) {
	coll := collectionOf(t, map[string][]uint64{"a": {1, 2, 3}})
	query := sketch.New(testParams(), []uint64{1, 2, 3, 4})

	prefetched, _, err := Prefetch(context.Background(), query, coll, 1, true)
	require.NoError(t, err)

	_, err = Gather(query, "query", prefetched, 1, 1)
	require.NoError(t, err)
	require.Equal(t, 4, query.Size())
}
