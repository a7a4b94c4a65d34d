package engine

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
)

type pairKey struct{ Query, Match string }

func pairKeysOf(rows []ContainmentRow) []pairKey {
	keys := make([]pairKey, len(rows))
	for i, r := range rows {
		keys[i] = pairKey{Query: r.QueryName, Match: r.MatchName}
	}
	return keys
}

func TestPairwiseEmitsOnlyUpperTriangle(t *testing.T) {
	coll := collectionOf(t, map[string][]uint64{
		"a": {1, 2, 3, 4},
		"b": {1, 2, 3, 5},
		"c": {9, 10},
	})

	rows, err := Pairwise(context.Background(), coll, 0.1, false, false, true)
	require.NoError(t, err)

	for _, r := range rows {
		require.NotEqual(t, r.QueryName, r.MatchName)
	}
	// a-b should appear exactly once, never b-a
	seen := 0
	for _, r := range rows {
		if r.QueryName == "a" && r.MatchName == "b" {
			seen++
		}
		if r.QueryName == "b" && r.MatchName == "a" {
			t.Fatalf("lower triangle pair emitted: %+v", r)
		}
	}
	require.Equal(t, 1, seen)

	want := []pairKey{{Query: "a", Match: "b"}}
	less := func(a, b pairKey) bool { return a.Query+a.Match < b.Query+b.Match }
	if diff := cmp.Diff(want, pairKeysOf(rows), cmpopts.SortSlices(less)); diff != "" {
		t.Errorf("emitted pairs mismatch (-want +got):\n%s", diff)
	}
}

func TestPairwiseMaxContainmentIsSymmetric(t *testing.T) {
	coll := collectionOf(t, map[string][]uint64{
		"a": {1, 2, 3, 4, 5, 6, 7, 8},
		"b": {1, 2},
	})

	rows, err := Pairwise(context.Background(), coll, 0.01, false, false, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)

	// b is fully contained in a: containment(a->b) is low, containment(b->a)=1.0,
	// max_containment must reflect the higher of the two directions.
	require.InDelta(t, 1.0, rows[0].MaxContainment, 1e-9)
}

func TestPairwiseIncludeSelfEmitsSelfComparison(t *testing.T) {
	coll := collectionOf(t, map[string][]uint64{
		"a": {1, 2, 3},
	})

	rows, err := Pairwise(context.Background(), coll, 0.01, false, true, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "a", rows[0].QueryName)
	require.Equal(t, "a", rows[0].MatchName)
	require.InDelta(t, 1.0, rows[0].Containment, 1e-9)
}

func TestPairwiseDropsExactlyAtThreshold(t *testing.T) {
	coll := collectionOf(t, map[string][]uint64{
		"a": {1, 2, 9, 10},
		"b": {1, 2, 20, 21, 22, 23, 24, 25},
	})

	// overlap=2: containment(a->b)=2/4=0.5, containment(b->a)=2/8=0.25, so
	// MaxContainment is exactly 0.5 -- the comparison must be strict (>),
	// so a row landing exactly on the threshold is dropped, not kept.
	rows, err := Pairwise(context.Background(), coll, 0.5, false, false, true)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestPairwiseDropsBelowThreshold(t *testing.T) {
	coll := collectionOf(t, map[string][]uint64{
		"a": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		// shares only hash 1 with "a", and is itself large enough that
		// containment in either direction stays below threshold.
		"b": {1, 101, 102, 103, 104, 105, 106, 107, 108, 109},
	})

	rows, err := Pairwise(context.Background(), coll, 0.5, false, false, true)
	require.NoError(t, err)
	require.Empty(t, rows)
}
