package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCrossThresholdIsQueryInSubjectOnly(t *testing.T) {
	queries := collectionOf(t, map[string][]uint64{
		"small-query": {1, 2},
	})
	subjects := collectionOf(t, map[string][]uint64{
		"big-subject": {1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	})

	// query is fully contained in subject (containment 1.0) even though
	// subject-in-query containment would be tiny (2/10).
	rows, err := Cross(context.Background(), queries, subjects, 0.9, false, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Equal(t, "small-query", rows[0].QueryName)
	require.Equal(t, "big-subject", rows[0].MatchName)
}

func TestCrossEmitsEveryQueryAgainstEverySubject(t *testing.T) {
	queries := collectionOf(t, map[string][]uint64{
		"q1": {1, 2, 3},
		"q2": {4, 5, 6},
	})
	subjects := collectionOf(t, map[string][]uint64{
		"s1": {1, 2, 3, 4, 5, 6},
	})

	rows, err := Cross(context.Background(), queries, subjects, 0.5, false, true)
	require.NoError(t, err)
	require.Len(t, rows, 2)
}

func TestCrossDropsExactlyAtThreshold(t *testing.T) {
	queries := collectionOf(t, map[string][]uint64{
		"q": {1, 2, 9, 10},
	})
	subjects := collectionOf(t, map[string][]uint64{
		"s": {1, 2, 20, 21, 22, 23, 24, 25},
	})

	// containment(q in s) = 2/4 = 0.5 exactly: must be dropped, not kept,
	// since the threshold test is strict (>), not (>=).
	rows, err := Cross(context.Background(), queries, subjects, 0.5, false, true)
	require.NoError(t, err)
	require.Empty(t, rows)
}

func TestCrossEstimateANIAddsColumns(t *testing.T) {
	queries := collectionOf(t, map[string][]uint64{
		"q": {1, 2, 3, 4},
	})
	subjects := collectionOf(t, map[string][]uint64{
		"s": {1, 2, 3, 4},
	})

	rows, err := Cross(context.Background(), queries, subjects, 0.5, true, true)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.Greater(t, rows[0].QueryANI, 0.0)
	require.Greater(t, rows[0].MaxANI, 0.0)
}
