package pipeline

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRunDeliversEveryRow(t *testing.T) {
	source := func(_ context.Context, i int) ([]Row, error) {
		return []Row{i, i * 10}, nil
	}

	var mu sync.Mutex
	var got []int
	sink := func(row Row) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, row.(int))
		return nil
	}

	require.NoError(t, Run(context.Background(), 5, source, sink, nil))
	require.Len(t, got, 10)
}

func TestRunPropagatesSourceError(t *testing.T) {
	boom := errTest("boom")
	source := func(_ context.Context, i int) ([]Row, error) {
		if i == 2 {
			return nil, boom
		}
		return []Row{i}, nil
	}
	sink := func(Row) error { return nil }

	err := Run(context.Background(), 10, source, sink, nil)
	require.Error(t, err)
}

func TestRunStopsOnInterrupted(t *testing.T) {
	interrupted := &Interrupted{}

	source := func(_ context.Context, i int) ([]Row, error) {
		if i == 0 {
			interrupted.Set()
		}
		return []Row{i}, nil
	}
	sink := func(Row) error { return nil }

	require.NoError(t, Run(context.Background(), 1000, source, sink, interrupted))
	require.True(t, interrupted.IsSet())
}

type errTest string

func (e errTest) Error() string { return string(e) }
