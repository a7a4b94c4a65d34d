package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourmash-bio/sketchsrch/sketch"
)

type fakeStorage struct{}

func (fakeStorage) Load(rec sketch.Record) (*sketch.Sketch, error) {
	return sketch.New(sketch.Params{K: rec.K, Scaled: rec.Scaled, Moltype: rec.Moltype}, nil), nil
}

func collOf(recs ...sketch.Record) *Collection {
	return NewCollection("mem", Manifest(recs), fakeStorage{})
}

func TestSelectResolvesToCoarsestScaledWhenUnset(t *testing.T) {
	mc := NewMultiCollection([]*Collection{
		collOf(
			sketch.Record{Name: "a", MD5: "a", K: 31, Moltype: sketch.DNA, Scaled: 1000},
			sketch.Record{Name: "b", MD5: "b", K: 31, Moltype: sketch.DNA, Scaled: 2000},
		),
	})

	resolved, indexes, err := Select(mc, Selection{K: 31, Moltype: sketch.DNA})
	require.NoError(t, err)
	require.Equal(t, uint64(2000), resolved)
	require.Len(t, indexes, 2)
}

func TestSelectFiltersByKAndMoltype(t *testing.T) {
	mc := NewMultiCollection([]*Collection{
		collOf(
			sketch.Record{Name: "a", MD5: "a", K: 31, Moltype: sketch.DNA, Scaled: 1000},
			sketch.Record{Name: "b", MD5: "b", K: 21, Moltype: sketch.DNA, Scaled: 1000},
			sketch.Record{Name: "c", MD5: "c", K: 31, Moltype: sketch.Protein, Scaled: 1000},
		),
	})

	_, indexes, err := Select(mc, Selection{K: 31, Moltype: sketch.DNA})
	require.NoError(t, err)
	require.Equal(t, []int{0}, indexes)
}

func TestSelectRejectsScaledTooFine(t *testing.T) {
	mc := NewMultiCollection([]*Collection{
		collOf(sketch.Record{Name: "a", MD5: "a", K: 31, Moltype: sketch.DNA, Scaled: 2000}),
	})

	requested := uint64(100)
	_, _, err := Select(mc, Selection{K: 31, Moltype: sketch.DNA, Scaled: &requested})
	require.ErrorIs(t, err, sketch.ErrScaledTooFine)
}

func TestSelectKeepsRecordsFinerThanOrEqualToRequestedScaled(t *testing.T) {
	mc := NewMultiCollection([]*Collection{
		collOf(
			sketch.Record{Name: "a", MD5: "a", K: 31, Moltype: sketch.DNA, Scaled: 100},
			sketch.Record{Name: "b", MD5: "b", K: 31, Moltype: sketch.DNA, Scaled: 5000},
		),
	})

	requested := uint64(1000)
	resolved, indexes, err := Select(mc, Selection{K: 31, Moltype: sketch.DNA, Scaled: &requested})
	require.NoError(t, err)
	require.Equal(t, requested, resolved)
	require.Equal(t, []int{0}, indexes)
}
