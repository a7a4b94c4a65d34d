// Package sketch implements FracMinHash sketches: bounded, deterministically
// subsampled sets of 64-bit hashes, and the comparisons between them that
// approximate Jaccard containment of the underlying k-mer sets.
package sketch

import "github.com/pkg/errors"

// Comparability errors are returned by CountCommon and RemoveFrom whenever
// two sketches cannot be compared directly. Callers that can downsample
// should retry after reconciling scaled; everything else is fatal to the
// comparison.
var (
	ErrMismatchKSizes  = errors.New("sketch: mismatched ksizes")
	ErrMismatchMoltype = errors.New("sketch: mismatched moltypes")
	ErrMismatchSeed    = errors.New("sketch: mismatched seeds")
	ErrMismatchScaled  = errors.New("sketch: mismatched scaled (downsampling not permitted for this call)")

	// ErrScaledTooFine is returned by a Selection when a requested scaled is
	// finer (smaller) than a candidate record's own scaled: the candidate
	// cannot be upsampled to match.
	ErrScaledTooFine = errors.New("sketch: requested scaled is finer than a candidate sketch's scaled")

	// ErrDownsampleCoarser is returned by Downsample when asked to sample to
	// a finer resolution than the sketch already has.
	ErrDownsampleCoarser = errors.New("sketch: downsample requires new_scaled >= scaled")

	// ErrEmptySelection is raised by a Selector when no records in a
	// collection survive filtering by (k, moltype).
	ErrEmptySelection = errors.New("sketch: no records match the requested k/moltype selection")
)
