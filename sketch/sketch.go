package sketch

import (
	"crypto/md5"
	"encoding/binary"
	"fmt"
	"sort"
)

// Moltype disambiguates the hash function used to derive a Sketch's hashes.
type Moltype string

const (
	DNA     Moltype = "DNA"
	Protein Moltype = "protein"
	Dayhoff Moltype = "dayhoff"
	HP      Moltype = "hp"
)

// Params describes the parameters a Sketch was built with. Two sketches are
// comparable only if K, Moltype and Seed agree (see Comparable).
type Params struct {
	K             int
	Scaled        uint64
	Moltype       Moltype
	Seed          uint64
	WithAbundance bool
}

// MaxHash returns floor(2**64 / scaled), the inclusive upper bound on hashes
// retained at this scaled factor. A scaled of 0 or 1 means "no subsampling":
// every hash is kept.
func MaxHash(scaled uint64) uint64 {
	if scaled <= 1 {
		return ^uint64(0)
	}
	return ^uint64(0) / scaled
}

// Sketch is a FracMinHash: the ordered set of every hash h produced from an
// input where h <= MaxHash(Scaled), plus its descriptor. Hashes are kept
// sorted ascending at all times; this is both the iteration order used for
// the MD5 fingerprint and what makes CountCommon/RemoveFrom linear merges
// instead of map lookups.
type Sketch struct {
	Params
	hashes []uint64
}

// New builds a Sketch from an arbitrary set of hashes, sorting and
// deduplicating them and discarding anything above MaxHash(params.Scaled).
// Callers that already have a sorted, deduplicated, filtered slice should use
// NewSorted to avoid the extra pass.
func New(params Params, hashes []uint64) *Sketch {
	max := MaxHash(params.Scaled)
	kept := make([]uint64, 0, len(hashes))
	for _, h := range hashes {
		if h <= max {
			kept = append(kept, h)
		}
	}
	sort.Slice(kept, func(i, j int) bool { return kept[i] < kept[j] })
	kept = dedupSorted(kept)
	return &Sketch{Params: params, hashes: kept}
}

// NewSorted wraps an already-sorted, deduplicated, filtered hash slice
// without re-validating it. It is the fast path used by loaders that read
// hashes straight off of a sorted on-disk representation.
func NewSorted(params Params, sortedHashes []uint64) *Sketch {
	return &Sketch{Params: params, hashes: sortedHashes}
}

func dedupSorted(hashes []uint64) []uint64 {
	if len(hashes) == 0 {
		return hashes
	}
	out := hashes[:1]
	for _, h := range hashes[1:] {
		if h != out[len(out)-1] {
			out = append(out, h)
		}
	}
	return out
}

// Size returns the number of hashes retained in the sketch.
func (s *Sketch) Size() int { return len(s.hashes) }

// Hashes returns the sketch's sorted hash slice. Callers must not mutate it.
func (s *Sketch) Hashes() []uint64 { return s.hashes }

// MaxHash returns this sketch's own MaxHash(Scaled).
func (s *Sketch) MaxHash() uint64 { return MaxHash(s.Scaled) }

// MD5 computes the sketch's fingerprint over its canonical sorted hash list
// plus descriptor. Downsampling produces a new Sketch with its own MD5 --
// identity is not preserved across resolution changes.
func (s *Sketch) MD5() string {
	h := md5.New()
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], uint64(s.K))
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], s.Scaled)
	h.Write(buf[:])
	binary.LittleEndian.PutUint64(buf[:], s.Seed)
	h.Write(buf[:])
	h.Write([]byte(s.Moltype))
	for _, v := range s.hashes {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// comparableParams reports whether a and b can be compared once the coarser
// side's downsampling has been applied: k, moltype and seed must agree
// exactly.
func comparableParams(a, b Params) error {
	if a.K != b.K {
		return ErrMismatchKSizes
	}
	if a.Moltype != b.Moltype {
		return ErrMismatchMoltype
	}
	if a.Seed != b.Seed {
		return ErrMismatchSeed
	}
	return nil
}

// Comparable reports whether a and b can be intersected, possibly after
// downsampling the higher-resolution side to the other's MaxHash. It does
// not mutate either sketch.
func Comparable(a, b *Sketch) error {
	return comparableParams(a.Params, b.Params)
}

// Downsample returns a new Sketch restricted to hashes <= MaxHash(newScaled).
// newScaled must be >= s.Scaled (downsampling only ever coarsens). The
// returned sketch has its own recomputed MD5; it is idempotent at a fixed
// target scaled.
func (s *Sketch) Downsample(newScaled uint64) (*Sketch, error) {
	if newScaled < s.Scaled {
		return nil, ErrDownsampleCoarser
	}
	if newScaled == s.Scaled {
		out := make([]uint64, len(s.hashes))
		copy(out, s.hashes)
		return &Sketch{Params: s.Params, hashes: out}, nil
	}
	max := MaxHash(newScaled)
	idx := sort.Search(len(s.hashes), func(i int) bool { return s.hashes[i] > max })
	kept := make([]uint64, idx)
	copy(kept, s.hashes[:idx])
	params := s.Params
	params.Scaled = newScaled
	return &Sketch{Params: params, hashes: kept}, nil
}

// reconcile returns (a', b') such that both sides share the same, coarser
// MaxHash. If downsampleIfNeeded is false and the scales differ, it fails
// with ErrMismatchScaled rather than downsampling implicitly.
func reconcile(a, b *Sketch, downsampleIfNeeded bool) (*Sketch, *Sketch, error) {
	if err := Comparable(a, b); err != nil {
		return nil, nil, err
	}
	if a.Scaled == b.Scaled {
		return a, b, nil
	}
	if !downsampleIfNeeded {
		return nil, nil, ErrMismatchScaled
	}
	coarser := a.Scaled
	if b.Scaled > coarser {
		coarser = b.Scaled
	}
	da, err := a.Downsample(coarser)
	if err != nil {
		return nil, nil, err
	}
	db, err := b.Downsample(coarser)
	if err != nil {
		return nil, nil, err
	}
	return da, db, nil
}

// CountCommon returns |a n b|. If downsampleIfNeeded is true and the two
// sketches were built at different scaled, the coarser MaxHash is applied to
// both sides first; otherwise a scaled mismatch fails loudly with
// ErrMismatchScaled.
func CountCommon(a, b *Sketch, downsampleIfNeeded bool) (int, error) {
	a, b, err := reconcile(a, b, downsampleIfNeeded)
	if err != nil {
		return 0, err
	}
	return countCommonSorted(a.hashes, b.hashes), nil
}

func countCommonSorted(a, b []uint64) int {
	i, j, n := 0, 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			n++
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return n
}

// RemoveFrom subtracts every hash in subtrahend that is <= target's MaxHash
// from target, in place. It requires the two sketches to be comparable
// (k/moltype/seed) at target's own resolution -- the subtrahend is
// downsampled to target's MaxHash first if it is finer, matching the
// "eagerly downsample, never upsample" rule used throughout this package.
func (target *Sketch) RemoveFrom(subtrahend *Sketch) error {
	if err := comparableParams(target.Params, subtrahend.Params); err != nil {
		return err
	}
	sub := subtrahend
	if subtrahend.Scaled < target.Scaled {
		var err error
		sub, err = subtrahend.Downsample(target.Scaled)
		if err != nil {
			return err
		}
	}
	target.hashes = subtractSorted(target.hashes, sub.hashes)
	return nil
}

func subtractSorted(a, b []uint64) []uint64 {
	out := a[:0:0]
	i, j := 0, 0
	for i < len(a) {
		for j < len(b) && b[j] < a[i] {
			j++
		}
		if j < len(b) && b[j] == a[i] {
			i++
			continue
		}
		out = append(out, a[i])
		i++
	}
	return out
}
