package revindex

import (
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/sourmash-bio/sketchsrch/sketch"
)

// Counter accumulates, per subject-id, how many of a query's hashes hit
// that subject's posting list. It is the index-side analog of the
// in-memory prefetch kernel's overlap count, computed by streaming the
// query's hashes against on-disk posting lists instead of scanning whole
// sketches.
type Counter map[uint32]int

// CounterForQuery streams q's hashes against the index, accumulating a
// per-subject occurrence count (§4.7 counter_for_query).
func (idx *Index) CounterForQuery(q *sketch.Sketch) (Counter, error) {
	counter := make(Counter)
	for _, h := range q.Hashes() {
		if err := idx.addPostingTo(counter, h); err != nil {
			return nil, err
		}
	}
	return counter, nil
}

func (idx *Index) addPostingTo(counter Counter, hash uint64) error {
	v, closer, err := idx.db.Get(postingKey(hash))
	if err == pebble.ErrNotFound {
		return nil
	}
	if err != nil {
		return err
	}
	defer closer.Close()

	bm, err := idx.resolvePostingBitmap(v)
	if err != nil {
		return err
	}
	bm.Iterate(func(subjectID uint32) bool {
		counter[subjectID]++
		return true
	})
	return nil
}

// resolvePostingBitmap decodes a stored posting value, indirecting through
// the colour table when the index was built with useColors.
func (idx *Index) resolvePostingBitmap(stored []byte) (*roaring.Bitmap, error) {
	if !idx.useColors {
		return decodeBitmap(stored)
	}
	colourID := beUint32(stored)
	v, closer, err := idx.db.Get(colourKey(colourID))
	if err != nil {
		return nil, errors.Wrapf(err, "revindex: missing colour %d", colourID)
	}
	defer closer.Close()
	return decodeBitmap(v)
}

func beUint32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

// Match is a single subject's overlap against a query, resolved back to its
// manifest record.
type Match struct {
	Record  sketch.Record
	Overlap int
}

// MatchesFromCounter yields every subject whose accumulated count meets
// minCount, resolved to their manifest records (§4.7
// matches_from_counter).
func (idx *Index) MatchesFromCounter(counter Counter, minCount int) []Match {
	var out []Match
	for subjectID, count := range counter {
		if count < minCount {
			continue
		}
		if int(subjectID) >= len(idx.manifest) {
			continue
		}
		out = append(out, Match{Record: idx.manifest[subjectID], Overlap: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Overlap != out[j].Overlap {
			return out[i].Overlap > out[j].Overlap
		}
		return out[i].Record.Name < out[j].Record.Name
	})
	return out
}

// GatherRow is one ranked result emitted by Gather.
type GatherRow struct {
	Rank        int
	MatchName   string
	MatchMD5    string
	FMatch      float64
	IntersectBP uint64
	Overlap     int
}

// Gather runs the full greedy min-set-cover loop inside the index (§4.7
// prepare_gather_counters + gather): repeatedly pick the top-count subject,
// subtract its posting list from the counter, and stop once no residual
// count clears threshold. This mirrors engine.GatherEngine's semantics but
// operates on the compact Counter representation instead of materialising
// subtrahend sketches, since posting lists are already resident.
func (idx *Index) Gather(q *sketch.Sketch, thresholdHashes int, scaled uint64) ([]GatherRow, error) {
	counter, err := idx.CounterForQuery(q)
	if err != nil {
		return nil, err
	}
	originalSize := q.Size()

	var rows []GatherRow
	rank := 0
	for {
		bestID, bestCount, ok := topOf(counter)
		if !ok || bestCount < thresholdHashes {
			break
		}
		rec := idx.manifest[bestID]

		rows = append(rows, GatherRow{
			Rank:        rank,
			MatchName:   rec.Name,
			MatchMD5:    rec.MD5,
			FMatch:      float64(bestCount) / float64(originalSize),
			IntersectBP: sketch.IntersectBP(bestCount, scaled),
			Overlap:     bestCount,
		})
		rank++

		delete(counter, bestID)
		bm, err := idx.postingBitmapForSubject(bestID)
		if err != nil {
			return nil, err
		}
		if err := subtractPostingFromCounter(counter, bm); err != nil {
			return nil, err
		}
	}
	return rows, nil
}

// hashesForSubject reconstructs the full sorted hash set belonging to
// subjectID by scanning every posting, the inverse direction of how the
// index was built. Used only to materialise a Sketch when a caller goes
// through the generic Storage interface rather than the Counter-based
// query path.
func (idx *Index) hashesForSubject(subjectID uint32, rec sketch.Record) (*sketch.Sketch, error) {
	iter, err := idx.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{prefixPosting},
		UpperBound: []byte{prefixPosting + 1},
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	var hashes []uint64
	for iter.First(); iter.Valid(); iter.Next() {
		bm, err := idx.resolvePostingBitmap(append([]byte(nil), iter.Value()...))
		if err != nil {
			return nil, err
		}
		contains := false
		bm.Iterate(func(id uint32) bool {
			if id == subjectID {
				contains = true
				return false
			}
			return true
		})
		if contains {
			hashes = append(hashes, decodeHashFromPostingKey(iter.Key()))
		}
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}

	params := sketch.Params{
		K:             rec.K,
		Scaled:        rec.Scaled,
		Moltype:       rec.Moltype,
		WithAbundance: rec.WithAbundance,
	}
	return sketch.New(params, hashes), nil
}

func decodeHashFromPostingKey(key []byte) uint64 {
	var h uint64
	for i := 1; i < 9; i++ {
		h = h<<8 | uint64(key[i])
	}
	return h
}

func topOf(counter Counter) (uint32, int, bool) {
	best := uint32(0)
	bestCount := -1
	found := false
	for id, c := range counter {
		if c > bestCount || (c == bestCount && id < best) {
			best, bestCount, found = id, c, true
		}
	}
	return best, bestCount, found
}

// postingBitmapForSubject returns, for every subject sharing at least one
// hash with bestID, the number of hashes they share with it -- scanning
// every posting bestID participates in. This is the index-native
// equivalent of loading bestID's full sketch and intersecting it against
// every other candidate from the Storage backend.
func (idx *Index) postingBitmapForSubject(subjectID uint32) (map[uint32]int, error) {
	// The posting store is keyed by hash, not by subject, so a subject's
	// full hash set requires a scan. Gather is expected to run against
	// indexes built for repeated subtraction so this cost is paid once per
	// rank, not once per hash.
	iter, err := idx.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{prefixPosting},
		UpperBound: []byte{prefixPosting + 1},
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	shared := make(map[uint32]int)
	for iter.First(); iter.Valid(); iter.Next() {
		bm, err := idx.resolvePostingBitmap(append([]byte(nil), iter.Value()...))
		if err != nil {
			return nil, err
		}
		contains := false
		bm.Iterate(func(id uint32) bool {
			if id == subjectID {
				contains = true
				return false
			}
			return true
		})
		if !contains {
			continue
		}
		bm.Iterate(func(id uint32) bool {
			shared[id]++
			return true
		})
	}
	return shared, iter.Error()
}

// subtractPostingFromCounter removes, per subject, as many counts as it
// shares hashes with the chosen match, mirroring Sketch.RemoveFrom at the
// counter level.
func subtractPostingFromCounter(counter Counter, shared map[uint32]int) error {
	for id, n := range shared {
		c, ok := counter[id]
		if !ok {
			continue
		}
		if c <= n {
			delete(counter, id)
		} else {
			counter[id] = c - n
		}
	}
	return nil
}
