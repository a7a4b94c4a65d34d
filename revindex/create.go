package revindex

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"sort"

	"github.com/RoaringBitmap/roaring"
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/sourmash-bio/sketchsrch/catalog"
)

// Create ingests a resolved Collection into a brand new on-disk index at
// path. Every sketch is inverted: iterating its hashes and appending the
// sketch's subject-id to each hash's posting list. When useColors is set,
// posting lists with byte-identical content are deduplicated through a
// colour table keyed by content hash before being persisted, which is where
// most of an index's size goes when a collection has many near-duplicate
// genomes sharing most of their k-mers (and therefore their subject-id
// sets). When internalizeStorage is set, each record's sketch is also
// copied into path's own sketches/ subdirectory and the manifest record
// repointed at the copy, so the index no longer depends on the source
// collection's original locations (§12, index.rs's use_internal_storage).
func Create(path string, coll *catalog.Collection, useColors, internalizeStorage bool) error {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return errors.Wrapf(err, "revindex: creating %q", path)
	}
	defer db.Close()

	postings := make(map[uint64]*roaring.Bitmap)
	manifest := coll.Manifest()
	records := make(catalog.Manifest, len(manifest))
	copy(records, manifest)
	maxScaled := uint64(0)

	var sketchesDir string
	if internalizeStorage {
		sketchesDir = filepath.Join(path, internalSketchesDir)
		if err := os.MkdirAll(sketchesDir, 0o755); err != nil {
			return errors.Wrapf(err, "revindex: creating %q", sketchesDir)
		}
	}

	for subjectID, rec := range manifest {
		if rec.Scaled > maxScaled {
			maxScaled = rec.Scaled
		}
		sk, err := coll.Load(subjectID)
		if err != nil {
			return errors.Wrapf(err, "revindex: loading subject %d (%s)", subjectID, rec.Name)
		}
		for _, h := range sk.Hashes() {
			bm, ok := postings[h]
			if !ok {
				bm = roaring.New()
				postings[h] = bm
			}
			bm.Add(uint32(subjectID))
		}
		if internalizeStorage {
			loc, err := internalizeSketch(sketchesDir, rec, sk)
			if err != nil {
				return err
			}
			records[subjectID].InternalLocation = loc
		}
	}

	batch := db.NewBatch()
	defer batch.Close()

	if useColors {
		if err := writeColouredPostings(batch, postings); err != nil {
			return err
		}
	} else {
		if err := writeDirectPostings(batch, postings); err != nil {
			return err
		}
	}

	for subjectID, rec := range records {
		raw, err := encodeGob(subjectRecord{Record: rec})
		if err != nil {
			return errors.Wrap(err, "revindex: encoding manifest record")
		}
		if err := batch.Set(manifestKey(uint32(subjectID)), raw, nil); err != nil {
			return err
		}
	}

	var scaledBuf [8]byte
	binary.LittleEndian.PutUint64(scaledBuf[:], maxScaled)
	if err := batch.Set(metaKey(metaKeyMaxScaled), scaledBuf[:], nil); err != nil {
		return err
	}
	colorFlag := byte(0)
	if useColors {
		colorFlag = 1
	}
	if err := batch.Set(metaKey(metaKeyUseColors), []byte{colorFlag}, nil); err != nil {
		return err
	}

	if err := batch.Commit(pebble.Sync); err != nil {
		return errors.Wrap(err, "revindex: committing index")
	}
	return nil
}

// writeDirectPostings stores each hash's posting bitmap verbatim.
func writeDirectPostings(batch *pebble.Batch, postings map[uint64]*roaring.Bitmap) error {
	for hash, bm := range postings {
		raw, err := encodeBitmap(bm)
		if err != nil {
			return err
		}
		if err := batch.Set(postingKey(hash), raw, nil); err != nil {
			return err
		}
	}
	return nil
}

// writeColouredPostings deduplicates identical posting bitmaps into a
// colour table and stores only a 4-byte colour-id per hash, reconstructing
// the colour assignment deterministically: colours are numbered in the
// order their distinct bitmap first appears while iterating hashes in
// ascending order.
func writeColouredPostings(batch *pebble.Batch, postings map[uint64]*roaring.Bitmap) error {
	hashes := make([]uint64, 0, len(postings))
	for h := range postings {
		hashes = append(hashes, h)
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })

	colourOf := make(map[string]uint32)
	var nextColour uint32 = 1 // colour 0 is reserved ("no colour assigned")

	for _, h := range hashes {
		bm := postings[h]
		raw, err := encodeBitmap(bm)
		if err != nil {
			return err
		}
		colourID, seen := colourOf[string(raw)]
		if !seen {
			colourID = nextColour
			nextColour++
			colourOf[string(raw)] = colourID
			if err := batch.Set(colourKey(colourID), raw, nil); err != nil {
				return err
			}
		}
		var buf [4]byte
		binary.BigEndian.PutUint32(buf[:], colourID)
		if err := batch.Set(postingKey(h), buf[:], nil); err != nil {
			return err
		}
	}
	return nil
}
