// Package revindex implements the on-disk InvertedIndex backend: a
// persistent key-value store mapping hash to a set of subject-ids, with an
// optional "colours" table that deduplicates identical posting lists. It is
// built on cockroachdb/pebble as an embedded LSM store, following the same
// single-writer-create/read-only-open discipline pebble itself uses for
// ingested sstables.
package revindex

import (
	"encoding/binary"
	"os"
	"path/filepath"

	"github.com/RoaringBitmap/roaring"
	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"

	"github.com/sourmash-bio/sketchsrch/catalog"
	"github.com/sourmash-bio/sketchsrch/sketch"
)

func init() {
	catalog.RegisterRevindexOpener(func(path string) (*catalog.Collection, error) {
		idx, err := Open(path, true)
		if err != nil {
			return nil, err
		}
		return idx.AsCollection(), nil
	})
}

const (
	currentMarker = "CURRENT"

	// key prefixes partition the keyspace into postings, colours and
	// manifest metadata within the same pebble instance.
	prefixPosting  byte = 'p'
	prefixColour   byte = 'c'
	prefixManifest byte = 'm'
	prefixMeta     byte = 'x'

	metaKeyMaxScaled = "max_scaled"
	metaKeyUseColors = "use_colors"
)

// Index is a handle on an open on-disk inverted index.
type Index struct {
	db        *pebble.DB
	path      string
	manifest  catalog.Manifest
	maxScaled uint64
	useColors bool
	readOnly  bool
}

// Open opens path as an inverted index, validating it by the presence of
// the CURRENT marker pebble itself writes on a clean close. readOnly must
// be true for every caller except create, per §4.7's single-writer rule.
func Open(path string, readOnly bool) (*Index, error) {
	if _, err := os.Stat(filepath.Join(path, currentMarker)); err != nil {
		return nil, errors.Wrapf(err, "revindex: %q has no CURRENT marker", path)
	}

	db, err := pebble.Open(path, &pebble.Options{ReadOnly: readOnly})
	if err != nil {
		return nil, errors.Wrapf(err, "revindex: opening %q", path)
	}

	idx := &Index{db: db, path: path, readOnly: readOnly}
	if err := idx.loadManifest(); err != nil {
		db.Close()
		return nil, err
	}
	if err := idx.loadMeta(); err != nil {
		db.Close()
		return nil, err
	}
	return idx, nil
}

func (idx *Index) Close() error { return idx.db.Close() }

func (idx *Index) Path() string { return idx.path }

// MaxScaled is the coarsest scaled observed across every indexed record.
// Queries demanding a finer resolution than this must be rejected by the
// caller (downsampling is coarsen-only; this index can't supply more
// resolution than it was built with).
func (idx *Index) MaxScaled() uint64 { return idx.maxScaled }

func (idx *Index) Manifest() catalog.Manifest { return idx.manifest }

func (idx *Index) loadManifest() error {
	iter, err := idx.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte{prefixManifest},
		UpperBound: []byte{prefixManifest + 1},
	})
	if err != nil {
		return err
	}
	defer iter.Close()

	var manifest catalog.Manifest
	for iter.First(); iter.Valid(); iter.Next() {
		rec, err := decodeManifestRecord(iter.Value())
		if err != nil {
			return errors.Wrap(err, "revindex: decoding manifest record")
		}
		manifest = append(manifest, rec)
	}
	idx.manifest = manifest
	return iter.Error()
}

func (idx *Index) loadMeta() error {
	v, closer, err := idx.db.Get(metaKey(metaKeyMaxScaled))
	if err != nil && err != pebble.ErrNotFound {
		return err
	}
	if err == nil {
		idx.maxScaled = binary.LittleEndian.Uint64(v)
		closer.Close()
	}

	v, closer, err = idx.db.Get(metaKey(metaKeyUseColors))
	if err != nil && err != pebble.ErrNotFound {
		return err
	}
	if err == nil {
		idx.useColors = v[0] != 0
		closer.Close()
	}
	return nil
}

func postingKey(hash uint64) []byte {
	key := make([]byte, 9)
	key[0] = prefixPosting
	binary.BigEndian.PutUint64(key[1:], hash)
	return key
}

func colourKey(colourID uint32) []byte {
	key := make([]byte, 5)
	key[0] = prefixColour
	binary.BigEndian.PutUint32(key[1:], colourID)
	return key
}

func manifestKey(subjectID uint32) []byte {
	key := make([]byte, 5)
	key[0] = prefixManifest
	binary.BigEndian.PutUint32(key[1:], subjectID)
	return key
}

func metaKey(name string) []byte {
	return append([]byte{prefixMeta}, []byte(name)...)
}

func encodeBitmap(b *roaring.Bitmap) ([]byte, error) {
	return b.ToBytes()
}

func decodeBitmap(raw []byte) (*roaring.Bitmap, error) {
	b := roaring.New()
	if _, err := b.FromBuffer(raw); err != nil {
		return nil, err
	}
	return b, nil
}

// subjectRecord is the on-disk representation of a catalog record, keyed by
// subject-id rather than embedded path -- the index is its own manifest.
type subjectRecord struct {
	sketch.Record
	ColourID uint32 // not set by Create (always 0); colour use is recorded under the use_colors meta key
}

func decodeManifestRecord(raw []byte) (sketch.Record, error) {
	var sr subjectRecord
	if err := decodeGob(raw, &sr); err != nil {
		return sketch.Record{}, err
	}
	return sr.Record, nil
}
