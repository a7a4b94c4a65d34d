package revindex

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/sourmash-bio/sketchsrch/sketch"
)

// internalSketchesDir is the subdirectory Create copies sketches into when
// asked to internalize storage (§12, mirroring index.rs's
// use_internal_storage / internalize_storage).
const internalSketchesDir = "sketches"

// internalSignature/internalMinHash mirror the sourmash JSON signature shape
// catalog.decodeSignatures reads, so an internalized index directory stays
// loadable the same way a plain signature collection is.
type internalSignature struct {
	Name      string            `json:"name"`
	Filename  string            `json:"filename"`
	Signature []internalMinHash `json:"signatures"`
}

type internalMinHash struct {
	KSize    int      `json:"ksize"`
	Seed     uint64   `json:"seed"`
	MaxHash  uint64   `json:"max_hash"`
	Molecule string   `json:"molecule"`
	Num      int      `json:"num"`
	Mins     []uint64 `json:"mins"`
	MD5Sum   string   `json:"md5sum"`
}

// internalizeSketch writes sk as its own gzipped JSON signature file under
// sketchesDir, named by its record's MD5. Used when the source collection
// can't be addressed by stable paths (a path-list mixing in-memory and
// on-disk sources, a zip member, ...) and the index is meant to stand alone
// without depending on those original locations. Returns the path to record
// as the manifest record's new InternalLocation, relative to the index
// directory.
func internalizeSketch(sketchesDir string, rec sketch.Record, sk *sketch.Sketch) (string, error) {
	doc := []internalSignature{{
		Name:     rec.Name,
		Filename: rec.Filename,
		Signature: []internalMinHash{{
			KSize:    sk.K,
			Seed:     sk.Seed,
			MaxHash:  sk.MaxHash(),
			Molecule: string(sk.Moltype),
			Mins:     sk.Hashes(),
			MD5Sum:   rec.MD5,
		}},
	}}
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", errors.Wrap(err, "revindex: encoding internalized signature")
	}

	name := rec.MD5 + ".sig.gz"
	fullPath := filepath.Join(sketchesDir, name)
	f, err := os.Create(fullPath)
	if err != nil {
		return "", errors.Wrapf(err, "revindex: creating %q", fullPath)
	}
	defer f.Close()

	gw := gzip.NewWriter(f)
	if _, err := gw.Write(raw); err != nil {
		return "", errors.Wrap(err, "revindex: writing internalized signature")
	}
	if err := gw.Close(); err != nil {
		return "", errors.Wrap(err, "revindex: closing internalized signature")
	}
	return filepath.Join(internalSketchesDir, name), nil
}
