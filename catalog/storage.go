package catalog

import (
	"archive/zip"
	"os"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/sourmash-bio/sketchsrch/sketch"
)

// Storage materialises a Sketch from a Record's internal_location. It is the
// abstract collaborator the core engine depends on; concrete backends (a
// directory of signature files, a zip archive, a single standalone file) are
// all interchangeable behind this interface, mirroring the external
// SketchSource boundary in §1.
type Storage interface {
	// Load reads and parses the sketch referenced by rec. Implementations
	// return an error that the caller should treat as a per-record
	// LoadError (§7): isolated to this record, never fatal to the command.
	Load(rec sketch.Record) (*sketch.Sketch, error)
}

// FSStorage resolves a Record's internal_location relative to a root
// directory (or as an absolute path when internal_location already is one).
type FSStorage struct {
	Root string
}

func (s FSStorage) Load(rec sketch.Record) (*sketch.Sketch, error) {
	path := rec.InternalLocation
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.Root, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading sketch %q", rec.Name)
	}
	defer f.Close()

	sketches, err := decodeSignatures(f, path)
	if err != nil {
		return nil, errors.Wrapf(err, "parsing signature file %q", path)
	}
	return pickMatchingSketch(sketches, rec)
}

// ZipStorage resolves a Record's internal_location to an entry inside a
// sourmash-format zip archive (signatures/<md5>.sig.gz plus
// SOURMASH-MANIFEST.csv at the archive root).
type ZipStorage struct {
	Path string
}

func (s ZipStorage) Load(rec sketch.Record) (*sketch.Sketch, error) {
	zr, err := zip.OpenReader(s.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "opening zip %q", s.Path)
	}
	defer zr.Close()

	loc := rec.InternalLocation
	for _, f := range zr.File {
		if f.Name != loc {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, errors.Wrapf(err, "opening zip entry %q", loc)
		}
		defer rc.Close()

		sketches, err := decodeSignatures(rc, s.Path+"!"+loc)
		if err != nil {
			return nil, errors.Wrapf(err, "parsing zip entry %q", loc)
		}
		return pickMatchingSketch(sketches, rec)
	}
	return nil, errors.Errorf("zip %q: entry %q not found", s.Path, loc)
}

// pickMatchingSketch selects the loaded sketch matching rec's MD5 out of a
// signature file that may hold several sketches for the same sequence
// (different k/moltype combinations share a file in sourmash's format).
func pickMatchingSketch(sketches []loadedSketch, rec sketch.Record) (*sketch.Sketch, error) {
	if len(sketches) == 1 {
		return sketches[0].sketch, nil
	}
	for _, ls := range sketches {
		if ls.record.MD5 == rec.MD5 {
			return ls.sketch, nil
		}
	}
	return nil, errors.Errorf("no sketch matching md5 %q among %d loaded", rec.MD5, len(sketches))
}
