package catalog

import (
	"archive/zip"
	"bufio"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/sourmash-bio/sketchsrch/sketch"
)

// LoadStats summarises a loader's outcome: how many records resolved to a
// usable sketch source, how many were skipped (manifest row with no
// matching location), and how many failed to parse.
type LoadStats struct {
	NLoaded  int
	NSkipped int
	NFailed  int
}

// OK reports whether a load is usable by callers: Open only fails the whole
// command when nothing at all loaded, per §4.3.
func (s LoadStats) OK() bool { return s.NLoaded > 0 }

// Open dispatches on path's extension/shape to produce a Collection, per
// §4.3:
//   - a directory containing a CURRENT marker is an inverted-index backend;
//   - a .zip archive of signature files plus SOURMASH-MANIFEST.csv;
//   - a standalone .csv manifest referencing sketches by internal_location;
//   - a single signature file;
//   - anything else is treated as a text file of paths, one per line, each
//     resolved recursively.
//
// openRevindex lets the revindex package register itself without catalog
// importing it directly (revindex already depends on catalog for Record and
// Manifest; catalog importing revindex back would cycle).
var openRevindex func(path string) (*Collection, error)

// RegisterRevindexOpener lets package revindex install its Open
// implementation so catalog.Open can dispatch to it without a direct
// import-cycle-forming dependency.
func RegisterRevindexOpener(fn func(path string) (*Collection, error)) {
	openRevindex = fn
}

func Open(path string) (*Collection, LoadStats, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, LoadStats{}, errors.Wrapf(err, "catalog: opening %q", path)
	}

	if info.IsDir() {
		if _, err := os.Stat(filepath.Join(path, "CURRENT")); err == nil {
			if openRevindex == nil {
				return nil, LoadStats{}, errors.Errorf("catalog: %q looks like an inverted index but revindex backend is not linked in", path)
			}
			c, err := openRevindex(path)
			if err != nil {
				return nil, LoadStats{}, err
			}
			return c, LoadStats{NLoaded: c.Len()}, nil
		}
		return nil, LoadStats{}, errors.Errorf("catalog: %q is a directory without a CURRENT marker", path)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".zip":
		return openZip(path)
	case ".csv":
		return openManifestCSV(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, errors.Wrapf(err, "catalog: opening %q", path)
	}
	defer f.Close()

	if looksLikeSignature(f) {
		return openSignatureFile(path)
	}
	return openPathList(path)
}

// looksLikeSignature peeks the first non-whitespace byte: JSON signature
// files (gzipped or not) never start like a plain path-list line does.
func looksLikeSignature(f *os.File) bool {
	defer f.Seek(0, 0)
	buf := make([]byte, 512)
	n, _ := f.Read(buf)
	if n >= 2 && buf[0] == 0x1f && buf[1] == 0x8b { // gzip magic
		return true
	}
	for _, b := range buf[:n] {
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b == '[' || b == '{'
	}
	return false
}

func openSignatureFile(path string) (*Collection, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, err
	}
	defer f.Close()

	loaded, err := decodeSignatures(f, path)
	if err != nil {
		return nil, LoadStats{}, errors.Wrapf(err, "catalog: loading %q", path)
	}
	manifest := make(Manifest, 0, len(loaded))
	for _, ls := range loaded {
		rec := ls.record
		rec.InternalLocation = path
		manifest = append(manifest, rec)
	}
	return NewCollection(path, manifest, singleFileStorage{path: path}),
		LoadStats{NLoaded: len(manifest)}, nil
}

// singleFileStorage always re-resolves Load against the one file it was
// opened from, regardless of what internal_location the record carries --
// a lone signature file has no manifest-driven indirection.
type singleFileStorage struct {
	path string
}

func (s singleFileStorage) Load(rec sketch.Record) (*sketch.Sketch, error) {
	f, err := os.Open(s.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	loaded, err := decodeSignatures(f, s.path)
	if err != nil {
		return nil, err
	}
	return pickMatchingSketch(loaded, rec)
}

func openZip(path string) (*Collection, LoadStats, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, LoadStats{}, errors.Wrapf(err, "catalog: opening zip %q", path)
	}
	defer zr.Close()

	var manifestFile *zip.File
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "SOURMASH-MANIFEST.csv") {
			manifestFile = f
			break
		}
	}
	if manifestFile == nil {
		return nil, LoadStats{}, errors.Errorf("catalog: zip %q has no SOURMASH-MANIFEST.csv", path)
	}

	rc, err := manifestFile.Open()
	if err != nil {
		return nil, LoadStats{}, err
	}
	defer rc.Close()

	manifest, err := ReadManifestCSV(rc)
	if err != nil {
		return nil, LoadStats{}, errors.Wrapf(err, "catalog: parsing manifest inside %q", path)
	}

	present := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		present[f.Name] = true
	}

	var kept Manifest
	skipped := 0
	for _, rec := range manifest {
		if present[rec.InternalLocation] {
			kept = append(kept, rec)
		} else {
			skipped++
		}
	}

	return NewCollection(path, kept, ZipStorage{Path: path}),
		LoadStats{NLoaded: len(kept), NSkipped: skipped}, nil
}

func openManifestCSV(path string) (*Collection, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, err
	}
	defer f.Close()

	manifest, err := ReadManifestCSV(f)
	if err != nil {
		return nil, LoadStats{}, errors.Wrapf(err, "catalog: parsing manifest %q", path)
	}

	dir := filepath.Dir(path)
	storage := FSStorage{Root: dir}

	var kept Manifest
	skipped := 0
	for _, rec := range manifest {
		loc := rec.InternalLocation
		if !filepath.IsAbs(loc) {
			loc = filepath.Join(dir, loc)
		}
		if _, err := os.Stat(loc); err != nil {
			skipped++
			continue
		}
		kept = append(kept, rec)
	}

	return NewCollection(path, kept, storage), LoadStats{NLoaded: len(kept), NSkipped: skipped}, nil
}

// openPathList treats path as a text file of paths, one per line, each
// resolved recursively by calling Open again and merging results.
func openPathList(path string) (*Collection, LoadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, LoadStats{}, err
	}
	defer f.Close()

	dir := filepath.Dir(path)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	var children []*Collection
	total := LoadStats{}
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entry := line
		if !filepath.IsAbs(entry) {
			entry = filepath.Join(dir, entry)
		}
		child, stats, err := Open(entry)
		if err != nil {
			total.NFailed++
			continue
		}
		children = append(children, child)
		total.NLoaded += stats.NLoaded
		total.NSkipped += stats.NSkipped
		total.NFailed += stats.NFailed
	}
	if err := scanner.Err(); err != nil {
		return nil, LoadStats{}, errors.Wrapf(err, "catalog: reading path list %q", path)
	}

	mc := NewMultiCollection(children)
	return flattenMultiCollection(path, mc), total, nil
}

// flattenMultiCollection wraps a MultiCollection behind the Collection type
// so that higher layers (which take *Collection) can treat a resolved
// path-list the same as any single-store catalog. multiStorage dispatches
// each record's Load back to the child store it actually came from, keyed
// by MD5 (the one identifier stable across flattening).
//
// A path-list naming exactly one entry needs no flattening at all: handing
// back that child's own Collection keeps its Storage concrete, so a
// one-line path-list pointing at a revindex directory still lets
// revindex.IndexFromCollection see through to the index and take the fast
// gather path, the same concern open_selected.go's identitySelection
// guards against.
func flattenMultiCollection(location string, mc *MultiCollection) *Collection {
	if len(mc.Children()) == 1 {
		return mc.Children()[0]
	}

	storage := make(multiStorage, mc.Len())
	manifest := make(Manifest, 0, mc.Len())
	_ = mc.Each(func(_ int, rec sketch.Record) error {
		manifest = append(manifest, rec)
		return nil
	})
	for _, c := range mc.Children() {
		for i := 0; i < c.Len(); i++ {
			rec := c.Record(i)
			storage[rec.MD5] = c.Storage()
		}
	}
	return NewCollection(location, manifest, storage)
}

// multiStorage routes a record's Load to whichever child Storage originally
// produced it.
type multiStorage map[string]Storage

func (s multiStorage) Load(rec sketch.Record) (*sketch.Sketch, error) {
	sub, ok := s[rec.MD5]
	if !ok {
		return nil, errors.Errorf("catalog: no backing store for md5 %q", rec.MD5)
	}
	return sub.Load(rec)
}
