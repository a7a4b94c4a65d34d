package revindex

import (
	"github.com/pkg/errors"

	"github.com/sourmash-bio/sketchsrch/catalog"
	"github.com/sourmash-bio/sketchsrch/sketch"
)

// AsCollection exposes this index as a catalog.Collection so that every
// engine written against the catalog's generic interfaces -- Prefetch,
// PairwiseEngine, CrossEngine -- works unmodified whether a query collection
// came from plain signature files or a revindex directory. Loading a
// sketch out of an index means re-materialising its hashes from the
// posting store, which is slower than reading the index's own Counter path
// but keeps the abstraction uniform; callers that can detect
// IsRevindex() and want the fast path should call CounterForQuery /
// Gather directly instead.
func (idx *Index) AsCollection() *catalog.Collection {
	c := catalog.NewCollection(idx.path, idx.manifest, indexStorage{idx: idx})
	c.MarkRevindex()
	return c
}

// IndexFromCollection returns the *revindex.Index behind a Collection
// produced by AsCollection, letting callers reach the fast counter-based gather path
// when they detect IsRevindex().
func IndexFromCollection(c *catalog.Collection) (*Index, bool) {
	s, ok := c.Storage().(indexStorage)
	if !ok {
		return nil, false
	}
	return s.idx, true
}

type indexStorage struct {
	idx *Index
}

func (s indexStorage) Load(rec sketch.Record) (*sketch.Sketch, error) {
	subjectID := -1
	for i, r := range s.idx.manifest {
		if r.MD5 == rec.MD5 {
			subjectID = i
			break
		}
	}
	if subjectID < 0 {
		return nil, errors.Errorf("revindex: record %q not found in index manifest", rec.Name)
	}
	return s.idx.hashesForSubject(uint32(subjectID), rec)
}
