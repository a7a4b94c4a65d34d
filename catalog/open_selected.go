package catalog

import (
	"github.com/pkg/errors"

	"github.com/sourmash-bio/sketchsrch/sketch"
)

// OpenSelected opens path and narrows it down to the records matching sel,
// returning a Collection scoped to just those records plus the resolved
// scaled value. This is the common entry point every command uses before
// handing a Collection to an engine.
func OpenSelected(path string, sel Selection) (*Collection, uint64, error) {
	coll, stats, err := Open(path)
	if err != nil {
		return nil, 0, err
	}
	if !stats.OK() {
		return nil, 0, errors.Errorf("catalog: no sketches loaded from %q", path)
	}

	mc := NewMultiCollection([]*Collection{coll})
	resolved, indexes, err := Select(mc, sel)
	if err != nil {
		return nil, 0, err
	}

	// Selection chose every record, in order: hand back coll itself rather
	// than wrapping it. This matters for a revindex-backed coll, whose
	// Storage is an indexStorage that revindex.IndexFromCollection type-
	// asserts on to reach the fast counter-based gather path -- wrapping it
	// in narrowedStorage would hide that type and silently force every
	// caller onto the slow Prefetch+Gather path.
	if identitySelection(indexes, mc.Len()) {
		return coll, resolved, nil
	}

	manifest := make(Manifest, 0, len(indexes))
	byMD5 := make(map[string]int, len(indexes))
	for _, i := range indexes {
		rec := mc.Record(i)
		manifest = append(manifest, rec)
		byMD5[rec.MD5] = i
	}
	narrowed := NewCollection(path, manifest, &narrowedStorage{mc: mc, byMD5: byMD5})
	if coll.IsRevindex() {
		narrowed.MarkRevindex()
	}
	return narrowed, resolved, nil
}

// identitySelection reports whether indexes is exactly 0..total-1 in order,
// meaning Select kept every record and reordered nothing.
func identitySelection(indexes []int, total int) bool {
	if len(indexes) != total {
		return false
	}
	for i, v := range indexes {
		if v != i {
			return false
		}
	}
	return true
}

// narrowedStorage maps a selection-narrowed manifest's records back to the
// original MultiCollection's flat index space by MD5.
type narrowedStorage struct {
	mc    *MultiCollection
	byMD5 map[string]int
}

func (n *narrowedStorage) Load(rec sketch.Record) (*sketch.Sketch, error) {
	i, ok := n.byMD5[rec.MD5]
	if !ok {
		return nil, errors.Errorf("catalog: record %q not found after selection", rec.Name)
	}
	return n.mc.Load(i)
}
