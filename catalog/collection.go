package catalog

import (
	"github.com/pkg/errors"

	"github.com/sourmash-bio/sketchsrch/sketch"
)

// Collection pairs a Manifest with the Storage that can materialise its
// records. A Collection is the unit a single loader call produces. Most
// loaders back it with one store; a path-list naming several entries yields
// a Collection whose Storage routes each record to the child store it came
// from (see flattenMultiCollection).
type Collection struct {
	manifest Manifest
	storage  Storage

	// location identifies the backing store for diagnostics (the path the
	// loader opened), not used for resolution.
	location string

	// isRevindex marks a Collection whose Storage is backed by an
	// InvertedIndex rather than a plain file store; callers that can use
	// precomputed posting lists check this to pick a faster query path
	// (§4.7, "is_revindex_database").
	isRevindex bool
}

func NewCollection(location string, manifest Manifest, storage Storage) *Collection {
	return &Collection{location: location, manifest: manifest, storage: storage}
}

// MarkRevindex flags this Collection as backed by an on-disk inverted
// index, so engines that can reach its Counter/Gather fast path know to
// look for one (see revindex.IndexFromCollection).
func (c *Collection) MarkRevindex() { c.isRevindex = true }

func (c *Collection) Len() int            { return len(c.manifest) }
func (c *Collection) Location() string     { return c.location }
func (c *Collection) IsRevindex() bool     { return c.isRevindex }
func (c *Collection) Manifest() Manifest   { return c.manifest }
func (c *Collection) Storage() Storage     { return c.storage }
func (c *Collection) Record(i int) sketch.Record { return c.manifest[i] }

// Load materialises the sketch for the i'th record.
func (c *Collection) Load(i int) (*sketch.Sketch, error) {
	return c.storage.Load(c.manifest[i])
}

// MultiCollection concatenates zero or more Collections into a single
// logical catalog, the way a path-list file resolves (§4.2). Its length is always the sum of its children's lengths;
// records are addressed by a flat index into that concatenation.
type MultiCollection struct {
	children []*Collection
	offsets  []int // offsets[i] is the flat index of children[i]'s first record
	total    int
}

func NewMultiCollection(children []*Collection) *MultiCollection {
	mc := &MultiCollection{children: children}
	mc.offsets = make([]int, len(children))
	total := 0
	for i, c := range children {
		mc.offsets[i] = total
		total += c.Len()
	}
	mc.total = total
	return mc
}

func (mc *MultiCollection) Len() int { return mc.total }

func (mc *MultiCollection) Children() []*Collection { return mc.children }

// locate maps a flat index to its owning child and local offset within it.
func (mc *MultiCollection) locate(i int) (*Collection, int) {
	for k := len(mc.offsets) - 1; k >= 0; k-- {
		if i >= mc.offsets[k] {
			return mc.children[k], i - mc.offsets[k]
		}
	}
	return nil, 0
}

func (mc *MultiCollection) Record(i int) sketch.Record {
	c, local := mc.locate(i)
	return c.Record(local)
}

func (mc *MultiCollection) Load(i int) (*sketch.Sketch, error) {
	c, local := mc.locate(i)
	if c == nil {
		return nil, errors.Errorf("catalog: index %d out of range", i)
	}
	return c.Load(local)
}

// Each calls fn for every record across every child collection in order,
// stopping at the first error fn returns.
func (mc *MultiCollection) Each(fn func(idx int, rec sketch.Record) error) error {
	idx := 0
	for _, c := range mc.children {
		for i := 0; i < c.Len(); i++ {
			if err := fn(idx, c.Record(i)); err != nil {
				return err
			}
			idx++
		}
	}
	return nil
}
