package catalog

import (
	"github.com/pkg/errors"

	"github.com/sourmash-bio/sketchsrch/sketch"
)

// Selection pins the (k, moltype, scaled) a command operates at. Scaled is
// a pointer because it is frequently left unset by the caller and resolved
// by Select to the coarsest value that still lets every surviving record
// participate (§4.2).
type Selection struct {
	K       int
	Moltype sketch.Moltype
	Scaled  *uint64
}

// Select filters mc's records down to those matching sel's K and Moltype,
// then resolves sel.Scaled:
//   - if sel.Scaled is set, every surviving record must have a scaled <=
//     the requested value (finer or equal resolution); any record coarser
//     than the request is dropped, since it can never be downsampled to
//     match.
//   - if sel.Scaled is unset, it resolves to the maximum scaled among
//     survivors, the coarsest resolution common to the whole selection.
//
// Select returns the resolved scaled value and the indices of surviving
// records (in mc's flat index space). It fails with ErrScaledTooFine if
// sel.Scaled is set finer than every candidate's own scaled -- there is
// nothing left to downsample to that resolution.
func Select(mc *MultiCollection, sel Selection) (uint64, []int, error) {
	var kept []int
	maxScaled := uint64(0)
	matched := false

	err := mc.Each(func(idx int, rec sketch.Record) error {
		if rec.K != sel.K || rec.Moltype != sel.Moltype {
			return nil
		}
		matched = true
		if sel.Scaled != nil && rec.Scaled > *sel.Scaled {
			// record is coarser than the requested resolution: it can
			// never be downsampled finer, so it cannot participate.
			return nil
		}
		kept = append(kept, idx)
		if rec.Scaled > maxScaled {
			maxScaled = rec.Scaled
		}
		return nil
	})
	if err != nil {
		return 0, nil, err
	}

	if len(kept) == 0 {
		if !matched {
			return 0, nil, errors.Wrapf(sketch.ErrEmptySelection,
				"catalog: no records at k=%d moltype=%s", sel.K, sel.Moltype)
		}
		return 0, nil, errors.Wrapf(sketch.ErrScaledTooFine,
			"no records at k=%d moltype=%s with scaled <= %d",
			sel.K, sel.Moltype, *sel.Scaled)
	}

	resolved := maxScaled
	if sel.Scaled != nil {
		resolved = *sel.Scaled
	}
	return resolved, kept, nil
}
