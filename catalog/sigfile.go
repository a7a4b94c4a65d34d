package catalog

import (
	"bufio"
	"encoding/json"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"

	"github.com/sourmash-bio/sketchsrch/sketch"
)

// rawSignature mirrors the subset of the sourmash JSON signature format this
// engine consumes: a top-level document wrapping one or more named
// signatures, each carrying one or more minhash sketches.
type rawSignature struct {
	Name      string       `json:"name"`
	Filename  string       `json:"filename"`
	Signature []rawMinHash `json:"signatures"`
}

type rawMinHash struct {
	KSize      int      `json:"ksize"`
	Seed       uint64   `json:"seed"`
	MaxHash    uint64   `json:"max_hash"`
	Molecule   string   `json:"molecule"`
	Num        int      `json:"num"`
	Mins       []uint64 `json:"mins"`
	Abundances []uint64 `json:"abundances,omitempty"`
	MD5Sum     string   `json:"md5sum"`
}

type loadedSketch struct {
	sketch *sketch.Sketch
	record sketch.Record
}

// decodeSignatures parses a (possibly gzipped) JSON signature file into its
// constituent (Record, Sketch) pairs. A single file can contain more than
// one named signature, and each signature can carry more than one sketch
// (different k/moltype combinations); every one becomes its own loaded
// sketch.
func decodeSignatures(r io.Reader, filename string) ([]loadedSketch, error) {
	reader, err := maybeGunzip(r)
	if err != nil {
		return nil, errors.Wrap(err, "opening signature stream")
	}
	raw, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "reading signature stream")
	}

	var docs []rawSignature
	if err := json.Unmarshal(raw, &docs); err != nil {
		var single rawSignature
		if err2 := json.Unmarshal(raw, &single); err2 != nil {
			return nil, errors.Wrap(err, "decoding signature JSON")
		}
		docs = []rawSignature{single}
	}

	var out []loadedSketch
	for _, doc := range docs {
		for _, mh := range doc.Signature {
			scaled := scaledFromMaxHash(mh.MaxHash)
			params := sketch.Params{
				K:             mh.KSize,
				Scaled:        scaled,
				Moltype:       sketch.Moltype(mh.Molecule),
				Seed:          mh.Seed,
				WithAbundance: len(mh.Abundances) > 0,
			}
			sk := sketch.New(params, mh.Mins)
			fn := doc.Filename
			if fn == "" {
				fn = filename
			}
			out = append(out, loadedSketch{
				sketch: sk,
				record: sketch.Record{
					Name:          doc.Name,
					MD5:           sk.MD5(),
					K:             params.K,
					Moltype:       params.Moltype,
					Scaled:        scaled,
					NHashes:       sk.Size(),
					WithAbundance: params.WithAbundance,
					Filename:      fn,
				},
			})
		}
	}
	return out, nil
}

// scaledFromMaxHash inverts Sketch.MaxHash: scaled = floor(2**64 / max_hash).
// A max_hash of 0 means "no subsampling" (num-based sketch), reported as
// scaled=1.
func scaledFromMaxHash(maxHash uint64) uint64 {
	if maxHash == 0 {
		return 1
	}
	return (^uint64(0)) / maxHash
}

func maybeGunzip(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)
	magic, err := br.Peek(2)
	if err != nil && err != io.EOF {
		return nil, err
	}
	if len(magic) == 2 && magic[0] == 0x1f && magic[1] == 0x8b {
		return gzip.NewReader(br)
	}
	return br, nil
}
