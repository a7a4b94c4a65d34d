package sink

import (
	"io"

	"github.com/sourmash-bio/sketchsrch/sketch"
)

// MultiSearchRow is one row of a MultiSearchResult output (multisearch /
// pairwise commands). ANI columns are only rendered when the sink was built
// with estimateANI; otherwise they are left out of both the header and the
// rows rather than written empty.
type MultiSearchRow struct {
	QueryName       string
	QueryMD5        string
	MatchName       string
	MatchMD5        string
	KSize           int
	Scaled          uint64
	Moltype         sketch.Moltype
	Containment     float64
	MaxContainment  float64
	Jaccard         float64
	IntersectHashes int
	QueryANI        float64
	MatchANI        float64
	AvgANI          float64
	MaxANI          float64
}

// MultiSearchSink writes MultiSearchResult rows: query_name,query_md5,
// match_name,match_md5,ksize,scaled,moltype,containment,max_containment,
// jaccard,intersect_hashes[,query_ani,match_ani,avg_ani,max_ani].
type MultiSearchSink struct {
	c           *csvWriter
	estimateANI bool
}

func NewMultiSearchSink(w io.Writer, estimateANI bool) (*MultiSearchSink, error) {
	s := &MultiSearchSink{c: newCSVWriter(w), estimateANI: estimateANI}
	header := "query_name,query_md5,match_name,match_md5,ksize,scaled,moltype,containment,max_containment,jaccard,intersect_hashes"
	if estimateANI {
		header += ",query_ani,match_ani,avg_ani,max_ani"
	}
	err := s.c.writeLine(header)
	return s, err
}

func (s *MultiSearchSink) WriteRow(r MultiSearchRow) error {
	if !s.estimateANI {
		return s.c.writeLine("%s,%s,%s,%s,%d,%d,%s,%g,%g,%g,%d",
			quote(r.QueryName), r.QueryMD5, quote(r.MatchName), r.MatchMD5,
			r.KSize, r.Scaled, r.Moltype, r.Containment, r.MaxContainment, r.Jaccard, r.IntersectHashes)
	}
	return s.c.writeLine("%s,%s,%s,%s,%d,%d,%s,%g,%g,%g,%d,%g,%g,%g,%g",
		quote(r.QueryName), r.QueryMD5, quote(r.MatchName), r.MatchMD5,
		r.KSize, r.Scaled, r.Moltype, r.Containment, r.MaxContainment, r.Jaccard, r.IntersectHashes,
		r.QueryANI, r.MatchANI, r.AvgANI, r.MaxANI)
}

func (s *MultiSearchSink) Flush() error { return s.c.w.Flush() }
