package sink

import "io"

// SearchRow is one row of a SearchResult output (the manysearch command's
// schema).
type SearchRow struct {
	QueryName      string
	QueryMD5       string
	MatchName      string
	Containment    float64
	IntersectHashes int
	MatchMD5       string
	Jaccard        float64
	MaxContainment float64
}

// SearchSink writes SearchResult rows: query_name,query_md5,match_name,
// containment,intersect_hashes,match_md5,jaccard,max_containment.
type SearchSink struct{ c *csvWriter }

func NewSearchSink(w io.Writer) (*SearchSink, error) {
	s := &SearchSink{c: newCSVWriter(w)}
	err := s.c.writeLine("query_name,query_md5,match_name,containment,intersect_hashes,match_md5,jaccard,max_containment")
	return s, err
}

func (s *SearchSink) WriteRow(r SearchRow) error {
	return s.c.writeLine("%s,%s,%s,%g,%d,%s,%g,%g",
		quote(r.QueryName), r.QueryMD5, quote(r.MatchName),
		r.Containment, r.IntersectHashes, r.MatchMD5, r.Jaccard, r.MaxContainment)
}

func (s *SearchSink) Flush() error { return s.c.w.Flush() }
