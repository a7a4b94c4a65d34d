package sink

import "io"

// GatherRow is one ranked row of a GatherResult output.
type GatherRow struct {
	QueryFilename string
	Rank          int
	QueryName     string
	QueryMD5      string
	MatchName     string
	MatchMD5      string
	IntersectBP   uint64
}

// GatherSink writes GatherResult rows: query_filename,rank,query_name,
// query_md5,match_name,match_md5,intersect_bp.
type GatherSink struct{ c *csvWriter }

func NewGatherSink(w io.Writer) (*GatherSink, error) {
	s := &GatherSink{c: newCSVWriter(w)}
	err := s.c.writeLine("query_filename,rank,query_name,query_md5,match_name,match_md5,intersect_bp")
	return s, err
}

func (s *GatherSink) WriteRow(r GatherRow) error {
	return s.c.writeLine("%s,%d,%s,%s,%s,%s,%d",
		r.QueryFilename, r.Rank, quote(r.QueryName), r.QueryMD5,
		quote(r.MatchName), r.MatchMD5, r.IntersectBP)
}

func (s *GatherSink) Flush() error { return s.c.w.Flush() }

// PrefetchRow is one row of a PrefetchResult output.
type PrefetchRow struct {
	QueryFilename string
	QueryName     string
	QueryMD5      string
	MatchName     string
	MatchMD5      string
	IntersectBP   uint64
}

// PrefetchSink writes PrefetchResult rows: query_filename,query_name,
// query_md5,match_name,match_md5,intersect_bp.
type PrefetchSink struct{ c *csvWriter }

func NewPrefetchSink(w io.Writer) (*PrefetchSink, error) {
	s := &PrefetchSink{c: newCSVWriter(w)}
	err := s.c.writeLine("query_filename,query_name,query_md5,match_name,match_md5,intersect_bp")
	return s, err
}

func (s *PrefetchSink) WriteRow(r PrefetchRow) error {
	return s.c.writeLine("%s,%s,%s,%s,%s,%d",
		r.QueryFilename, quote(r.QueryName), r.QueryMD5,
		quote(r.MatchName), r.MatchMD5, r.IntersectBP)
}

func (s *PrefetchSink) Flush() error { return s.c.w.Flush() }
