package sketch

// Record is catalog metadata about a sketch in a backing store. Records are
// created at catalog load time, are immutable, and are dropped with the
// owning collection -- they never outlive a single command invocation.
type Record struct {
	Name             string
	MD5              string
	K                int
	Moltype          Moltype
	Scaled           uint64
	NHashes          int
	WithAbundance    bool
	Filename         string
	InternalLocation string
}
