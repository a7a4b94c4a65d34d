// Package catalog implements the lazy sketch catalog: Manifest/Record
// bookkeeping, Collection/MultiCollection, the (k, scaled, moltype)
// Selector, and the source loaders dispatched by §4.3.
package catalog

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/sourmash-bio/sketchsrch/sketch"
)

// Manifest is an ordered catalog of records drawn from one backing store.
type Manifest []sketch.Record

const manifestVersionLine = "# SOURMASH-MANIFEST-VERSION: 1.0"
const manifestHeaderLine = "internal_location,md5,md5short,ksize,moltype,num,scaled,n_hashes,with_abundance,name,filename"

// ReadManifestCSV parses a standalone manifest in the format written by
// WriteManifestCSV: a version comment, a header row, then one row per
// record. Rows whose internal_location cannot later be resolved by the
// caller are the caller's concern, not this parser's -- ReadManifestCSV
// returns every row it can parse.
func ReadManifestCSV(r io.Reader) (Manifest, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	if !scanner.Scan() {
		return nil, errors.New("catalog: empty manifest")
	}
	if !strings.HasPrefix(scanner.Text(), "# SOURMASH-MANIFEST-VERSION") {
		return nil, errors.Errorf("catalog: missing manifest version header, got %q", scanner.Text())
	}
	if !scanner.Scan() {
		return nil, errors.New("catalog: manifest missing column header row")
	}

	var manifest Manifest
	lineNo := 2
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		rec, err := parseManifestRow(line)
		if err != nil {
			return nil, errors.Wrapf(err, "catalog: manifest line %d", lineNo)
		}
		manifest = append(manifest, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "catalog: reading manifest")
	}
	return manifest, nil
}

func parseManifestRow(line string) (sketch.Record, error) {
	fields := splitCSVRow(line)
	if len(fields) < 11 {
		return sketch.Record{}, errors.Errorf("expected 11 columns, got %d", len(fields))
	}
	ksize, err := strconv.Atoi(fields[3])
	if err != nil {
		return sketch.Record{}, errors.Wrap(err, "ksize")
	}
	scaled, err := strconv.ParseUint(fields[6], 10, 64)
	if err != nil {
		return sketch.Record{}, errors.Wrap(err, "scaled")
	}
	nHashes, err := strconv.Atoi(fields[7])
	if err != nil {
		return sketch.Record{}, errors.Wrap(err, "n_hashes")
	}
	return sketch.Record{
		InternalLocation: fields[0],
		MD5:              fields[1],
		K:                ksize,
		Moltype:          sketch.Moltype(fields[4]),
		Scaled:           scaled,
		NHashes:          nHashes,
		WithAbundance:    fields[8] == "True",
		Name:             unquote(fields[9]),
		Filename:         fields[10],
	}, nil
}

// WriteManifestCSV writes a standalone manifest in sourmash's CSV format.
func WriteManifestCSV(w io.Writer, manifest Manifest) error {
	if _, err := fmt.Fprintln(w, manifestVersionLine); err != nil {
		return err
	}
	if _, err := fmt.Fprintln(w, manifestHeaderLine); err != nil {
		return err
	}
	for _, rec := range manifest {
		md5short := rec.MD5
		if len(md5short) > 8 {
			md5short = md5short[:8]
		}
		_, err := fmt.Fprintf(w, "%s,%s,%s,%d,%s,0,%d,%d,%s,%q,%s\n",
			rec.InternalLocation, rec.MD5, md5short, rec.K, rec.Moltype,
			rec.Scaled, rec.NHashes, boolStr(rec.WithAbundance), rec.Name, rec.Filename)
		if err != nil {
			return err
		}
	}
	return nil
}

func boolStr(b bool) string {
	if b {
		return "True"
	}
	return "False"
}

func unquote(s string) string {
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// splitCSVRow splits a CSV row on commas that are not inside a double-quoted
// field. The manifest/name columns are the only ones ever quoted, and never
// contain embedded commas in practice, but we parse defensively anyway.
func splitCSVRow(line string) []string {
	var fields []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteByte(c)
		case c == ',' && !inQuotes:
			fields = append(fields, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	fields = append(fields, cur.String())
	return fields
}
