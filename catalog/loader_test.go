package catalog

import (
	"archive/zip"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sourmash-bio/sketchsrch/sketch"
)

func writeFile(t *testing.T, path, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

const sampleSignatureJSON = `[{"name": "genome a", "filename": "a.fa", "signatures": [
	{"ksize": 31, "seed": 42, "max_hash": 18446744073709551, "molecule": "DNA", "num": 0, "mins": [10, 20, 30]}
]}]`

func TestOpenDispatchesSignatureFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.sig")
	writeFile(t, path, sampleSignatureJSON)

	coll, stats, err := Open(path)
	require.NoError(t, err)
	require.True(t, stats.OK())
	require.Equal(t, 1, coll.Len())
	require.Equal(t, "genome a", coll.Record(0).Name)
	require.Equal(t, sketch.DNA, coll.Record(0).Moltype)

	sk, err := coll.Load(0)
	require.NoError(t, err)
	require.Equal(t, 3, sk.Size())
}

func TestOpenDispatchesPathList(t *testing.T) {
	dir := t.TempDir()
	sigPath := filepath.Join(dir, "a.sig")
	writeFile(t, sigPath, sampleSignatureJSON)

	listPath := filepath.Join(dir, "list.txt")
	writeFile(t, listPath, "# a comment\na.sig\n")

	coll, stats, err := Open(listPath)
	require.NoError(t, err)
	require.True(t, stats.OK())
	require.Equal(t, 1, coll.Len())
}

func TestOpenDispatchesManifestCSV(t *testing.T) {
	dir := t.TempDir()
	sigPath := filepath.Join(dir, "a.sig")
	writeFile(t, sigPath, sampleSignatureJSON)

	manifestPath := filepath.Join(dir, "manifest.csv")
	var buf strings.Builder
	require.NoError(t, WriteManifestCSV(&buf, Manifest{
		{Name: "genome a", MD5: "deadbeef", K: 31, Moltype: "DNA", Scaled: 1000, NHashes: 3, InternalLocation: "a.sig", Filename: "a.fa"},
	}))
	writeFile(t, manifestPath, buf.String())

	coll, stats, err := Open(manifestPath)
	require.NoError(t, err)
	require.True(t, stats.OK())
	require.Equal(t, 1, coll.Len())
}

func TestOpenDispatchesZip(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "bundle.zip")
	f, err := os.Create(zipPath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)

	sigW, err := zw.Create("signatures/a.sig")
	require.NoError(t, err)
	_, err = sigW.Write([]byte(sampleSignatureJSON))
	require.NoError(t, err)

	var manifestBuf strings.Builder
	require.NoError(t, WriteManifestCSV(&manifestBuf, Manifest{
		{Name: "genome a", MD5: "deadbeef", K: 31, Moltype: "DNA", Scaled: 1000, NHashes: 3, InternalLocation: "signatures/a.sig", Filename: "a.fa"},
	}))
	manW, err := zw.Create("SOURMASH-MANIFEST.csv")
	require.NoError(t, err)
	_, err = manW.Write([]byte(manifestBuf.String()))
	require.NoError(t, err)

	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	coll, stats, err := Open(zipPath)
	require.NoError(t, err)
	require.True(t, stats.OK())
	require.Equal(t, 1, coll.Len())

	sk, err := coll.Load(0)
	require.NoError(t, err)
	require.Equal(t, 3, sk.Size())
}

func TestOpenRejectsDirectoryWithoutCURRENTWhenRevindexNotLinked(t *testing.T) {
	dir := t.TempDir()
	_, _, err := Open(dir)
	require.Error(t, err)
}
