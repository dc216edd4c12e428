package bigwig_test

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/biosignal/encoding/bigwig"
	"github.com/grailbio/biosignal/encoding/bigwig/bigwigtest"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testChroms = []bigwigtest.Chrom{
		{Name: "chr1", Size: 1000},
		{Name: "chr2", Size: 500},
		{Name: "chrM", Size: 16569},
	}
	testSections = []bigwigtest.Section{
		{Chrom: "chr1", Type: bigwigtest.BedGraph, Items: []bigwigtest.Item{
			{Start0: 10, End: 20, Value: 1},
			{Start0: 20, End: 25, Value: 2.5},
		}},
		{Chrom: "chr1", Type: bigwigtest.FixedStep, Start: 100, Step: 10, Span: 5, Items: []bigwigtest.Item{
			{Value: 3}, {Value: 4}, {Value: 5},
		}},
		{Chrom: "chr2", Type: bigwigtest.VariableStep, Span: 2, Items: []bigwigtest.Item{
			{Start0: 7, Value: -1}, {Start0: 40, Value: 8},
		}},
	}
)

func records(t *testing.T, r *bigwig.Reader, chr string, start0, end int) []bigwig.Record {
	it, err := r.Query(chr, start0, end)
	require.NoError(t, err)
	var recs []bigwig.Record
	for it.Scan() {
		recs = append(recs, it.Record())
	}
	require.NoError(t, it.Err())
	return recs
}

func TestReader(t *testing.T) {
	for _, opts := range []bigwigtest.Opts{
		{},
		{BigEndian: true},
		{Uncompressed: true},
		{Nested: true},
		{BigEndian: true, Uncompressed: true, Nested: true},
	} {
		data := bigwigtest.Build(testChroms, testSections, opts)
		assert.True(t, bigwig.IsMagic(data))
		r, err := bigwig.NewReader("test.bw", bytes.NewReader(data))
		require.NoError(t, err, "%+v", opts)

		var names []string
		for _, c := range r.Chromosomes() {
			names = append(names, c.Name)
		}
		expect.EQ(t, names, []string{"chr1", "chr2", "chrM"})
		size, ok := r.ChromSize("chrM")
		assert.True(t, ok)
		expect.EQ(t, size, 16569)

		start0, end, ok := r.DataExtent("chr1")
		assert.True(t, ok)
		expect.EQ(t, start0, 10)
		expect.EQ(t, end, 125)
		start0, end, ok = r.DataExtent("chr2")
		assert.True(t, ok)
		expect.EQ(t, start0, 7)
		expect.EQ(t, end, 42)
		_, _, ok = r.DataExtent("chrM")
		assert.False(t, ok)
		_, _, ok = r.DataExtent("chrX")
		assert.False(t, ok)

		expect.EQ(t, records(t, r, "chr1", 0, 1000), []bigwig.Record{
			{ChromID: 0, Start0: 10, End: 20, Value: 1},
			{ChromID: 0, Start0: 20, End: 25, Value: 2.5},
			{ChromID: 0, Start0: 100, End: 105, Value: 3},
			{ChromID: 0, Start0: 110, End: 115, Value: 4},
			{ChromID: 0, Start0: 120, End: 125, Value: 5},
		})
		// Records overlapping the query edges are returned unclipped.
		expect.EQ(t, records(t, r, "chr1", 19, 111), []bigwig.Record{
			{ChromID: 0, Start0: 10, End: 20, Value: 1},
			{ChromID: 0, Start0: 20, End: 25, Value: 2.5},
			{ChromID: 0, Start0: 100, End: 105, Value: 3},
			{ChromID: 0, Start0: 110, End: 115, Value: 4},
		})
		expect.EQ(t, records(t, r, "chr1", 25, 100), []bigwig.Record(nil))
		expect.EQ(t, records(t, r, "chr2", 0, 500), []bigwig.Record{
			{ChromID: 1, Start0: 7, End: 9, Value: -1},
			{ChromID: 1, Start0: 40, End: 42, Value: 8},
		})
		expect.EQ(t, records(t, r, "chrM", 0, 16569), []bigwig.Record(nil))

		s := r.Summary()
		expect.EQ(t, s.BasesCovered, uint64(10+5+15+4))
		expect.EQ(t, s.Min, -1.0)
		expect.EQ(t, s.Max, 8.0)
		expect.EQ(t, s.Sum, 10+12.5+15+20+25-2+16.0)
		require.NoError(t, r.Close(context.Background()))
	}
}

func TestReaderNoSummary(t *testing.T) {
	data := bigwigtest.Build(testChroms, testSections, bigwigtest.Opts{NoSummary: true})
	r, err := bigwig.NewReader("test.bw", bytes.NewReader(data))
	require.NoError(t, err)
	expect.EQ(t, r.Summary(), bigwig.Summary{})
}

func TestQueryInvalidatesIterator(t *testing.T) {
	data := bigwigtest.Build(testChroms, testSections, bigwigtest.Opts{})
	r, err := bigwig.NewReader("test.bw", bytes.NewReader(data))
	require.NoError(t, err)

	it1, err := r.Query("chr1", 0, 1000)
	require.NoError(t, err)
	assert.True(t, it1.Scan())
	it2, err := r.Query("chr2", 0, 500)
	require.NoError(t, err)
	assert.False(t, it1.Scan())
	assert.True(t, errors.Is(errors.Canceled, it1.Err()))

	n := 0
	for it2.Scan() {
		n++
	}
	require.NoError(t, it2.Err())
	expect.EQ(t, n, 2)
}

// Queries decode on the caller's goroutine, so an iterator abandoned halfway
// leaves nothing running behind it.
func TestAbandonedQueryLeavesNoGoroutines(t *testing.T) {
	data := bigwigtest.Build(testChroms, testSections, bigwigtest.Opts{})
	r, err := bigwig.NewReader("test.bw", bytes.NewReader(data))
	require.NoError(t, err)

	before := runtime.NumGoroutine()
	for i := 0; i < 10; i++ {
		it, err := r.Query("chr1", 0, 1000)
		require.NoError(t, err)
		require.True(t, it.Scan())
	}
	expect.EQ(t, runtime.NumGoroutine(), before)
	require.NoError(t, r.Close(context.Background()))
	expect.EQ(t, runtime.NumGoroutine(), before)
}

func TestReaderErrors(t *testing.T) {
	data := bigwigtest.Build(testChroms, testSections, bigwigtest.Opts{})
	r, err := bigwig.NewReader("test.bw", bytes.NewReader(data))
	require.NoError(t, err)
	_, err = r.Query("chrX", 0, 10)
	assert.True(t, errors.Is(errors.NotExist, err))

	bad := append([]byte{}, data...)
	bad[0] = 0
	_, err = bigwig.NewReader("bad.bw", bytes.NewReader(bad))
	assert.True(t, errors.Is(errors.Integrity, err))

	_, err = bigwig.NewReader("short.bw", bytes.NewReader(data[:32]))
	assert.True(t, errors.Is(errors.Integrity, err))

	// Truncating the data section leaves the metadata readable, but scanning
	// fails.
	truncated := append([]byte{}, data[:r.Header().FullDataOffset+4]...)
	truncated = append(truncated, make([]byte, len(data)-len(truncated))...)
	copy(truncated[r.Header().FullIndexOffset:], data[r.Header().FullIndexOffset:])
	r, err = bigwig.NewReader("truncated.bw", bytes.NewReader(truncated))
	require.NoError(t, err)
	it, err := r.Query("chr1", 0, 1000)
	require.NoError(t, err)
	assert.False(t, it.Scan())
	assert.True(t, errors.Is(errors.Integrity, it.Err()))
}

func TestOpen(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)
	path := filepath.Join(tmpdir, "test.bw")
	require.NoError(t, ioutil.WriteFile(path, bigwigtest.Build(testChroms, testSections, bigwigtest.Opts{}), 0644))

	ctx := context.Background()
	r, err := bigwig.Open(ctx, path)
	require.NoError(t, err)
	expect.EQ(t, len(records(t, r, "chr2", 0, 500)), 2)
	require.NoError(t, r.Close(ctx))

	_, err = bigwig.Open(ctx, filepath.Join(tmpdir, "missing.bw"))
	assert.True(t, errors.Is(errors.NotExist, err))
}
