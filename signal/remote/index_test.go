package remote_test

import (
	"context"
	"math"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/biosignal/interval"
	"github.com/grailbio/biosignal/server"
	"github.com/grailbio/biosignal/signal"
	"github.com/grailbio/biosignal/signal/remote"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWig = `variableStep chrom=chr1 span=5
101 2
121 nan
fixedStep chrom=chr2 start=1 step=2 span=1
1
2
3
`

func newLocal(t *testing.T) signal.Index {
	idx, err := signal.NewWigIndex("test.wig", strings.NewReader(testWig))
	require.NoError(t, err)
	return idx
}

func equalValues(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] && !(math.IsNaN(a[i]) && math.IsNaN(b[i])) {
			return false
		}
	}
	return true
}

func TestRemoteMatchesLocal(t *testing.T) {
	gin.SetMode(gin.TestMode)
	served := newLocal(t)
	ts := httptest.NewServer(server.New(signal.New(served), served).Handler())
	defer ts.Close()

	ctx := context.Background()
	idx, err := remote.NewIndex(ctx, ts.URL, ts.Client())
	require.NoError(t, err)
	local := signal.New(newLocal(t))
	src := signal.New(idx)
	defer src.Close() // nolint: errcheck

	expect.EQ(t, src.Chromosomes(), local.Chromosomes())
	expect.EQ(t, src.Summary(), local.Summary())
	for _, chr := range []string{"chr1", "chr2", "chrX"} {
		start, stop, ok := src.Bounds(chr)
		lstart, lstop, lok := local.Bounds(chr)
		expect.EQ(t, []interface{}{start, stop, ok}, []interface{}{lstart, lstop, lok}, chr)
	}

	for _, region := range []string{"chr1:101-105", "chr1:105-101", "chr1:102-103", "chr2:1-5", "chr2:5-1"} {
		iv, err := interval.Parse(region)
		require.NoError(t, err)
		want, err := local.Query(iv)
		require.NoError(t, err)
		got, err := src.Query(iv)
		require.NoError(t, err, region)
		expect.EQ(t, got.Interval, want.Interval)
		assert.True(t, equalValues(got.Values, want.Values), "%s: got %v, want %v", region, got.Values, want.Values)
	}

	_, err = src.Query(interval.New("chr1", 100, 105))
	assert.True(t, errors.Is(errors.NotExist, err))
	_, ok := signal.AsCoverageError(err)
	assert.True(t, ok)

	// Errors from the server keep their kind.
	_, err = idx.Entries("chrX", 0, 10)
	assert.True(t, errors.Is(errors.NotExist, err))

	it1, err := idx.Entries("chr2", 0, 10)
	require.NoError(t, err)
	_, err = idx.Entries("chr2", 0, 10)
	require.NoError(t, err)
	assert.False(t, it1.Scan())
	assert.True(t, errors.Is(errors.Canceled, it1.Err()))
}

func TestOpenByURL(t *testing.T) {
	gin.SetMode(gin.TestMode)
	served := newLocal(t)
	ts := httptest.NewServer(server.New(signal.New(served), served).Handler())
	defer ts.Close()

	ctx := context.Background()
	expect.EQ(t, signal.GuessFileType(ctx, ts.URL), signal.Remote)
	src, err := signal.Open(ctx, ts.URL)
	require.NoError(t, err)
	c, err := src.Query(interval.New("chr2", 1, 3))
	require.NoError(t, err)
	assert.True(t, equalValues(c.Values, []float64{1, math.NaN(), 2}), "%v", c.Values)
	require.NoError(t, src.Close())

	_, err = remote.NewIndex(ctx, ts.URL+"/nosuch", ts.Client())
	assert.True(t, errors.Is(errors.NotExist, err))
}

func TestWireValues(t *testing.T) {
	assert.Nil(t, remote.NullableValue(math.NaN()))
	assert.True(t, math.IsNaN(remote.Value(nil)))
	expect.EQ(t, remote.Value(remote.NullableValue(1.5)), 1.5)
}
