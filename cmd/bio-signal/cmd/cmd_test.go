package cmd

import (
	"bytes"
	"context"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/biosignal/signal"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testWig = `track type=wiggle_0
variableStep chrom=chr1 span=3
11 1
14 2
fixedStep chrom=chr2 start=5 step=1
4
5
`

const testSAM = `@HD	VN:1.4
@SQ	SN:chr1	LN:1000
b	0	chr1	201	60	4M	*	0	0	ACGT	*
a	0	chr1	101	60	4M	*	0	0	ACGT	*
`

func writeFile(t *testing.T, dir, name, data string) string {
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, []byte(data), 0644))
	return path
}

func TestQuery(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	path := writeFile(t, dir, "test.wig", testWig)

	tests := []struct {
		opts queryOpts
		want string
	}{
		{
			queryOpts{regions: "chr1:11-16", format: "values"},
			"chr1:11-16\t+\t1,1,1,2,2,2\n",
		},
		{
			queryOpts{regions: "chr1:16-11,chr2:5", format: "values"},
			"chr1:16-11\t-\t2,2,2,1,1,1\nchr2:5-5\t+\t4\n",
		},
		{
			queryOpts{regions: "chr1:11-16", format: "bedgraph"},
			"chr1\t10\t13\t1\nchr1\t13\t16\t2\n",
		},
		{
			queryOpts{regions: "chr2:5-6", format: "mean"},
			"chr2:5-6\t2\t4.5\n",
		},
		{
			queryOpts{regions: "chr1:1-5,chr2:5-6", format: "mean", skipMissing: true},
			"chr2:5-6\t2\t4.5\n",
		},
	}
	for _, test := range tests {
		var out bytes.Buffer
		require.NoError(t, query(ctx, &out, path, test.opts), "%+v", test.opts)
		expect.EQ(t, out.String(), test.want, "%+v", test.opts)
	}

	bed := writeFile(t, dir, "regions.bed", "chr1\t10\t12\tx\t0\t-\n")
	var out bytes.Buffer
	require.NoError(t, query(ctx, &out, path, queryOpts{bedPath: bed, format: "values"}))
	expect.EQ(t, out.String(), "chr1:12-11\t-\t1,1\n")

	err := query(ctx, &out, path, queryOpts{regions: "chr1:1-5", format: "values"})
	_, ok := signal.AsCoverageError(err)
	assert.True(t, ok, "%v", err)
	err = query(ctx, &out, path, queryOpts{regions: "chr1:1-5", format: "csv"})
	assert.Error(t, err)
	err = query(ctx, &out, path, queryOpts{regions: "chr1", format: "values"})
	assert.True(t, errors.Is(errors.Invalid, err))
}

func TestStats(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	path := writeFile(t, dir, "test.wig", testWig)
	var out bytes.Buffer
	require.NoError(t, stats(context.Background(), &out, path, signal.OpenOpts{}))
	assert.True(t, strings.HasPrefix(out.String(), "Signal track:\n"), out.String())
	assert.Contains(t, out.String(), "Chromosome chr1, start=11, stop=16")
	assert.Contains(t, out.String(), "Chromosome chr2, start=5, stop=6")

	opts := signal.OpenOpts{}
	require.NoError(t, setType(&opts, "wig"))
	expect.EQ(t, opts.Type, signal.Wig)
	assert.Error(t, setType(&opts, "gff"))
}

func TestCountAndView(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	path := writeFile(t, dir, "test.sam", testSAM)
	opts := samOpts{tempDir: dir}

	var out bytes.Buffer
	require.NoError(t, count(ctx, &out, path, opts))
	expect.EQ(t, out.String(), "2\n")

	out.Reset()
	require.NoError(t, view(ctx, &out, path, opts))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 2)
	assert.True(t, strings.HasPrefix(lines[0], "b\t0\tchr1\t201\t"), lines[0])

	out.Reset()
	opts.region = "chr1:100-300"
	opts.withHeader = true
	require.NoError(t, view(ctx, &out, path, opts))
	lines = strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "@HD"), lines[0])
	assert.True(t, strings.HasPrefix(lines[2], "a\t"), lines[2])
	assert.True(t, strings.HasPrefix(lines[3], "b\t"), lines[3])

	out.Reset()
	opts.region = "chr1:105-200"
	opts.withHeader = false
	require.NoError(t, view(ctx, &out, path, opts))
	expect.EQ(t, out.String(), "")
}
