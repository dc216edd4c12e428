package interval

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

const testBED = `track name=test
# comment
chr1	29	40
chr1	94	101	peak	0	-

chr2	0	10	peak	0	+
`

func TestReadBED(t *testing.T) {
	got, err := ReadBED(strings.NewReader(testBED), ReadBEDOpts{})
	require.NoError(t, err)
	expect.EQ(t, got, []Interval{
		New("chr1", 30, 40),
		New("chr1", 101, 95),
		New("chr2", 1, 10),
	})
	// Formatting the intervals reproduces the coordinate columns.
	expect.EQ(t, got[0].BED(), "chr1\t29\t40\t.\t.\t+")
	expect.EQ(t, got[1].BED(), "chr1\t94\t101\t.\t.\t-")

	oneBased := "chr1\t30\t40\nchr1\t95\t101\tpeak\t0\t-\n"
	got, err = ReadBED(strings.NewReader(oneBased), ReadBEDOpts{OneBasedInput: true, IgnoreStrand: true})
	require.NoError(t, err)
	expect.EQ(t, got, []Interval{
		New("chr1", 30, 40),
		New("chr1", 95, 101),
	})

	// Position 0 is not a valid one-based start.
	_, err = ReadBED(strings.NewReader("chr2\t0\t10\n"), ReadBEDOpts{OneBasedInput: true})
	require.Error(t, err)
}

func TestReadBEDErrors(t *testing.T) {
	for _, data := range []string{
		"chr1\t10\n",
		"chr1\tx\t20\n",
		"chr1\t20\t10\n",
	} {
		_, err := ReadBED(strings.NewReader(data), ReadBEDOpts{})
		require.Error(t, err, data)
	}
}

func TestReadBEDFromPath(t *testing.T) {
	tmpdir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup, tmpdir)

	plain := filepath.Join(tmpdir, "test.bed")
	require.NoError(t, ioutil.WriteFile(plain, []byte(testBED), 0644))

	compressed := filepath.Join(tmpdir, "test.bed.gz")
	f, err := os.Create(compressed)
	require.NoError(t, err)
	w := gzip.NewWriter(f)
	_, err = w.Write([]byte(testBED))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	for _, path := range []string{plain, compressed} {
		got, err := ReadBEDFromPath(path, ReadBEDOpts{})
		require.NoError(t, err, path)
		expect.EQ(t, len(got), 3)
		expect.EQ(t, got[1], New("chr1", 101, 95))
	}
}
