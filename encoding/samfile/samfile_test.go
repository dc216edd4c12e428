package samfile

import (
	"context"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Records are deliberately out of coordinate order.
const testSAM = `@HD	VN:1.4
@SQ	SN:chr1	LN:1000
@SQ	SN:chr2	LN:500
@SQ	SN:chr3	LN:100
b	0	chr1	201	60	10M	*	0	0	ACGTACGTAC	*
u	4	*	0	0	*	*	0	0	ACGT	*
c	0	chr2	11	60	4M	*	0	0	ACGT	*
a	0	chr1	101	60	10M	*	0	0	ACGTACGTAC	*
d	0	chr1	151	60	10M	*	0	0	ACGTACGTAC	*
`

func writeSAM(t *testing.T, dir string) string {
	path := filepath.Join(dir, "test.sam")
	require.NoError(t, ioutil.WriteFile(path, []byte(testSAM), 0644))
	return path
}

func names(t *testing.T, it *Iterator) []string {
	var n []string
	for it.Scan() {
		n = append(n, it.Record().Name)
	}
	require.NoError(t, it.Close())
	return n
}

func TestIterator(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	f, err := Open(ctx, writeSAM(t, dir), Opts{TempDir: dir})
	require.NoError(t, err)
	defer f.Close() // nolint: errcheck

	expect.EQ(t, f.Format(), SAM)
	expect.EQ(t, f.Chromosomes(), []string{"chr1", "chr2", "chr3"})
	assert.False(t, f.Indexed())

	it, err := f.Iterator()
	require.NoError(t, err)
	expect.EQ(t, names(t, it), []string{"b", "u", "c", "a", "d"})
	assert.False(t, f.Indexed())
}

func TestQuery(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	f, err := Open(ctx, writeSAM(t, dir), Opts{TempDir: dir})
	require.NoError(t, err)

	it, err := f.Query("chr1", 105, 155)
	require.NoError(t, err)
	expect.EQ(t, names(t, it), []string{"a", "d"})
	assert.True(t, f.Indexed())
	tmp := f.tmpDir
	_, err = os.Stat(f.bamPath + ".bai")
	require.NoError(t, err)

	it, err = f.Query("chr1", 0, 1000)
	require.NoError(t, err)
	expect.EQ(t, names(t, it), []string{"a", "d", "b"})

	// Records ending exactly at the query start do not overlap.
	it, err = f.Query("chr1", 110, 150)
	require.NoError(t, err)
	assert.Empty(t, names(t, it))

	it, err = f.Query("chr2", 0, 500)
	require.NoError(t, err)
	expect.EQ(t, names(t, it), []string{"c"})

	it, err = f.Query("chr3", 0, 100)
	require.NoError(t, err)
	assert.Empty(t, names(t, it))

	_, err = f.Query("chrX", 0, 100)
	assert.True(t, errors.Is(errors.NotExist, err))

	n, err := f.Count()
	require.NoError(t, err)
	expect.EQ(t, n, int64(5))

	require.NoError(t, f.Close())
	_, err = os.Stat(tmp)
	assert.True(t, os.IsNotExist(err))
	_, err = f.Query("chr1", 0, 10)
	assert.True(t, errors.Is(errors.Precondition, err))
	_, err = f.Iterator()
	assert.True(t, errors.Is(errors.Precondition, err))
	// The count was cached before Close, but a closed file no longer
	// answers.
	_, err = f.Count()
	assert.True(t, errors.Is(errors.Precondition, err))
}

func TestIteratorInvalidation(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	f, err := Open(ctx, writeSAM(t, dir), Opts{TempDir: dir})
	require.NoError(t, err)
	defer f.Close() // nolint: errcheck

	it1, err := f.Iterator()
	require.NoError(t, err)
	require.True(t, it1.Scan())
	it2, err := f.Query("chr1", 0, 1000)
	require.NoError(t, err)
	assert.False(t, it1.Scan())
	assert.True(t, errors.Is(errors.Canceled, it1.Err()))
	expect.EQ(t, names(t, it2), []string{"a", "d", "b"})

	it3, err := f.Query("chr2", 0, 500)
	require.NoError(t, err)
	it4, err := f.Iterator()
	require.NoError(t, err)
	assert.False(t, it3.Scan())
	assert.True(t, errors.Is(errors.Canceled, it3.Close()))
	expect.EQ(t, names(t, it4), []string{"b", "u", "c", "a", "d"})
}

func TestIndexedBAM(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	sf, err := Open(ctx, writeSAM(t, dir), Opts{TempDir: dir})
	require.NoError(t, err)
	// Produce a sorted BAM and BAI next to each other.
	require.NoError(t, sf.ensureIndexed(ctx))
	bamPath := filepath.Join(dir, "sorted.bam")
	require.NoError(t, os.Rename(sf.bamPath, bamPath))
	require.NoError(t, os.Rename(sf.bamPath+".bai", bamPath+".bai"))
	require.NoError(t, sf.Close())

	f, err := Open(ctx, bamPath)
	require.NoError(t, err)
	expect.EQ(t, f.Format(), BAM)
	assert.True(t, f.Indexed())
	it, err := f.Query("chr1", 150, 151)
	require.NoError(t, err)
	expect.EQ(t, names(t, it), []string{"d"})
	expect.EQ(t, f.tmpDir, "")
	n, err := f.Count()
	require.NoError(t, err)
	expect.EQ(t, n, int64(5))
	it, err = f.Iterator()
	require.NoError(t, err)
	expect.EQ(t, names(t, it), []string{"a", "d", "b", "c", "u"})
	require.NoError(t, f.Close())

	// Without the index the BAM is converted on demand.
	require.NoError(t, os.Remove(bamPath+".bai"))
	f, err = Open(ctx, bamPath, Opts{TempDir: dir})
	require.NoError(t, err)
	assert.False(t, f.Indexed())
	it, err = f.Query("chr2", 10, 11)
	require.NoError(t, err)
	expect.EQ(t, names(t, it), []string{"c"})
	assert.NotEqual(t, f.tmpDir, "")
	require.NoError(t, f.Close())
}

func TestOpenErrors(t *testing.T) {
	dir, cleanup := testutil.TempDir(t, "", "")
	defer cleanup()
	ctx := context.Background()
	_, err := Open(ctx, filepath.Join(dir, "nosuch.sam"))
	assert.True(t, errors.Is(errors.NotExist, err))

	bad := filepath.Join(dir, "bad.bam")
	require.NoError(t, ioutil.WriteFile(bad, []byte{0x1f, 0x8b, 0x08, 0x04, 0, 0}, 0644))
	_, err = Open(ctx, bad)
	assert.True(t, errors.Is(errors.Integrity, err))
}
