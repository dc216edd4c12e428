package interval

import (
	"testing"

	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
)

func TestUnion(t *testing.T) {
	u := NewUnion()
	u.Add("chr1", 20, 25)
	u.Add("chr1", 5, 15)
	u.Add("chr1", 7, 17)
	u.Add("chr2", 0, 1)
	u.Add("chr3", 4, 4)

	expect.EQ(t, u.Chromosomes(), []string{"chr1", "chr2", "chr3"})
	// [5, 17) U [20, 25) on chr1.
	u.merge()
	expect.EQ(t, u.nameMap["chr1"], []int{5, 17, 20, 25})

	start, end, ok := u.Extent("chr2")
	assert.True(t, ok)
	expect.EQ(t, []int{start, end}, []int{0, 1})
	_, _, ok = u.Extent("chrX")
	assert.False(t, ok)

	start, end, ok = u.Extent("chr1")
	assert.True(t, ok)
	expect.EQ(t, start, 5)
	expect.EQ(t, end, 25)
	_, _, ok = u.Extent("chr3")
	assert.False(t, ok)

	// Additions after a read are merged on the next read.
	u.Add("chr1", 17, 20)
	u.Add("chr1", 25, 30)
	_, end, _ = u.Extent("chr1")
	expect.EQ(t, end, 30)
	expect.EQ(t, u.nameMap["chr1"], []int{5, 30})
}
