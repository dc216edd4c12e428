package signal

import (
	"context"
	"io"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/biosignal/encoding/bigwig"
)

// bigwigIndex adapts a bigwig.Reader to Index.
type bigwigIndex struct {
	r      *bigwig.Reader
	chroms []string
}

// OpenBigWigIndex opens the BigWig file at path as an Index.
func OpenBigWigIndex(ctx context.Context, path string) (Index, error) {
	r, err := bigwig.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	return newBigWigIndex(r), nil
}

// NewBigWigIndex reads a BigWig file from in.  The name is used only in
// error messages.
func NewBigWigIndex(name string, in io.ReadSeeker) (Index, error) {
	r, err := bigwig.NewReader(name, in)
	if err != nil {
		return nil, err
	}
	return newBigWigIndex(r), nil
}

func newBigWigIndex(r *bigwig.Reader) *bigwigIndex {
	idx := &bigwigIndex{r: r}
	for _, c := range r.Chromosomes() {
		idx.chroms = append(idx.chroms, c.Name)
	}
	return idx
}

func (b *bigwigIndex) Chromosomes() []string { return b.chroms }

func (b *bigwigIndex) Bounds(chr string) (int, int, bool) {
	start0, end, ok := b.r.DataExtent(chr)
	if !ok {
		return 0, 0, false
	}
	return start0 + 1, end, true
}

func (b *bigwigIndex) Entries(chr string, start0, end int) (EntryIterator, error) {
	it, err := b.r.Query(chr, start0, end)
	if err != nil {
		return nil, err
	}
	return &bigwigIterator{it: it}, nil
}

func (b *bigwigIndex) Totals() Summary {
	s := b.r.Summary()
	return Summary{
		BasesCovered: int64(s.BasesCovered),
		Sum:          s.Sum,
		SumSquares:   s.SumSquares,
		MinValue:     s.Min,
		MaxValue:     s.Max,
	}
}

func (b *bigwigIndex) Close() error {
	return b.r.Close(vcontext.Background())
}

type bigwigIterator struct {
	it *bigwig.Iterator
}

func (i *bigwigIterator) Scan() bool { return i.it.Scan() }

func (i *bigwigIterator) Entry() Entry {
	rec := i.it.Record()
	return Entry{Start0: int(rec.Start0), End: int(rec.End), Value: float64(rec.Value)}
}

func (i *bigwigIterator) Err() error { return i.it.Err() }

func (i *bigwigIterator) Close() error { return i.it.Err() }
