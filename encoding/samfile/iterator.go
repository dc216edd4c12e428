package samfile

import (
	"fmt"
	"io"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/bgzf/index"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/vcontext"
)

// Iterator iterates over records of a File.
//
// Usage:
//
//   it, err := f.Query("chr1", 1000, 2000)
//   ...
//   for it.Scan() {
//     rec := it.Record()
//   }
//   err = it.Close()
type Iterator struct {
	f   *File
	gen int

	in  file.File
	br  *bam.Reader
	seq *sequential
	bit *bam.Iterator
	// next reads the next record; io.EOF ends the iteration.
	next func() (*sam.Record, error)

	// For queries, records are restricted to refID and the 0-based half-open
	// range [start, end).
	query      bool
	refID      int
	start, end int

	rec *sam.Record
	err error
}

func (f *File) newIterator() *Iterator {
	f.invalidate()
	it := &Iterator{f: f, gen: f.gen}
	f.active = it
	return it
}

// Iterator returns an iterator over all records in file order.  It
// invalidates any previous iterator.
func (f *File) Iterator() (*Iterator, error) {
	if f.closed {
		return nil, errors.E(errors.Precondition, f.path+": file is closed")
	}
	it := f.newIterator()
	seq, err := f.openSequential(vcontext.Background(), f.path, f.format)
	if err != nil {
		it.err = err
		return nil, err
	}
	it.seq = seq
	it.next = seq.reader().Read
	return it, nil
}

// Query returns an iterator over the records of reference chr that overlap
// the 0-based half-open range [start, end), in coordinate order.  The first
// call on an unindexed file converts and indexes it.  Query invalidates any
// previous iterator.
func (f *File) Query(chr string, start, end int) (*Iterator, error) {
	ctx := vcontext.Background()
	if err := f.ensureIndexed(ctx); err != nil {
		return nil, err
	}
	ref := f.ref(chr)
	if ref == nil {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("%s: reference %s not found", f.path, chr))
	}
	if start < 0 {
		start = 0
	}
	if end > ref.Len() {
		end = ref.Len()
	}
	it := f.newIterator()
	it.query, it.refID, it.start, it.end = true, ref.ID(), start, end
	if start >= end {
		it.next = eof
		return it, nil
	}
	chunks, err := f.index.Chunks(ref, start, end)
	if err == index.ErrInvalid || (err == nil && len(chunks) == 0) {
		// No records in the range.
		it.next = eof
		return it, nil
	}
	if err != nil {
		return nil, errors.E(errors.Integrity, f.bamPath, err)
	}
	if it.in, err = file.Open(ctx, f.bamPath); err != nil {
		return nil, err
	}
	if it.br, err = bam.NewReader(it.in.Reader(ctx), 1); err != nil {
		it.release()
		return nil, errors.E(errors.Integrity, f.bamPath, err)
	}
	if it.bit, err = bam.NewIterator(it.br, chunks); err != nil {
		it.release()
		return nil, errors.E(errors.Integrity, f.bamPath, err)
	}
	it.next = func() (*sam.Record, error) {
		if it.bit.Next() {
			return it.bit.Record(), nil
		}
		if err := it.bit.Error(); err != nil {
			return nil, err
		}
		return nil, io.EOF
	}
	return it, nil
}

func eof() (*sam.Record, error) { return nil, io.EOF }

func (f *File) ref(chr string) *sam.Reference {
	for _, ref := range f.header.Refs() {
		if ref.Name() == chr {
			return ref
		}
	}
	return nil
}

// Count returns the number of records in the file, taken from the index
// metadata: mapped and unmapped records of every reference plus the
// unplaced unmapped records.  The first call on an unindexed file converts
// and indexes it.
func (f *File) Count() (int64, error) {
	if f.closed {
		return 0, errors.E(errors.Precondition, f.path+": file is closed")
	}
	if f.counted {
		return f.count, nil
	}
	if err := f.ensureIndexed(vcontext.Background()); err != nil {
		return 0, err
	}
	var n int64
	for id := 0; id < f.index.NumRefs(); id++ {
		stats, ok := f.index.ReferenceStats(id)
		if !ok {
			continue
		}
		n += int64(stats.Mapped + stats.Unmapped)
	}
	if unmapped, ok := f.index.Unmapped(); ok {
		n += int64(unmapped)
	}
	f.count, f.counted = n, true
	return n, nil
}

// Scan advances to the next record.  It returns false at the end, on error,
// or once the iterator has been invalidated.
func (it *Iterator) Scan() bool {
	if it.err != nil {
		return false
	}
	if it.gen != it.f.gen {
		it.err = errors.E(errors.Canceled, it.f.path+": iterator invalidated by a later query")
		return false
	}
	for {
		rec, err := it.next()
		if err == io.EOF {
			it.err = io.EOF
			return false
		}
		if err != nil {
			it.err = errors.E(errors.Integrity, it.f.path, err)
			return false
		}
		if it.query {
			if rec.Ref.ID() != it.refID || rec.Pos >= it.end {
				// Records are sorted; nothing further can overlap.
				it.err = io.EOF
				return false
			}
			if rec.End() <= it.start {
				continue
			}
		}
		it.rec = rec
		return true
	}
}

// Record returns the current record.
func (it *Iterator) Record() *sam.Record { return it.rec }

// Err returns the error that stopped Scan, if any.
func (it *Iterator) Err() error {
	if it.err == io.EOF {
		return nil
	}
	return it.err
}

// Close releases the iterator and returns Err().
func (it *Iterator) Close() error {
	it.release()
	if it.f.active == it {
		it.f.active = nil
	}
	return it.Err()
}

// release closes the readers held by the iterator.
func (it *Iterator) release() {
	var err errors.Once
	if it.bit != nil {
		err.Set(it.bit.Close())
		it.bit = nil
	}
	if it.br != nil {
		err.Set(it.br.Close())
		it.br = nil
	}
	if it.in != nil {
		err.Set(it.in.Close(vcontext.Background()))
		it.in = nil
	}
	if it.seq != nil {
		err.Set(it.seq.close())
		it.seq = nil
	}
	if e := err.Err(); e != nil && it.err == nil {
		it.err = e
	}
}
