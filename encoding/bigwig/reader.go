package bigwig

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"v.io/x/lib/vlog"
)

// maxBlockSize caps the size of a single compressed data block.  Anything
// larger indicates a corrupt index.
const maxBlockSize = 1 << 30

type extent struct {
	start0, end uint32
}

// Reader reads a BigWig file.  The chromosome list, total summary and the
// R-tree leaves are loaded by NewReader; data blocks are read on demand by
// Query.
//
// At most one Iterator is active per Reader: calling Query invalidates any
// iterator returned by a previous call.  Reader is not thread safe.
type Reader struct {
	path    string
	in      io.ReadSeeker
	f       file.File
	order   binary.ByteOrder
	header  Header
	summary Summary
	chroms  []Chrom
	byName  map[string]int
	blocks  []block
	extents map[uint32]extent
	// gen is bumped by each Query; iterators remember the value they were
	// created with.
	gen int
}

// Open opens the BigWig file at path through grailbio file.
func Open(ctx context.Context, path string) (*Reader, error) {
	f, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(errors.NotExist, path, err)
	}
	r, err := newReader(path, f.Reader(ctx))
	if err != nil {
		_ = f.Close(ctx)
		return nil, err
	}
	r.f = f
	return r, nil
}

// NewReader reads the BigWig metadata from in.  The name is used only in
// error messages.
func NewReader(name string, in io.ReadSeeker) (*Reader, error) {
	return newReader(name, in)
}

func newReader(path string, in io.ReadSeeker) (*Reader, error) {
	r := &Reader{path: path, in: in, byName: map[string]int{}, extents: map[uint32]extent{}}
	if err := r.init(); err != nil {
		return nil, errors.E(errors.Integrity, path, err)
	}
	vlog.VI(1).Infof("%s: bigwig v%d, %d chromosomes, %d data blocks, %d zoom levels",
		path, r.header.Version, len(r.chroms), len(r.blocks), r.header.ZoomLevels)
	return r, nil
}

func (r *Reader) init() error {
	buf := make([]byte, headerSize)
	if _, err := r.in.Seek(0, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.ReadFull(r.in, buf); err != nil {
		return err
	}
	var err error
	if r.header, r.order, err = parseHeader(buf); err != nil {
		return err
	}
	if r.header.SummaryOffset != 0 {
		if buf, err = r.readAt(int64(r.header.SummaryOffset), summarySize); err != nil {
			return err
		}
		r.summary = parseSummary(buf, r.order)
	}
	if r.chroms, err = r.readChromTree(int64(r.header.ChromTreeOffset)); err != nil {
		return err
	}
	sizes := make(map[uint32]uint32, len(r.chroms))
	for i, c := range r.chroms {
		r.byName[c.Name] = i
		sizes[c.ID] = c.Size
	}
	if r.blocks, err = r.readIndex(int64(r.header.FullIndexOffset)); err != nil {
		return err
	}
	for _, b := range r.blocks {
		if b.startChrom > b.endChrom {
			return fmt.Errorf("index block ends before it starts (chrom %d > %d)", b.startChrom, b.endChrom)
		}
		for id := b.startChrom; ; id++ {
			if size, ok := sizes[id]; ok {
				r.addExtent(id, b, size)
			}
			if id == b.endChrom {
				break
			}
		}
	}
	return nil
}

// addExtent widens the data extent of chromosome id to cover the part of b
// that lies on it.
func (r *Reader) addExtent(id uint32, b block, size uint32) {
	e := extent{0, size}
	if id == b.startChrom {
		e.start0 = b.startBase
	}
	if id == b.endChrom {
		e.end = b.endBase
	}
	if old, ok := r.extents[id]; ok {
		if old.start0 < e.start0 {
			e.start0 = old.start0
		}
		if old.end > e.end {
			e.end = old.end
		}
	}
	r.extents[id] = e
}

func (r *Reader) readAt(off int64, n int) ([]byte, error) {
	if _, err := r.in.Seek(off, io.SeekStart); err != nil {
		return nil, err
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(r.in, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// Header returns the file header.
func (r *Reader) Header() Header { return r.header }

// Summary returns the total summary stored in the file.  It is zero for files
// that carry no summary.
func (r *Reader) Summary() Summary { return r.summary }

// Chromosomes returns the chromosomes in the order they appear in the
// chromosome tree.
func (r *Reader) Chromosomes() []Chrom { return r.chroms }

// ChromSize returns the declared length of chr.
func (r *Reader) ChromSize(chr string) (int, bool) {
	i, ok := r.byName[chr]
	if !ok {
		return 0, false
	}
	return int(r.chroms[i].Size), true
}

// DataExtent returns the 0-based half-open range of chr spanned by the data
// blocks.  ok is false if chr has no data.
func (r *Reader) DataExtent(chr string) (start0, end int, ok bool) {
	i, ok := r.byName[chr]
	if !ok {
		return 0, 0, false
	}
	e, ok := r.extents[r.chroms[i].ID]
	if !ok {
		return 0, 0, false
	}
	return int(e.start0), int(e.end), true
}

// Query returns an iterator over the records of chr that overlap the 0-based
// half-open range [start0, end), in increasing position order.  Records are
// not clipped to the range.
//
// Calling Query invalidates every iterator returned earlier.
func (r *Reader) Query(chr string, start0, end int) (*Iterator, error) {
	i, ok := r.byName[chr]
	if !ok {
		return nil, errors.E(errors.NotExist, fmt.Sprintf("%s: chromosome %s not found", r.path, chr))
	}
	if start0 < 0 {
		start0 = 0
	}
	if end < start0 {
		end = start0
	}
	r.gen++
	it := &Iterator{
		r:       r,
		gen:     r.gen,
		chromID: r.chroms[i].ID,
		start0:  uint32(start0),
		end:     uint32(end),
	}
	for _, b := range r.blocks {
		if b.overlaps(it.chromID, it.start0, it.end) {
			it.blocks = append(it.blocks, b)
		}
	}
	return it, nil
}

// Close releases the underlying file, if the Reader was created by Open.
func (r *Reader) Close(ctx context.Context) error {
	r.gen++
	if r.f == nil {
		return nil
	}
	err := r.f.Close(ctx)
	r.f = nil
	return err
}

// Iterator iterates over the records returned by Reader.Query.
//
// Usage:
//
//   it, err := r.Query("chr1", 0, 1000)
//   ...
//   for it.Scan() {
//     rec := it.Record()
//   }
//   if err := it.Err(); err != nil { ... }
type Iterator struct {
	r       *Reader
	gen     int
	chromID uint32
	start0  uint32
	end     uint32
	blocks  []block
	recs    []Record
	rec     Record
	err     error
}

// Scan advances to the next record and reports whether one exists.
func (it *Iterator) Scan() bool {
	if it.err != nil {
		return false
	}
	if it.gen != it.r.gen {
		it.err = errors.E(errors.Canceled, fmt.Sprintf("%s: iterator invalidated by a later query", it.r.path))
		return false
	}
	for {
		for len(it.recs) > 0 {
			rec := it.recs[0]
			it.recs = it.recs[1:]
			if rec.ChromID != it.chromID || rec.End <= it.start0 || rec.Start0 >= it.end {
				continue
			}
			it.rec = rec
			return true
		}
		if len(it.blocks) == 0 {
			return false
		}
		b := it.blocks[0]
		it.blocks = it.blocks[1:]
		if err := it.load(b); err != nil {
			it.err = errors.E(errors.Integrity, it.r.path, err)
			return false
		}
	}
}

func (it *Iterator) load(b block) error {
	if b.size > maxBlockSize {
		return fmt.Errorf("data block too large (%d bytes)", b.size)
	}
	raw, err := it.r.readAt(int64(b.offset), int(b.size))
	if err != nil {
		return err
	}
	it.recs, err = decodeBlock(raw, it.r.header.UncompressBufSize > 0, it.r.order, it.recs[:0])
	return err
}

// Record returns the current record.  It is valid only after Scan returned
// true.
func (it *Iterator) Record() Record { return it.rec }

// Err returns the first error encountered, if any.
func (it *Iterator) Err() error { return it.err }
