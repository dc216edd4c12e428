package signal

import (
	"context"
	"io"
	"math"
	"sort"

	storeinterval "github.com/biogo/store/interval"
	"github.com/biogo/store/llrb"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	"github.com/grailbio/biosignal/encoding/wig"
	"github.com/grailbio/biosignal/interval"
	"github.com/klauspost/compress/gzip"
)

// wigEntry is an Entry stored in the per-chromosome interval tree.  The
// uid is the entry's position in the file, so overlapping entries are
// applied in file order.
type wigEntry struct {
	Entry
	uid uintptr
}

func (e wigEntry) Overlap(b storeinterval.IntRange) bool {
	return e.End > b.Start && e.Start0 < b.End
}

func (e wigEntry) ID() uintptr { return e.uid }

func (e wigEntry) Range() storeinterval.IntRange {
	return storeinterval.IntRange{Start: e.Start0, End: e.End}
}

// wigIndex holds a whole text track in memory, one interval tree per
// chromosome.
type wigIndex struct {
	name   string
	chroms []string
	trees  map[string]*storeinterval.IntTree
	bounds *interval.Union
	totals Summary
	cursor Cursor
}

// OpenWigIndex reads the Wig or bedGraph file at path, which may be
// gzip-compressed, into an in-memory Index.
func OpenWigIndex(ctx context.Context, path string) (idx Index, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(errors.NotExist, path, err)
	}
	defer func() {
		if cerr := in.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	r := io.Reader(in.Reader(ctx))
	if fileio.DetermineType(path) == fileio.Gzip {
		if r, err = gzip.NewReader(r); err != nil {
			return nil, errors.E(errors.Integrity, path, err)
		}
	}
	return NewWigIndex(path, r)
}

// NewWigIndex reads a Wig or bedGraph stream into an in-memory Index.  The
// name is used only in error messages.
func NewWigIndex(name string, r io.Reader) (Index, error) {
	idx := &wigIndex{
		name:   name,
		trees:  map[string]*storeinterval.IntTree{},
		bounds: interval.NewUnion(),
	}
	byChr := map[string][]Entry{}
	sc := wig.NewScanner(r)
	var n uintptr
	for sc.Scan() {
		rec := sc.Record()
		tree, ok := idx.trees[rec.Chr]
		if !ok {
			tree = &storeinterval.IntTree{}
			idx.trees[rec.Chr] = tree
			idx.chroms = append(idx.chroms, rec.Chr)
		}
		if rec.End == rec.Start0 || math.IsNaN(rec.Value) {
			continue
		}
		e := wigEntry{Entry{Start0: rec.Start0, End: rec.End, Value: rec.Value}, n}
		n++
		if err := tree.Insert(e, true); err != nil {
			return nil, errors.E(errors.Integrity, name, err)
		}
		idx.bounds.Add(rec.Chr, rec.Start0, rec.End)
		byChr[rec.Chr] = append(byChr[rec.Chr], e.Entry)
	}
	if err := sc.Err(); err != nil {
		return nil, errors.E(errors.Integrity, name, err)
	}
	for _, tree := range idx.trees {
		tree.AdjustRanges()
	}
	idx.totals.MinValue, idx.totals.MaxValue = math.Inf(1), math.Inf(-1)
	for _, chr := range idx.chroms {
		idx.totals.addLayered(byChr[chr])
	}
	if idx.totals.BasesCovered == 0 {
		idx.totals.MinValue, idx.totals.MaxValue = 0, 0
	}
	log.Debug.Printf("%s: read %d entries on %d chromosomes, %d bases covered",
		name, n, len(idx.chroms), idx.totals.BasesCovered)
	return idx, nil
}

// layer is an entry competing for the bases it covers.  Layers order by file
// position, so the maximum of a tree of layers is the one a query would show.
type layer struct {
	seq int
	end int
}

func (l layer) Compare(c llrb.Comparable) int { return l.seq - c.(layer).seq }

// addLayered adds the bases of one chromosome's entries, given in file
// order, as a query sees them: a base overwritten by a later entry counts
// only with its final value.
func (s *Summary) addLayered(entries []Entry) {
	if len(entries) == 0 {
		return
	}
	byStart := make([]int, len(entries))
	for i := range byStart {
		byStart[i] = i
	}
	sort.SliceStable(byStart, func(i, j int) bool {
		return entries[byStart[i]].Start0 < entries[byStart[j]].Start0
	})
	points := make([]int, 0, 2*len(entries))
	for _, e := range entries {
		points = append(points, e.Start0, e.End)
	}
	sort.Ints(points)

	active := llrb.Tree{}
	next := 0
	for k := 0; k+1 < len(points); k++ {
		pos, end := points[k], points[k+1]
		if pos == end {
			continue
		}
		for next < len(byStart) && entries[byStart[next]].Start0 <= pos {
			i := byStart[next]
			active.Insert(layer{seq: i, end: entries[i].End})
			next++
		}
		// Layers that ended are dropped once they surface.
		for active.Len() > 0 && active.Max().(layer).end <= pos {
			active.DeleteMax()
		}
		if active.Len() == 0 {
			continue
		}
		s.addRun(entries[active.Max().(layer).seq].Value, end-pos)
	}
}

// addRun adds n bases holding value v.
func (s *Summary) addRun(v float64, n int) {
	bases := float64(n)
	s.BasesCovered += int64(n)
	s.Sum += v * bases
	s.SumSquares += v * v * bases
	s.MinValue = math.Min(s.MinValue, v)
	s.MaxValue = math.Max(s.MaxValue, v)
}

func (w *wigIndex) Chromosomes() []string { return w.chroms }

func (w *wigIndex) Bounds(chr string) (int, int, bool) {
	start0, end, ok := w.bounds.Extent(chr)
	if !ok {
		return 0, 0, false
	}
	return start0 + 1, end, true
}

func (w *wigIndex) Entries(chr string, start0, end int) (EntryIterator, error) {
	tree, ok := w.trees[chr]
	if !ok {
		return nil, errors.E(errors.NotExist, w.name+": chromosome "+chr+" not found")
	}
	active := w.cursor.Next()
	q := wigEntry{Entry: Entry{Start0: start0, End: end}}
	hits := tree.Get(q)
	sort.Slice(hits, func(i, j int) bool { return hits[i].ID() < hits[j].ID() })
	entries := make([]Entry, len(hits))
	for i, h := range hits {
		entries[i] = h.(wigEntry).Entry
	}
	return NewSliceIterator(entries, active), nil
}

func (w *wigIndex) Totals() Summary { return w.totals }

func (w *wigIndex) Close() error {
	w.cursor.Invalidate()
	return nil
}
