package signal

import (
	"math"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/biosignal/interval"
)

// Entry is one stored run of a track: Value applies to every base in the
// 0-based half-open range [Start0, End).
type Entry struct {
	Start0 int     `json:"start0"`
	End    int     `json:"end"`
	Value  float64 `json:"value"`
}

// EntryIterator iterates over the entries returned by Index.Entries.
//
// Usage:
//
//   it, err := idx.Entries("chr1", 0, 1000)
//   ...
//   for it.Scan() {
//     e := it.Entry()
//   }
//   err = it.Close()
type EntryIterator interface {
	// Scan advances to the next entry.  It returns false at the end or on
	// error.
	Scan() bool
	// Entry returns the current entry.
	Entry() Entry
	// Err returns the error that stopped Scan, if any.  An iterator
	// invalidated by a later call to Entries reports an errors.Canceled
	// error.
	Err() error
	// Close releases the iterator and returns Err().
	Close() error
}

// Index is the contract between the query engine and a track format.
//
// An Index keeps a single active cursor: calling Entries invalidates any
// iterator returned earlier.
type Index interface {
	// Chromosomes lists the chromosomes known to the index.
	Chromosomes() []string
	// Bounds returns the 1-based inclusive range of chr that holds data.
	// ok is false if chr has no data.
	Bounds(chr string) (start, stop int, ok bool)
	// Entries returns the entries of chr overlapping the 0-based half-open
	// range [start0, end), in the order they should be applied; when entries
	// overlap, later ones win.
	Entries(chr string, start0, end int) (EntryIterator, error)
	// Totals returns the whole-track statistics.
	Totals() Summary
	// Close releases the index.
	Close() error
}

// Source answers per-base queries against one track.
type Source interface {
	// Chromosomes lists the chromosomes known to the track.
	Chromosomes() []string
	// Bounds returns the 1-based inclusive range of chr that holds data.
	Bounds(chr string) (start, stop int, ok bool)
	// Includes reports whether every base of iv lies within the bounds of its
	// chromosome.
	Includes(iv interval.Interval) bool
	// IncludesChromosome reports whether chr holds any data.
	IncludesChromosome(chr string) bool
	// Query returns one value per base of iv, oriented along iv's strand.
	// Intervals not covered by the track yield an error of kind
	// errors.NotExist wrapping a *CoverageError; they are never clamped.
	Query(iv interval.Interval) (*Contig, error)
	// Summary returns the whole-track statistics.
	Summary() Summary
	// Close releases the track and any temporary files.
	Close() error
}

type source struct {
	idx    Index
	closed bool
}

// New returns a Source that queries idx.  The Source takes ownership of idx.
func New(idx Index) Source {
	return &source{idx: idx}
}

func (s *source) Chromosomes() []string { return s.idx.Chromosomes() }

func (s *source) Bounds(chr string) (int, int, bool) { return s.idx.Bounds(chr) }

func (s *source) IncludesChromosome(chr string) bool {
	_, _, ok := s.idx.Bounds(chr)
	return ok
}

func (s *source) Includes(iv interval.Interval) bool {
	start, stop, ok := s.idx.Bounds(iv.Chr())
	return ok && iv.Low() >= start && iv.High() <= stop
}

func (s *source) Summary() Summary { return s.idx.Totals() }

func (s *source) Query(iv interval.Interval) (*Contig, error) {
	if s.closed {
		return nil, errors.E(errors.Precondition, "signal: query on a closed source")
	}
	start, stop, ok := s.idx.Bounds(iv.Chr())
	if !ok || iv.Low() < start || iv.High() > stop {
		return nil, coverageError(iv, start, stop, ok)
	}
	low, high := iv.Low(), iv.High()
	values := make([]float64, iv.Length())
	for i := range values {
		values[i] = math.NaN()
	}
	it, err := s.idx.Entries(iv.Chr(), low-1, high)
	if err != nil {
		return nil, err
	}
	for it.Scan() {
		e := it.Entry()
		if math.IsNaN(e.Value) {
			continue
		}
		// The entry covers 1-based [e.Start0+1, e.End].
		first, last := e.Start0+1, e.End
		if first < low {
			first = low
		}
		if last > high {
			last = high
		}
		for bp := first; bp <= last; bp++ {
			values[bp-low] = e.Value
		}
	}
	if err := it.Close(); err != nil {
		return nil, err
	}
	if iv.IsCrick() {
		for i, j := 0, len(values)-1; i < j; i, j = i+1, j-1 {
			values[i], values[j] = values[j], values[i]
		}
	}
	c := &Contig{Interval: iv, Values: values}
	if log.At(log.Debug) {
		log.Debug.Printf("signal: %s: %d of %d bases covered", iv, c.Coverage(), len(values))
	}
	return c, nil
}

func (s *source) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.idx.Close()
}

func (s *source) String() string { return Describe(s) }
