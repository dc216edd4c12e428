package signal

import (
	"github.com/grailbio/base/errors"
)

// Cursor tracks the single active iterator of an Index.  Each call to Next
// invalidates the iterators created by earlier calls.  The zero value is
// ready to use.
type Cursor struct {
	gen int
}

// Next starts a new cursor generation and returns a function reporting
// whether that generation is still the active one.
func (c *Cursor) Next() (active func() bool) {
	c.gen++
	gen := c.gen
	return func() bool { return c.gen == gen }
}

// Invalidate ends the active generation, e.g. when the Index is closed.
func (c *Cursor) Invalidate() { c.gen++ }

type sliceIterator struct {
	entries []Entry
	active  func() bool
	entry   Entry
	err     error
}

// NewSliceIterator returns an EntryIterator over entries.  Once active
// returns false, Scan stops and Err reports an errors.Canceled error.
func NewSliceIterator(entries []Entry, active func() bool) EntryIterator {
	return &sliceIterator{entries: entries, active: active}
}

func (it *sliceIterator) Scan() bool {
	if it.err != nil {
		return false
	}
	if it.active != nil && !it.active() {
		it.err = errors.E(errors.Canceled, "signal: iterator invalidated by a later query")
		return false
	}
	if len(it.entries) == 0 {
		return false
	}
	it.entry, it.entries = it.entries[0], it.entries[1:]
	return true
}

func (it *sliceIterator) Entry() Entry { return it.entry }

func (it *sliceIterator) Err() error { return it.err }

func (it *sliceIterator) Close() error {
	it.entries = nil
	return it.err
}
