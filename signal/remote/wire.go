// Package remote implements signal.Index over the HTTP API served by package
// server, and defines the JSON messages of that API.
//
// Importing the package registers it with signal.Open for http:// and
// https:// paths.
package remote

import (
	"math"

	"github.com/grailbio/biosignal/signal"
)

// ChromBounds describes one chromosome.  Start and Stop are the 1-based
// inclusive bounds of its data, valid if HasData is set.
type ChromBounds struct {
	Chr     string `json:"chr"`
	Start   int    `json:"start"`
	Stop    int    `json:"stop"`
	HasData bool   `json:"hasData"`
}

// Entry is the wire form of signal.Entry.  JSON has no NaN, so a missing
// value is null.
type Entry struct {
	Start0 int      `json:"start0"`
	End    int      `json:"end"`
	Value  *float64 `json:"value"`
}

// Contig is the wire form of signal.Contig.  NaN values are null.
type Contig struct {
	Region string     `json:"region"`
	Strand string     `json:"strand"`
	Values []*float64 `json:"values"`
}

// Error is the body of every non-200 response.
type Error struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId"`
}

// NullableValue converts v to its wire form.
func NullableValue(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// Value converts a wire value back, mapping null to NaN.
func Value(v *float64) float64 {
	if v == nil {
		return math.NaN()
	}
	return *v
}

// FromEntry converts e to its wire form.
func FromEntry(e signal.Entry) Entry {
	return Entry{Start0: e.Start0, End: e.End, Value: NullableValue(e.Value)}
}

// ToEntry converts e back to a signal.Entry.
func (e Entry) ToEntry() signal.Entry {
	return signal.Entry{Start0: e.Start0, End: e.End, Value: Value(e.Value)}
}

// FromContig converts c to its wire form.
func FromContig(c *signal.Contig) Contig {
	out := Contig{
		Region: c.Interval.String(),
		Strand: c.Interval.Strand(),
		Values: make([]*float64, len(c.Values)),
	}
	for i, v := range c.Values {
		out.Values[i] = NullableValue(v)
	}
	return out
}
