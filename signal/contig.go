package signal

import (
	"bufio"
	"io"
	"math"
	"strconv"

	"github.com/grailbio/biosignal/interval"
)

// Contig is the result of a query: one value per base of Interval, in the
// interval's reading direction.  Values[0] belongs to Interval.Start(), so
// for a Crick interval the values run from the highest position down.
// Bases without data are NaN.
type Contig struct {
	Interval interval.Interval
	Values   []float64
}

// Get returns the value at genomic position pos, which must be inside the
// interval.
func (c *Contig) Get(pos int) float64 {
	if c.Interval.IsCrick() {
		return c.Values[c.Interval.High()-pos]
	}
	return c.Values[pos-c.Interval.Low()]
}

// Coverage returns the number of bases that have a value.
func (c *Contig) Coverage() int {
	n := 0
	for _, v := range c.Values {
		if !math.IsNaN(v) {
			n++
		}
	}
	return n
}

// Mean returns the mean of the non-NaN values, or NaN if there are none.
func (c *Contig) Mean() float64 {
	var (
		sum float64
		n   int
	)
	for _, v := range c.Values {
		if !math.IsNaN(v) {
			sum += v
			n++
		}
	}
	if n == 0 {
		return math.NaN()
	}
	return sum / float64(n)
}

// WriteBedGraph writes the values as bedGraph lines in ascending genomic
// order, one line per run of equal values.  NaN bases are omitted.
func (c *Contig) WriteBedGraph(w io.Writer) error {
	bw := bufio.NewWriter(w)
	low, high := c.Interval.Low(), c.Interval.High()
	var buf []byte
	for pos := low; pos <= high; {
		v := c.Get(pos)
		end := pos + 1
		for end <= high && c.Get(end) == v {
			end++
		}
		if !math.IsNaN(v) {
			buf = append(buf[:0], c.Interval.Chr()...)
			buf = append(buf, '\t')
			buf = strconv.AppendInt(buf, int64(pos-1), 10)
			buf = append(buf, '\t')
			buf = strconv.AppendInt(buf, int64(end-1), 10)
			buf = append(buf, '\t')
			buf = strconv.AppendFloat(buf, v, 'g', -1, 64)
			buf = append(buf, '\n')
			if _, err := bw.Write(buf); err != nil {
				return err
			}
		}
		pos = end
	}
	return bw.Flush()
}
