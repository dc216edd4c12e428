package signal

import (
	"math"

	"github.com/grailbio/base/errors"
)

// ErrNoCoverage is returned with NaN by Summary.Mean and Summary.Stdev when
// the track covers no bases.
var ErrNoCoverage = errors.E(errors.Precondition, "signal: track covers no bases")

// Summary holds the whole-track statistics recorded by the backend when the
// track was opened.  Its methods never rescan data.
type Summary struct {
	// BasesCovered is the number of bases that have a value.
	BasesCovered int64 `json:"basesCovered"`
	// Sum and SumSquares are the sums of the per-base values and of their
	// squares.
	Sum        float64 `json:"sum"`
	SumSquares float64 `json:"sumSquares"`
	MinValue   float64 `json:"min"`
	MaxValue   float64 `json:"max"`
}

// NumBases returns the number of bases covered.
func (s Summary) NumBases() int64 { return s.BasesCovered }

// Total returns the sum of all per-base values.
func (s Summary) Total() float64 { return s.Sum }

// Min returns the smallest value.
func (s Summary) Min() float64 { return s.MinValue }

// Max returns the largest value.
func (s Summary) Max() float64 { return s.MaxValue }

// Mean returns Total()/NumBases().  If no bases are covered it returns NaN
// and ErrNoCoverage.
func (s Summary) Mean() (float64, error) {
	if s.BasesCovered == 0 {
		return math.NaN(), ErrNoCoverage
	}
	return s.Sum / float64(s.BasesCovered), nil
}

// Stdev returns the population standard deviation of the per-base values,
// computed from the raw moments as sqrt(SumSquares/N - Mean^2).  If no bases
// are covered it returns NaN and ErrNoCoverage.
func (s Summary) Stdev() (float64, error) {
	mean, err := s.Mean()
	if err != nil {
		return mean, err
	}
	v := s.SumSquares/float64(s.BasesCovered) - mean*mean
	if v < 0 {
		// Rounding noise for constant tracks.
		v = 0
	}
	return math.Sqrt(v), nil
}
