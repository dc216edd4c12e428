package signal

import (
	"fmt"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/biosignal/interval"
)

// CoverageError reports a query for an interval that the track does not
// cover.  It is returned wrapped in an *errors.Error of kind errors.NotExist.
type CoverageError struct {
	Interval interval.Interval
	// Start and Stop are the 1-based inclusive bounds of the chromosome, if
	// HasBounds is set.
	Start, Stop int
	HasBounds   bool
}

func (e *CoverageError) Error() string {
	if !e.HasBounds {
		return fmt.Sprintf("signal: chromosome %s not covered (query %s)", e.Interval.Chr(), e.Interval)
	}
	return fmt.Sprintf("signal: %s is outside of the covered range %s:%d-%d",
		e.Interval, e.Interval.Chr(), e.Start, e.Stop)
}

func coverageError(iv interval.Interval, start, stop int, ok bool) error {
	return errors.E(errors.NotExist, &CoverageError{Interval: iv, Start: start, Stop: stop, HasBounds: ok})
}

// AsCoverageError returns the CoverageError inside err, if there is one.
func AsCoverageError(err error) (*CoverageError, bool) {
	for err != nil {
		switch e := err.(type) {
		case *CoverageError:
			return e, true
		case *errors.Error:
			err = e.Err
		default:
			return nil, false
		}
	}
	return nil, false
}
