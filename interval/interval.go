package interval

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/base/errors"
)

// Strand symbols used by the text formats.
const (
	WatsonStrand = "+"
	CrickStrand  = "-"
)

// Interval is an immutable chromosome sub-range.  Start and Stop are 1-based
// and inclusive, in the order supplied by the caller; Start > Stop denotes a
// Crick interval.  The zero value is not meaningful, but it is harmless.
//
// Interval is a value type and is safe to share between goroutines.
type Interval struct {
	chr   string
	start int
	stop  int
}

// New creates an interval.  It never fails; callers may deliberately pass
// start > stop to request the reverse orientation.
func New(chr string, start, stop int) Interval {
	return Interval{chr: chr, start: start, stop: stop}
}

// Chr returns the chromosome name.
func (iv Interval) Chr() string { return iv.chr }

// Start returns the first endpoint as given to New.
func (iv Interval) Start() int { return iv.start }

// Stop returns the second endpoint as given to New.
func (iv Interval) Stop() int { return iv.stop }

// Low returns the smaller endpoint.
func (iv Interval) Low() int {
	if iv.start <= iv.stop {
		return iv.start
	}
	return iv.stop
}

// High returns the larger endpoint.
func (iv Interval) High() int {
	if iv.start <= iv.stop {
		return iv.stop
	}
	return iv.start
}

// Length returns the number of bases covered, High()-Low()+1.
func (iv Interval) Length() int {
	return iv.High() - iv.Low() + 1
}

// Center returns Low() + Length()/2.  It depends only on the unordered span,
// so an interval and its endpoint-swapped twin share a center.
func (iv Interval) Center() int {
	return iv.Low() + iv.Length()/2
}

// Includes reports whether Low() <= pos <= High().
func (iv Interval) Includes(pos int) bool {
	return iv.Low() <= pos && pos <= iv.High()
}

// IsWatson reports whether the interval is on the forward strand.  A
// single-base interval (Start == Stop) is Watson.
func (iv Interval) IsWatson() bool {
	return iv.start <= iv.stop
}

// IsCrick reports whether the interval is on the reverse strand.
func (iv Interval) IsCrick() bool {
	return iv.start > iv.stop
}

// Strand returns "+" for Watson intervals and "-" for Crick intervals.
func (iv Interval) Strand() string {
	if iv.IsWatson() {
		return WatsonStrand
	}
	return CrickStrand
}

// BED formats the interval as a six-column BED line (no newline).  BED starts
// are 0-based, so the second column is Low()-1.
func (iv Interval) BED() string {
	return iv.chr + "\t" + strconv.Itoa(iv.Low()-1) + "\t" + strconv.Itoa(iv.High()) +
		"\t.\t.\t" + iv.Strand()
}

// BedGraph formats the interval as the three coordinate columns of a
// bedGraph line (no newline).
func (iv Interval) BedGraph() string {
	return iv.chr + "\t" + strconv.Itoa(iv.Low()-1) + "\t" + strconv.Itoa(iv.High())
}

// GFF formats the interval as a GFF line (no newline).  Unlike BED, GFF
// coordinates are 1-based and closed.
func (iv Interval) GFF() string {
	return iv.chr + "\tSpotArray\tfeature\t" + strconv.Itoa(iv.Low()) + "\t" + strconv.Itoa(iv.High()) +
		"\t.\t" + iv.Strand() + "\t.\tprobe_id=no_id;count=1"
}

// String returns "chr:start-stop" with the endpoints in their original order.
// Parse accepts the result.
func (iv Interval) String() string {
	return fmt.Sprintf("%s:%d-%d", iv.chr, iv.start, iv.stop)
}

// Parse parses a region string of one of the forms
//   [chr]:[1-based start]-[1-based stop]
//   [chr]:[1-based pos]
// A start greater than stop yields a Crick interval.  The single-position form
// yields a one-base Watson interval.
func Parse(region string) (Interval, error) {
	if len(region) == 0 {
		return Interval{}, errors.E(errors.Invalid, "interval.Parse: empty region string")
	}
	colonPos := strings.LastIndexByte(region, ':')
	if colonPos == -1 {
		return Interval{}, errors.E(errors.Invalid, fmt.Sprintf("interval.Parse: %q has no position", region))
	}
	if colonPos == 0 {
		return Interval{}, errors.E(errors.Invalid, fmt.Sprintf("interval.Parse: %q has an empty chromosome", region))
	}
	chr := region[:colonPos]
	rangeStr := strings.Replace(region[colonPos+1:], ",", "", -1)
	parsePos := func(s string) (int, error) {
		pos, err := strconv.Atoi(s)
		if err != nil {
			return 0, errors.E(errors.Invalid, err, fmt.Sprintf("interval.Parse: bad position in %q", region))
		}
		if pos <= 0 {
			return 0, errors.E(errors.Invalid, fmt.Sprintf("interval.Parse: position %d in %q out of range", pos, region))
		}
		return pos, nil
	}
	dashPos := strings.IndexByte(rangeStr, '-')
	if dashPos == -1 {
		pos, err := parsePos(rangeStr)
		if err != nil {
			return Interval{}, err
		}
		return New(chr, pos, pos), nil
	}
	start, err := parsePos(rangeStr[:dashPos])
	if err != nil {
		return Interval{}, err
	}
	stop, err := parsePos(rangeStr[dashPos+1:])
	if err != nil {
		return Interval{}, err
	}
	return New(chr, start, stop), nil
}
