package signal

import (
	"fmt"
	"strings"
)

// Describe returns a human-readable description of src: the bounds of each
// chromosome followed by the whole-track statistics.
func Describe(src Source) string {
	var b strings.Builder
	b.WriteString("Signal track:\n")
	for _, chr := range src.Chromosomes() {
		start, stop, ok := src.Bounds(chr)
		if !ok {
			fmt.Fprintf(&b, "Chromosome %s, no data\n", chr)
			continue
		}
		fmt.Fprintf(&b, "Chromosome %s, start=%d, stop=%d\n", chr, start, stop)
	}
	s := src.Summary()
	mean, _ := s.Mean()
	stdev, _ := s.Stdev()
	b.WriteString("Basic Statistics:\n")
	fmt.Fprintf(&b, "\tMean:\t\t\t%v\n", mean)
	fmt.Fprintf(&b, "\tStandard Deviation:\t%v\n", stdev)
	fmt.Fprintf(&b, "\tTotal:\t\t\t%v\n", s.Total())
	fmt.Fprintf(&b, "\tBases Covered:\t\t%d\n", s.NumBases())
	fmt.Fprintf(&b, "\tMin value:\t\t%v\n", s.Min())
	fmt.Fprintf(&b, "\tMax value:\t\t%v", s.Max())
	return b.String()
}
