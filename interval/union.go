package interval

import (
	"sort"
)

// Union is a per-chromosome interval-union: overlapping and touching ranges
// are merged, not tracked separately.
//
// Each chromosome's union is stored as a length-2N sequence of endpoints,
// where N is the number of disjoint ranges; the (0-based) start of range #k
// is in element [2k] and its (exclusive) end is in element [2k+1], in
// increasing order.
//
// Ranges may be added in any order; they are merged lazily on the next read.
// Union is not thread safe.
type Union struct {
	// nameMap is a chromosome-keyed map with disjoint-interval-set values.
	nameMap map[string][]int
	// pending holds ranges added since the last merge, by chromosome.
	pending map[string][]int
	// chrNames lists chromosomes in order of first appearance.
	chrNames []string
}

// NewUnion creates an empty Union.
func NewUnion() *Union {
	return &Union{
		nameMap: make(map[string][]int),
		pending: make(map[string][]int),
	}
}

// Add adds the 0-based half-open range [start0, end) on chr.  Empty ranges
// still register the chromosome.
func (u *Union) Add(chr string, start0, end int) {
	if _, ok := u.nameMap[chr]; !ok {
		if _, ok := u.pending[chr]; !ok {
			u.chrNames = append(u.chrNames, chr)
		}
	}
	if end <= start0 {
		if _, ok := u.pending[chr]; !ok {
			u.pending[chr] = nil
		}
		return
	}
	u.pending[chr] = append(u.pending[chr], start0, end)
}

func (u *Union) merge() {
	if len(u.pending) == 0 {
		return
	}
	for chr, added := range u.pending {
		ranges := append(append([]int(nil), u.nameMap[chr]...), added...)
		n := len(ranges) / 2
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(i, j int) bool { return ranges[2*idx[i]] < ranges[2*idx[j]] })
		merged := make([]int, 0, len(ranges))
		for _, k := range idx {
			start, end := ranges[2*k], ranges[2*k+1]
			if last := len(merged); last > 0 && start <= merged[last-1] {
				// Intervals overlap or touch; merge them.
				if end > merged[last-1] {
					merged[last-1] = end
				}
				continue
			}
			merged = append(merged, start, end)
		}
		u.nameMap[chr] = merged
	}
	u.pending = make(map[string][]int)
}

// Chromosomes returns the chromosome names in order of first appearance.
func (u *Union) Chromosomes() []string {
	return u.chrNames
}

// Extent returns the smallest 0-based half-open range covering every base of
// chr in the union.  ok is false if chr has no covered bases.
func (u *Union) Extent(chr string) (start0, end int, ok bool) {
	u.merge()
	endpoints := u.nameMap[chr]
	if len(endpoints) == 0 {
		return 0, 0, false
	}
	return endpoints[0], endpoints[len(endpoints)-1], true
}
