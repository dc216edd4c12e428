// Package bigwigtest builds small BigWig files for tests.
package bigwigtest

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/klauspost/compress/zlib"
)

// Section types, matching the values stored in the file.
const (
	BedGraph     = 1
	VariableStep = 2
	FixedStep    = 3
)

// Chrom is one entry of the chromosome list.
type Chrom struct {
	Name string
	Size uint32
}

// Item is one data item.  For VariableStep sections End is ignored (the
// section span applies); for FixedStep sections Start0 and End are ignored.
type Item struct {
	Start0, End uint32
	Value       float32
}

// Section is a run of items of one type on one chromosome.  Each section is
// written as its own data block.
type Section struct {
	Chrom string
	Type  uint8
	// Start, Step and Span apply to FixedStep sections; Span also applies to
	// VariableStep sections.
	Start, Step, Span uint32
	Items             []Item
}

// Opts controls the layout of the generated file.
type Opts struct {
	// BigEndian writes a big-endian file.
	BigEndian bool
	// Uncompressed stores data blocks without zlib compression.
	Uncompressed bool
	// Nested writes two-level chromosome and index trees instead of single
	// leaf nodes.
	Nested bool
	// NoSummary leaves the total summary offset at zero.
	NoSummary bool
}

type span struct {
	chromID     uint32
	start0, end uint32
	value       float32
}

func (s Section) spans(chromID uint32) []span {
	out := make([]span, len(s.Items))
	for i, item := range s.Items {
		sp := span{chromID: chromID, value: item.Value}
		switch s.Type {
		case BedGraph:
			sp.start0, sp.end = item.Start0, item.End
		case VariableStep:
			sp.start0, sp.end = item.Start0, item.Start0+s.Span
		case FixedStep:
			sp.start0 = s.Start + uint32(i)*s.Step
			sp.end = sp.start0 + s.Span
		}
		out[i] = sp
	}
	return out
}

type writer struct {
	buf   bytes.Buffer
	order binary.ByteOrder
}

func (w *writer) u8(v uint8) { w.buf.WriteByte(v) }
func (w *writer) u16(v uint16) { _ = binary.Write(&w.buf, w.order, v) }
func (w *writer) u32(v uint32) { _ = binary.Write(&w.buf, w.order, v) }
func (w *writer) u64(v uint64) { _ = binary.Write(&w.buf, w.order, v) }
func (w *writer) f32(v float32) { w.u32(math.Float32bits(v)) }
func (w *writer) f64(v float64) { w.u64(math.Float64bits(v)) }
func (w *writer) off() uint64 { return uint64(w.buf.Len()) }

func (w *writer) put64(at, v uint64) { w.order.PutUint64(w.buf.Bytes()[at:at+8], v) }

// Build returns the bytes of a BigWig file with the given chromosomes and
// sections.  Sections naming unknown chromosomes cause a panic.
func Build(chroms []Chrom, sections []Section, opts Opts) []byte {
	w := &writer{order: binary.LittleEndian}
	if opts.BigEndian {
		w.order = binary.BigEndian
	}
	ids := map[string]uint32{}
	for i, c := range chroms {
		ids[c.Name] = uint32(i)
	}

	// Header; offsets are patched below.
	w.u32(0x888FFC26)
	w.u16(4) // version
	w.u16(0) // zoom levels
	w.u64(0) // chromTreeOffset, at 8
	w.u64(0) // fullDataOffset, at 16
	w.u64(0) // fullIndexOffset, at 24
	w.u16(0) // fieldCount
	w.u16(0) // definedFieldCount
	w.u64(0) // autoSqlOffset
	w.u64(0) // totalSummaryOffset, at 44
	if opts.Uncompressed {
		w.u32(0)
	} else {
		w.u32(1 << 16)
	}
	w.u64(0) // extensionOffset

	// Total summary.
	var all []span
	for _, s := range sections {
		id, ok := ids[s.Chrom]
		if !ok {
			panic("bigwigtest: unknown chromosome " + s.Chrom)
		}
		all = append(all, s.spans(id)...)
	}
	if !opts.NoSummary {
		w.put64(44, w.off())
		var (
			bases              uint64
			min, max, sum, ssq float64
		)
		min, max = math.Inf(1), math.Inf(-1)
		for _, sp := range all {
			if math.IsNaN(float64(sp.value)) {
				continue
			}
			n := float64(sp.end - sp.start0)
			v := float64(sp.value)
			bases += uint64(sp.end - sp.start0)
			min = math.Min(min, v)
			max = math.Max(max, v)
			sum += v * n
			ssq += v * v * n
		}
		if bases == 0 {
			min, max = 0, 0
		}
		w.u64(bases)
		w.f64(min)
		w.f64(max)
		w.f64(sum)
		w.f64(ssq)
	}

	// Chromosome tree.
	w.put64(8, w.off())
	keySize := 1
	for _, c := range chroms {
		if len(c.Name) > keySize {
			keySize = len(c.Name)
		}
	}
	w.u32(0x78CA8C91)
	w.u32(uint32(len(chroms))) // blockSize
	w.u32(uint32(keySize))
	w.u32(8)
	w.u64(uint64(len(chroms)))
	w.u64(0)
	key := func(name string) {
		b := make([]byte, keySize)
		copy(b, name)
		w.buf.Write(b)
	}
	chromLeaf := func(cs []Chrom, first int) {
		w.u8(1)
		w.u8(0)
		w.u16(uint16(len(cs)))
		for i, c := range cs {
			key(c.Name)
			w.u32(uint32(first + i))
			w.u32(c.Size)
		}
	}
	if opts.Nested && len(chroms) > 0 {
		// Root with one child per chromosome.
		w.u8(0)
		w.u8(0)
		w.u16(uint16(len(chroms)))
		childAt := make([]uint64, len(chroms))
		for i, c := range chroms {
			key(c.Name)
			childAt[i] = w.off()
			w.u64(0)
		}
		for i, c := range chroms {
			w.put64(childAt[i], w.off())
			chromLeaf([]Chrom{c}, i)
		}
	} else {
		chromLeaf(chroms, 0)
	}

	// Data blocks.
	w.put64(16, w.off())
	w.u32(uint32(len(sections)))
	type leaf struct {
		first, last  span
		offset, size uint64
	}
	var leaves []leaf
	for _, s := range sections {
		sp := s.spans(ids[s.Chrom])
		if len(sp) == 0 {
			continue
		}
		sec := &writer{order: w.order}
		sec.u32(ids[s.Chrom])
		sec.u32(sp[0].start0)
		sec.u32(sp[len(sp)-1].end)
		sec.u32(s.Step)
		sec.u32(s.Span)
		sec.u8(s.Type)
		sec.u8(0)
		sec.u16(uint16(len(s.Items)))
		for i, item := range s.Items {
			switch s.Type {
			case BedGraph:
				sec.u32(item.Start0)
				sec.u32(item.End)
			case VariableStep:
				sec.u32(sp[i].start0)
			}
			sec.f32(item.Value)
		}
		data := sec.buf.Bytes()
		if !opts.Uncompressed {
			var z bytes.Buffer
			zw := zlib.NewWriter(&z)
			_, _ = zw.Write(data)
			_ = zw.Close()
			data = z.Bytes()
		}
		leaves = append(leaves, leaf{sp[0], sp[len(sp)-1], w.off(), uint64(len(data))})
		w.buf.Write(data)
	}

	// R-tree index.
	w.put64(24, w.off())
	w.u32(0x2468ACE0)
	w.u32(uint32(len(leaves))) // blockSize
	w.u64(uint64(len(leaves)))
	if len(leaves) > 0 {
		w.u32(leaves[0].first.chromID)
		w.u32(leaves[0].first.start0)
		w.u32(leaves[len(leaves)-1].last.chromID)
		w.u32(leaves[len(leaves)-1].last.end)
	} else {
		w.u32(0)
		w.u32(0)
		w.u32(0)
		w.u32(0)
	}
	w.u64(w.off() + 16) // endFileOffset
	w.u32(1)            // itemsPerSlot
	w.u32(0)
	bounds := func(l leaf) {
		w.u32(l.first.chromID)
		w.u32(l.first.start0)
		w.u32(l.last.chromID)
		w.u32(l.last.end)
	}
	leafNode := func(ls []leaf) {
		w.u8(1)
		w.u8(0)
		w.u16(uint16(len(ls)))
		for _, l := range ls {
			bounds(l)
			w.u64(l.offset)
			w.u64(l.size)
		}
	}
	if opts.Nested && len(leaves) > 0 {
		w.u8(0)
		w.u8(0)
		w.u16(uint16(len(leaves)))
		childAt := make([]uint64, len(leaves))
		for i, l := range leaves {
			bounds(l)
			childAt[i] = w.off()
			w.u64(0)
		}
		for i, l := range leaves {
			w.put64(childAt[i], w.off())
			leafNode([]leaf{l})
		}
	} else {
		leafNode(leaves)
	}
	return w.buf.Bytes()
}
