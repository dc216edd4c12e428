package bigwig

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

const (
	// Magic is the first word of every BigWig file.
	Magic = 0x888FFC26
	// chromTreeMagic starts the chromosome B+ tree.
	chromTreeMagic = 0x78CA8C91
	// indexMagic starts the R-tree data index.
	indexMagic = 0x2468ACE0

	headerSize       = 64
	zoomHeaderSize   = 24
	summarySize      = 40
	chromTreeHdrSize = 32
	indexHdrSize     = 48
	nodeHdrSize      = 4
	leafItemSize     = 32
	nonLeafItemSize  = 24
	sectionHdrSize   = 24
)

// IsMagic reports whether b starts with the BigWig magic number in either
// byte order.
func IsMagic(b []byte) bool {
	if len(b) < 4 {
		return false
	}
	return binary.LittleEndian.Uint32(b) == Magic || binary.BigEndian.Uint32(b) == Magic
}

// Header is the fixed-size header at the start of a BigWig file.
type Header struct {
	Version           uint16
	ZoomLevels        uint16
	ChromTreeOffset   uint64
	FullDataOffset    uint64
	FullIndexOffset   uint64
	SummaryOffset     uint64
	UncompressBufSize uint32
}

func parseHeader(buf []byte) (Header, binary.ByteOrder, error) {
	var order binary.ByteOrder
	switch {
	case binary.LittleEndian.Uint32(buf) == Magic:
		order = binary.LittleEndian
	case binary.BigEndian.Uint32(buf) == Magic:
		order = binary.BigEndian
	default:
		return Header{}, nil, fmt.Errorf("not a BigWig file (magic %#x)", binary.LittleEndian.Uint32(buf))
	}
	h := Header{
		Version:           order.Uint16(buf[4:6]),
		ZoomLevels:        order.Uint16(buf[6:8]),
		ChromTreeOffset:   order.Uint64(buf[8:16]),
		FullDataOffset:    order.Uint64(buf[16:24]),
		FullIndexOffset:   order.Uint64(buf[24:32]),
		SummaryOffset:     order.Uint64(buf[44:52]),
		UncompressBufSize: order.Uint32(buf[52:56]),
	}
	return h, order, nil
}

// Summary is the total summary block: statistics over every base in the file
// that has a value.
type Summary struct {
	BasesCovered uint64
	Min          float64
	Max          float64
	Sum          float64
	SumSquares   float64
}

func parseSummary(buf []byte, order binary.ByteOrder) Summary {
	return Summary{
		BasesCovered: order.Uint64(buf[0:8]),
		Min:          math.Float64frombits(order.Uint64(buf[8:16])),
		Max:          math.Float64frombits(order.Uint64(buf[16:24])),
		Sum:          math.Float64frombits(order.Uint64(buf[24:32])),
		SumSquares:   math.Float64frombits(order.Uint64(buf[32:40])),
	}
}

// Chrom describes one entry of the chromosome B+ tree.
type Chrom struct {
	Name string
	ID   uint32
	Size uint32
}

// readChromTree reads the whole chromosome B+ tree rooted at off.
func (r *Reader) readChromTree(off int64) ([]Chrom, error) {
	buf, err := r.readAt(off, chromTreeHdrSize)
	if err != nil {
		return nil, err
	}
	if r.order.Uint32(buf[0:4]) != chromTreeMagic {
		return nil, fmt.Errorf("invalid chromosome tree magic %#x", r.order.Uint32(buf[0:4]))
	}
	keySize := int(r.order.Uint32(buf[8:12]))
	valSize := int(r.order.Uint32(buf[12:16]))
	if valSize != 8 {
		return nil, fmt.Errorf("invalid chromosome tree value size %d", valSize)
	}
	var chroms []Chrom
	err = r.readChromNode(off+chromTreeHdrSize, keySize, &chroms, 0)
	return chroms, err
}

// maxTreeDepth bounds recursion on corrupt files whose child pointers loop.
const maxTreeDepth = 64

func (r *Reader) readChromNode(off int64, keySize int, chroms *[]Chrom, depth int) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("chromosome tree is too deep")
	}
	hdr, err := r.readAt(off, nodeHdrSize)
	if err != nil {
		return err
	}
	isLeaf := hdr[0] != 0
	count := int(r.order.Uint16(hdr[2:4]))
	itemSize := keySize + 8
	items, err := r.readAt(off+nodeHdrSize, count*itemSize)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		item := items[i*itemSize : (i+1)*itemSize]
		if isLeaf {
			*chroms = append(*chroms, Chrom{
				Name: strings.TrimRight(string(item[:keySize]), "\x00"),
				ID:   r.order.Uint32(item[keySize : keySize+4]),
				Size: r.order.Uint32(item[keySize+4 : keySize+8]),
			})
			continue
		}
		child := int64(r.order.Uint64(item[keySize : keySize+8]))
		if err := r.readChromNode(child, keySize, chroms, depth+1); err != nil {
			return err
		}
	}
	return nil
}
