package bigwig

import (
	"fmt"
	"sort"
)

// block is one R-tree leaf: a compressed data block and the range of
// chromosome positions it covers.
type block struct {
	startChrom, startBase uint32
	endChrom, endBase     uint32
	offset, size          uint64
}

// overlaps reports whether the block may hold data for chromID in the 0-based
// half-open range [start0, end).
func (b block) overlaps(chromID uint32, start0, end uint32) bool {
	if chromID < b.startChrom || chromID > b.endChrom {
		return false
	}
	if chromID == b.startChrom && end <= b.startBase {
		return false
	}
	if chromID == b.endChrom && start0 >= b.endBase {
		return false
	}
	return true
}

// readIndex reads every leaf of the R-tree rooted at off, sorted by
// (startChrom, startBase).
func (r *Reader) readIndex(off int64) ([]block, error) {
	buf, err := r.readAt(off, indexHdrSize)
	if err != nil {
		return nil, err
	}
	if r.order.Uint32(buf[0:4]) != indexMagic {
		return nil, fmt.Errorf("invalid index magic %#x", r.order.Uint32(buf[0:4]))
	}
	var blocks []block
	if err := r.readIndexNode(off+indexHdrSize, &blocks, 0); err != nil {
		return nil, err
	}
	sort.SliceStable(blocks, func(i, j int) bool {
		if blocks[i].startChrom != blocks[j].startChrom {
			return blocks[i].startChrom < blocks[j].startChrom
		}
		return blocks[i].startBase < blocks[j].startBase
	})
	return blocks, nil
}

func (r *Reader) readIndexNode(off int64, blocks *[]block, depth int) error {
	if depth > maxTreeDepth {
		return fmt.Errorf("index tree is too deep")
	}
	hdr, err := r.readAt(off, nodeHdrSize)
	if err != nil {
		return err
	}
	isLeaf := hdr[0] != 0
	count := int(r.order.Uint16(hdr[2:4]))
	itemSize := nonLeafItemSize
	if isLeaf {
		itemSize = leafItemSize
	}
	items, err := r.readAt(off+nodeHdrSize, count*itemSize)
	if err != nil {
		return err
	}
	for i := 0; i < count; i++ {
		item := items[i*itemSize : (i+1)*itemSize]
		if isLeaf {
			*blocks = append(*blocks, block{
				startChrom: r.order.Uint32(item[0:4]),
				startBase:  r.order.Uint32(item[4:8]),
				endChrom:   r.order.Uint32(item[8:12]),
				endBase:    r.order.Uint32(item[12:16]),
				offset:     r.order.Uint64(item[16:24]),
				size:       r.order.Uint64(item[24:32]),
			})
			continue
		}
		child := int64(r.order.Uint64(item[16:24]))
		if err := r.readIndexNode(child, blocks, depth+1); err != nil {
			return err
		}
	}
	return nil
}
