package bigwig

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io/ioutil"
	"math"

	"github.com/klauspost/compress/zlib"
)

// Section types.
const (
	BedGraphSection     = 1
	VariableStepSection = 2
	FixedStepSection    = 3
)

// Record is a single data item: Value applies to each base in the 0-based
// half-open range [Start0, End) of chromosome ChromID.
type Record struct {
	ChromID uint32
	Start0  uint32
	End     uint32
	Value   float32
}

// decodeBlock expands one data block into its records.  A block holds one or
// more sections, each with its own header.
func decodeBlock(raw []byte, compressed bool, order binary.ByteOrder, recs []Record) ([]Record, error) {
	if compressed {
		zr, err := zlib.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		data, err := ioutil.ReadAll(zr)
		if err != nil {
			return nil, err
		}
		if err := zr.Close(); err != nil {
			return nil, err
		}
		raw = data
	}
	for len(raw) > 0 {
		var err error
		if raw, recs, err = decodeSection(raw, order, recs); err != nil {
			return nil, err
		}
	}
	return recs, nil
}

func decodeSection(raw []byte, order binary.ByteOrder, recs []Record) ([]byte, []Record, error) {
	if len(raw) < sectionHdrSize {
		return nil, nil, fmt.Errorf("truncated section header (%d bytes)", len(raw))
	}
	var (
		chromID   = order.Uint32(raw[0:4])
		start     = order.Uint32(raw[4:8])
		step      = order.Uint32(raw[12:16])
		span      = order.Uint32(raw[16:20])
		typ       = raw[20]
		itemCount = int(order.Uint16(raw[22:24]))
	)
	raw = raw[sectionHdrSize:]
	var itemSize int
	switch typ {
	case BedGraphSection:
		itemSize = 12
	case VariableStepSection:
		itemSize = 8
	case FixedStepSection:
		itemSize = 4
	default:
		return nil, nil, fmt.Errorf("unknown section type %d", typ)
	}
	if len(raw) < itemCount*itemSize {
		return nil, nil, fmt.Errorf("truncated section: %d items of %d bytes, %d bytes left", itemCount, itemSize, len(raw))
	}
	for i := 0; i < itemCount; i++ {
		item := raw[i*itemSize : (i+1)*itemSize]
		rec := Record{ChromID: chromID}
		switch typ {
		case BedGraphSection:
			rec.Start0 = order.Uint32(item[0:4])
			rec.End = order.Uint32(item[4:8])
			rec.Value = math.Float32frombits(order.Uint32(item[8:12]))
		case VariableStepSection:
			rec.Start0 = order.Uint32(item[0:4])
			rec.End = rec.Start0 + span
			rec.Value = math.Float32frombits(order.Uint32(item[4:8]))
		case FixedStepSection:
			rec.Start0 = start + uint32(i)*step
			rec.End = rec.Start0 + span
			rec.Value = math.Float32frombits(order.Uint32(item[0:4]))
		}
		recs = append(recs, rec)
	}
	return raw[itemCount*itemSize:], recs, nil
}
