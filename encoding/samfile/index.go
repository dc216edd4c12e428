package samfile

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"v.io/x/lib/vlog"
)

// ensureIndexed makes the file indexed, converting it if needed.
func (f *File) ensureIndexed(ctx context.Context) error {
	if f.closed {
		return errors.E(errors.Precondition, f.path+": file is closed")
	}
	if f.index != nil {
		return nil
	}
	// The conversion reads the input sequentially, which ends any active
	// cursor.
	f.invalidate()
	dir, err := tempDir(f.opts)
	if err != nil {
		return err
	}
	bamPath := filepath.Join(dir, filepath.Base(f.path)+".bam")
	idx, err := f.convert(ctx, bamPath)
	if err != nil {
		if rerr := os.RemoveAll(dir); rerr != nil {
			vlog.Errorf("%v: removing %v: %v", f.path, dir, rerr)
		}
		return err
	}
	f.tmpDir, f.bamPath, f.index = dir, bamPath, idx
	return nil
}

// convert copies the input, sorted by coordinate, into a BAM file at
// bamPath, then indexes it into bamPath + ".bai".
func (f *File) convert(ctx context.Context, bamPath string) (*bam.Index, error) {
	vlog.VI(1).Infof("%v: converting to indexed BAM %v", f.path, bamPath)
	sr, err := f.openSequential(ctx, f.path, f.format)
	if err != nil {
		return nil, err
	}
	var records []*sam.Record
	r := sr.reader()
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			_ = sr.close()
			return nil, errors.E(errors.Integrity, f.path, err)
		}
		records = append(records, rec)
	}
	if err := sr.close(); err != nil {
		return nil, err
	}
	sortRecords(records)

	if err := writeBAM(ctx, bamPath, f.header, records); err != nil {
		return nil, err
	}
	idx, err := indexBAM(ctx, bamPath)
	if err != nil {
		return nil, err
	}
	vlog.VI(1).Infof("%v: indexed %d records", f.path, len(records))
	return idx, nil
}

// refOrder places unmapped records, which have ID -1, after all references.
func refOrder(rec *sam.Record) uint {
	return uint(rec.Ref.ID())
}

func sortRecords(records []*sam.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		ri, rj := refOrder(records[i]), refOrder(records[j])
		if ri != rj {
			return ri < rj
		}
		return records[i].Pos < records[j].Pos
	})
}

func writeBAM(ctx context.Context, path string, header *sam.Header, records []*sam.Record) error {
	out, err := file.Create(ctx, path)
	if err != nil {
		return err
	}
	var e errors.Once
	w, err := bam.NewWriter(out.Writer(ctx), header, 1)
	if err != nil {
		e.Set(err)
	} else {
		for _, rec := range records {
			if err := w.Write(rec); err != nil {
				e.Set(errors.E(errors.Integrity, fmt.Sprintf("%s: writing %s", path, rec.Name), err))
				break
			}
		}
		e.Set(w.Close())
	}
	e.Set(out.Close(ctx))
	return e.Err()
}

// indexBAM builds the BAI index of the sorted BAM file at path, writes it to
// path + ".bai" and returns it.
func indexBAM(ctx context.Context, path string) (*bam.Index, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer in.Close(ctx) // nolint: errcheck
	br, err := bam.NewReader(in.Reader(ctx), 1)
	if err != nil {
		return nil, errors.E(errors.Integrity, path, err)
	}
	defer br.Close() // nolint: errcheck
	idx := &bam.Index{}
	for {
		rec, err := br.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.E(errors.Integrity, path, err)
		}
		if err := idx.Add(rec, br.LastChunk()); err != nil {
			return nil, errors.E(errors.Integrity, fmt.Sprintf("%s: indexing %s", path, rec.Name), err)
		}
	}

	out, err := file.Create(ctx, path+".bai")
	if err != nil {
		return nil, err
	}
	var e errors.Once
	e.Set(bam.WriteIndex(out.Writer(ctx), idx))
	e.Set(out.Close(ctx))
	if err := e.Err(); err != nil {
		return nil, err
	}
	return idx, nil
}
