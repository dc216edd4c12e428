// Package samfile reads SAM and BAM files through a single interface.
//
// Sequential iteration works on either format.  Random access (Query and
// Count) needs a coordinate-sorted BAM file with a BAI index; a SAM file, or
// a BAM file without an index, is converted on first use into a temporary
// sorted BAM file and index that are removed by Close.
package samfile

import (
	"bytes"
	"context"
	"io"
	"io/ioutil"
	"os"

	"github.com/biogo/hts/bam"
	"github.com/biogo/hts/sam"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"v.io/x/lib/vlog"
)

// Format is the on-disk format of a file.
type Format int

const (
	// SAM is the text format.
	SAM Format = iota
	// BAM is the BGZF-compressed binary format.
	BAM
)

func (f Format) String() string {
	if f == BAM {
		return "bam"
	}
	return "sam"
}

// bgzfMagic starts every gzip member; BAM files are a series of them.
var bgzfMagic = []byte{0x1f, 0x8b, 0x08, 0x04}

// Opts defines options for Open.
type Opts struct {
	// Index is the path of the BAM index.  If empty, Path + ".bai" is tried.
	// Ignored for SAM files.
	Index string
	// TempDir is the directory in which converted files are created.  If
	// empty, the system default is used.
	TempDir string
}

func mergeOpts(optList []Opts) Opts {
	opts := Opts{}
	for _, o := range optList {
		if o.Index != "" {
			opts.Index = o.Index
		}
		if o.TempDir != "" {
			opts.TempDir = o.TempDir
		}
	}
	return opts
}

// File is an open SAM or BAM file.
//
// A File moves one way from unindexed to indexed, the first time Query or
// Count needs the index.  A failed conversion leaves it unindexed, and the
// next call retries.
//
// At most one Iterator is active per File: creating an Iterator, by Iterator
// or Query, invalidates the previous one.  File is not thread safe.
type File struct {
	path   string
	opts   Opts
	format Format
	header *sam.Header

	// bamPath and index are set once the file is indexed.  bamPath is path
	// itself for an indexed BAM input.
	bamPath string
	index   *bam.Index
	// tmpDir holds converted files; removed by Close.
	tmpDir string

	count   int64
	counted bool

	gen    int
	active *Iterator
	closed bool
}

// DetectFormat returns the format of the file at path: BAM if it starts with
// the BGZF magic bytes, SAM otherwise.
func DetectFormat(ctx context.Context, path string) (Format, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return SAM, errors.E(errors.NotExist, path, err)
	}
	defer in.Close(ctx) // nolint: errcheck
	magic := make([]byte, len(bgzfMagic))
	n, err := io.ReadFull(in.Reader(ctx), magic)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return SAM, err
	}
	if n == len(magic) && bytes.Equal(magic, bgzfMagic) {
		return BAM, nil
	}
	return SAM, nil
}

// Open opens the SAM or BAM file at path and reads its header.
func Open(ctx context.Context, path string, optList ...Opts) (*File, error) {
	opts := mergeOpts(optList)
	format, err := DetectFormat(ctx, path)
	if err != nil {
		return nil, err
	}
	f := &File{path: path, opts: opts, format: format}
	sr, err := f.openSequential(ctx, path, format)
	if err != nil {
		return nil, err
	}
	f.header = sr.header()
	if err := sr.close(); err != nil {
		return nil, err
	}
	if format == BAM {
		indexPath := opts.Index
		if indexPath == "" {
			indexPath = path + ".bai"
		}
		if idx, err := readIndex(ctx, indexPath); err == nil {
			f.bamPath, f.index = path, idx
		} else {
			vlog.VI(1).Infof("%v: no usable index at %v (%v); will index on demand", path, indexPath, err)
		}
	}
	vlog.VI(1).Infof("%v: opened %v file, %d references, indexed=%v", path, format, len(f.header.Refs()), f.index != nil)
	return f, nil
}

func readIndex(ctx context.Context, path string) (*bam.Index, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer in.Close(ctx) // nolint: errcheck
	return bam.ReadIndex(in.Reader(ctx))
}

// Path returns the path passed to Open.
func (f *File) Path() string { return f.path }

// Format returns the on-disk format of the file.
func (f *File) Format() Format { return f.format }

// Header returns the SAM header.
func (f *File) Header() *sam.Header { return f.header }

// Chromosomes returns the reference names listed in the header.
func (f *File) Chromosomes() []string {
	var names []string
	for _, ref := range f.header.Refs() {
		names = append(names, ref.Name())
	}
	return names
}

// Indexed reports whether random access is available without conversion.
func (f *File) Indexed() bool { return f.index != nil }

// Close invalidates the active iterator and removes any temporary files.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true
	var err errors.Once
	f.invalidate()
	f.index = nil
	if f.tmpDir != "" {
		err.Set(os.RemoveAll(f.tmpDir))
		f.tmpDir = ""
	}
	return err.Err()
}

// invalidate ends the active cursor and releases its resources.
func (f *File) invalidate() {
	f.gen++
	if f.active != nil {
		f.active.release()
		f.active = nil
	}
}

// recordReader is the part of sam.Reader and bam.Reader used by Iterator.
type recordReader interface {
	Read() (*sam.Record, error)
}

// sequential wraps a reader over the whole file.
type sequential struct {
	in  file.File
	sr  *sam.Reader
	br  *bam.Reader
	ctx context.Context
}

func (f *File) openSequential(ctx context.Context, path string, format Format) (*sequential, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, errors.E(errors.NotExist, path, err)
	}
	s := &sequential{in: in, ctx: ctx}
	if format == BAM {
		s.br, err = bam.NewReader(in.Reader(ctx), 1)
	} else {
		s.sr, err = sam.NewReader(in.Reader(ctx))
	}
	if err != nil {
		_ = in.Close(ctx)
		return nil, errors.E(errors.Integrity, path, err)
	}
	return s, nil
}

func (s *sequential) header() *sam.Header {
	if s.br != nil {
		return s.br.Header()
	}
	return s.sr.Header()
}

func (s *sequential) reader() recordReader {
	if s.br != nil {
		return s.br
	}
	return s.sr
}

func (s *sequential) close() error {
	var err errors.Once
	if s.br != nil {
		err.Set(s.br.Close())
	}
	err.Set(s.in.Close(s.ctx))
	return err.Err()
}

func tempDir(opts Opts) (string, error) {
	dir := opts.TempDir
	if dir == "" {
		dir = os.TempDir()
	}
	return ioutil.TempDir(dir, "samfile")
}
